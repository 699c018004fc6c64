package config

import "github.com/caarlos0/env/v11"

type ServerConfig struct {
	// PostgresDSN is optional. Without it the server keeps games in memory
	// only and skips persistence entirely.
	PostgresDSN string `env:"POSTGRES_DSN"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
