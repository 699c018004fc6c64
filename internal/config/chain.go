package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type ChainConfig struct {
	Network     string `env:"SOLANA_NETWORK" envDefault:"devnet"`
	RPCEndpoint string `env:"SOLANA_RPC_ENDPOINT"`

	HouseWalletAddress string  `env:"HOUSE_WALLET_ADDRESS" envDefault:"CHyQpdkGgoQbQDdm9vgjc3NpiBQ9wQ8Fu8LHQaPwoNdN"`
	HouseFeePercentage float64 `env:"HOUSE_FEE_PERCENTAGE" envDefault:"0.03"`

	StartDelay time.Duration `env:"GAME_START_DELAY" envDefault:"2s"`
	PlayDelay  time.Duration `env:"GAME_PLAY_DELAY" envDefault:"5s"`
}

func LoadChain() (ChainConfig, error) {
	var cfg ChainConfig
	err := env.Parse(&cfg)
	return cfg, err
}
