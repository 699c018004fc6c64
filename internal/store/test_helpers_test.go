package store

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"hot-potato/internal/config"

	"github.com/jackc/pgx/v5"
)

var testSchemaNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// openStore gives each test its own schema so tests can run in parallel
// against one database. Skips when TEST_POSTGRES_DSN is unset.
func openStore(t *testing.T) (*Store, context.Context) {
	t.Helper()
	cfg, err := config.LoadTest()
	if err != nil {
		t.Skipf("skip test db: %v", err)
	}
	dsn := cfg.TestPostgresDSN
	schema := fmt.Sprintf("test_%d", time.Now().UnixNano())

	base, err := New(dsn)
	if err != nil {
		t.Fatalf("open base db: %v", err)
	}
	ctx := context.Background()
	createSQL, err := schemaDDL("CREATE SCHEMA %s", schema)
	if err != nil {
		base.Close()
		t.Fatalf("invalid schema name: %v", err)
	}
	if _, err := base.DB.ExecContext(ctx, createSQL); err != nil {
		base.Close()
		t.Fatalf("create schema: %v", err)
	}
	base.Close()

	st, err := New(withSearchPath(dsn, schema))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.EnsureSchema(ctx); err != nil {
		st.Close()
		t.Fatalf("ensure schema: %v", err)
	}

	t.Cleanup(func() {
		st.Close()
		base, err := New(dsn)
		if err != nil {
			return
		}
		if dropSQL, ddlErr := schemaDDL("DROP SCHEMA %s CASCADE", schema); ddlErr == nil {
			_, _ = base.DB.ExecContext(context.Background(), dropSQL)
		}
		base.Close()
	})
	return st, ctx
}

func withSearchPath(dsn, schema string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "search_path=" + url.QueryEscape(schema)
}

func schemaDDL(format, schema string) (string, error) {
	if !testSchemaNamePattern.MatchString(schema) {
		return "", fmt.Errorf("schema %q does not match required pattern", schema)
	}
	return fmt.Sprintf(format, pgx.Identifier{schema}.Sanitize()), nil
}
