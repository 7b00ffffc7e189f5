package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "production" {
		t.Fatalf("expected App.Env to be production, got %q", cfg.App.Env)
	}
	if cfg.Redis.URL != "redis://localhost:6379/0" {
		t.Fatalf("unexpected Redis URL: %q", cfg.Redis.URL)
	}
	if cfg.Store.Normalized() != StoreDriverRedis {
		t.Fatalf("expected default redis store, got %q", cfg.Store.Driver)
	}
	if got := cfg.Chain.Timeout; got != 10*time.Second {
		t.Fatalf("expected chain timeout 10s, got %v", got)
	}
	if cfg.Chain.TokenDecimals != 6 {
		t.Fatalf("expected 6 token decimals, got %d", cfg.Chain.TokenDecimals)
	}
	if got := cfg.Subscription.Period; got != 30*24*time.Hour {
		t.Fatalf("expected 30 day period, got %v", got)
	}
	if len(cfg.Gateway.Endpoints()) != 4 {
		t.Fatalf("expected 4 default gateways, got %v", cfg.Gateway.Endpoints())
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvAppEnv); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvAppEnv, err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func TestLoad_RejectsBadContractAddress(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvSettlementContract, "not-an-address")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), EnvSettlementContract) {
		t.Fatalf("expected settlement contract error, got %v", err)
	}
}

func TestLoad_UnknownStoreDriver(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvStoreDriver, "memcached")

	if _, err := Load(); err == nil {
		t.Fatal("expected unknown store driver to fail")
	}
}

func TestLoad_PostgresBuildsLegacyDSN(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvStoreDriver, "postgres")
	t.Setenv(EnvDBHost, "db.local")
	t.Setenv(EnvDBUser, "paywall")
	t.Setenv(EnvDBName, "paywall")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.DB.DSN != "postgres://paywall@db.local:5432/paywall?sslmode=disable" {
		t.Fatalf("unexpected dsn %q", cfg.DB.DSN)
	}
}

func TestGatewayEndpointsTrimAndOrder(t *testing.T) {
	g := GatewayConfig{URLs: []string{" https://a.example/ipfs/ ", "", "https://b.example/ipfs"}}
	got := g.Endpoints()
	if len(got) != 2 || got[0] != "https://a.example/ipfs" || got[1] != "https://b.example/ipfs" {
		t.Fatalf("unexpected endpoints %v", got)
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAppEnv, "production")
	t.Setenv(EnvPort, "8081")
	t.Setenv(EnvStoreDriver, "redis")
	t.Setenv(EnvRedisURL, "redis://localhost:6379/0")
	t.Setenv(EnvChainRPCURL, "https://mainnet.base.org")
	t.Setenv(EnvSettlementContract, "0x1111111111111111111111111111111111111111")
	t.Setenv(EnvDBDSN, "")
}

func TestAppConfigEnvHelpers(t *testing.T) {
	devConfig := AppConfig{Env: "DEV"}
	if !devConfig.IsDev() {
		t.Fatalf("expected IsDev true for %q", devConfig.Env)
	}
	if devConfig.IsProd() {
		t.Fatalf("expected IsProd false for %q", devConfig.Env)
	}

	prodConfig := AppConfig{Env: "prod"}
	if !prodConfig.IsProd() {
		t.Fatalf("expected IsProd true for %q", prodConfig.Env)
	}
	if prodConfig.IsDev() {
		t.Fatalf("expected IsDev false for %q", prodConfig.Env)
	}
}
