package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CHAIN_RPC_URLS", "1:https://eth.example,8453:https://base.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Chains.RPCURLs) != 2 || cfg.Chains.RPCURLs[8453] != "https://base.example" {
		t.Errorf("unexpected rpc urls %v", cfg.Chains.RPCURLs)
	}
	if cfg.Transfer.MaxBlockSpan != 5000 || cfg.Transfer.MinBlockSpan != 20 || cfg.Transfer.PageSize != 1000 {
		t.Errorf("unexpected transfer defaults %+v", cfg.Transfer)
	}
	if !cfg.Transfer.ZeroBlockIsMiss {
		t.Error("expected zero block to be a miss by default")
	}
	if cfg.Price.CacheTTL != 60*time.Second {
		t.Errorf("expected 60s price ttl, got %s", cfg.Price.CacheTTL)
	}
	if cfg.Database.Enabled || !cfg.Redis.Enabled {
		t.Errorf("expected database off and redis on, got %v/%v", cfg.Database.Enabled, cfg.Redis.Enabled)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TRANSFER_MAX_BLOCK_SPAN", "2000")
	t.Setenv("TRANSFER_ZERO_BLOCK_IS_MISS", "false")
	t.Setenv("API_PORT", "9090")
	t.Setenv("REGISTRY_PATH", "configs/registry.yaml")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Transfer.MaxBlockSpan != 2000 || cfg.Transfer.ZeroBlockIsMiss {
		t.Errorf("unexpected transfer config %+v", cfg.Transfer)
	}
	if cfg.API.Port != 9090 || cfg.Registry.Path != "configs/registry.yaml" {
		t.Errorf("unexpected overrides %+v %+v", cfg.API, cfg.Registry)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{Transfer: TransferConfig{MaxBlockSpan: 5000, MinBlockSpan: 20, PageSize: 1000, TokenConcurrency: 2}}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "zero min span", mutate: func(c *Config) { c.Transfer.MinBlockSpan = 0 }, wantErr: true},
		{name: "max below min", mutate: func(c *Config) { c.Transfer.MaxBlockSpan = 10 }, wantErr: true},
		{name: "zero page size", mutate: func(c *Config) { c.Transfer.PageSize = 0 }, wantErr: true},
		{name: "zero concurrency is clamped", mutate: func(c *Config) { c.Transfer.TokenConcurrency = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if err == nil && cfg.Transfer.TokenConcurrency < 1 {
				t.Errorf("expected concurrency of at least 1, got %d", cfg.Transfer.TokenConcurrency)
			}
		})
	}
}

func TestDSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	want := "host=db port=5433 user=u password=p dbname=n sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
