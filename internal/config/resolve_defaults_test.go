package config

import "testing"

func TestResolveDefaults_AutoDriver(t *testing.T) {
	cfg := &Config{DBDriver: "auto"}
	if err := cfg.ResolveDefaults(); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.DBDriver != "memory" {
		t.Fatalf("expected memory without DSN, got %s", cfg.DBDriver)
	}

	cfg = &Config{DBDriver: "auto", PostgresDSN: "postgres://localhost/care"}
	if err := cfg.ResolveDefaults(); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.DBDriver != "postgres" {
		t.Fatalf("expected postgres with DSN, got %s", cfg.DBDriver)
	}
}

func TestResolveDefaults_Rejections(t *testing.T) {
	cfg := &Config{DBDriver: "mysql"}
	if err := cfg.ResolveDefaults(); err == nil {
		t.Fatal("expected unsupported driver error")
	}

	cfg = &Config{DBDriver: "postgres"}
	if err := cfg.ResolveDefaults(); err == nil {
		t.Fatal("expected missing DSN error")
	}
}
