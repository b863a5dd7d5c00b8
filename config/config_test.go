package config

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseAddresses(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []string
		wantErr error
	}{
		{"single", "127.0.0.1:7000", []string{"127.0.0.1:7000"}, nil},
		{"trimmed", " a:1 , b:2,c:3 ", []string{"a:1", "b:2", "c:3"}, nil},
		{"blank entries", "a:1,,b:2,", []string{"a:1", "b:2"}, nil},
		{"empty", "", nil, ErrNoAddresses},
		{"only commas", " , ,", nil, ErrNoAddresses},
		{"duplicate", "a:1,b:2,a:1", nil, ErrDuplicateAddress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAddresses(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err %v, want %v", err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := ParseAddresses("a:1,nohost"); err == nil {
		t.Errorf("accepted address without port")
	}
}

func TestLoadFlags(t *testing.T) {
	cfg, err := Load("test", []string{"-config", "a:1,b:2,c:3", "-me", "2", "-debug", ":8080", "-app", "placeholder"})
	if err != nil {
		t.Fatal(err)
	}
	want := &Config{Addresses: []string{"a:1", "b:2", "c:3"}, Me: 2, DebugAddr: ":8080", App: AppPlaceholder}
	if !reflect.DeepEqual(cfg, want) {
		t.Errorf("got %+v, want %+v", cfg, want)
	}
	if cfg.ListenAddr() != "c:3" {
		t.Errorf("listen addr %s", cfg.ListenAddr())
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv(EnvConfiguration, "a:1,b:2")
	t.Setenv(EnvReplica, "1")
	t.Setenv(EnvDebugAddr, "127.0.0.1:9000")

	cfg, err := Load("test", nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Me != 1 || len(cfg.Addresses) != 2 || cfg.DebugAddr != "127.0.0.1:9000" || cfg.App != AppKV {
		t.Errorf("got %+v", cfg)
	}

	// flags win over the environment
	cfg, err = Load("test", []string{"-me", "0"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Me != 0 {
		t.Errorf("me %d, want 0", cfg.Me)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load("test", []string{"-config", "a:1", "-me", "1"}); !errors.Is(err, ErrBadReplica) {
		t.Errorf("me out of range: %v", err)
	}
	if _, err := Load("test", []string{"-config", "a:1", "-app", "redis"}); !errors.Is(err, ErrUnknownApp) {
		t.Errorf("unknown app: %v", err)
	}
	if _, err := Load("test", nil); !errors.Is(err, ErrNoAddresses) {
		t.Errorf("no config: %v", err)
	}

	t.Setenv(EnvReplica, "one")
	if _, err := Load("test", []string{"-config", "a:1"}); err == nil {
		t.Errorf("accepted non-numeric %s", EnvReplica)
	}
}
