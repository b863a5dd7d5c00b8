// Package config loads a replica's configuration from command-line flags,
// falling back to environment variables.
package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

const (
	EnvConfiguration = "VR_CONFIGURATION"
	EnvReplica       = "VR_REPLICA"
	EnvDebugAddr     = "VR_DEBUG_ADDR"
	EnvApp           = "VR_APP"
)

const (
	AppKV          = "kv"
	AppPlaceholder = "placeholder"
)

var (
	ErrNoAddresses      = errors.New("config: no replica addresses")
	ErrDuplicateAddress = errors.New("config: duplicate replica address")
	ErrBadReplica       = errors.New("config: replica number out of range")
	ErrUnknownApp       = errors.New("config: unknown app")
)

type Config struct {
	// Addresses is the group configuration, in replica-number order.
	Addresses []string
	Me        uint64
	// DebugAddr serves metrics, status and profiles over HTTP. Empty
	// disables it.
	DebugAddr string
	App       string
}

// Load parses args (without the program name) on top of the environment.
func Load(name string, args []string) (*Config, error) {
	defaultMe, err := getEnvUint64(EnvReplica, 0)
	if err != nil {
		return nil, err
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	conf := fs.String("config", getEnvDefault(EnvConfiguration, ""),
		"comma-separated host:port of every replica, in replica-number order")
	me := fs.Uint64("me", defaultMe, "this replica's number")
	debug := fs.String("debug", getEnvDefault(EnvDebugAddr, ""), "address for the debug HTTP server")
	app := fs.String("app", getEnvDefault(EnvApp, AppKV), "state machine to run (kv|placeholder)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	addrs, err := ParseAddresses(*conf)
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		Addresses: addrs,
		Me:        *me,
		DebugAddr: *debug,
		App:       *app,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseAddresses splits a comma-separated list of host:port addresses.
func ParseAddresses(s string) ([]string, error) {
	var addrs []string
	seen := make(map[string]bool)
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(a); err != nil {
			return nil, fmt.Errorf("config: address %q: %w", a, err)
		}
		if seen[a] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAddress, a)
		}
		seen[a] = true
		addrs = append(addrs, a)
	}
	if len(addrs) == 0 {
		return nil, ErrNoAddresses
	}
	return addrs, nil
}

func (cfg *Config) Validate() error {
	if len(cfg.Addresses) == 0 {
		return ErrNoAddresses
	}
	if cfg.Me >= uint64(len(cfg.Addresses)) {
		return fmt.Errorf("%w: %d, have %d addresses", ErrBadReplica, cfg.Me, len(cfg.Addresses))
	}
	if cfg.App != AppKV && cfg.App != AppPlaceholder {
		return fmt.Errorf("%w: %q", ErrUnknownApp, cfg.App)
	}
	return nil
}

// ListenAddr is the address this replica serves on.
func (cfg *Config) ListenAddr() string {
	return cfg.Addresses[cfg.Me]
}

func getEnvDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvUint64(key string, defaultVal uint64) (uint64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: bad number %q", key, val)
	}
	return n, nil
}
