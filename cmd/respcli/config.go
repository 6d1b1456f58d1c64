package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Config is the CLI's environment-derived configuration, loaded once at
// startup. Command-line flags, when given, override these defaults.
type Config struct {
	Addr    string `env:"REDIS_ADDR,default=127.0.0.1:6379"`
	Network string `env:"REDIS_NETWORK,default=tcp"`
	Hello3  bool   `env:"REDIS_HELLO3,default=false"`
}

// loadConfig loads a .env file, if present, then parses REDIS_* variables
// into a typed Config.
func loadConfig(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	var c Config
	if err := envconfig.Process(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
