package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel string  `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort string  `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	Redis    Redis   `yaml:"redis"`
	Session  Session `yaml:"session"`
	Chain    Chain   `yaml:"chain"`
	DevEnv   DevEnv  `yaml:"devenv"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

type Session struct {
	TTL time.Duration `yaml:"ttl" env:"SESSION_TTL" env-default:"2h"`
}

type Chain struct {
	RPCURL         string        `yaml:"rpc-url" env:"CHAIN_RPC_URL" env-default:"http://127.0.0.1:8899"`
	ProgramID      string        `yaml:"program-id" env:"CHAIN_PROGRAM_ID"`
	ExplorerURL    string        `yaml:"explorer-url" env:"CHAIN_EXPLORER_URL" env-default:"https://explorer.solana.com"`
	ConfirmTimeout time.Duration `yaml:"confirm-timeout" env:"CHAIN_CONFIRM_TIMEOUT" env-default:"30s"`
}

type DevEnv struct {
	Enabled       bool   `yaml:"enabled" env:"DEVENV_ENABLED" env-default:"false"`
	Addr          string `yaml:"addr" env:"DEVENV_ADDR" env-default:"localhost:50051"`
	SnapshotGroup string `yaml:"snapshot-group" env:"DEVENV_SNAPSHOT_GROUP" env-default:"tictactoe"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

// LoadEnv - loads configuration from the environment only, used when no config file exists.
func LoadEnv() (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadEnv(config); err != nil {
		return nil, fmt.Errorf("unable to read environment: %w", err)
	}

	return config, nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
