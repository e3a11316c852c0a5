package v10nflow

import (
	"github.com/go-playground/validator/v10"
	"github.com/kadisoka/foundation/pkg/errors"
	"github.com/rez-go/stev"
)

func ConfigFromEnv(prefix string, seedCfg *Config) (*Config, error) {
	if seedCfg == nil {
		seedCfg = ConfigSkeletonPtr()
	}
	err := stev.LoadEnv(prefix, seedCfg)
	if err != nil {
		return nil, errors.Wrap("config loading from environment variables", err)
	}
	if err = seedCfg.Validate(); err != nil {
		return nil, err
	}
	return seedCfg, nil
}

type Config struct {
	// Seconds the user has to wait before another code can be requested.
	ResendInterval int `env:"RESEND_INTERVAL" yaml:"resend_interval" validate:"min=1,max=3600"`
	// Number of characters in a verification code.
	CodeLength int `env:"CODE_LENGTH" yaml:"code_length" validate:"min=4,max=8"`
}

func ConfigSkeleton() Config {
	return Config{
		ResendInterval: 60,
		CodeLength:     6,
	}
}

func ConfigSkeletonPtr() *Config {
	cfg := ConfigSkeleton()
	return &cfg
}

var validate = validator.New()

func (cfg Config) Validate() error {
	if err := validate.Struct(cfg); err != nil {
		return errors.Wrap("config validation", err)
	}
	return nil
}
