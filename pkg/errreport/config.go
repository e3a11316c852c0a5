package errreport

import (
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
	return seedCfg, nil
}

type Config struct {
	// The reporter module to use. Empty disables reporting.
	Reporter string `env:"ERROR_REPORTER" yaml:"error_reporter"`
	// Configurations for modules
	Modules map[string]interface{} `env:",map,squash" yaml:"-"`
}

func ConfigSkeleton() Config {
	return Config{
		Reporter: "log",
		Modules:  ModuleConfigSkeletons(),
	}
}

func ConfigSkeletonPtr() *Config {
	cfg := ConfigSkeleton()
	return &cfg
}
