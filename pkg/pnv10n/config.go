package pnv10n

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kadisoka/foundation/pkg/errors"
	"github.com/rez-go/stev"
)

func ConfigFromEnv(prefix string, seedCfg *Config) (*Config, error) {
	if seedCfg == nil {
		seedCfg = &Config{}
	}
	err := stev.LoadEnv(prefix, seedCfg)
	if err != nil {
		return nil, errors.Wrap("config loading from environment variables", err)
	}
	return seedCfg, nil
}

type Config struct {
	// The base URL of the identity server's REST API, e.g.
	// https://iam.example.com/rest/v1
	ServerBaseURL string `env:"SERVER_BASE_URL" yaml:"server_base_url" validate:"required,url,startswith=http"`
	// Bearer token of the signed-in user.
	AccessToken string `env:"ACCESS_TOKEN" yaml:"access_token"`
	// Timeout for each request. Zero means no timeout other than the
	// caller's context.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" yaml:"request_timeout"`
	// Comma-separated list in Accept-Language format, e.g. "id-ID,en;q=0.8".
	// The server uses it to localize the text message.
	PreferredLanguages string `env:"PREFERRED_LANGUAGES" yaml:"preferred_languages"`
	// Region assumed for numbers typed without a country code.
	DefaultRegion string `env:"DEFAULT_REGION" yaml:"default_region"`
}

func ConfigSkeleton() Config {
	return Config{
		RequestTimeout: 15 * time.Second,
	}
}

var validate = validator.New()

func (cfg Config) Validate() error {
	if err := validate.Struct(cfg); err != nil {
		return errors.Wrap("config validation", err)
	}
	return nil
}
