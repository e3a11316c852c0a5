package main

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kadisoka/foundation/pkg/errors"
	"github.com/rez-go/stev"
	"gopkg.in/yaml.v3"

	"github.com/kadisoka/iam-verify/pkg/errreport"
	"github.com/kadisoka/iam-verify/pkg/iam"
	"github.com/kadisoka/iam-verify/pkg/pnv10n"
	"github.com/kadisoka/iam-verify/pkg/v10nflow"
)

const envPrefix = "IAM_VERIFY_"

// Config is the configuration of the app. Values are resolved from, in
// increasing priority: the defaults, the YAML file named by
// IAM_VERIFY_CONFIG_FILE, the environment (including .env) and finally
// the command line argument.
type Config struct {
	// The phone number to verify, in international format.
	PhoneNumber string `env:"PHONE_NUMBER" yaml:"phone_number" validate:"required"`

	Client         pnv10n.Config    `env:",squash" yaml:"client"`
	Flow           v10nflow.Config  `env:"FLOW" yaml:"flow"`
	ErrorReporting errreport.Config `env:",squash" yaml:"error_reporting"`

	ConfigFile string `env:"CONFIG_FILE" yaml:"-"`
	// Logs go nowhere unless a file is set; the terminal is ours.
	LogFile  string `env:"LOG_FILE" yaml:"log_file"`
	LogLevel string `env:"LOG_LEVEL" yaml:"log_level" validate:"omitempty,oneof=trace debug info warn error"`
}

func ConfigSkeleton() Config {
	return Config{
		Client:         pnv10n.ConfigSkeleton(),
		Flow:           v10nflow.ConfigSkeleton(),
		ErrorReporting: errreport.ConfigSkeleton(),
		LogLevel:       "info",
	}
}

var validate = validator.New()

func loadConfig(args []string) (*Config, error) {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(".env loading", err)
	}

	cfg := ConfigSkeleton()

	if fileName := os.Getenv(envPrefix + "CONFIG_FILE"); fileName != "" {
		if err = loadConfigFile(fileName, &cfg); err != nil {
			return nil, err
		}
	}

	err = stev.LoadEnv(envPrefix, &cfg)
	if err != nil {
		return nil, errors.Wrap("config loading from environment variables", err)
	}

	if len(args) > 0 && args[0] != "" {
		cfg.PhoneNumber = args[0]
	}

	if err = validate.Struct(cfg); err != nil {
		return nil, errors.Wrap("config validation", err)
	}

	return &cfg, nil
}

func loadConfigFile(fileName string, cfg *Config) error {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return errors.Wrap("config file loading", err)
	}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrap("config file parsing", err)
	}
	return nil
}

// Subject parses the phone number to verify. Test numbers are accepted
// even though they aren't valid numbers.
func (cfg Config) Subject() (iam.PhoneNumber, error) {
	phoneNumber, err := iam.PhoneNumberFromString(cfg.PhoneNumber, cfg.Client.DefaultRegion)
	if err != nil {
		return iam.PhoneNumber{}, pnv10n.InvalidPhoneNumberError{Err: err}
	}
	if !phoneNumber.IsValid() && !phoneNumber.IsTestNumber() {
		return iam.PhoneNumber{}, pnv10n.InvalidPhoneNumberError{}
	}
	return phoneNumber, nil
}
