package config

import (
	"path/filepath"
	"strings"

	ierr "github.com/playforge/asc-pricer/internal/errors"
	"github.com/spf13/viper"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
)

const DefaultAPIBaseURL = "https://api.appstoreconnect.apple.com"

// Configuration is the root config for the pricer. Values are loaded from a
// JSON config file with environment variable overrides (prefix ASC_PRICER).
type Configuration struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	AppStore AppStoreConfig `mapstructure:"appstore"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
}

type LoggingConfig struct {
	Level LogLevel `mapstructure:"level"`
}

// AppStoreConfig holds the App Store Connect API credentials. The private key
// is the .p8 file downloaded from the developer portal.
type AppStoreConfig struct {
	KeyID          string `mapstructure:"key_id"`
	IssuerID       string `mapstructure:"issuer_id"`
	PrivateKeyPath string `mapstructure:"private_key_path"`
	AppID          string `mapstructure:"app_id"`
	BaseURL        string `mapstructure:"base_url"`
}

// PricingConfig points at the price tables and names the base territory whose
// price is treated as canonical.
type PricingConfig struct {
	BaseTerritory     string `mapstructure:"base_territory"`
	DefaultPricesPath string `mapstructure:"default_prices_path"`
	PercentagesPath   string `mapstructure:"percentages_path"`
	// Product restricts a run to a single product id when set.
	Product string `mapstructure:"product"`
}

// NewConfig loads configuration from the given file. Relative paths inside
// the file resolve against the file's own directory, so a config directory
// can be moved around as a unit.
func NewConfig(path string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("ASC_PRICER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := GetDefaultConfig()

	if err := v.ReadInConfig(); err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Unable to read config file %s", path).
			Mark(ierr.ErrValidation)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Config file is malformed").
			Mark(ierr.ErrValidation)
	}

	dir := filepath.Dir(v.ConfigFileUsed())
	cfg.AppStore.PrivateKeyPath = resolvePath(dir, cfg.AppStore.PrivateKeyPath)
	cfg.Pricing.DefaultPricesPath = resolvePath(dir, cfg.Pricing.DefaultPricesPath)
	cfg.Pricing.PercentagesPath = resolvePath(dir, cfg.Pricing.PercentagesPath)

	return cfg, nil
}

func resolvePath(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// GetDefaultConfig returns the default configuration
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Logging: LoggingConfig{
			Level: LogLevelInfo,
		},
		AppStore: AppStoreConfig{
			BaseURL: DefaultAPIBaseURL,
		},
		Pricing: PricingConfig{
			BaseTerritory: "USA",
		},
	}
}

// Validate checks that everything required to reach the API is present.
func (c *Configuration) Validate() error {
	if c.AppStore.KeyID == "" || c.AppStore.IssuerID == "" {
		return ierr.NewError("missing app store connect credentials").
			WithHint("Set appstore.key_id and appstore.issuer_id in the config file").
			Mark(ierr.ErrValidation)
	}
	if c.AppStore.PrivateKeyPath == "" {
		return ierr.NewError("missing private key path").
			WithHint("Set appstore.private_key_path to your .p8 key file").
			Mark(ierr.ErrValidation)
	}
	if c.AppStore.AppID == "" {
		return ierr.NewError("missing app id").
			WithHint("Set appstore.app_id or pass --app-id").
			Mark(ierr.ErrValidation)
	}
	if c.Pricing.BaseTerritory == "" {
		return ierr.NewError("missing base territory").
			WithHint("Set pricing.base_territory or pass --base-territory").
			Mark(ierr.ErrValidation)
	}
	return nil
}
