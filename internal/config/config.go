package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const configFileEnvName = "PRINTSTORE_CONFIG_FILE"

type Config struct {
	Port           string `mapstructure:"port"`
	DBDSN          string `mapstructure:"db_dsn"`
	StorageBackend string `mapstructure:"storage_backend"` // sqlite | redis
	RedisURL       string `mapstructure:"redis_url"`
	CatalogSource  string `mapstructure:"catalog_source"`
	TemplatesDir   string `mapstructure:"templates_dir"`
	StaticDir      string `mapstructure:"static_dir"`
	MediaDir       string `mapstructure:"media_dir"`
	LogFile        string `mapstructure:"log_file"`
	PayPalAPIBase  string `mapstructure:"paypal_api_base"`
	PayPalSecret   string `mapstructure:"paypal_secret"`
	NotifyWebhook  string `mapstructure:"notify_webhook"`

	ReloadTemplates bool          `mapstructure:"reload_templates"`
	SessionTTL      time.Duration `mapstructure:"session_ttl"` // idle checkout sessions are dropped after this
}

var defaults = map[string]any{
	"port":            "8080",
	"db_dsn":          "printstore.db", // sqlite file in project root
	"storage_backend": "sqlite",
	"redis_url":       "redis://localhost:6379/0",
	"catalog_source":  "./web/store/products.json",
	"templates_dir":   "./web/templates",
	"static_dir":      "./web/static",
	"media_dir":       "./web/media",
	"log_file":        "./printstore.log",
	"paypal_api_base": "https://api-m.sandbox.paypal.com",
	"paypal_secret":   "",
	"notify_webhook":  "",

	"reload_templates": false,
	"session_ttl":      "2h",
}

// Load reads configuration from defaults, an optional YAML file and the
// environment (PORT, DB_DSN, CATALOG_SOURCE, ...). Environment wins.
func Load() Config {
	cfg, err := LoadFrom(os.Args[1:])
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(2)
	}
	log.Printf("[config] PORT=%s STORAGE=%s DB_DSN=%s CATALOG=%s LOG_FILE=%s",
		cfg.Port, cfg.StorageBackend, cfg.DBDSN, cfg.CatalogSource, cfg.LogFile)
	return cfg
}

func LoadFrom(args []string) (Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if path := configFilepath(args); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.UnmarshalExact(&cfg); err != nil {
		return Config{}, err
	}
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	if cfg.StorageBackend != "redis" {
		cfg.StorageBackend = "sqlite"
	}
	return cfg, nil
}

func configFilepath(args []string) string {
	cmdLine := pflag.NewFlagSet("printstore", pflag.ContinueOnError)
	cmdLine.ParseErrorsWhitelist.UnknownFlags = true
	arg := cmdLine.String("config", "", "optional YAML config file")
	_ = cmdLine.Parse(args)
	if env := os.Getenv(configFileEnvName); env != "" {
		return env
	}
	return *arg
}
