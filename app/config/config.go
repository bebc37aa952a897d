package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"EOrders/app/security"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	appDirName = "EOrders"
	fileName   = "config.json"
	envPrefix  = "EORDERS"
)

// AppConfig holds all application configuration
type AppConfig struct {
	Storage StorageConfig `mapstructure:"storage" json:"storage"`
	Printer PrinterConfig `mapstructure:"printer" json:"printer"`
	Feed    FeedConfig    `mapstructure:"feed" json:"feed"`
	Log     LogConfig     `mapstructure:"log" json:"log"`
	Tables  TablesConfig  `mapstructure:"tables" json:"tables"`

	// First run flag
	FirstRun bool `mapstructure:"first_run" json:"first_run"`
}

// StorageConfig selects where the key/value blobs live
type StorageConfig struct {
	Driver   string `mapstructure:"driver" json:"driver"` // sqlite | postgres
	Path     string `mapstructure:"path" json:"path"`     // sqlite file, relative to the data dir
	DSN      string `mapstructure:"dsn" json:"dsn"`       // postgres, overrides the fields below
	Host     string `mapstructure:"host" json:"host"`
	Port     int    `mapstructure:"port" json:"port"`
	Database string `mapstructure:"database" json:"database"`
	Username string `mapstructure:"username" json:"username"`
	Password string `mapstructure:"password" json:"password"`
	SSLMode  string `mapstructure:"ssl_mode" json:"ssl_mode"`
}

// PrinterConfig holds the application-wide printer defaults. The selected printer
// itself is stored with the other application data.
type PrinterConfig struct {
	Codepage      string `mapstructure:"codepage" json:"codepage"`
	SettleDelayMs int    `mapstructure:"settle_delay_ms" json:"settle_delay_ms"`
	TimeoutMs     int    `mapstructure:"timeout_ms" json:"timeout_ms"`
	FeedLines     int    `mapstructure:"feed_lines" json:"feed_lines"`
	TopProducts   int    `mapstructure:"top_products" json:"top_products"`
}

// FeedConfig controls the bar display websocket feed
type FeedConfig struct {
	Enabled          bool   `mapstructure:"enabled" json:"enabled"`
	Port             int    `mapstructure:"port" json:"port"`
	MDNS             bool   `mapstructure:"mdns" json:"mdns"`
	InstanceName     string `mapstructure:"instance_name" json:"instance_name"`
	HeartbeatSeconds int    `mapstructure:"heartbeat_seconds" json:"heartbeat_seconds"`
	MetricsPath      string `mapstructure:"metrics_path" json:"metrics_path"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level         string `mapstructure:"level" json:"level"`
	Dir           string `mapstructure:"dir" json:"dir"` // relative to the data dir
	RetentionDays int    `mapstructure:"retention_days" json:"retention_days"`
	Console       bool   `mapstructure:"console" json:"console"`
}

// TablesConfig seeds the table list on first run
type TablesConfig struct {
	InitialCount int    `mapstructure:"initial_count" json:"initial_count"`
	NamePrefix   string `mapstructure:"name_prefix" json:"name_prefix"`
}

// Default returns the configuration used when no file exists
func Default() *AppConfig {
	return &AppConfig{
		Storage: StorageConfig{
			Driver:   "sqlite",
			Path:     "eorders.db",
			Host:     "localhost",
			Port:     5432,
			Database: "eorders",
			Username: "postgres",
			SSLMode:  "disable",
		},
		Printer: PrinterConfig{
			Codepage:      "windows-1253",
			SettleDelayMs: 500,
			TimeoutMs:     5000,
			FeedLines:     4,
			TopProducts:   10,
		},
		Feed: FeedConfig{
			Enabled:          false,
			Port:             8080,
			MDNS:             true,
			InstanceName:     "e-Orders",
			HeartbeatSeconds: 30,
			MetricsPath:      "/metrics",
		},
		Log: LogConfig{
			Level:         "info",
			Dir:           "logs",
			RetentionDays: 30,
			Console:       true,
		},
		Tables: TablesConfig{
			InitialCount: 17,
			NamePrefix:   "Τραπέζι",
		},
		FirstRun: true,
	}
}

// GetDataDir returns the application data directory, creating it if needed.
// EORDERS_DATA_DIR overrides the per-user config location.
func GetDataDir() (string, error) {
	dir := os.Getenv(envPrefix + "_DATA_DIR")
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			homeDir, herr := os.UserHomeDir()
			if herr != nil {
				return "", fmt.Errorf("could not determine home directory: %w", herr)
			}
			base = filepath.Join(homeDir, ".config")
		}
		dir = filepath.Join(base, appDirName)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("could not create data directory: %w", err)
	}
	return dir, nil
}

// GetConfigPath returns the path to the config file inside dir
func GetConfigPath(dir string) string {
	return filepath.Join(dir, fileName)
}

// LoadConfig reads config.json from dir, applying EORDERS_* environment overrides
// (a .env file in dir or the working directory is loaded first). A missing file
// yields the defaults.
func LoadConfig(dir string) (*AppConfig, error) {
	loadDotEnv(dir)

	v := viper.New()
	setDefaults(v, Default())
	v.SetConfigFile(GetConfigPath(dir))
	v.SetConfigType("json")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("could not read config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("could not parse config file: %w", err)
	}

	if cfg.Storage.Password != "" {
		c, err := security.NewCipher(dir)
		if err != nil {
			return nil, fmt.Errorf("could not decrypt sensitive fields: %w", err)
		}
		cfg.Storage.Password = c.DecryptOrPlain(cfg.Storage.Password)
	}

	return &cfg, nil
}

// SaveConfig writes cfg to dir/config.json with the storage password encrypted
func SaveConfig(dir string, cfg *AppConfig) error {
	// Create a copy to avoid modifying the original
	cfgCopy := *cfg

	if cfgCopy.Storage.Password != "" {
		c, err := security.NewCipher(dir)
		if err != nil {
			return err
		}
		cfgCopy.Storage.Password, err = c.Encrypt(cfgCopy.Storage.Password)
		if err != nil {
			return fmt.Errorf("could not encrypt storage password: %w", err)
		}
	}

	data, err := json.MarshalIndent(&cfgCopy, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal config: %w", err)
	}

	// Write to file with restrictive permissions
	if err := os.WriteFile(GetConfigPath(dir), data, 0600); err != nil {
		return fmt.Errorf("could not write config file: %w", err)
	}
	return nil
}

// ConfigExists checks if the config file exists in dir
func ConfigExists(dir string) (bool, error) {
	_, err := os.Stat(GetConfigPath(dir))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateDefaultConfig writes and returns the default configuration
func CreateDefaultConfig(dir string) (*AppConfig, error) {
	cfg := Default()
	if err := SaveConfig(dir, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MarkSetupComplete clears the first run flag
func MarkSetupComplete(dir string) error {
	cfg, err := LoadConfig(dir)
	if err != nil {
		return err
	}
	cfg.FirstRun = false
	return SaveConfig(dir, cfg)
}

// ResolvePath makes p absolute relative to the data dir
func ResolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func loadDotEnv(dir string) {
	for _, path := range []string{filepath.Join(dir, ".env"), ".env"} {
		if _, err := os.Stat(path); err == nil {
			// Existing environment variables take precedence
			_ = godotenv.Load(path)
		}
	}
}

// setDefaults registers every key so AutomaticEnv can override it on Unmarshal
func setDefaults(v *viper.Viper, d *AppConfig) {
	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.dsn", d.Storage.DSN)
	v.SetDefault("storage.host", d.Storage.Host)
	v.SetDefault("storage.port", d.Storage.Port)
	v.SetDefault("storage.database", d.Storage.Database)
	v.SetDefault("storage.username", d.Storage.Username)
	v.SetDefault("storage.password", d.Storage.Password)
	v.SetDefault("storage.ssl_mode", d.Storage.SSLMode)

	v.SetDefault("printer.codepage", d.Printer.Codepage)
	v.SetDefault("printer.settle_delay_ms", d.Printer.SettleDelayMs)
	v.SetDefault("printer.timeout_ms", d.Printer.TimeoutMs)
	v.SetDefault("printer.feed_lines", d.Printer.FeedLines)
	v.SetDefault("printer.top_products", d.Printer.TopProducts)

	v.SetDefault("feed.enabled", d.Feed.Enabled)
	v.SetDefault("feed.port", d.Feed.Port)
	v.SetDefault("feed.mdns", d.Feed.MDNS)
	v.SetDefault("feed.instance_name", d.Feed.InstanceName)
	v.SetDefault("feed.heartbeat_seconds", d.Feed.HeartbeatSeconds)
	v.SetDefault("feed.metrics_path", d.Feed.MetricsPath)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.dir", d.Log.Dir)
	v.SetDefault("log.retention_days", d.Log.RetentionDays)
	v.SetDefault("log.console", d.Log.Console)

	v.SetDefault("tables.initial_count", d.Tables.InitialCount)
	v.SetDefault("tables.name_prefix", d.Tables.NamePrefix)

	v.SetDefault("first_run", d.FirstRun)
}
