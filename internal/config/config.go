package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Server holds the hwdb service configuration.
type Server struct {
	Listen        string   `mapstructure:"listen"`
	GRPCListen    string   `mapstructure:"grpc_listen"`
	EnableSwagger bool     `mapstructure:"enable_swagger"`
	EnableMetrics bool     `mapstructure:"enable_metrics"`
	LogLevel      string   `mapstructure:"log_level"`
	Database      Database `mapstructure:"database"`
	Features      Features `mapstructure:"features"`
}

type Database struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// Features switches optional route groups on or off.
type Features struct {
	Delete bool `mapstructure:"delete"`
	Tags   bool `mapstructure:"tags"`
}

// Probe holds the hwprobe agent configuration.
type Probe struct {
	Server        string        `mapstructure:"server"`
	Transport     string        `mapstructure:"transport"`
	GRPCAddr      string        `mapstructure:"grpc_addr"`
	WaitTimeout   time.Duration `mapstructure:"wait_timeout"`
	WaitInterval  time.Duration `mapstructure:"wait_interval"`
	UploadTimeout time.Duration `mapstructure:"upload_timeout"`
	LogLevel      string        `mapstructure:"log_level"`
}

// LoadServer reads the service configuration from file, .env and environment
// (HWDB_ prefix, e.g. HWDB_DATABASE_DSN).
func LoadServer(cfgFile string) (*Server, error) {
	v := newViper(cfgFile, "hwdb", "HWDB", "/etc/hwdb")

	v.SetDefault("listen", ":5000")
	v.SetDefault("grpc_listen", ":5001")
	v.SetDefault("enable_swagger", true)
	v.SetDefault("enable_metrics", true)
	v.SetDefault("log_level", "info")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "pcs.db")
	v.SetDefault("features.delete", true)
	v.SetDefault("features.tags", true)

	if err := readConfig(v, cfgFile); err != nil {
		return nil, err
	}

	var cfg Server
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	switch cfg.Database.Driver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	return &cfg, nil
}

// LoadProbe reads the agent configuration (HWPROBE_ prefix).
func LoadProbe(cfgFile string) (*Probe, error) {
	v := newViper(cfgFile, "hwprobe", "HWPROBE", "/etc/hwprobe")

	v.SetDefault("server", "http://localhost:5000")
	v.SetDefault("transport", "http")
	v.SetDefault("grpc_addr", "localhost:5001")
	v.SetDefault("wait_timeout", "300s")
	v.SetDefault("wait_interval", "1s")
	v.SetDefault("upload_timeout", "10s")
	v.SetDefault("log_level", "info")

	if err := readConfig(v, cfgFile); err != nil {
		return nil, err
	}

	var cfg Probe
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	switch cfg.Transport {
	case "http", "grpc":
	default:
		return nil, fmt.Errorf("unsupported transport %q", cfg.Transport)
	}
	return &cfg, nil
}

func newViper(cfgFile, name, envPrefix, etcDir string) *viper.Viper {
	_ = godotenv.Load()

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath(etcDir)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()
	return v
}

// readConfig tolerates a missing default config file but not a missing
// explicit one or a malformed file.
func readConfig(v *viper.Viper, cfgFile string) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	if _, ok := err.(viper.ConfigFileNotFoundError); ok && cfgFile == "" {
		return nil
	}
	return fmt.Errorf("read config: %w", err)
}
