package server

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the server configuration.
type Config struct {
	Listen  string `mapstructure:"listen"`
	DataDir string `mapstructure:"data_dir"`
}

// LoadConfig reads configuration from file and environment variables.
// With an empty path the file agripulse.yaml is looked up in the working
// directory and /etc/agripulse; a missing file is not an error.
func LoadConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.listen", ":8090")
	v.SetDefault("server.data_dir", "./data")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.path", "agripulse.db")

	// Module defaults
	v.SetDefault("discover.method", "pearson")
	v.SetDefault("discover.z_threshold", 3.0)
	v.SetDefault("discover.min_separation_buckets", 3)
	v.SetDefault("discover.polarity", "both")
	v.SetDefault("discover.max_lag_buckets", 12)
	v.SetDefault("discover.lag_refine_top_k", 10)
	v.SetDefault("discover.tolerance_buckets", 1)
	v.SetDefault("discover.min_sensors", 2)
	v.SetDefault("discover.max_results", 20)
	v.SetDefault("discover.workers", 4)
	v.SetDefault("discover.run_retention", "720h")
	v.SetDefault("discover.maintenance_interval", "1h")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("agripulse")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/agripulse")
	}

	// Environment variable support: AGRIPULSE_SERVER_LISTEN=:9090
	v.SetEnvPrefix("AGRIPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	return v, nil
}
