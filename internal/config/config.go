// Package config loads the engine configuration with hot reload support.
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var (
	cfg  *Config
	once sync.Once
	mu   sync.RWMutex
)

// Config represents the application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	SLA        SLAConfig        `mapstructure:"sla"`
	Escalation EscalationConfig `mapstructure:"escalation"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	Timezone string `mapstructure:"timezone"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// SLAConfig drives the business-hours clock. WorkingHours maps weekday
// abbreviations to the list of working hours (Mon: [9..17]); an empty list
// marks a non-working day. TwentyFourSeven bypasses the calendar entirely.
type SLAConfig struct {
	TwentyFourSeven bool             `mapstructure:"twenty_four_seven"`
	WorkingHours    map[string][]int `mapstructure:"working_hours"`
	Holidays        []HolidayConfig  `mapstructure:"holidays"`
	CalendarFile    string           `mapstructure:"calendar_file"`
	DefaultAckHours int              `mapstructure:"default_ack_hours"`
}

// HolidayConfig is a recurring (Year == 0) or one-time holiday.
type HolidayConfig struct {
	Name  string `mapstructure:"name"`
	Month int    `mapstructure:"month"`
	Day   int    `mapstructure:"day"`
	Year  int    `mapstructure:"year"`
}

type EscalationConfig struct {
	Schedule     string        `mapstructure:"schedule"`
	BatchSize    int           `mapstructure:"batch_size"`
	LockTTL      time.Duration `mapstructure:"lock_ttl"`
	RunOnStartup bool          `mapstructure:"run_on_startup"`
}

type CacheConfig struct {
	ProfileTTL      time.Duration `mapstructure:"profile_ttl"`
	CategoryTTL     time.Duration `mapstructure:"category_ttl"`
	MaxEntries      int           `mapstructure:"max_entries"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "campusdesk")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.timezone", "UTC")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("sla.twenty_four_seven", false)
	v.SetDefault("sla.default_ack_hours", 4)

	v.SetDefault("escalation.schedule", "*/5 * * * *")
	v.SetDefault("escalation.batch_size", 200)
	v.SetDefault("escalation.lock_ttl", 4*time.Minute)
	v.SetDefault("escalation.run_on_startup", false)

	v.SetDefault("cache.profile_ttl", 5*time.Minute)
	v.SetDefault("cache.category_ttl", 10*time.Minute)
	v.SetDefault("cache.max_entries", 1000)
	v.SetDefault("cache.cleanup_interval", time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Load initializes the configuration with hot reload support.
func Load(configPath string) error {
	var err error
	once.Do(func() {
		v := viper.New()
		v.SetConfigType("yaml")
		setDefaults(v)

		v.SetConfigName("config")
		v.AddConfigPath(configPath)
		if readErr := v.ReadInConfig(); readErr != nil {
			if _, ok := readErr.(viper.ConfigFileNotFoundError); !ok {
				err = fmt.Errorf("failed to read config: %w", readErr)
				return
			}
			// Defaults plus env vars are a valid configuration.
		}

		v.SetEnvPrefix("CAMPUSDESK")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		cfg = &Config{}
		if err = v.Unmarshal(cfg); err != nil {
			err = fmt.Errorf("failed to unmarshal config: %w", err)
			return
		}

		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			mu.Lock()
			defer mu.Unlock()

			newCfg := &Config{}
			if err := v.Unmarshal(newCfg); err != nil {
				fmt.Printf("Failed to reload config: %v\n", err)
				return
			}
			cfg = newCfg
		})
	})

	return err
}

// Get returns the current configuration (thread-safe).
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// LoadFromFile loads configuration from a specific file (useful for testing).
func LoadFromFile(configFile string) error {
	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()

	cfg = &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return nil
}

// GetRedisAddr returns the Redis server address.
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetServerAddr returns the server listen address.
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsProduction returns true if running in production mode.
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}
