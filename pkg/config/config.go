// Package config loads the client settings from an optional YAML file and
// BUSTRACKER_ prefixed environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Shahir-collab/bus-routes-website/pkg/util"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const defaultAPIURL = "http://localhost:8000"
const defaultRequestTimeout = 10 * time.Second
const defaultDashboardInterval = 30 * time.Second
const defaultLocationInterval = 10 * time.Second
const defaultRedisAddress = "localhost:6379"
const defaultPushTopic = "bus-alerts"

type Config struct {
	APIURL         string        `yaml:"api_url" validate:"required,url"`
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gt=0"`

	DashboardInterval time.Duration `yaml:"dashboard_interval" validate:"gt=0"`
	LocationInterval  time.Duration `yaml:"location_interval" validate:"gt=0"`

	Firebase      FirebaseConfig      `yaml:"firebase"`
	Redis         RedisConfig         `yaml:"redis"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`

	PushTopic string `yaml:"push_topic" validate:"required"`
}

type FirebaseConfig struct {
	WebAPIKey string `yaml:"web_api_key"`
	ProjectID string `yaml:"project_id"`
	// ServiceAccount is the base64 encoded service account JSON
	ServiceAccount string `yaml:"service_account" validate:"omitempty,base64"`
}

type RedisConfig struct {
	Address  string `yaml:"address" validate:"omitempty,hostname_port"`
	Password string `yaml:"password"`
	Database int    `yaml:"database" validate:"gte=0"`
	// Enabled turns on the Redis backed static data cache and alert queue
	Enabled bool `yaml:"enabled"`
}

type ElasticsearchConfig struct {
	Address  string `yaml:"address" validate:"omitempty,url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

func Default() *Config {
	return &Config{
		APIURL:            defaultAPIURL,
		RequestTimeout:    defaultRequestTimeout,
		DashboardInterval: defaultDashboardInterval,
		LocationInterval:  defaultLocationInterval,
		Redis: RedisConfig{
			Address: defaultRedisAddress,
		},
		PushTopic: defaultPushTopic,
	}
}

// Load builds the configuration from the defaults, the YAML file named by
// BUSTRACKER_CONFIG (if set) and then the environment.
func Load() (*Config, error) {
	cfg := Default()
	env := util.GetEnvironmentVariables()

	if path := env["CONFIG"]; path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnvironment(env); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	return nil
}

func (c *Config) applyEnvironment(env map[string]string) error {
	setString := func(key string, target *string) {
		if env[key] != "" {
			*target = env[key]
		}
	}

	setDuration := func(key string, target *time.Duration) error {
		if env[key] == "" {
			return nil
		}

		duration, err := time.ParseDuration(env[key])
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", util.EnvironmentPrefix, key, err)
		}
		*target = duration

		return nil
	}

	setString("API_URL", &c.APIURL)
	setString("PUSH_TOPIC", &c.PushTopic)

	if err := setDuration("REQUEST_TIMEOUT", &c.RequestTimeout); err != nil {
		return err
	}
	if err := setDuration("DASHBOARD_INTERVAL", &c.DashboardInterval); err != nil {
		return err
	}
	if err := setDuration("LOCATION_INTERVAL", &c.LocationInterval); err != nil {
		return err
	}

	setString("FIREBASE_WEB_API_KEY", &c.Firebase.WebAPIKey)
	setString("FIREBASE_PROJECT_ID", &c.Firebase.ProjectID)
	setString("FIREBASE_SERVICE_ACCOUNT", &c.Firebase.ServiceAccount)

	setString("REDIS_ADDRESS", &c.Redis.Address)
	setString("REDIS_PASSWORD", &c.Redis.Password)

	if env["REDIS_DATABASE"] != "" {
		n, err := strconv.Atoi(env["REDIS_DATABASE"])
		if err != nil {
			return fmt.Errorf("config: %sREDIS_DATABASE: %w", util.EnvironmentPrefix, err)
		}
		c.Redis.Database = n
	}

	if env["REDIS_ENABLED"] != "" {
		c.Redis.Enabled = env["REDIS_ENABLED"] == "YES"
	}

	setString("ELASTICSEARCH_ADDRESS", &c.Elasticsearch.Address)
	setString("ELASTICSEARCH_USERNAME", &c.Elasticsearch.Username)
	setString("ELASTICSEARCH_PASSWORD", &c.Elasticsearch.Password)

	return nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	return nil
}

// FirebaseEnabled reports whether enough is configured to talk to Firebase.
func (c *Config) FirebaseEnabled() bool {
	return c.Firebase.WebAPIKey != "" && c.Firebase.ServiceAccount != ""
}
