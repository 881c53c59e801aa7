package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// CandidateGroup lists the explicit hyperparameter sets tried for one model
// family. Groups keep their declaration order; it is the selection tie-break.
type CandidateGroup struct {
	Family string               `yaml:"family" validate:"required"`
	Params []map[string]float64 `yaml:"params" validate:"required,min=1"`
}

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Training struct {
		Horizon         int              `yaml:"horizon" default:"24" validate:"gt=0"`
		Frequency       time.Duration    `yaml:"frequency" default:"1h"`
		Lags            []int            `yaml:"lags"`
		Features        []string         `yaml:"features"`
		Candidates      []CandidateGroup `yaml:"candidates" validate:"min=1,dive"`
		PrimaryMetric   string           `yaml:"primary_metric" default:"rmse" validate:"oneof=rmse mae mape"`
		SecondaryMetric string           `yaml:"secondary_metric" default:"mae" validate:"oneof=rmse mae mape"`
		Workers         int              `yaml:"workers" default:"1" validate:"gte=1"`
		Seed            int64            `yaml:"seed" default:"42"`
	} `yaml:"training"`
	Data struct {
		Source string `yaml:"source" default:"csv" validate:"oneof=csv clickhouse"`
		CSV    struct {
			TrainPath    string `yaml:"train_path"`
			TestPath     string `yaml:"test_path"`
			ForecastPath string `yaml:"forecast_path" default:"forecasts.csv"`
		} `yaml:"csv"`
		ClickHouse struct {
			Table    string    `yaml:"table" default:"gridcast.consumption_hourly"`
			From     time.Time `yaml:"from"`
			To       time.Time `yaml:"to"`
			TestFrom time.Time `yaml:"test_from"`
		} `yaml:"clickhouse"`
	} `yaml:"data"`
	ArtifactStore struct {
		Type string `yaml:"type" default:"fs" validate:"oneof=fs sqlite"`
		FS   struct {
			Dir string `yaml:"dir" default:"artifacts"`
		} `yaml:"fs"`
		SQLite struct {
			Path string `yaml:"path" default:"artifacts/gridcast.db"`
		} `yaml:"sqlite"`
	} `yaml:"artifact_store"`
	ClickHouse struct {
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port" default:"9000"`
		Database     string        `yaml:"database" default:"gridcast"`
		User         string        `yaml:"user" default:"default"`
		Password     string        `yaml:"password"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"30s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"gridcast.decisions"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"gzip"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"kafka"`
	Cache struct {
		Enabled bool          `yaml:"enabled"`
		Type    string        `yaml:"type" default:"memory" validate:"oneof=memory redis"`
		TTL     time.Duration `yaml:"ttl" default:"30s"`
		Redis   struct {
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
	if v := os.Getenv("ARTIFACT_DIR"); v != "" {
		c.ArtifactStore.FS.Dir = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Training.Frequency <= 0 {
		return fmt.Errorf("training.frequency must be positive")
	}
	for _, lag := range c.Training.Lags {
		if lag <= 0 {
			return fmt.Errorf("training.lags must be positive, got %d", lag)
		}
	}
	if c.Data.Source == "csv" && (c.Data.CSV.TrainPath == "" || c.Data.CSV.TestPath == "") {
		return fmt.Errorf("data.csv.train_path and data.csv.test_path are required for the csv source")
	}
	if c.Data.Source == "clickhouse" && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required for the clickhouse source")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
