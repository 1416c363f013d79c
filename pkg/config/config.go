package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"StockSim/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"5s"`
		CORS            bool          `yaml:"cors" default:"true"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
		Digest struct {
			Enabled   bool          `yaml:"enabled"`
			Topic     string        `yaml:"topic" default:"stocksim.logs"`
			Interval  time.Duration `yaml:"interval" default:"30s"`
			MaxUnique int           `yaml:"max_unique" default:"100"`
		} `yaml:"digest"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Engine struct {
		MinTrainSize int           `yaml:"min_train_size" default:"36"`
		MinPoints    int           `yaml:"min_points" default:"48"`
		HistoryYears int           `yaml:"history_years" default:"10"`
		Horizons     []int         `yaml:"horizons" default:"[6,12]"`
		EMAPeriod    int           `yaml:"ema_period" default:"12"`
		HistoryTail  int           `yaml:"history_tail" default:"18"`
		Timeout      time.Duration `yaml:"timeout" default:"60s"`
		ResultTTL    time.Duration `yaml:"result_ttl" default:"1h"`
	} `yaml:"engine"`
	Tickers    []string `yaml:"tickers" default:"[\"AAPL\",\"MSFT\",\"GOOGL\",\"AMZN\",\"NVDA\",\"TSLA\",\"META\",\"JPM\",\"V\",\"SPY\"]"`
	MarketData struct {
		Source       string        `yaml:"source" default:"yahoo"`
		YahooBaseURL string        `yaml:"yahoo_base_url" default:"https://query1.finance.yahoo.com"`
		Timeout      time.Duration `yaml:"timeout" default:"15s"`
		CacheTTL     time.Duration `yaml:"cache_ttl" default:"6h"`
	} `yaml:"market_data"`
	Cache struct {
		MemoryMaxSize int `yaml:"memory_max_size" default:"1000"`
		Redis         struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"stocksim"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled       bool     `yaml:"enabled"`
		Brokers       []string `yaml:"brokers"`
		ResultsTopic  string   `yaml:"results_topic" default:"simulation.completed"`
		RequestsTopic string   `yaml:"requests_topic" default:"simulation.requests"`
		RequiredAcks  int      `yaml:"required_acks" default:"-1"`
		Compression   string   `yaml:"compression" default:"gzip"`
		Producer      struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"100ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id" default:"stocksim"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"16"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"simulation.requests.dlq"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"1048576"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"stocksim"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Analytics struct {
		ModelServiceURL string        `yaml:"model_service_url"`
		Timeout         time.Duration `yaml:"timeout" default:"20s"`
		Retries         int           `yaml:"retries" default:"2"`
		RemoteModels    []struct {
			Key  string `yaml:"key"`
			Name string `yaml:"name"`
		} `yaml:"remote_models"`
	} `yaml:"analytics"`
	RateLimit struct {
		Enabled  bool          `yaml:"enabled" default:"true"`
		Capacity int           `yaml:"capacity" default:"5"`
		Window   time.Duration `yaml:"window" default:"60s"`
	} `yaml:"ratelimit"`
}

// Default returns a configuration populated only from struct defaults.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	return &c, nil
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides selected fields from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("STOCKSIM_ENV"); v != "" {
		c.Environment = v
	}
	if v := getenv("TICKERS"); v != "" {
		c.Tickers = util.SplitCSV(v)
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitCSV(v)
		c.Kafka.Enabled = true
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Redis.Enabled = true
	}
	if v := getenv("MODEL_SERVICE_URL"); v != "" {
		c.Analytics.ModelServiceURL = v
	}
	if v := getenv("MARKET_DATA_SOURCE"); v != "" {
		c.MarketData.Source = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive")
	}
	if len(c.Tickers) == 0 {
		return fmt.Errorf("tickers cannot be empty")
	}
	if c.Engine.MinTrainSize <= 0 {
		return fmt.Errorf("engine.min_train_size must be positive")
	}
	if c.Engine.MinPoints < c.Engine.MinTrainSize {
		return fmt.Errorf("engine.min_points (%d) must be at least engine.min_train_size (%d)", c.Engine.MinPoints, c.Engine.MinTrainSize)
	}
	if len(c.Engine.Horizons) == 0 {
		return fmt.Errorf("engine.horizons cannot be empty")
	}
	for _, h := range c.Engine.Horizons {
		if h <= 0 {
			return fmt.Errorf("engine.horizons must be positive, got %d", h)
		}
	}
	switch c.MarketData.Source {
	case "yahoo", "clickhouse":
	default:
		return fmt.Errorf("market_data.source must be 'yahoo' or 'clickhouse', got '%s'", c.MarketData.Source)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.RateLimit.Enabled && (c.RateLimit.Capacity <= 0 || c.RateLimit.Window <= 0) {
		return fmt.Errorf("ratelimit.capacity and ratelimit.window must be positive")
	}
	for _, m := range c.Analytics.RemoteModels {
		if m.Key == "" {
			return fmt.Errorf("analytics.remote_models entries need a key")
		}
	}
	if len(c.Analytics.RemoteModels) > 0 && c.Analytics.ModelServiceURL == "" {
		return fmt.Errorf("analytics.model_service_url is required when remote models are configured")
	}
	return nil
}

// HorizonAllowed reports whether h is one of the configured horizons.
func (c *Config) HorizonAllowed(h int) bool {
	for _, v := range c.Engine.Horizons {
		if v == h {
			return true
		}
	}
	return false
}

// TickerAllowed reports whether ticker is in the allow-list.
func (c *Config) TickerAllowed(ticker string) bool {
	for _, t := range c.Tickers {
		if t == ticker {
			return true
		}
	}
	return false
}
