package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	OpenRouter struct {
		APIKey  string `yaml:"api_key"`
		BaseURL string `yaml:"base_url"`
		Model   string `yaml:"model"`
	} `yaml:"openrouter"`
	Database struct {
		URL string `yaml:"url"` // empty disables caching
	} `yaml:"database"`
	Cache struct {
		TTLHours    int    `yaml:"ttl_hours"`
		CleanupCron string `yaml:"cleanup_cron"`
	} `yaml:"cache"`
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`
	Agent struct {
		Name          string `yaml:"name"`
		Seed          string `yaml:"seed"`
		Port          int    `yaml:"port"`
		Endpoint      string `yaml:"endpoint"`
		AgentverseKey string `yaml:"agentverse_key"`
	} `yaml:"agent"`
	PairAgent struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"pair_agent"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		cfg.OpenRouter.APIKey = v
	}
	if v := os.Getenv("OPENROUTER_BASE_URL"); v != "" {
		cfg.OpenRouter.BaseURL = v
	}
	if v := os.Getenv("QWEN_MODEL"); v != "" {
		cfg.OpenRouter.Model = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("CACHE_TTL_HOURS"); v != "" {
		var hours int
		if _, err := fmt.Sscanf(v, "%d", &hours); err == nil && hours > 0 {
			cfg.Cache.TTLHours = hours
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ANALYZER_AGENT_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Agent.Port = port
		}
	}
	if v := os.Getenv("ANALYZER_AGENT_SEED"); v != "" {
		cfg.Agent.Seed = v
	}
	if v := os.Getenv("ANALYZER_AGENT_ENDPOINT"); v != "" {
		cfg.Agent.Endpoint = v
	}
	if v := os.Getenv("AGENTVERSE_API_KEY"); v != "" {
		cfg.Agent.AgentverseKey = v
	}
	if v := os.Getenv("AGENT_API_BASE"); v != "" {
		cfg.PairAgent.BaseURL = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if cfg.OpenRouter.BaseURL == "" {
		cfg.OpenRouter.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.OpenRouter.Model == "" {
		cfg.OpenRouter.Model = "qwen/qwen3-max"
	}
	if cfg.Cache.TTLHours == 0 {
		cfg.Cache.TTLHours = 24
	}
	if cfg.Cache.CleanupCron == "" {
		cfg.Cache.CleanupCron = "0 0 * * * *"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 10000
	}
	if cfg.Agent.Name == "" {
		cfg.Agent.Name = "trade_analyzer"
	}
	if cfg.Agent.Seed == "" {
		cfg.Agent.Seed = "analyzer_agent_seed_phrase_change_me"
	}
	if cfg.Agent.Port == 0 {
		cfg.Agent.Port = 8001
	}
	if cfg.Agent.Endpoint == "" {
		cfg.Agent.Endpoint = fmt.Sprintf("http://localhost:%d/submit", cfg.Agent.Port)
	}
	if cfg.PairAgent.BaseURL == "" {
		cfg.PairAgent.BaseURL = "https://pair-agent-a2ol.onrender.com"
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.OpenRouter.APIKey == "" {
		return fmt.Errorf("openrouter.api_key is required (set OPENROUTER_API_KEY)")
	}
	if c.Cache.TTLHours <= 0 {
		return fmt.Errorf("cache.ttl_hours must be positive")
	}
	return nil
}

// TTL returns the cache freshness window as a duration.
func (c *Config) TTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}
