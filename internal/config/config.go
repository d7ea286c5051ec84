package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Collaborator providers.
const (
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
)

// Validation modes.
const (
	// ModeOffline covers commands that never call a collaborator.
	ModeOffline = "offline"
	// ModeEpisode covers commands that call the generator and the judge.
	ModeEpisode = "episode"
)

// Config holds the full application configuration.
type Config struct {
	Graph      GraphConfig        `yaml:"graph" mapstructure:"graph"`
	Student    StudentConfig      `yaml:"student" mapstructure:"student"`
	Policy     PolicyConfig       `yaml:"policy" mapstructure:"policy"`
	Generator  CollaboratorConfig `yaml:"generator" mapstructure:"generator"`
	Judge      CollaboratorConfig `yaml:"judge" mapstructure:"judge"`
	Anthropic  AnthropicConfig    `yaml:"anthropic" mapstructure:"anthropic"`
	Ollama     OllamaConfig       `yaml:"ollama" mapstructure:"ollama"`
	Retry      RetryConfig        `yaml:"retry" mapstructure:"retry"`
	Circuit    CircuitConfig      `yaml:"circuit" mapstructure:"circuit"`
	LLM        LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Experiment ExperimentConfig   `yaml:"experiment" mapstructure:"experiment"`
	Log        LogConfig          `yaml:"log" mapstructure:"log"`
}

// GraphConfig locates the knowledge graph.
type GraphConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// StudentConfig locates the learner snapshot.
type StudentConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PolicyConfig configures concept selection.
type PolicyConfig struct {
	Threshold float64 `yaml:"threshold" mapstructure:"threshold"`
}

// CollaboratorConfig configures the generator or the judge.
type CollaboratorConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"`
	Model       string  `yaml:"model" mapstructure:"model"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	TopP        float64 `yaml:"top_p" mapstructure:"top_p"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// Timeout returns the per-call timeout.
func (c CollaboratorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// OllamaConfig holds the default Ollama endpoint.
type OllamaConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// RetryConfig configures retries of transient collaborator failures.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// CircuitConfig configures the per-collaborator circuit breakers.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// LLMConfig throttles collaborator calls.
type LLMConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// ExperimentConfig configures multi-episode runs.
type ExperimentConfig struct {
	Episodes                int    `yaml:"episodes" mapstructure:"episodes"`
	SaveEvery               int    `yaml:"save_every" mapstructure:"save_every"`
	Seed                    uint64 `yaml:"seed" mapstructure:"seed"`
	MaxConsecutiveNoConcept int    `yaml:"max_consecutive_no_concept" mapstructure:"max_consecutive_no_concept"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml in the working directory and
// from TUTOR_* environment variables.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches the
// working directory for an optional config.yaml; an explicit path must exist.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("TUTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	cfg.Generator.BaseURL = firstNonEmpty(cfg.Generator.BaseURL, cfg.baseURLFor(cfg.Generator.Provider))
	cfg.Judge.BaseURL = firstNonEmpty(cfg.Judge.BaseURL, cfg.baseURLFor(cfg.Judge.Provider))

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("graph.path", "data/domain/pedagogical_graph.json")
	v.SetDefault("student.path", "data/students/student_profile.json")
	v.SetDefault("policy.threshold", 0.6)

	v.SetDefault("generator.provider", ProviderOllama)
	v.SetDefault("generator.base_url", "")
	v.SetDefault("generator.model", "qwen2.5:3b")
	v.SetDefault("generator.timeout_secs", 120)
	v.SetDefault("generator.temperature", 0.7)
	v.SetDefault("generator.top_p", 0.9)
	v.SetDefault("generator.max_tokens", 1024)

	v.SetDefault("judge.provider", ProviderOllama)
	v.SetDefault("judge.base_url", "")
	v.SetDefault("judge.model", "qwen2.5:3b")
	v.SetDefault("judge.timeout_secs", 120)
	v.SetDefault("judge.temperature", 0.0)
	v.SetDefault("judge.top_p", 0.0)
	v.SetDefault("judge.max_tokens", 512)

	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.base_url", "")

	v.SetDefault("ollama.base_url", "http://localhost:11434")

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 10000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.25)

	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.reset_timeout_secs", 30)

	v.SetDefault("llm.requests_per_second", 0)
	v.SetDefault("llm.burst", 1)

	v.SetDefault("experiment.episodes", 20)
	v.SetDefault("experiment.save_every", 0)
	v.SetDefault("experiment.seed", 0)
	v.SetDefault("experiment.max_consecutive_no_concept", 3)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// baseURLFor returns the provider-wide endpoint a collaborator falls back to.
func (c *Config) baseURLFor(provider string) string {
	switch provider {
	case ProviderOllama:
		return c.Ollama.BaseURL
	case ProviderAnthropic:
		return c.Anthropic.BaseURL
	default:
		return ""
	}
}

// Validate checks the configuration for the given mode and reports every
// problem at once.
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.Graph.Path == "" {
		errs = append(errs, "graph.path is required")
	}
	if c.Student.Path == "" {
		errs = append(errs, "student.path is required")
	}
	if c.Policy.Threshold < 0 || c.Policy.Threshold > 1 {
		errs = append(errs, fmt.Sprintf("policy.threshold must be within [0, 1] (got %g)", c.Policy.Threshold))
	}
	if c.Experiment.Episodes < 1 {
		errs = append(errs, fmt.Sprintf("experiment.episodes must be >= 1 (got %d)", c.Experiment.Episodes))
	}
	if c.Experiment.SaveEvery < 0 {
		errs = append(errs, fmt.Sprintf("experiment.save_every must be >= 0 (got %d)", c.Experiment.SaveEvery))
	}
	if c.Experiment.MaxConsecutiveNoConcept < 1 {
		errs = append(errs, fmt.Sprintf("experiment.max_consecutive_no_concept must be >= 1 (got %d)", c.Experiment.MaxConsecutiveNoConcept))
	}

	switch mode {
	case ModeOffline:
	case ModeEpisode:
		errs = append(errs, c.Generator.validate("generator", c.Anthropic.Key)...)
		errs = append(errs, c.Judge.validate("judge", c.Anthropic.Key)...)
		if c.LLM.RequestsPerSecond < 0 {
			errs = append(errs, "llm.requests_per_second must be >= 0")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown validation mode %q", mode))
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c CollaboratorConfig) validate(section, anthropicKey string) []string {
	var errs []string
	switch c.Provider {
	case ProviderOllama:
		if c.BaseURL == "" {
			errs = append(errs, section+".base_url (or ollama.base_url) is required")
		}
	case ProviderAnthropic:
		if anthropicKey == "" {
			errs = append(errs, "anthropic.key is required when "+section+".provider is anthropic")
		}
		if c.MaxTokens <= 0 {
			errs = append(errs, section+".max_tokens must be > 0")
		}
	default:
		errs = append(errs, fmt.Sprintf("%s.provider must be %q or %q (got %q)", section, ProviderOllama, ProviderAnthropic, c.Provider))
	}
	if c.Model == "" {
		errs = append(errs, section+".model is required")
	}
	if c.TimeoutSecs <= 0 {
		errs = append(errs, section+".timeout_secs must be > 0")
	}
	return errs
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
