package engine

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/germanamz/agentic/pkg/agent"
	"github.com/germanamz/agentic/pkg/modeladapter"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Defaults for the service-level settings. Agent budgets default to the
// agent package constants.
const (
	DefaultPort           = 8080
	DefaultRequestTimeout = 5 * time.Minute
)

// Config is the top-level configuration.
type Config struct {
	Model      ModelConfig       `yaml:"model"`
	Server     ServerConfig      `yaml:"server"`
	Agent      AgentConfig       `yaml:"agent"`
	Tools      ToolsConfig       `yaml:"tools"`
	MCPServers []MCPServerConfig `yaml:"mcp_servers"`
	Debug      bool              `yaml:"debug"`
}

// ModelConfig describes the inference server.
type ModelConfig struct {
	BaseURL  string                `yaml:"base_url"`
	Name     string                `yaml:"name"`
	APIKey   string                `yaml:"api_key"`
	Sampling modeladapter.Sampling `yaml:"sampling"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Addr returns the listen address for the configured port.
func (s ServerConfig) Addr() string {
	return ":" + strconv.Itoa(s.Port)
}

// AgentConfig holds the loop settings.
type AgentConfig struct {
	SystemPrompt   string        `yaml:"system_prompt"`
	MaxToolCalls   int           `yaml:"max_tool_calls"`
	MaxSteps       int           `yaml:"max_steps"`
	ToolTimeout    time.Duration `yaml:"tool_timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
}

// ToolsConfig enables and configures the built-in tools.
type ToolsConfig struct {
	Search SearchConfig `yaml:"duckduckgo_search"`
	REPL   REPLConfig   `yaml:"python_repl"`
	Stock  StockConfig  `yaml:"get_stock_price"`
}

// SearchConfig configures duckduckgo_search.
type SearchConfig struct {
	Enabled    bool   `yaml:"enabled"`
	BaseURL    string `yaml:"base_url"`
	MaxResults int    `yaml:"max_results"`
}

// REPLConfig configures python_repl.
type REPLConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Interpreter string `yaml:"interpreter"`
	WorkDir     string `yaml:"work_dir"`
}

// StockConfig configures get_stock_price.
type StockConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
}

// MCPServerConfig describes an external MCP server whose tools are imported
// into the registry. Exactly one of Command or URL is set. Transport selects
// the remote protocol for URL: "http" (streamable, default) or "sse".
type MCPServerConfig struct {
	Name      string   `yaml:"name"`
	Command   string   `yaml:"command"`
	Args      []string `yaml:"args"`
	URL       string   `yaml:"url"`
	Transport string   `yaml:"transport"`
}

// Defaults returns a Config with every optional field at its default value.
func Defaults() Config {
	return Config{
		Model: ModelConfig{Sampling: modeladapter.DefaultSampling()},
		Server: ServerConfig{
			Port:           DefaultPort,
			RequestTimeout: DefaultRequestTimeout,
		},
		Agent: AgentConfig{
			MaxToolCalls:   agent.DefaultMaxToolCalls,
			MaxSteps:       agent.DefaultMaxSteps,
			ToolTimeout:    agent.DefaultToolTimeout,
			RetryBaseDelay: agent.DefaultRetryBaseDelay,
		},
		Tools: ToolsConfig{
			Search: SearchConfig{Enabled: true},
			REPL:   REPLConfig{Enabled: true},
			Stock:  StockConfig{Enabled: true},
		},
	}
}

// LoadConfig reads a YAML configuration file on top of Defaults.
// Environment variables in the form ${VAR} or $VAR are expanded before
// parsing.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted CLI flag
	if err != nil {
		return Config{}, fmt.Errorf("engine: load config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("engine: parse config: %w", err)
	}

	return cfg, nil
}

// envBinding maps a config key to the environment variables that override
// it, in order of precedence.
type envBinding struct {
	key  string
	envs []string
}

var envBindings = []envBinding{
	{"model.base_url", []string{"API_URL_GRANITE", "INFERENCE_SERVER_URL"}},
	{"model.name", []string{"MODEL_NAME"}},
	{"model.api_key", []string{"API_KEY_GRANITE", "API_KEY"}},
	{"debug", []string{"DEBUG_MODE"}},
	{"server.port", []string{"PORT"}},
	{"server.request_timeout", []string{"AGENT_REQUEST_TIMEOUT"}},
	{"agent.max_tool_calls", []string{"AGENT_MAX_TOOL_CALLS"}},
	{"agent.max_steps", []string{"AGENT_MAX_STEPS"}},
	{"agent.tool_timeout", []string{"AGENT_TOOL_TIMEOUT"}},
	{"agent.max_retries", []string{"AGENT_MAX_RETRIES"}},
	{"agent.system_prompt", []string{"AGENT_SYSTEM_PROMPT"}},
	{"tools.python_repl.enabled", []string{"PYTHON_REPL_ENABLED"}},
}

// ApplyEnv overrides cfg with the environment variables that are set.
// Durations accept Go syntax ("90s") or a plain number of seconds.
func ApplyEnv(cfg *Config) error {
	v := viper.New()
	for _, b := range envBindings {
		if err := v.BindEnv(append([]string{b.key}, b.envs...)...); err != nil {
			return fmt.Errorf("engine: bind env %s: %w", b.key, err)
		}
	}

	var errs []error

	setString := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	setInt := func(key string, dst *int) {
		if !v.IsSet(key) {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
		if err != nil {
			errs = append(errs, fmt.Errorf("engine: env %s: %w", key, err))
			return
		}
		*dst = n
	}
	setBool := func(key string, dst *bool) {
		if !v.IsSet(key) {
			return
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v.GetString(key)))
		if err != nil {
			errs = append(errs, fmt.Errorf("engine: env %s: %w", key, err))
			return
		}
		*dst = b
	}
	setDuration := func(key string, dst *time.Duration) {
		if !v.IsSet(key) {
			return
		}
		d, err := parseDuration(v.GetString(key))
		if err != nil {
			errs = append(errs, fmt.Errorf("engine: env %s: %w", key, err))
			return
		}
		*dst = d
	}

	setString("model.base_url", &cfg.Model.BaseURL)
	setString("model.name", &cfg.Model.Name)
	setString("model.api_key", &cfg.Model.APIKey)
	setBool("debug", &cfg.Debug)
	setInt("server.port", &cfg.Server.Port)
	setDuration("server.request_timeout", &cfg.Server.RequestTimeout)
	setInt("agent.max_tool_calls", &cfg.Agent.MaxToolCalls)
	setInt("agent.max_steps", &cfg.Agent.MaxSteps)
	setDuration("agent.tool_timeout", &cfg.Agent.ToolTimeout)
	setInt("agent.max_retries", &cfg.Agent.MaxRetries)
	setString("agent.system_prompt", &cfg.Agent.SystemPrompt)
	setBool("tools.python_repl.enabled", &cfg.Tools.REPL.Enabled)

	return errors.Join(errs...)
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// Load builds the effective configuration: Defaults, then the YAML file at
// path when path is non-empty, then the environment. The result is validated.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		var err error
		if cfg, err = LoadConfig(path); err != nil {
			return Config{}, err
		}
	}

	if err := ApplyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.Model.BaseURL == "" {
		return errors.New("engine: config: model base_url is required (API_URL_GRANITE)")
	}
	if c.Model.Name == "" {
		return errors.New("engine: config: model name is required (MODEL_NAME)")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("engine: config: invalid port %d", c.Server.Port)
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.New("engine: config: request_timeout must be positive")
	}

	a := c.Agent
	if a.MaxToolCalls <= 0 {
		return errors.New("engine: config: max_tool_calls must be positive")
	}
	if a.MaxSteps <= a.MaxToolCalls {
		return fmt.Errorf("engine: config: max_steps (%d) must exceed max_tool_calls (%d)", a.MaxSteps, a.MaxToolCalls)
	}
	if a.ToolTimeout <= 0 {
		return errors.New("engine: config: tool_timeout must be positive")
	}
	if a.MaxRetries < 0 {
		return errors.New("engine: config: max_retries must not be negative")
	}

	names := make(map[string]struct{}, len(c.MCPServers))
	for i, m := range c.MCPServers {
		if m.Name == "" {
			return fmt.Errorf("engine: config: mcp_servers[%d]: name is required", i)
		}
		if _, dup := names[m.Name]; dup {
			return fmt.Errorf("engine: config: duplicate mcp server name %q", m.Name)
		}
		names[m.Name] = struct{}{}

		if (m.Command == "") == (m.URL == "") {
			return fmt.Errorf("engine: config: mcp server %q: exactly one of command or url is required", m.Name)
		}
		switch m.Transport {
		case "", "http", "sse":
		default:
			return fmt.Errorf("engine: config: mcp server %q: unknown transport %q", m.Name, m.Transport)
		}
	}

	return nil
}
