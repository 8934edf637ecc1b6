package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Bootstrap policies. FailFast halts the run on the first failed phase;
// BestEffort runs every remaining phase and reports per-phase status.
const (
	PolicyFailFast   = "fail-fast"
	PolicyBestEffort = "best-effort"
)

// Config is the root configuration for recai.
type Config struct {
	Workspace string          `mapstructure:"workspace"`
	Python    PythonConfig    `mapstructure:"python"`
	Secrets   SecretsConfig   `mapstructure:"secrets"`
	Ollama    OllamaConfig    `mapstructure:"ollama"`
	App       AppConfig       `mapstructure:"app"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
	Server    ServerConfig    `mapstructure:"server"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type PythonConfig struct {
	Interpreter  string `mapstructure:"interpreter"`
	VenvDir      string `mapstructure:"venv_dir"`
	Requirements string `mapstructure:"requirements"`
}

type SecretsConfig struct {
	File     string `mapstructure:"file"`
	Key      string `mapstructure:"key"`
	Sentinel string `mapstructure:"sentinel"`
}

type OllamaConfig struct {
	Binary  string   `mapstructure:"binary"`
	BaseURL string   `mapstructure:"base_url"`
	Models  []string `mapstructure:"models"`
}

type AppConfig struct {
	// Command is the full argv of the downstream application, resolved
	// against the venv bin dir at launch time (e.g. ["streamlit", "run", "ui.py"]).
	Command []string `mapstructure:"command"`
}

type BootstrapConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	Policy  string        `mapstructure:"policy"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
	ServiceName  string `mapstructure:"service_name"`
	LogLevel     string `mapstructure:"log_level"`
}

// Load reads config from the optional YAML file at path, then overlays
// environment variables with the RECAI_ prefix (e.g. RECAI_SERVER_PORT,
// RECAI_PYTHON_VENV_DIR).
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("RECAI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Bootstrap.Policy {
	case PolicyFailFast, PolicyBestEffort:
	default:
		return fmt.Errorf("bootstrap.policy must be %q or %q, got %q",
			PolicyFailFast, PolicyBestEffort, c.Bootstrap.Policy)
	}
	if len(c.App.Command) == 0 {
		return fmt.Errorf("app.command must not be empty")
	}
	return nil
}

// VenvPath returns the venv dir resolved against the workspace when relative.
func (c *Config) VenvPath() string {
	return c.resolve(c.Python.VenvDir)
}

// RequirementsPath returns the requirements manifest resolved against the workspace.
func (c *Config) RequirementsPath() string {
	return c.resolve(c.Python.Requirements)
}

// SecretsPath returns the secrets env-file resolved against the workspace.
func (c *Config) SecretsPath() string {
	return c.resolve(c.Secrets.File)
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Workspace, path)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("workspace", ".")

	v.SetDefault("python.interpreter", "python3")
	v.SetDefault("python.venv_dir", "venv")
	v.SetDefault("python.requirements", "requirements.txt")

	v.SetDefault("secrets.file", ".env")
	v.SetDefault("secrets.key", "GOOGLE_API_KEY")
	v.SetDefault("secrets.sentinel", "your-api-key-here")

	v.SetDefault("ollama.binary", "ollama")
	v.SetDefault("ollama.base_url", "http://127.0.0.1:11434")
	v.SetDefault("ollama.models", []string{"llama3.2", "qwen2.5-coder"})

	v.SetDefault("app.command", []string{"streamlit", "run", "ui.py"})

	v.SetDefault("bootstrap.timeout", 30*time.Minute)
	v.SetDefault("bootstrap.policy", PolicyFailFast)

	v.SetDefault("server.port", 8089)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.otlp_insecure", true)
	v.SetDefault("telemetry.service_name", "recai-bootstrap")
	v.SetDefault("telemetry.log_level", "info")
}
