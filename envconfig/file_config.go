package envconfig

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// Config mirrors the gateway's TOML config file, consulted when the
// corresponding environment variable is unset.
type Config struct {
	Server struct {
		Host    string   `toml:"host"`
		Origins []string `toml:"origins"`
		APIKey  string   `toml:"api_key"`
		DevMode bool     `toml:"dev_mode"`
	} `toml:"server"`

	Dispatcher struct {
		MaxActive int `toml:"max_active"`
		MaxQueue  int `toml:"max_queue"`
	} `toml:"dispatcher"`

	Model struct {
		Path          string `toml:"path"`
		EmbeddingPath string `toml:"embedding_path"`
		Threads       int    `toml:"threads"`
	} `toml:"model"`

	Logging struct {
		Debug bool `toml:"debug"`
	} `toml:"logging"`
}

var (
	configOnce sync.Once
	config     *Config
	configPath string
)

// GetConfigPaths returns the list of possible config file paths for the
// current OS, checked in order until one exists.
func GetConfigPaths() []string {
	var paths []string

	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			paths = append(paths, filepath.Join(appData, "fastllm", "config.toml"))
		}
	case "darwin":
		if home, err := os.UserHomeDir(); err == nil {
			paths = append(paths,
				filepath.Join(home, "Library", "Application Support", "fastllm", "config.toml"),
				filepath.Join(home, ".config", "fastllm", "config.toml"),
			)
		}
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			paths = append(paths, filepath.Join(xdgConfig, "fastllm", "config.toml"))
		}
		if home, err := os.UserHomeDir(); err == nil {
			paths = append(paths, filepath.Join(home, ".config", "fastllm", "config.toml"))
		}
		paths = append(paths, "/etc/fastllm/config.toml")
	}

	return paths
}

func loadConfig() (*Config, string, error) {
	for _, path := range GetConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			var cfg Config
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return nil, "", fmt.Errorf("error parsing config file %s: %w", path, err)
			}
			return &cfg, path, nil
		}
	}
	return nil, "", nil
}

// GetConfigValue returns the value for a given FASTLLM_* key from the
// config file, or "" if no config file exists or the key is unset there.
// The boolean keys FASTLLM_DEV_MODE and FASTLLM_DEBUG are the exception:
// once a config file is loaded they return "true" or "false", and "false"
// when the key is absent from the file.
func GetConfigValue(key string) string {
	configOnce.Do(func() {
		var err error
		config, configPath, err = loadConfig()
		if err != nil {
			slog.Warn("failed to load config file", "error", err)
		} else if config != nil {
			slog.Debug("loaded config file", "path", configPath)
		}
	})

	if config == nil {
		return ""
	}

	switch key {
	case "FASTLLM_HOST":
		return config.Server.Host
	case "FASTLLM_ORIGINS":
		if len(config.Server.Origins) > 0 {
			return strings.Join(config.Server.Origins, ",")
		}
	case "FASTLLM_API_KEY":
		return config.Server.APIKey
	case "FASTLLM_DEV_MODE":
		return fmt.Sprintf("%t", config.Server.DevMode)
	case "FASTLLM_MAX_ACTIVE":
		if config.Dispatcher.MaxActive > 0 {
			return fmt.Sprintf("%d", config.Dispatcher.MaxActive)
		}
	case "FASTLLM_MAX_QUEUE":
		if config.Dispatcher.MaxQueue > 0 {
			return fmt.Sprintf("%d", config.Dispatcher.MaxQueue)
		}
	case "FASTLLM_MODEL_PATH":
		return config.Model.Path
	case "FASTLLM_EMBEDDING_PATH":
		return config.Model.EmbeddingPath
	case "FASTLLM_THREADS":
		if config.Model.Threads > 0 {
			return fmt.Sprintf("%d", config.Model.Threads)
		}
	case "FASTLLM_DEBUG":
		return fmt.Sprintf("%t", config.Logging.Debug)
	}

	return ""
}

// GenerateExampleConfig returns a commented example TOML configuration.
func GenerateExampleConfig() string {
	return `# fastllm gateway configuration file

[server]
host = "127.0.0.1:8080"
origins = ["http://localhost:3000"]
api_key = ""
dev_mode = false

[dispatcher]
max_active = 4
max_queue = 512

[model]
path = "/path/to/model"
embedding_path = ""
threads = 0

[logging]
debug = false
`
}
