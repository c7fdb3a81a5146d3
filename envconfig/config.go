// Package envconfig reads the gateway's environment-variable overrides,
// the way the teacher's own envconfig package centralizes every OLLAMA_*
// variable into one place read once at process start.
package envconfig

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

var (
	// Set via FASTLLM_DEBUG in the environment.
	Debug bool
	// Set via FASTLLM_HOST in the environment.
	Host string
	// Set via FASTLLM_ORIGINS in the environment.
	AllowOrigins []string
	// Set via FASTLLM_MAX_ACTIVE in the environment.
	MaxActive int
	// Set via FASTLLM_MAX_QUEUE in the environment.
	MaxQueued int
	// Set via FASTLLM_API_KEY in the environment.
	APIKey string
	// Set via FASTLLM_DEV_MODE in the environment.
	DevMode bool
	// Set via FASTLLM_MODEL_PATH in the environment.
	ModelPath string
	// Set via FASTLLM_EMBEDDING_PATH in the environment.
	EmbeddingPath string
	// Set via FASTLLM_THREADS in the environment.
	Threads int
)

type EnvVar struct {
	Name        string
	Value       any
	Description string
}

func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"FASTLLM_DEBUG":         {"FASTLLM_DEBUG", Debug, "show additional debug information"},
		"FASTLLM_HOST":         {"FASTLLM_HOST", Host, "address the gateway binds to (default 127.0.0.1:8080)"},
		"FASTLLM_ORIGINS":      {"FASTLLM_ORIGINS", AllowOrigins, "a comma separated list of allowed CORS origins"},
		"FASTLLM_MAX_ACTIVE":   {"FASTLLM_MAX_ACTIVE", MaxActive, "maximum number of requests admitted concurrently"},
		"FASTLLM_MAX_QUEUE":    {"FASTLLM_MAX_QUEUE", MaxQueued, "maximum number of requests held in the wait queue"},
		"FASTLLM_API_KEY":      {"FASTLLM_API_KEY", "", "bearer token required on every request, if set"},
		"FASTLLM_DEV_MODE":     {"FASTLLM_DEV_MODE", DevMode, "enable dev-only endpoints such as /v1/cancel"},
		"FASTLLM_MODEL_PATH":   {"FASTLLM_MODEL_PATH", ModelPath, "path to the model weights the engine loads"},
		"FASTLLM_THREADS":      {"FASTLLM_THREADS", Threads, "number of inference threads"},
	}
}

func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}

var defaultAllowOrigins = []string{
	"localhost",
	"127.0.0.1",
	"0.0.0.0",
}

// clean strips quotes and surrounding whitespace from an environment value.
func clean(key string) string {
	return strings.Trim(os.Getenv(key), "\"' ")
}

func init() {
	Host = "127.0.0.1:8080"
	MaxActive = 4
	MaxQueued = 512
	Threads = 0

	LoadConfig()
}

// LoadConfig re-reads every FASTLLM_* variable, falling back to the file
// config (see file_config.go) when a variable is unset in the environment.
func LoadConfig() {
	if debug := valueOrFile("FASTLLM_DEBUG"); debug != "" {
		if d, err := strconv.ParseBool(debug); err == nil {
			Debug = d
		} else {
			Debug = true
		}
	}

	if host := valueOrFile("FASTLLM_HOST"); host != "" {
		Host = host
	}

	if origins := valueOrFile("FASTLLM_ORIGINS"); origins != "" {
		AllowOrigins = strings.Split(origins, ",")
	}
	for _, allowOrigin := range defaultAllowOrigins {
		AllowOrigins = append(AllowOrigins,
			fmt.Sprintf("http://%s", allowOrigin),
			fmt.Sprintf("https://%s", allowOrigin),
		)
	}

	if ma := valueOrFile("FASTLLM_MAX_ACTIVE"); ma != "" {
		v, err := strconv.Atoi(ma)
		if err != nil || v <= 0 {
			slog.Error("invalid setting, must be greater than zero", "FASTLLM_MAX_ACTIVE", ma, "error", err)
		} else {
			MaxActive = v
		}
	}

	if mq := valueOrFile("FASTLLM_MAX_QUEUE"); mq != "" {
		v, err := strconv.Atoi(mq)
		if err != nil || v <= 0 {
			slog.Error("invalid setting, must be greater than zero", "FASTLLM_MAX_QUEUE", mq, "error", err)
		} else {
			MaxQueued = v
		}
	}

	APIKey = valueOrFile("FASTLLM_API_KEY")

	if dm := valueOrFile("FASTLLM_DEV_MODE"); dm != "" {
		if d, err := strconv.ParseBool(dm); err == nil {
			DevMode = d
		}
	}

	ModelPath = valueOrFile("FASTLLM_MODEL_PATH")
	EmbeddingPath = valueOrFile("FASTLLM_EMBEDDING_PATH")

	if th := valueOrFile("FASTLLM_THREADS"); th != "" {
		v, err := strconv.Atoi(th)
		if err != nil || v < 0 {
			slog.Error("invalid setting", "FASTLLM_THREADS", th, "error", err)
		} else {
			Threads = v
		}
	}
}

func valueOrFile(key string) string {
	if v := clean(key); v != "" {
		return v
	}
	return GetConfigValue(key)
}
