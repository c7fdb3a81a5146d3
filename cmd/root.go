// Package cmd implements the gateway's command-line entrypoint: one root
// command with the flags spec'd for launching the server, grounded on the
// teacher's cobra-based cmd.NewCLI/RunServer structure.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fastllm/gateway/config"
	"github.com/fastllm/gateway/envconfig"
)

// NewCLI builds the gateway's root command. There is a single command
// (serve semantics live at the root, unlike the teacher's multi-verb CLI)
// since the gateway has exactly one thing to do: load a model and serve it.
func NewCLI() *cobra.Command {
	var flags cliFlags

	root := &cobra.Command{
		Use:   "fastllm",
		Short: "OpenAI-compatible inference gateway",
		Args:  cobra.ExactArgs(0),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SilenceUsage = true
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.printConfig {
				fmt.Fprint(cmd.OutOrStdout(), envconfig.GenerateExampleConfig())
				return nil
			}
			cfg, err := flags.toConfig()
			if err != nil {
				return fmt.Errorf("fastllm: %w", err)
			}
			return RunServer(cmd.Context(), cfg)
		},
	}

	flags.register(root)
	return root
}

// cliFlags mirrors the flag set verbatim: --path/-p, --embedding_path,
// --host, --port, --threads/-t, --dtype, --atype, --batch/--max_batch,
// --tokens, --chunk_size, --model_name, --device/--device_map,
// --moe_device/--moe_device_map, --cuda_embedding, --low/-l, --api_key,
// --dev_mode, --print_config.
type cliFlags struct {
	path          string
	embeddingPath string
	host          string
	port          int
	threads       int
	dtype         string
	atype         string
	maxBatch      int
	tokens        int
	chunkSize     int
	modelName     string
	device        string
	moeDevice     string
	cudaEmbedding bool
	low           bool
	apiKey        string
	devMode       bool
	printConfig   bool
}

func (f *cliFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.path, "path", "p", "", "path to the model weights")
	fl.StringVar(&f.embeddingPath, "embedding_path", "", "path to a separate embedding model")
	fl.StringVar(&f.host, "host", envconfig.Host, "address to bind to")
	fl.IntVar(&f.port, "port", 0, "port to bind to, overriding the port in --host")
	fl.IntVarP(&f.threads, "threads", "t", envconfig.Threads, "number of inference threads")
	fl.StringVar(&f.dtype, "dtype", "", "compute precision passed through to the engine")
	fl.StringVar(&f.atype, "atype", "", "activation precision passed through to the engine")
	fl.IntVar(&f.maxBatch, "batch", 0, "maximum engine batch size")
	fl.IntVar(&f.maxBatch, "max_batch", 0, "alias for --batch")
	fl.IntVar(&f.tokens, "tokens", 0, "default max-token budget applied when a request omits max_tokens")
	fl.IntVar(&f.chunkSize, "chunk_size", 0, "tokens decoded per engine step")
	fl.StringVar(&f.modelName, "model_name", "", "model name reported from /v1/models")
	fl.StringVar(&f.device, "device", "", "dev:layers,dev:layers or {'dev': n} device map")
	fl.StringVar(&f.device, "device_map", "", "alias for --device")
	fl.StringVar(&f.moeDevice, "moe_device", "", "dev:layers,dev:layers or {'dev': n} MoE device map")
	fl.StringVar(&f.moeDevice, "moe_device_map", "", "alias for --moe_device")
	fl.BoolVar(&f.cudaEmbedding, "cuda_embedding", false, "run the embedding model on the GPU")
	fl.BoolVarP(&f.low, "low", "l", false, "trade memory for throughput")
	fl.StringVar(&f.apiKey, "api_key", envconfig.APIKey, "bearer token required on every request")
	fl.BoolVar(&f.devMode, "dev_mode", envconfig.DevMode, "enable dev-only endpoints such as /v1/cancel")
	fl.BoolVar(&f.printConfig, "print_config", false, "print an example config.toml and exit")
}

func (f *cliFlags) toConfig() (config.Config, error) {
	device, err := parseDeviceMap(f.device)
	if err != nil {
		return config.Config{}, fmt.Errorf("--device: %w", err)
	}
	moeDevice, err := parseDeviceMap(f.moeDevice)
	if err != nil {
		return config.Config{}, fmt.Errorf("--moe_device: %w", err)
	}

	host := f.host
	if host == "" {
		host = envconfig.Host
	}
	modelPath := f.path
	if modelPath == "" {
		modelPath = envconfig.ModelPath
	}
	embeddingPath := f.embeddingPath
	if embeddingPath == "" {
		embeddingPath = envconfig.EmbeddingPath
	}

	cfg := config.Config{
		Host:          host,
		Port:          f.port,
		ModelPath:     modelPath,
		EmbeddingPath: embeddingPath,
		Threads:       f.threads,
		DType:         f.dtype,
		AType:         f.atype,
		MaxBatch:      f.maxBatch,
		Tokens:        f.tokens,
		ChunkSize:     f.chunkSize,
		ModelName:     f.modelName,
		Device:        device,
		MoEDevice:     moeDevice,
		CudaEmbedding: f.cudaEmbedding,
		Low:           f.low,
		APIKey:        f.apiKey,
		DevMode:       f.devMode,
		MaxActive:     envconfig.MaxActive,
		MaxQueued:     envconfig.MaxQueued,
		AllowOrigins:  envconfig.AllowOrigins,
		Debug:         envconfig.Debug,
	}
	return cfg, nil
}

// Execute runs the CLI and returns the process exit code: 0 on a clean
// shutdown, non-zero on bind failure, a missing model path, or an invalid
// host, matching the gateway's documented exit-code contract.
func Execute() int {
	if err := NewCLI().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
