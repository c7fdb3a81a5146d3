package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestCLIFlagsToConfig(t *testing.T) {
	f := cliFlags{
		path:      "/models/m.gguf",
		host:      "0.0.0.0:9000",
		device:    "cuda:0:32,cpu:4",
		moeDevice: "{'cuda:1': 16}",
		apiKey:    "secret",
		devMode:   true,
	}

	cfg, err := f.toConfig()
	if err != nil {
		t.Fatalf("toConfig: %v", err)
	}
	if cfg.ModelPath != "/models/m.gguf" {
		t.Fatalf("ModelPath = %q, want /models/m.gguf", cfg.ModelPath)
	}
	if cfg.Device["cuda:0"] != 32 || cfg.Device["cpu"] != 4 {
		t.Fatalf("Device = %v, want cuda:0=32 cpu=4", cfg.Device)
	}
	if cfg.MoEDevice["cuda:1"] != 16 {
		t.Fatalf("MoEDevice = %v, want cuda:1=16", cfg.MoEDevice)
	}
	if !cfg.DevMode || cfg.APIKey != "secret" {
		t.Fatalf("DevMode/APIKey not threaded through: %+v", cfg)
	}
}

func TestCLIFlagsToConfigRejectsBadDeviceMap(t *testing.T) {
	f := cliFlags{device: "not-a-device-map"}
	if _, err := f.toConfig(); err == nil {
		t.Fatal("expected an error for a malformed --device value")
	}
}

func TestPrintConfigFlagWritesExampleAndSkipsServe(t *testing.T) {
	root := NewCLI()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--print_config"})

	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), "[server]") {
		t.Fatalf("expected example config in output, got %q", out.String())
	}
}

func TestNewCLIRegistersExpectedFlags(t *testing.T) {
	root := NewCLI()
	for _, name := range []string{
		"path", "embedding_path", "host", "port", "threads", "dtype", "atype",
		"batch", "max_batch", "tokens", "chunk_size", "model_name",
		"device", "device_map", "moe_device", "moe_device_map",
		"cuda_embedding", "low", "api_key", "dev_mode", "print_config",
	} {
		if root.Flags().Lookup(name) == nil {
			t.Errorf("missing flag --%s", name)
		}
	}
}
