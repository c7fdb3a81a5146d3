package main

import (
	"os"

	"github.com/fastllm/gateway/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
