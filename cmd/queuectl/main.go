package main

import (
	"fmt"
	"os"

	"hospital-queue/internal/cli"
	"hospital-queue/internal/config"
)

func main() {
	config.InitLogger("queuectl", "development", config.GetEnv("LOG_LEVEL", "warn"))

	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
