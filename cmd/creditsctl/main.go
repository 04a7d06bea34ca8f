package main

import (
	"os"

	"docscan-backend/internal/shared/telemetry"
)

func main() {
	defer telemetry.Sync()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
