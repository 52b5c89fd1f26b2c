package main

import (
	"log"

	"github.com/joho/godotenv"

	"refurbot/core/cmd"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	if err := cmd.Run(cmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
	}); err != nil {
		log.Fatalf("refurbot: %v", err)
	}
}
