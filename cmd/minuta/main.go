package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/mkravets/minuta/internal/cli"
)

func main() {
	// Local .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
