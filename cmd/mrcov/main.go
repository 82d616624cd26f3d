package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/felixgeelhaar/mrcov/internal/cli"
)

func main() {
	// A .env file only supplies defaults such as MRCOV_CONFIG.
	_ = godotenv.Load()
	code := cli.Run(os.Args, os.Stdout, os.Stderr, cli.BuildService(os.Stdout))
	os.Exit(code)
}
