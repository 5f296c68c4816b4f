package main

import (
	"fmt"
	"os"

	"github.com/Iron-Ham/ralph/internal/cmd"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env if present so API keys can live alongside the project.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
