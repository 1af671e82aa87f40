package main

import (
	"github.com/joho/godotenv"

	"tekbot/internal/cli"
)

func main() {
	// Optional .env for API keys; absence is fine.
	_ = godotenv.Load()

	cli.Execute()
}
