// Package main provides the entry point for the career preparation HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "career_agent",
	Short: "Career preparation HTTP API server",
	Long:  "Career agent serves AI-generated learning roadmaps, resume analysis, portfolios, aptitude quizzes, and voice-driven mock interviews via REST and WebSocket.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
