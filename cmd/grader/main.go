// Package main provides the entry point for the internship submission grader CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "grader",
	Short: "Internship submission grader",
	Long:  "Grader scores internship web-development submissions: static analysis, commit history inspection, AI code review, deployment checks, and a final weighted score card.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
