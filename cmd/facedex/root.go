package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/facedex/internal/config"
)

var envName string

var rootCmd = &cobra.Command{
	Use:   "facedex",
	Short: "Face embedding extraction and similarity search service",
	Long: `facedex turns a photo containing exactly one face into a 128-dimensional
embedding and ranks caller-supplied embeddings by similarity to a query.

Running facedex without a subcommand starts the HTTP server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&envName, "env", "", "Config environment: local, dev, docker, prod (default $ENV or local)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// currentEnv returns the --env flag value, falling back to $ENV.
func currentEnv() string {
	if envName != "" {
		return envName
	}
	return config.GetEnv()
}
