// Package main provides the matchd CLI: the intake and match service, its
// workers, and offline commands for processing and matching documents.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonathan/resume-matcher/internal/config"
)

const app = "matchd"

var (
	cfgFile string
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   app,
	Short: "Document intake and job matching service",
	Long: `matchd turns uploaded documents into structured, scored profiles and
ranks published job postings against them. Work runs on a task queue when
one is reachable and inline otherwise.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	_ = v.BindPFlag("log.debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = v.BindPFlag("log.json", rootCmd.PersistentFlags().Lookup("json"))
}

// loadConfig reads configuration from defaults, cfgFile, MATCHD_* variables and bound flags.
func loadConfig() (*config.Config, error) {
	return config.Load(v, cfgFile)
}

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
