package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-matcher/internal/observability"
	"github.com/jonathan/resume-matcher/internal/ranking"
	"github.com/jonathan/resume-matcher/internal/types"
)

var (
	matchProfileFile  string
	matchPostingsFile string
	matchTop          int
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank postings against a profile",
	Long: `Score every posting in a JSON array against a profile JSON (as written by
process --out) using the configured weights, and print the best matches.`,
	RunE: runMatch,
}

func init() {
	matchCmd.Flags().StringVarP(&matchProfileFile, "profile", "p", "", "Path to profile JSON (required)")
	matchCmd.Flags().StringVar(&matchPostingsFile, "postings", "", "Path to postings JSON array (required)")
	matchCmd.Flags().IntVarP(&matchTop, "top", "n", 10, "Number of matches to print (0 prints all)")

	_ = matchCmd.MarkFlagRequired("profile")
	_ = matchCmd.MarkFlagRequired("postings")

	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var p types.Profile
	if err := readJSON(matchProfileFile, &p); err != nil {
		return err
	}
	var postings []types.Posting
	if err := readJSON(matchPostingsFile, &postings); err != nil {
		return err
	}

	results := ranking.Rank(&p, postings, ranking.Options{Weights: cfg.Matching.Weights})
	titles := make(map[string]string, len(postings))
	for _, posting := range postings {
		titles[posting.ID] = posting.Title
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintMatches(ranking.Top(results, matchTop), titles, len(postings))
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
