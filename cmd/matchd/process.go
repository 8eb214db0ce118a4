package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-matcher/internal/ingestion"
	"github.com/jonathan/resume-matcher/internal/logger"
	"github.com/jonathan/resume-matcher/internal/observability"
	"github.com/jonathan/resume-matcher/internal/parsing"
	"github.com/jonathan/resume-matcher/internal/profile"
	"github.com/jonathan/resume-matcher/internal/skills"
)

var (
	processOutputFile string
	processUserID     string
	processClosedOnly bool
)

var processCmd = &cobra.Command{
	Use:   "process <file>",
	Short: "Extract and score a profile from a local document",
	Long: `Run document intake inline on a .txt, .md or .html file and print the
extracted profile. Use --out to also write the profile as JSON for the match
command.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().StringVarP(&processOutputFile, "out", "o", "", "Path to write the profile JSON")
	processCmd.Flags().StringVar(&processUserID, "user-id", "", "User id recorded on the profile")
	processCmd.Flags().BoolVar(&processClosedOnly, "closed-roles-only", false, "Count only experience entries with an end date")

	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx := cmd.Context()
	doc, err := ingestion.IngestFromFile(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to ingest document: %w", err)
	}

	p := profile.Build(ctx, doc.Text, profile.Options{
		UserID:          processUserID,
		Skills:          parsing.NewDictionaryExtractor(skills.DefaultDictionary(), cfg.Skills.Confidence),
		ClosedRolesOnly: processClosedOnly,
		Logger:          log,
	})

	observability.NewPrinter(cmd.OutOrStdout()).PrintProfile(p)

	if processOutputFile == "" {
		return nil
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	if err := os.WriteFile(processOutputFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Profile written to %s\n", processOutputFile)
	return nil
}
