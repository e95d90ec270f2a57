package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/document"
	"github.com/spigell/resume-matcher/internal/logger"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score one resume against a job description",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return analyze(cmd.Context(), cmd)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringP("resume", "r", "", "parsed resume document (json)")
	analyzeCmd.Flags().StringP("job", "J", "", "parsed job description document (json)")
	analyzeCmd.MarkFlagRequired("resume")
	analyzeCmd.MarkFlagRequired("job")
}

func analyze(ctx context.Context, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		return err
	}

	logger.Info("starting the resume-matcher", zap.String("version", version), zap.String("command", "analyze"))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	resume, err := document.Load(cmd.Flag("resume").Value.String())
	if err != nil {
		return err
	}
	job, err := document.Load(cmd.Flag("job").Value.String())
	if err != nil {
		return err
	}

	orchestrator, release, err := newOrchestrator(ctx, config, logger)
	if err != nil {
		return err
	}
	defer release()

	report, err := orchestrator.Analyze(ctx, resume, job)
	if err != nil {
		return err
	}

	logger.Debug("skills", zap.Strings("ordered", sortedSkills(report.Skills)))

	return renderReport(cmd.OutOrStdout(), config.Output, report)
}
