package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/document"
	"github.com/spigell/resume-matcher/internal/filtering"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/pipeline"
)

const (
	PromptBack                = "back"
	PromptAppendToExcludeFile = "Append all candidates to exclude file"
	PromptCandidatesToFile    = "Dump candidates to file"
)

var rankCmd = &cobra.Command{
	Use:   "rank --job JOB RESUME...",
	Short: "Rank resumes against a job description",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return rank(cmd.Context(), cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().StringP("job", "J", "", "parsed job description document (json)")
	rankCmd.Flags().StringP("exclude-file", "e", "", "special file with candidates to exclude. Default is unset.")
	rankCmd.Flags().Float64("minimum-score", 0, "drop candidates scoring below this value. Default is unset.")
	rankCmd.Flags().BoolP("interactive", "i", false, "review candidates one by one after ranking")
	rankCmd.MarkFlagRequired("job")

	viper.BindPFlag("rank.exclude-file", rankCmd.Flags().Lookup("exclude-file"))
}

func rank(ctx context.Context, cmd *cobra.Command, paths []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	// An unset flag must leave the filter disabled, so the flag is not bound.
	if cmd.Flags().Changed("minimum-score") {
		minimum, _ := cmd.Flags().GetFloat64("minimum-score")
		viper.Set("rank.minimum-score", minimum)
	}

	config, err := getConfig()
	if err != nil {
		return err
	}

	logger.Info("starting the resume-matcher", zap.String("version", version), zap.String("command", "rank"))

	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	job, err := document.Load(cmd.Flag("job").Value.String())
	if err != nil {
		return err
	}

	resumes := make([]document.Document, 0, len(paths))
	for _, path := range paths {
		resume, err := document.Load(path)
		if err != nil {
			return err
		}
		resumes = append(resumes, resume)
	}

	orchestrator, release, err := newOrchestrator(ctx, config, logger)
	if err != nil {
		return err
	}
	defer release()

	candidates, err := orchestrator.Rank(ctx, job, resumes)
	if err != nil {
		return err
	}

	if interactive, _ := cmd.Flags().GetBool("interactive"); !interactive {
		return renderCandidates(cmd.OutOrStdout(), config.Output, candidates)
	}

	if candidates.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no candidates left after filters"))
		return nil
	}

	byID := make(map[string]document.Document, len(resumes))
	for _, resume := range resumes {
		byID[resume.ID] = resume
	}

	r := &reviewer{
		out:          cmd.OutOrStdout(),
		logger:       logger,
		orchestrator: orchestrator,
		job:          job,
		resumes:      byID,
		excludeFile:  rankExcludeFile(config),
	}
	return r.review(ctx, candidates)
}

func rankExcludeFile(config *Config) string {
	if config.Rank == nil {
		return ""
	}
	return config.Rank.ExcludeFile
}

type reviewer struct {
	out          io.Writer
	logger       *zap.Logger
	orchestrator *pipeline.Orchestrator
	job          document.Document
	resumes      map[string]document.Document
	excludeFile  string
}

// review lets the user drill into single candidates until they go back.
func (r *reviewer) review(ctx context.Context, candidates *filtering.Candidates) error {
	for {
		items := make([]string, 0, candidates.Len()+3)
		for _, c := range candidates.Items {
			items = append(items, fmt.Sprintf("%s %.4f / %s", c.ID, c.Score, c.Preview))
		}

		if r.excludeFile != "" && candidates.Len() != 0 {
			items = append(items, PromptAppendToExcludeFile)
		}
		items = append(items, PromptCandidatesToFile, PromptBack)

		candidatePrompt := promptui.Select{
			Label: "Choose a candidate and press ENTER",
			Items: items,
		}

		index, selected, err := candidatePrompt.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return nil
			}
			return err
		}

		if index < candidates.Len() {
			if err := r.showReport(ctx, candidates.Items[index]); err != nil {
				return err
			}
			continue
		}

		if err := r.handleAction(selected, candidates); err != nil {
			if errors.Is(err, errBack) {
				return nil
			}
			return err
		}
	}
}

var errBack = errors.New("back requested")

func (r *reviewer) handleAction(action string, candidates *filtering.Candidates) error {
	switch action {
	case PromptBack:
		return errBack
	case PromptAppendToExcludeFile:
		excluded, err := filtering.ExcludedFromFile(r.excludeFile)
		if err != nil {
			return err
		}

		excluded.Append(candidates.ToExcluded())

		if err = excluded.ToFile(r.excludeFile); err != nil {
			return err
		}

		r.logger.Info("appended to exclude file", zap.String("filename", r.excludeFile))

		candidates.Exclude(excluded.IDs())
		return nil
	case PromptCandidatesToFile:
		filename, err := candidates.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		r.logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func (r *reviewer) showReport(ctx context.Context, candidate *filtering.Candidate) error {
	resume, ok := r.resumes[candidate.ID]
	if !ok {
		return fmt.Errorf("there is no such resume id %s", candidate.ID)
	}

	report, err := r.orchestrator.Analyze(ctx, resume, r.job)
	if err != nil {
		return err
	}

	return renderReport(r.out, outputText, report)
}
