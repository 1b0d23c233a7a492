package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/examgen/internal/generation"
	"github.com/abhisek/examgen/internal/llm"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one exam from stored documents without the HTTP layer",
	RunE: func(cmd *cobra.Command, args []string) error {
		docIDs, _ := cmd.Flags().GetStringSlice("doc")
		count, _ := cmd.Flags().GetInt("count")
		owner, _ := cmd.Flags().GetString("owner")

		st, cfg, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := cfg.LLM.Validate(); err != nil {
			return err
		}
		logger := cliLogger(cfg)

		ctx := cmd.Context()
		providers, err := llm.NewChain(ctx, cfg.LLM, st.EventRepo(), logger, nil)
		if err != nil {
			return fmt.Errorf("build provider chain: %w", err)
		}
		o := generation.New(providers, st.DocumentRepo(), st.ExamRepo(), cfg.Generation,
			generation.WithLogger(logger))

		res, err := o.Generate(ctx, generation.Request{
			DocumentIDs:   docIDs,
			QuestionCount: count,
			CallerID:      owner,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	generateCmd.Flags().StringSliceP("doc", "d", nil, "Document ID to draw questions from (repeatable)")
	generateCmd.Flags().IntP("count", "n", 10, "Number of questions")
	generateCmd.Flags().String("owner", "", "User who owns the documents and the exam")
	_ = generateCmd.MarkFlagRequired("doc")
	_ = generateCmd.MarkFlagRequired("owner")
}
