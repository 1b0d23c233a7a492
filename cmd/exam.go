package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/examgen/internal/store"
)

var examCmd = &cobra.Command{
	Use:   "exam",
	Short: "Inspect generated exams",
}

var examShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print an exam with its questions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		answers, _ := cmd.Flags().GetBool("answers")

		st, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		exam, err := st.ExamRepo().GetExam(cmd.Context(), args[0])
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("exam %s not found", args[0])
		}
		if err != nil {
			return err
		}

		fmt.Printf("Exam:      %s\n", exam.ID)
		fmt.Printf("Owner:     %s\n", exam.OwnerID)
		fmt.Printf("Provider:  %s (%s)\n", exam.Provider, exam.Model)
		fmt.Printf("Documents: %s\n", strings.Join(exam.DocumentIDs, ", "))
		fmt.Printf("Created:   %s\n", exam.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Println(strings.Repeat("─", 60))

		for _, q := range exam.Questions {
			fmt.Printf("\n%d. %s\n", q.Position, q.Text)
			for _, opt := range q.Options {
				mark := " "
				if answers && opt.ID == q.CorrectOptionID {
					mark = "*"
				}
				fmt.Printf("  %s %s) %s\n", mark, opt.ID, opt.Text)
			}
			if answers && q.Explanation != "" {
				fmt.Printf("    %s\n", q.Explanation)
			}
		}
		return nil
	},
}

func init() {
	examShowCmd.Flags().Bool("answers", false, "Mark correct options and show explanations")

	examCmd.AddCommand(examShowCmd)
}
