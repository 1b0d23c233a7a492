package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abhisek/examgen/internal/store"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage source documents",
}

var docsAddCmd = &cobra.Command{
	Use:   "add <file>",
	Short: "Store a text file as a document and print its ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, _ := cmd.Flags().GetString("owner")
		title, _ := cmd.Flags().GetString("title")

		text, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		if len(text) == 0 {
			return fmt.Errorf("%s is empty", args[0])
		}
		if title == "" {
			title = filepath.Base(args[0])
		}

		st, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		doc := &store.Document{OwnerID: owner, Title: title, Text: string(text)}
		if err := st.DocumentRepo().CreateDocument(cmd.Context(), doc); err != nil {
			return err
		}
		fmt.Println(doc.ID)
		return nil
	},
}

func init() {
	docsAddCmd.Flags().String("owner", "", "Owning user ID")
	docsAddCmd.Flags().String("title", "", "Document title (default: file name)")
	_ = docsAddCmd.MarkFlagRequired("owner")

	docsCmd.AddCommand(docsAddCmd)
}
