package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Inspect and maintain SQL-backed rate limit entries",
}

var quotaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List live quota entries, busiest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		st, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		entries, err := st.QuotaStore().List(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No live quota entries.")
			return nil
		}

		fmt.Printf("%-48s  %6s  %-19s  %s\n", "Key", "Hits", "Window start", "Resets in")
		fmt.Println(strings.Repeat("─", 90))
		for _, e := range entries {
			fmt.Printf("%-48s  %6d  %-19s  %s\n",
				truncate(e.Key, 48),
				e.Count,
				e.WindowStart.Local().Format("2006-01-02 15:04:05"),
				time.Until(e.ExpiresAt).Round(time.Second),
			)
		}
		return nil
	},
}

var quotaSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired quota entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.QuotaStore().SweepExpired(cmd.Context(), time.Now())
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d expired entries.\n", n)
		return nil
	},
}

func init() {
	quotaListCmd.Flags().IntP("limit", "n", 20, "Number of entries to show")

	quotaCmd.AddCommand(quotaListCmd)
	quotaCmd.AddCommand(quotaSweepCmd)
}
