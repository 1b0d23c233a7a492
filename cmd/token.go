package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/examgen/internal/identity"
)

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Issue a signed bearer token for local testing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ttl, _ := cmd.Flags().GetDuration("ttl")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.JWTSigningKey == "" {
			return errors.New("EXAMGEN_JWT_SIGNING_KEY is not set")
		}

		token, err := identity.NewVerifier(cfg.JWTSigningKey, cfg.JWTIssuer, nil).Issue(args[0], ttl)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
}
