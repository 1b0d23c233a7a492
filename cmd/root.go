package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/examgen/internal/app"
	"github.com/abhisek/examgen/internal/config"
	"github.com/abhisek/examgen/internal/logging"
	"github.com/abhisek/examgen/internal/store"
)

var rootCmd = &cobra.Command{
	Use:          "examgen",
	Short:        "Rate-limited exam generation service",
	Long:         "examgen turns uploaded documents into multiple-choice exams using an LLM provider with failover.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("env-file", ".env", "Optional dotenv file read before the environment")
	rootCmd.PersistentFlags().String("db", "", "Database DSN or SQLite path (overrides EXAMGEN_DB_DSN)")
	rootCmd.PersistentFlags().String("db-driver", "", "Database driver: sqlite or postgres (overrides EXAMGEN_DB_DRIVER)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(docsCmd)
	rootCmd.AddCommand(examCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(quotaCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the environment and applies persistent flag overrides.
// Flags win over EXAMGEN_* variables.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return config.Config{}, err
	}
	if d, _ := cmd.Flags().GetString("db-driver"); d != "" {
		cfg.DBDriver = d
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.DBDSN = p
		if cfg.DBDriver != store.DriverPostgres {
			if err := store.EnsureDir(p); err != nil {
				return config.Config{}, err
			}
		}
	}
	return cfg, nil
}

// openStore loads the configuration and opens the database it names.
func openStore(cmd *cobra.Command) (*store.Store, config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, config.Config{}, err
	}
	st, err := app.OpenStore(cfg)
	if err != nil {
		return nil, config.Config{}, err
	}
	return st, cfg, nil
}

func cliLogger(cfg config.Config) *slog.Logger {
	return logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
}
