package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/danielpatrickdp/adaptive-state/stability/internal/config"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// #region globals

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

// #endregion globals

// #region root

var rootCmd = &cobra.Command{
	Use:   "stabilityd",
	Short: "Adaptive stability and pattern-recognition control loop",
	Long: `stabilityd keeps a host's health score above its threshold.

It records pattern observations, evolves the score over time, and runs
corrective passes (memory, fps, stability) or an emergency reset when the
score drops below the emergency floor.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		format := "json"
		if cfg.Logging.Development {
			format = "console"
		}
		logger, err = logging.NewLogger(cfg.Logging.Level, format, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "stability.yaml", "path to YAML config (missing file uses defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(serveCmd, simulateCmd, replayCmd, inspectCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion root

// #region output

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
