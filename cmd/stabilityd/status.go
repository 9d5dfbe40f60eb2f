package main

import (
	"context"
	"fmt"
	"time"

	"github.com/danielpatrickdp/adaptive-state/stability/internal/monitor"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/transport"
	"github.com/spf13/cobra"
)

// #region status-cmd

var (
	statusAddr    string
	statusTimeout time.Duration
	statusJSON    bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query a running stabilityd over gRPC",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "", "server address (default: transport.listen from config)")
	statusCmd.Flags().DurationVar(&statusTimeout, "timeout", 5*time.Second, "call timeout")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	addr := statusAddr
	if addr == "" {
		addr = cfg.Transport.Listen
	}
	client, err := transport.NewClient(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
	defer cancel()

	health, err := client.Health(ctx)
	if err != nil {
		return err
	}
	st, err := client.CheckStability(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if statusJSON {
		return printJSON(out, struct {
			Health string         `json:"health"`
			Status monitor.Status `json:"status"`
		}{health.String(), st})
	}
	fmt.Fprintf(out, "Health:     %s\n", health)
	fmt.Fprintf(out, "Mode:       %s (stable: %v)\n", st.Mode, st.Stable)
	fmt.Fprintf(out, "Score:      %.4f (threshold %.2f, floor %.2f)\n", st.Score, st.Threshold, st.EmergencyFloor)
	fmt.Fprintf(out, "Dimensions: alpha %.2f  beta %.2f  gamma %.2f\n",
		st.Dimensions.Alpha, st.Dimensions.Beta, st.Dimensions.Gamma)
	fmt.Fprintf(out, "Patterns:   %d\n", st.PatternCount)
	return nil
}

// #endregion status-cmd
