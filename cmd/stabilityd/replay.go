package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/danielpatrickdp/adaptive-state/stability/internal/replay"
	"github.com/spf13/cobra"
)

// #region replay-cmd

var (
	replayFixture string
	replayJSON    bool
)

var errReplayFailed = errors.New("replay failed")

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Run a scenario fixture and compare against its expectations",
	Long: `Replays a JSON fixture against a fresh system on a fixed clock. Every
step is checked against the state invariants and the step's expectations.
Exits non-zero on any invariant failure or expectation mismatch.`,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayFixture, "fixture", "", "path to fixture JSON")
	replayCmd.Flags().BoolVar(&replayJSON, "json", false, "output results as JSON")
	_ = replayCmd.MarkFlagRequired("fixture")
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := replay.LoadFixture(replayFixture)
	if err != nil {
		return err
	}

	results, summary, err := replay.Run(cmd.Context(), f, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if replayJSON {
		if err := printJSON(out, struct {
			Results []replay.StepResult `json:"results"`
			Summary replay.Summary      `json:"summary"`
		}{results, summary}); err != nil {
			return err
		}
	} else {
		printReplayTable(out, f, results, summary)
	}

	if !summary.OK() {
		return fmt.Errorf("%w: %d invariant failures, %d mismatches", errReplayFailed, summary.InvariantFailures, summary.Mismatches)
	}
	return nil
}

func printReplayTable(w io.Writer, f *replay.Fixture, results []replay.StepResult, s replay.Summary) {
	if f.Description != "" {
		fmt.Fprintf(w, "%s\n\n", f.Description)
	}
	fmt.Fprintf(w, "%-4s  %-18s  %-10s  %-10s  %8s  %-9s  %s\n",
		"#", "Step", "Op", "Outcome", "Score", "Mode", "Result")
	fmt.Fprintf(w, "%-4s+-%-18s+-%-10s+-%-10s+-%8s+-%-9s+-%s\n",
		"----", "------------------", "----------", "----------", "--------", "---------", "------")

	for _, r := range results {
		result := "ok"
		switch {
		case !r.Eval.Passed:
			result = "INVARIANT: " + r.Eval.Reason
		case len(r.Mismatches) > 0:
			result = fmt.Sprintf("MISMATCH (%d)", len(r.Mismatches))
		}
		fmt.Fprintf(w, "%-4d  %-18s  %-10s  %-10s  %8.3f  %-9s  %s\n",
			r.Index, r.ID, r.Op, r.Outcome, r.Status.Score, r.Status.Mode, result)
		for _, m := range r.Mismatches {
			fmt.Fprintf(w, "      - %s\n", m)
		}
	}

	fmt.Fprintf(w, "\nSteps: %d  Accepted: %d  Rejected: %d  Critical: %d\n",
		s.TotalSteps, s.Accepted, s.Rejected, s.Critical)
	fmt.Fprintf(w, "Optimizations: %d  Emergencies: %d  Evolutions: %d\n",
		s.Optimizations, s.Emergencies, s.Evolutions)
	fmt.Fprintf(w, "Invariant failures: %d  Mismatches: %d\n", s.InvariantFailures, s.Mismatches)
	fmt.Fprintf(w, "Final score: %.3f  Patterns: %d/%d\n", s.Final.Score, s.Final.PatternCount, s.Final.Capacity)
}

// #endregion replay-cmd
