package main

import (
	"fmt"
	"io"

	"github.com/danielpatrickdp/adaptive-state/stability/internal/logging"
	"github.com/danielpatrickdp/adaptive-state/stability/internal/state"
	"github.com/spf13/cobra"
)

// #region inspect-cmd

var (
	inspectDB      string
	inspectLast    int
	inspectVersion string
	inspectJSON    bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "List journaled snapshots and events",
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectDB, "db", "", "journal database (default: journal.path from config)")
	inspectCmd.Flags().IntVar(&inspectLast, "last", 20, "show N most recent snapshots and events")
	inspectCmd.Flags().StringVar(&inspectVersion, "version", "", "show a single snapshot")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "output as JSON instead of table")
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := inspectDB
	if path == "" {
		path = cfg.Journal.Path
	}
	store, err := state.NewStore(path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	if inspectVersion != "" {
		return runDetailMode(out, store, inspectVersion, inspectJSON)
	}
	return runListMode(out, store, inspectLast, inspectJSON)
}

// #endregion inspect-cmd

// #region list-mode

type snapshotRow struct {
	VersionID    string           `json:"version_id"`
	ParentID     string           `json:"parent_id,omitempty"`
	Trigger      string           `json:"trigger"`
	Score        float64          `json:"score"`
	Threshold    float64          `json:"threshold"`
	Dimensions   state.Dimensions `json:"dimensions"`
	PatternCount int              `json:"pattern_count"`
	CreatedAt    string           `json:"created_at"`
}

type eventRow struct {
	ID          int64  `json:"id"`
	VersionID   string `json:"version_id,omitempty"`
	EventType   string `json:"event_type"`
	PatternType string `json:"pattern_type,omitempty"`
	Decision    string `json:"decision"`
	Reason      string `json:"reason,omitempty"`
	Detail      string `json:"detail,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toSnapshotRow(rec state.SnapshotRecord) snapshotRow {
	return snapshotRow{
		VersionID:    rec.VersionID,
		ParentID:     rec.ParentID,
		Trigger:      rec.Trigger,
		Score:        rec.Snapshot.Score,
		Threshold:    rec.Snapshot.Threshold,
		Dimensions:   rec.Snapshot.Dimensions,
		PatternCount: rec.Snapshot.PatternCount,
		CreatedAt:    rec.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func toEventRow(e logging.Event) eventRow {
	return eventRow{
		ID:          e.ID,
		VersionID:   e.VersionID,
		EventType:   e.EventType,
		PatternType: e.PatternType,
		Decision:    e.Decision,
		Reason:      e.Reason,
		Detail:      e.DetailJSON,
		CreatedAt:   e.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func runListMode(w io.Writer, store *state.Store, last int, jsonOut bool) error {
	versions, err := store.ListVersions(last)
	if err != nil {
		return err
	}
	events, err := logging.ListEvents(store.DB(), last)
	if err != nil {
		return err
	}

	// Store returns newest first; print chronologically.
	snaps := make([]snapshotRow, len(versions))
	for i, v := range versions {
		snaps[len(versions)-1-i] = toSnapshotRow(v)
	}
	evs := make([]eventRow, len(events))
	for i, e := range events {
		evs[len(events)-1-i] = toEventRow(e)
	}

	if jsonOut {
		return printJSON(w, struct {
			Snapshots []snapshotRow `json:"snapshots"`
			Events    []eventRow    `json:"events"`
		}{snaps, evs})
	}

	if len(snaps) == 0 && len(evs) == 0 {
		fmt.Fprintln(w, "journal is empty")
		return nil
	}

	fmt.Fprintf(w, "%-8s  %-8s  %-9s  %8s  %7s  %7s  %7s  %8s  %s\n",
		"Version", "Parent", "Trigger", "Score", "Alpha", "Beta", "Gamma", "Patterns", "Time")
	fmt.Fprintf(w, "%-8s+-%-8s+-%-9s+-%8s+-%7s+-%7s+-%7s+-%8s+-%s\n",
		"--------", "--------", "---------", "--------", "-------", "-------", "-------", "--------", "--------------------")
	for _, r := range snaps {
		parent := "-"
		if r.ParentID != "" {
			parent = shortID(r.ParentID)
		}
		fmt.Fprintf(w, "%-8s  %-8s  %-9s  %8.3f  %7.2f  %7.2f  %7.2f  %8d  %s\n",
			shortID(r.VersionID), parent, r.Trigger, r.Score,
			r.Dimensions.Alpha, r.Dimensions.Beta, r.Dimensions.Gamma, r.PatternCount, r.CreatedAt)
	}

	fmt.Fprintf(w, "\n%-6s  %-8s  %-10s  %-22s  %-9s  %s\n",
		"Event", "Version", "Type", "Pattern", "Decision", "Reason")
	fmt.Fprintf(w, "%-6s+-%-8s+-%-10s+-%-22s+-%-9s+-%s\n",
		"------", "--------", "----------", "----------------------", "---------", "------")
	for _, e := range evs {
		fmt.Fprintf(w, "%-6d  %-8s  %-10s  %-22s  %-9s  %s\n",
			e.ID, shortID(e.VersionID), e.EventType, e.PatternType, e.Decision, e.Reason)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

func runDetailMode(w io.Writer, store *state.Store, versionID string, jsonOut bool) error {
	rec, err := store.GetVersion(versionID)
	if err != nil {
		return err
	}
	row := toSnapshotRow(rec)
	if jsonOut {
		return printJSON(w, row)
	}

	fmt.Fprintf(w, "Version:    %s\n", row.VersionID)
	fmt.Fprintf(w, "Parent:     %s\n", row.ParentID)
	fmt.Fprintf(w, "Trigger:    %s\n", row.Trigger)
	fmt.Fprintf(w, "Created:    %s\n", row.CreatedAt)
	fmt.Fprintf(w, "Score:      %.4f (threshold %.2f)\n", row.Score, row.Threshold)
	fmt.Fprintf(w, "Dimensions: alpha %.2f  beta %.2f  gamma %.2f\n",
		row.Dimensions.Alpha, row.Dimensions.Beta, row.Dimensions.Gamma)
	fmt.Fprintf(w, "Position:   %.1f, %.1f, %.1f\n",
		rec.Snapshot.Position.X, rec.Snapshot.Position.Y, rec.Snapshot.Position.Z)
	fmt.Fprintf(w, "Patterns:   %d/%d\n", rec.Snapshot.PatternCount, rec.Snapshot.Capacity)
	return nil
}

// #endregion detail-mode
