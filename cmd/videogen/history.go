package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"videogen/internal/domain"
	"videogen/internal/infra"
)

func printHistory(ctx context.Context, runs domain.RunRepository, limit int, out io.Writer, logger *infra.Logger) int {
	list, err := runs.ListRecent(ctx, limit)
	if err != nil {
		logger.Error().Err(err).Msg("videogen: list runs failed")
		return 1
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tOUTCOME\tPOLLS\tSTARTED\tARTIFACT")
	for _, r := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID, r.Name, r.Outcome, r.Polls, r.StartedAt.Format(time.RFC3339), r.ArtifactPath)
	}
	if err := tw.Flush(); err != nil {
		return 1
	}
	return 0
}

func printRun(ctx context.Context, runs domain.RunRepository, id string, out io.Writer, logger *infra.Logger) int {
	r, err := runs.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		fmt.Fprintf(out, "run %s not found\n", id)
		return 1
	}
	if err != nil {
		logger.Error().Err(err).Str("run_id", id).Msg("videogen: get run failed")
		return 1
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(map[string]any{
		"id":            r.ID,
		"name":          r.Name,
		"handle":        r.Handle,
		"outcome":       r.Outcome,
		"error":         r.ErrorMessage,
		"artifact_path": r.ArtifactPath,
		"polls":         r.Polls,
		"started_at":    r.StartedAt,
		"finished_at":   r.FinishedAt,
		"request":       r.RequestJSON,
	})
	return 0
}
