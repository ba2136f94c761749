package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
)

// Report renders the current inventory as a CSV report and stores it in
// the configured sink under the given name. One row per stream and one
// per workspace, grouped under their depot.
func (a *App) Report(ctx context.Context, name string) error {
	names, err := a.depotNames(ctx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"depot", "kind", "id", "name", "basis", "type", "owner", "hidden"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing report header: %w", err)
	}

	for _, depot := range names {
		streams, err := a.ListStreams(ctx, depot)
		if err != nil {
			return err
		}
		for _, s := range streams {
			row := []string{
				depot, "stream", strconv.Itoa(s.ID), s.Name, s.Basis,
				string(s.Type), "", strconv.FormatBool(s.Hidden),
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("writing stream row: %w", err)
			}
		}

		workspaces, err := a.ListWorkspaces(ctx, depot)
		if err != nil {
			return err
		}
		for _, ws := range workspaces {
			row := []string{
				depot, "workspace", strconv.Itoa(ws.ID), ws.Name, "",
				"", ws.UserName, strconv.FormatBool(ws.Hidden),
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("writing workspace row: %w", err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}

	s, err := a.ensureSink(ctx)
	if err != nil {
		return err
	}

	if err := s.Put(name, &buf, int64(buf.Len())); err != nil {
		return fmt.Errorf("storing report: %w", err)
	}

	a.logger.Info("report stored", "name", name, "depots", len(names))
	return nil
}
