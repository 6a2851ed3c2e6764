//-------------------------------------------------------------------------
//
// Order Delivery Warehouse ETL
//
// Copyright (c) 2025 - 2026, orderdw contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"
)

// ErrValidationFailed is returned by Report.Err when the overall status is
// not acceptable.
var ErrValidationFailed = errors.New("validation failed")

// Report collects the results of one validation run.
type Report struct {
	RunID      string    `json:"run_id,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     Status    `json:"overall_status"`
	Results    []Result  `json:"results"`
}

// Counts returns the number of results per status.
func (r *Report) Counts() map[Status]int {
	counts := make(map[Status]int)
	for _, res := range r.Results {
		counts[res.Status]++
	}
	return counts
}

// Err returns ErrValidationFailed when the overall status is FAIL or ERROR,
// or WARNING with failOnWarning set.
func (r *Report) Err(failOnWarning bool) error {
	switch r.Status {
	case StatusFail, StatusError:
	case StatusWarning:
		if !failOnWarning {
			return nil
		}
	default:
		return nil
	}
	counts := r.Counts()
	return fmt.Errorf("%w: status %s (%d failed, %d errors, %d warnings)", ErrValidationFailed,
		r.Status, counts[StatusFail], counts[StatusError], counts[StatusWarning])
}

// WriteSummary prints a table of results followed by the overall status.
func (r *Report) WriteSummary(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CHECK\tCATEGORY\tSTATUS\tMESSAGE")
	for _, res := range r.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", res.Check.Name, res.Check.Category, res.Status, res.Message)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, res := range r.Results {
		if res.Details == nil || len(res.Details.Rows) == 0 || res.Status == StatusPass {
			continue
		}
		fmt.Fprintf(w, "\n%s:\n", res.Check.Name)
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  "+strings.Join(res.Details.Columns, "\t"))
		for _, row := range res.Details.Rows {
			fmt.Fprintln(tw, "  "+strings.Join(row, "\t"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	counts := r.Counts()
	_, err := fmt.Fprintf(w, "\nOverall: %s (%d checks: %d pass, %d fail, %d warning, %d error, %d info) in %s\n",
		r.Status, len(r.Results), counts[StatusPass], counts[StatusFail], counts[StatusWarning],
		counts[StatusError], counts[StatusInfo], r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	return err
}

// WriteJSON writes the report to a timestamped file in dir and returns its
// path.
func (r *Report) WriteJSON(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	name := fmt.Sprintf("validation_report_%s.json", r.StartedAt.UTC().Format("20060102T150405Z"))
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}
