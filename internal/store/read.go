package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/scancheck/internal/hid"
)

// ReadRun returns the header row of a run.
func (s *Store) ReadRun(ctx context.Context, runID string) (Run, error) {
	var (
		run        Run
		durationMS int64
		passed     sql.NullBool
		cycles     int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, cycle_duration_ms, passed, cycles, reports
		FROM runs
		WHERE id = ?
	`, runID).Scan(&run.ID, &run.Name, &durationMS, &passed, &cycles, &run.Reports)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %q: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run: %w", err)
	}
	run.CycleDuration = time.Duration(durationMS) * time.Millisecond
	run.Finished = passed.Valid
	run.Passed = passed.Bool
	run.Cycles = uint64(cycles)
	return run, nil
}

// ReadCycles returns every recorded tick of a run, ordered by cycle id.
// Returns an empty slice (not nil) if none exist.
func (s *Store) ReadCycles(ctx context.Context, runID string) ([]Cycle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cycle, elapsed_ms, reports
		FROM cycles
		WHERE run_id = ?
		ORDER BY cycle ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	cycles := []Cycle{}
	for rows.Next() {
		var (
			c         = Cycle{RunID: runID}
			id        int64
			elapsedMS int64
		)
		if err := rows.Scan(&id, &elapsedMS, &c.Reports); err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		c.Cycle = uint64(id)
		c.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		cycles = append(cycles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cycles: %w", err)
	}
	return cycles, nil
}

// ReadReports returns every processed report of a run, ordered by sequence.
// Returns an empty slice (not nil) if none exist.
func (s *Store) ReadReports(ctx context.Context, runID string) ([]Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, cycle, modifiers, keys
		FROM reports
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	reports := []Report{}
	for rows.Next() {
		var (
			r        = Report{RunID: runID}
			cycle    int64
			mods     int
			keysJSON string
		)
		if err := rows.Scan(&r.Seq, &cycle, &mods, &keysJSON); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		report, err := unmarshalUsages(keysJSON)
		if err != nil {
			return nil, fmt.Errorf("report %d: %w", r.Seq, err)
		}
		if int(report.Modifiers) != mods {
			return nil, fmt.Errorf("report %d: modifiers %#x do not match keys %s", r.Seq, mods, keysJSON)
		}
		r.Cycle = uint64(cycle)
		r.Report = report
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return reports, nil
}

// ReadOutcomes returns every assertion evaluation of a run, in evaluation
// order. Returns an empty slice (not nil) if none exist.
func (s *Store) ReadOutcomes(ctx context.Context, runID string) ([]Outcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ordinal, cycle, elapsed_ms, report_seq, domain, lifetime, description, passed
		FROM outcomes
		WHERE run_id = ?
		ORDER BY ordinal ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	outcomes := []Outcome{}
	for rows.Next() {
		var (
			o         = Outcome{RunID: runID}
			cycle     int64
			elapsedMS int64
		)
		if err := rows.Scan(&o.Ordinal, &cycle, &elapsedMS, &o.ReportSeq, &o.Domain, &o.Lifetime, &o.Description, &o.Passed); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Cycle = uint64(cycle)
		o.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return outcomes, nil
}

// CountReports returns how many reports a run processed.
func (s *Store) CountReports(ctx context.Context, runID string) (int, error) {
	return s.count(ctx, "count reports", `SELECT COUNT(*) FROM reports WHERE run_id = ?`, runID)
}

// CountCycles returns how many ticks a run recorded.
func (s *Store) CountCycles(ctx context.Context, runID string) (int, error) {
	return s.count(ctx, "count cycles", `SELECT COUNT(*) FROM cycles WHERE run_id = ?`, runID)
}

// ReportsInCycle returns how many reports were processed during cycle.
func (s *Store) ReportsInCycle(ctx context.Context, runID string, cycle uint64) (int, error) {
	return s.count(ctx, "count reports in cycle",
		`SELECT COUNT(*) FROM reports WHERE run_id = ? AND cycle = ?`, runID, int64(cycle))
}

// KeyReported reports whether any report of the run had k active.
func (s *Store) KeyReported(ctx context.Context, runID string, k hid.Keycode) (bool, error) {
	n, err := s.count(ctx, "key reported",
		`SELECT COUNT(*) FROM report_keys WHERE run_id = ? AND keycode = ?`, runID, int(k))
	return n > 0, err
}

// FailedOutcomes returns how many assertion evaluations failed.
func (s *Store) FailedOutcomes(ctx context.Context, runID string) (int, error) {
	return s.count(ctx, "count failed outcomes",
		`SELECT COUNT(*) FROM outcomes WHERE run_id = ? AND passed = 0`, runID)
}

func (s *Store) count(ctx context.Context, what, query string, args ...any) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", what, err)
	}
	return n, nil
}

// unmarshalUsages rebuilds a report from its stored key list.
func unmarshalUsages(data string) (hid.Report, error) {
	var names []string
	if err := json.Unmarshal([]byte(data), &names); err != nil {
		return hid.Report{}, fmt.Errorf("unmarshal keys: %w", err)
	}
	keys, err := hid.ParseKeycodes(names)
	if err != nil {
		return hid.Report{}, fmt.Errorf("unmarshal keys: %w", err)
	}
	return hid.NewReport(keys...), nil
}
