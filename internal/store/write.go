package store

import (
	"context"
	"fmt"

	"github.com/roach88/scancheck/internal/canonical"
	"github.com/roach88/scancheck/internal/hid"
)

// BeginRun inserts the header row of a run.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, name, cycle_duration_ms)
		VALUES (?, ?, ?)
	`, run.ID, run.Name, run.CycleDuration.Milliseconds())
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// FinishRun stores the final result and counters of a run.
func (s *Store) FinishRun(ctx context.Context, runID string, passed bool, cycles uint64, reports int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET passed = ?, cycles = ?, reports = ?
		WHERE id = ?
	`, passed, int64(cycles), reports, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %q: %w", runID, ErrRunNotFound)
	}
	return nil
}

// WriteCycle records a completed tick.
func (s *Store) WriteCycle(ctx context.Context, c Cycle) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cycles (run_id, cycle, elapsed_ms, reports)
		VALUES (?, ?, ?, ?)
	`, c.RunID, int64(c.Cycle), c.Elapsed.Milliseconds(), c.Reports)
	if err != nil {
		return fmt.Errorf("write cycle: %w", err)
	}
	return nil
}

// WriteReport records a report and one report_keys row per active usage,
// modifiers included, in a single transaction.
func (s *Store) WriteReport(ctx context.Context, r Report) error {
	usages := activeUsages(r.Report)
	keysJSON, err := marshalUsages(usages)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write report: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reports (run_id, seq, cycle, modifiers, keys)
		VALUES (?, ?, ?, ?, ?)
	`, r.RunID, r.Seq, int64(r.Cycle), int(r.Report.Modifiers), keysJSON)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	for _, k := range usages {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO report_keys (run_id, seq, keycode)
			VALUES (?, ?, ?)
		`, r.RunID, r.Seq, int(k))
		if err != nil {
			return fmt.Errorf("write report key %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write report: commit: %w", err)
	}
	return nil
}

// WriteOutcome records an assertion evaluation.
func (s *Store) WriteOutcome(ctx context.Context, o Outcome) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outcomes
		(run_id, ordinal, cycle, elapsed_ms, report_seq, domain, lifetime, description, passed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		o.RunID,
		o.Ordinal,
		int64(o.Cycle),
		o.Elapsed.Milliseconds(),
		o.ReportSeq,
		o.Domain,
		o.Lifetime,
		o.Description,
		o.Passed,
	)
	if err != nil {
		return fmt.Errorf("write outcome: %w", err)
	}
	return nil
}

// activeUsages lists modifiers first, then keys, each in usage order.
func activeUsages(r hid.Report) []hid.Keycode {
	mods := r.ActiveModifiers()
	keys := r.ActiveKeycodes()
	out := make([]hid.Keycode, 0, len(mods)+len(keys))
	out = append(out, mods...)
	return append(out, keys...)
}

// marshalUsages stores usage names as canonical JSON.
func marshalUsages(usages []hid.Keycode) (string, error) {
	names := make([]string, len(usages))
	for i, k := range usages {
		names[i] = k.String()
	}
	data, err := canonical.Marshal(names)
	if err != nil {
		return "", fmt.Errorf("marshal keys: %w", err)
	}
	return string(data), nil
}
