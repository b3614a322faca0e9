package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// GetStep loads the record for one (presentation, step) pair.
func (s *Store) GetStep(ctx context.Context, presentationID int64, step Step) (*StepRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, presentation_id, step, status, result, error_message, created_at, updated_at
         FROM steps WHERE presentation_id = ? AND step = ?`,
		presentationID, string(step))
	return scanStep(row)
}

func scanStep(row *sql.Row) (*StepRecord, error) {
	var rec StepRecord
	var step, status, created, updated string
	var result sql.NullString
	if err := row.Scan(&rec.ID, &rec.PresentationID, &step, &status, &result, &rec.ErrorMessage, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan step: %w", err)
	}
	rec.Step = Step(step)
	rec.Status = Status(status)
	if result.Valid {
		rec.Result = []byte(result.String)
	}
	rec.CreatedAt = parseStamp(created)
	rec.UpdatedAt = parseStamp(updated)
	return &rec, nil
}

// ListSteps returns all step records of a presentation in pipeline order.
func (s *Store) ListSteps(ctx context.Context, presentationID int64) ([]*StepRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, presentation_id, step, status, result, error_message, created_at, updated_at
         FROM steps WHERE presentation_id = ?`, presentationID)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	byStep := make(map[Step]*StepRecord, len(AllSteps))
	for rows.Next() {
		var rec StepRecord
		var step, status, created, updated string
		var result sql.NullString
		if err := rows.Scan(&rec.ID, &rec.PresentationID, &step, &status, &result, &rec.ErrorMessage, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		rec.Step = Step(step)
		rec.Status = Status(status)
		if result.Valid {
			rec.Result = []byte(result.String)
		}
		rec.CreatedAt = parseStamp(created)
		rec.UpdatedAt = parseStamp(updated)
		byStep[rec.Step] = &rec
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*StepRecord, 0, len(byStep))
	for _, step := range AllSteps {
		if rec, ok := byStep[step]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// MarkProcessing moves a step to processing and clears any stale error.
func (s *Store) MarkProcessing(ctx context.Context, presentationID int64, step Step) error {
	return s.setStatus(ctx, presentationID, step, StatusProcessing, "")
}

// MarkFailed records a failure outcome; status distinguishes collaborator
// failures (error) from internal ones (failed).
func (s *Store) MarkFailed(ctx context.Context, presentationID int64, step Step, status Status, message string) error {
	return s.setStatus(ctx, presentationID, step, status, message)
}

func (s *Store) setStatus(ctx context.Context, presentationID int64, step Step, status Status, message string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE steps SET status = ?, error_message = ?, updated_at = ? WHERE presentation_id = ? AND step = ?`,
		string(status), message, nowStamp(), presentationID, string(step))
	if err != nil {
		return fmt.Errorf("set step status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CompleteStep stores a successful result and resets every strictly
// downstream step to pending with cleared results, atomically: a fresh
// result invalidates everything derived from the old one.
func (s *Store) CompleteStep(ctx context.Context, presentationID int64, step Step, result []byte) error {
	now := nowStamp()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE steps SET status = ?, result = ?, error_message = '', updated_at = ?
             WHERE presentation_id = ? AND step = ?`,
			string(StatusCompleted), string(result), now, presentationID, string(step))
		if err != nil {
			return fmt.Errorf("complete step: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrNotFound
		}
		return resetStepsTx(ctx, tx, presentationID, Downstream(step), now)
	})
}

// SaveManualResearch stores a user-provided research payload as a completed
// manual_research step, with the same downstream invalidation as a re-run.
func (s *Store) SaveManualResearch(ctx context.Context, presentationID int64, result []byte) error {
	return s.CompleteStep(ctx, presentationID, StepManualResearch, result)
}

func resetStepsTx(ctx context.Context, tx *sql.Tx, presentationID int64, steps []Step, now string) error {
	if len(steps) == 0 {
		return nil
	}
	placeholders := make([]string, len(steps))
	args := []any{string(StatusPending), now, presentationID}
	for i, step := range steps {
		placeholders[i] = "?"
		args = append(args, string(step))
	}
	_, err := tx.ExecContext(ctx, fmt.Sprintf(
		`UPDATE steps SET status = ?, result = NULL, error_message = '', updated_at = ?
         WHERE presentation_id = ? AND step IN (%s)`, strings.Join(placeholders, ",")),
		args...)
	if err != nil {
		return fmt.Errorf("reset downstream steps: %w", err)
	}
	return nil
}

// UpstreamSatisfied reports whether at least one dependency group of the
// step is fully completed, naming the missing steps otherwise.
func (s *Store) UpstreamSatisfied(ctx context.Context, presentationID int64, step Step) (bool, []Step, error) {
	groups := UpstreamAlternatives(step)
	if len(groups) == 0 {
		return true, nil, nil
	}

	records, err := s.ListSteps(ctx, presentationID)
	if err != nil {
		return false, nil, err
	}
	statusOf := make(map[Step]Status, len(records))
	for _, rec := range records {
		statusOf[rec.Step] = rec.Status
	}

	var missing []Step
	for _, group := range groups {
		satisfied := true
		for _, dep := range group {
			if statusOf[dep] != StatusCompleted {
				satisfied = false
				missing = append(missing, dep)
			}
		}
		if satisfied {
			return true, nil, nil
		}
	}
	return false, missing, nil
}
