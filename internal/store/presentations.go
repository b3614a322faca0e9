package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/markoub/power-it-sub001/pkg/errors"
)

// CreatePresentation inserts a presentation and seeds one pending step
// record per pipeline step, atomically.
func (s *Store) CreatePresentation(ctx context.Context, name, topic, author string) (*Presentation, error) {
	now := nowStamp()
	var id int64

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO presentations (name, topic, author, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			name, topic, author, now, now,
		)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE") {
				return apperrors.Newf(apperrors.ErrCodeInvalidReq, "presentation name %q already exists", name)
			}
			return fmt.Errorf("insert presentation: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("presentation id: %w", err)
		}

		for _, step := range AllSteps {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO steps (presentation_id, step, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
				id, string(step), string(StatusPending), now, now,
			); err != nil {
				return fmt.Errorf("seed step %s: %w", step, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetPresentation(ctx, id)
}

// GetPresentation loads one presentation by id.
func (s *Store) GetPresentation(ctx context.Context, id int64) (*Presentation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, topic, author, created_at, updated_at FROM presentations WHERE id = ?`, id)
	return scanPresentation(row)
}

// GetPresentationByName loads one presentation by its unique name.
func (s *Store) GetPresentationByName(ctx context.Context, name string) (*Presentation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, topic, author, created_at, updated_at FROM presentations WHERE name = ?`, name)
	return scanPresentation(row)
}

func scanPresentation(row *sql.Row) (*Presentation, error) {
	var p Presentation
	var created, updated string
	if err := row.Scan(&p.ID, &p.Name, &p.Topic, &p.Author, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan presentation: %w", err)
	}
	p.CreatedAt = parseStamp(created)
	p.UpdatedAt = parseStamp(updated)
	return &p, nil
}

// ListPresentations returns all presentations, newest first.
func (s *Store) ListPresentations(ctx context.Context) ([]*Presentation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, topic, author, created_at, updated_at FROM presentations ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list presentations: %w", err)
	}
	defer rows.Close()

	var out []*Presentation
	for rows.Next() {
		var p Presentation
		var created, updated string
		if err := rows.Scan(&p.ID, &p.Name, &p.Topic, &p.Author, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan presentation: %w", err)
		}
		p.CreatedAt = parseStamp(created)
		p.UpdatedAt = parseStamp(updated)
		out = append(out, &p)
	}
	return out, rows.Err()
}

// DeletePresentation removes a presentation; step records cascade.
func (s *Store) DeletePresentation(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM presentations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete presentation: %w", err)
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

// UpdateTopic changes the presentation topic and resets every step
// downstream of research to pending with cleared results, in one
// transaction: a changed topic invalidates all derived content.
func (s *Store) UpdateTopic(ctx context.Context, id int64, topic string) error {
	now := nowStamp()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE presentations SET topic = ?, updated_at = ? WHERE id = ?`, topic, now, id)
		if err != nil {
			return fmt.Errorf("update topic: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrNotFound
		}
		return resetStepsTx(ctx, tx, id, Downstream(StepResearch), now)
	})
}
