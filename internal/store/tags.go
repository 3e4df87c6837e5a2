package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-tangra/go-tangra-hwdb/internal/inventory"
)

// CreateTag inserts a tag. The name must be unique.
func (s *Store) CreateTag(ctx context.Context, name, color string) (*inventory.Tag, error) {
	tag := &inventory.Tag{Name: name, Color: color}
	err := s.queryRow(ctx, s.db,
		`INSERT INTO tag (name, color) VALUES (?, ?) RETURNING id`, name, color,
	).Scan(&tag.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, inventory.ErrTagExists
		}
		return nil, fmt.Errorf("insert tag: %w", err)
	}
	return tag, nil
}

// DeleteTag removes a tag and every association to it.
func (s *Store) DeleteTag(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.exec(ctx, tx, `DELETE FROM pc_tag WHERE tag_id = ?`, id); err != nil {
			return fmt.Errorf("delete tag associations: %w", err)
		}
		res, err := s.exec(ctx, tx, `DELETE FROM tag WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete tag: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return inventory.ErrTagNotFound
		}
		return nil
	})
}

// ListTags returns all tags ordered by name.
func (s *Store) ListTags(ctx context.Context) ([]inventory.Tag, error) {
	rows, err := s.query(ctx, s.db, `SELECT id, name, color FROM tag ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return scanTags(rows)
}

// AddTag associates a tag with a PC.
func (s *Store) AddTag(ctx context.Context, pcID string, tagID int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.exists(ctx, tx, `SELECT 1 FROM pc WHERE id = ?`, pcID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return inventory.ErrPCNotFound
			}
			return fmt.Errorf("check pc: %w", err)
		}
		if err := s.exists(ctx, tx, `SELECT 1 FROM tag WHERE id = ?`, tagID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return inventory.ErrTagNotFound
			}
			return fmt.Errorf("check tag: %w", err)
		}
		if _, err := s.exec(ctx, tx, `INSERT INTO pc_tag (pc_id, tag_id) VALUES (?, ?)`, pcID, tagID); err != nil {
			if isUniqueViolation(err) {
				return inventory.ErrTagAssigned
			}
			return fmt.Errorf("insert pc tag: %w", err)
		}
		return nil
	})
}

// RemoveTag removes one association.
func (s *Store) RemoveTag(ctx context.Context, pcID string, tagID int64) error {
	res, err := s.exec(ctx, s.db, `DELETE FROM pc_tag WHERE pc_id = ? AND tag_id = ?`, pcID, tagID)
	if err != nil {
		return fmt.Errorf("delete pc tag: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return inventory.ErrAssignmentNotFound
	}
	return nil
}

// PCTags returns the tags of a PC ordered by name.
func (s *Store) PCTags(ctx context.Context, pcID string) ([]inventory.Tag, error) {
	if err := s.exists(ctx, s.db, `SELECT 1 FROM pc WHERE id = ?`, pcID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, inventory.ErrPCNotFound
		}
		return nil, fmt.Errorf("check pc: %w", err)
	}
	return s.tagsOf(ctx, s.db, pcID)
}

func (s *Store) tagsOf(ctx context.Context, q querier, pcID string) ([]inventory.Tag, error) {
	rows, err := s.query(ctx, q,
		`SELECT t.id, t.name, t.color FROM tag t
		 JOIN pc_tag pt ON t.id = pt.tag_id
		 WHERE pt.pc_id = ?
		 ORDER BY t.name`, pcID)
	if err != nil {
		return nil, fmt.Errorf("query pc tags: %w", err)
	}
	return scanTags(rows)
}

func (s *Store) exists(ctx context.Context, q querier, query string, args ...any) error {
	var one int
	return s.queryRow(ctx, q, query, args...).Scan(&one)
}

func scanTags(rows *sql.Rows) ([]inventory.Tag, error) {
	defer rows.Close()

	tags := []inventory.Tag{}
	for rows.Next() {
		var t inventory.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return tags, nil
}
