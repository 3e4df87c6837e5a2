package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-tangra/go-tangra-hwdb/internal/inventory"
)

const pcColumns = `id, host, serial, cpu, mainboard, ram_total_gb, ram_slots, resolution, notes, submitted_at`

func scanPC(row interface{ Scan(...any) error }) (*inventory.PC, error) {
	var pc inventory.PC
	err := row.Scan(
		&pc.ID, &pc.Host, &pc.Serial, &pc.CPU, &pc.Mainboard,
		&pc.RAMTotalGB, &pc.RAMSlots, &pc.Resolution, &pc.Notes,
		timestamp{&pc.SubmittedAt},
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inventory.ErrPCNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan pc: %w", err)
	}
	return &pc, nil
}

// Upsert reads, merges and writes one PC under a per-id lock. A placeholder
// row is inserted first so that concurrent first submissions of the same id
// queue on the same row instead of racing to insert it.
func (s *Store) Upsert(ctx context.Context, id string, merge inventory.MergeFunc) (*inventory.PC, error) {
	var out *inventory.PC
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := s.exec(ctx, tx, `INSERT INTO pc (id) VALUES (?) ON CONFLICT (id) DO NOTHING`, id)
		if err != nil {
			return fmt.Errorf("lock pc: %w", err)
		}
		created, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}

		var existing *inventory.PC
		if created == 0 {
			query := `SELECT ` + pcColumns + ` FROM pc WHERE id = ?`
			if s.driver == DriverPostgres {
				query += ` FOR UPDATE`
			}
			existing, err = scanPC(s.queryRow(ctx, tx, query, id))
			if err != nil {
				return fmt.Errorf("read pc: %w", err)
			}
		}

		pc, ops := merge(existing)
		if _, err := s.exec(ctx, tx,
			`UPDATE pc SET host = ?, serial = ?, cpu = ?, mainboard = ?, ram_total_gb = ?,
			 ram_slots = ?, resolution = ?, notes = ?, submitted_at = ?
			 WHERE id = ?`,
			pc.Host, pc.Serial, pc.CPU, pc.Mainboard, pc.RAMTotalGB,
			pc.RAMSlots, pc.Resolution, pc.Notes, s.timeArg(pc.SubmittedAt),
			id,
		); err != nil {
			return fmt.Errorf("write pc: %w", err)
		}

		if err := s.replaceCollections(ctx, tx, id, ops); err != nil {
			return err
		}
		out = pc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) replaceCollections(ctx context.Context, tx *sql.Tx, id string, ops inventory.CollectionOps) error {
	if ops.GPUs != nil {
		if _, err := s.exec(ctx, tx, `DELETE FROM gpu WHERE pc_id = ?`, id); err != nil {
			return fmt.Errorf("clear gpus: %w", err)
		}
		for _, name := range *ops.GPUs {
			if _, err := s.exec(ctx, tx, `INSERT INTO gpu (pc_id, name) VALUES (?, ?)`, id, name); err != nil {
				return fmt.Errorf("insert gpu: %w", err)
			}
		}
	}

	if ops.RAMSticks != nil {
		if _, err := s.exec(ctx, tx, `DELETE FROM ram_stick WHERE pc_id = ?`, id); err != nil {
			return fmt.Errorf("clear ram sticks: %w", err)
		}
		for _, st := range *ops.RAMSticks {
			if _, err := s.exec(ctx, tx,
				`INSERT INTO ram_stick (pc_id, size_gb, type, model) VALUES (?, ?, ?, ?)`,
				id, st.SizeGB, st.Type, st.Model,
			); err != nil {
				return fmt.Errorf("insert ram stick: %w", err)
			}
		}
	}

	if ops.Disks != nil {
		if _, err := s.exec(ctx, tx, `DELETE FROM disk WHERE pc_id = ?`, id); err != nil {
			return fmt.Errorf("clear disks: %w", err)
		}
		for _, d := range *ops.Disks {
			if _, err := s.exec(ctx, tx,
				`INSERT INTO disk (pc_id, size_gb, model, serial, path) VALUES (?, ?, ?, ?, ?)`,
				id, d.SizeGB, d.Model, d.Serial, d.Path,
			); err != nil {
				return fmt.Errorf("insert disk: %w", err)
			}
		}
	}
	return nil
}

// GetPC returns a PC with its collections and tags.
func (s *Store) GetPC(ctx context.Context, id string) (*inventory.PCDetails, error) {
	pc, err := scanPC(s.queryRow(ctx, s.db, `SELECT `+pcColumns+` FROM pc WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	d := &inventory.PCDetails{
		PC:        *pc,
		GPUs:      []string{},
		RAMSticks: []inventory.RAMStick{},
		Disks:     []inventory.Disk{},
	}

	rows, err := s.query(ctx, s.db, `SELECT name FROM gpu WHERE pc_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("query gpus: %w", err)
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan gpu: %w", err)
		}
		d.GPUs = append(d.GPUs, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gpus: %w", err)
	}

	rows, err = s.query(ctx, s.db, `SELECT size_gb, type, model FROM ram_stick WHERE pc_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("query ram sticks: %w", err)
	}
	for rows.Next() {
		var st inventory.RAMStick
		if err := rows.Scan(&st.SizeGB, &st.Type, &st.Model); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan ram stick: %w", err)
		}
		d.RAMSticks = append(d.RAMSticks, st)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ram sticks: %w", err)
	}

	rows, err = s.query(ctx, s.db, `SELECT size_gb, model, serial, path FROM disk WHERE pc_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("query disks: %w", err)
	}
	for rows.Next() {
		var dk inventory.Disk
		if err := rows.Scan(&dk.SizeGB, &dk.Model, &dk.Serial, &dk.Path); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan disk: %w", err)
		}
		d.Disks = append(d.Disks, dk)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate disks: %w", err)
	}

	d.Tags, err = s.tagsOf(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateNotes replaces the notes of an existing PC and leaves every other
// field, including submitted_at, alone.
func (s *Store) UpdateNotes(ctx context.Context, id, notes string) error {
	res, err := s.exec(ctx, s.db, `UPDATE pc SET notes = ? WHERE id = ?`, notes, id)
	if err != nil {
		return fmt.Errorf("update notes: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return inventory.ErrPCNotFound
	}
	return nil
}

// DeletePC removes a PC, its collections and its tag associations. Tags
// themselves are kept.
func (s *Store) DeletePC(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"gpu", "ram_stick", "disk", "pc_tag"} {
			if _, err := s.exec(ctx, tx, `DELETE FROM `+table+` WHERE pc_id = ?`, id); err != nil {
				return fmt.Errorf("delete %s rows: %w", table, err)
			}
		}
		res, err := s.exec(ctx, tx, `DELETE FROM pc WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete pc: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return inventory.ErrPCNotFound
		}
		return nil
	})
}

// ListPCs returns PC summaries ordered by f. Filtering by tag keeps every
// tag of a matching PC in its summary.
func (s *Store) ListPCs(ctx context.Context, f inventory.ListFilter) ([]inventory.Summary, error) {
	f = f.Normalize()

	var (
		where string
		args  []any
	)
	if f.Tag != "" {
		where = ` WHERE EXISTS (SELECT 1 FROM pc_tag pt JOIN tag t ON t.id = pt.tag_id
			WHERE pt.pc_id = p.id AND t.name = ?)`
		args = append(args, f.Tag)
	}

	dir := "DESC"
	if f.SortOrder == inventory.SortAsc {
		dir = "ASC"
	}
	// f.SortBy is one of a fixed set of column names after Normalize.
	order := fmt.Sprintf(` ORDER BY p.%s %s, p.id %s`, f.SortBy, dir, dir)

	rows, err := s.query(ctx, s.db,
		`SELECT p.id, p.host, p.cpu, p.ram_total_gb, p.submitted_at FROM pc p`+where+order, args...)
	if err != nil {
		return nil, fmt.Errorf("list pcs: %w", err)
	}
	defer rows.Close()

	out := []inventory.Summary{}
	index := make(map[string]int)
	for rows.Next() {
		var sum inventory.Summary
		if err := rows.Scan(&sum.ID, &sum.Host, &sum.CPU, &sum.RAMTotalGB, timestamp{&sum.SubmittedAt}); err != nil {
			return nil, fmt.Errorf("scan pc summary: %w", err)
		}
		sum.Tags = []inventory.TagRef{}
		index[sum.ID] = len(out)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pcs: %w", err)
	}
	rows.Close()

	if len(out) == 0 {
		return out, nil
	}

	tagRows, err := s.query(ctx, s.db,
		`SELECT pt.pc_id, t.name, t.color FROM pc_tag pt JOIN tag t ON t.id = pt.tag_id
		 WHERE pt.pc_id IN (SELECT p.id FROM pc p`+where+`)
		 ORDER BY t.name`, args...)
	if err != nil {
		return nil, fmt.Errorf("list pc tags: %w", err)
	}
	defer tagRows.Close()

	for tagRows.Next() {
		var (
			pcID string
			ref  inventory.TagRef
		)
		if err := tagRows.Scan(&pcID, &ref.Name, &ref.Color); err != nil {
			return nil, fmt.Errorf("scan pc tag: %w", err)
		}
		if i, ok := index[pcID]; ok {
			out[i].Tags = append(out[i].Tags, ref)
		}
	}
	if err := tagRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pc tags: %w", err)
	}
	return out, nil
}
