package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/beaconloc/presence/internal/infrastructure/database"
	"github.com/beaconloc/presence/internal/presence"
)

// timeLayout is the stored timestamp format.
const timeLayout = time.RFC3339Nano

// Change describes what a report did to the ledger.
type Change int

// Changes returned by Ledger.Apply.
const (
	ChangeNone    Change = iota // nothing to record
	ChangeEntered               // a stay was opened
	ChangeMoved                 // the open stay was closed and another opened
	ChangeExited                // the open stay was closed
)

func (c Change) String() string {
	switch c {
	case ChangeEntered:
		return "entered"
	case ChangeMoved:
		return "moved"
	case ChangeExited:
		return "exited"
	default:
		return "none"
	}
}

// Record is one stay. ExitTime is nil while the stay is open.
type Record struct {
	ID          int64      `json:"id"`
	SubjectID   string     `json:"uniqueID"`
	SubjectName string     `json:"userName"`
	Room        string     `json:"room"`
	Floor       int        `json:"floor"`
	Status      string     `json:"status"`
	EntryTime   time.Time  `json:"entry_time"`
	ExitTime    *time.Time `json:"exit_time"`
}

// Ledger records stays in SQLite.
type Ledger struct {
	db *database.DB
}

// New returns a ledger over a migrated database.
func New(db *database.DB) *Ledger {
	return &Ledger{db: db}
}

// Apply records r, timestamped with r.EmittedAt.
//
// An available report opens a stay when none is open and moves the subject
// when the open stay is in another room. An unavailable report closes the
// open stay. Everything else is ChangeNone.
func (l *Ledger) Apply(ctx context.Context, r presence.Report) (Change, error) {
	if r.SubjectID == "" {
		return ChangeNone, ErrNoSubject
	}
	at := r.EmittedAt.UTC().Format(timeLayout)

	change := ChangeNone
	err := l.db.WithTx(ctx, func(tx *sql.Tx) error {
		open, found, err := openStay(ctx, tx, r.SubjectID)
		if err != nil {
			return err
		}

		if !r.Available {
			if !found {
				return nil
			}
			change = ChangeExited
			return closeStay(ctx, tx, open.ID, at, presence.StatusUnavailable)
		}

		if found {
			if open.Room == r.Room && open.Floor == r.Floor {
				return nil
			}
			if err := closeStay(ctx, tx, open.ID, at, open.Status); err != nil {
				return err
			}
			change = ChangeMoved
		} else {
			change = ChangeEntered
		}

		const insert = `INSERT INTO occupancy
			(subject_id, subject_name, room, floor, status, entry_time)
			VALUES (?, ?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, insert,
			r.SubjectID, r.SubjectName, r.Room, r.Floor, presence.StatusAvailable, at); err != nil {
			return fmt.Errorf("opening stay: %w", err)
		}
		return nil
	})
	if err != nil {
		return ChangeNone, err
	}
	return change, nil
}

// OpenStay returns the subject's open stay.
func (l *Ledger) OpenStay(ctx context.Context, subjectID string) (Record, bool, error) {
	var (
		rec   Record
		found bool
	)
	err := l.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		rec, found, err = openStay(ctx, tx, subjectID)
		return err
	})
	return rec, found, err
}

// Records returns up to limit stays, oldest first. A non-positive limit
// returns everything.
func (l *Ledger) Records(ctx context.Context, limit int) ([]Record, error) {
	query := `SELECT id, subject_id, subject_name, room, floor, status, entry_time, exit_time
		FROM occupancy ORDER BY id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying occupancy: %w", err)
	}
	defer rows.Close() //nolint:errcheck // rows.Err checked below

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating occupancy: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (Record, error) {
	var (
		rec   Record
		entry string
		exit  sql.NullString
	)
	if err := s.Scan(&rec.ID, &rec.SubjectID, &rec.SubjectName, &rec.Room, &rec.Floor,
		&rec.Status, &entry, &exit); err != nil {
		return Record{}, fmt.Errorf("scanning occupancy row: %w", err)
	}

	var err error
	if rec.EntryTime, err = time.Parse(timeLayout, entry); err != nil {
		return Record{}, fmt.Errorf("parsing entry_time: %w", err)
	}
	if exit.Valid {
		t, err := time.Parse(timeLayout, exit.String)
		if err != nil {
			return Record{}, fmt.Errorf("parsing exit_time: %w", err)
		}
		rec.ExitTime = &t
	}
	return rec, nil
}

func openStay(ctx context.Context, tx *sql.Tx, subjectID string) (Record, bool, error) {
	const query = `SELECT id, subject_id, subject_name, room, floor, status, entry_time, exit_time
		FROM occupancy WHERE subject_id = ? AND exit_time IS NULL`
	rec, err := scanRecord(tx.QueryRowContext(ctx, query, subjectID))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func closeStay(ctx context.Context, tx *sql.Tx, id int64, at, status string) error {
	const update = `UPDATE occupancy SET exit_time = ?, status = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, update, at, status, id); err != nil {
		return fmt.Errorf("closing stay: %w", err)
	}
	return nil
}
