package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/medication-adherence/internal/database"
	"github.com/iliyamo/medication-adherence/internal/model"
)

// MedicationLogRepo stores "taken" events, one row per medication and day.
type MedicationLogRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

func NewMedicationLogRepo(db *sql.DB, d database.Dialect) *MedicationLogRepo {
	return &MedicationLogRepo{db: db, dialect: d}
}

// Activity is one entry of the recent-activity feed.
type Activity struct {
	MedicationID   uint64
	MedicationName string
	TakenDate      model.Date
	TakenAt        time.Time
}

func (r *MedicationLogRepo) upsertSQL() string {
	if r.dialect == database.MySQL {
		return `INSERT INTO medication_logs (medication_id, user_id, taken_date, taken_at, notes)
		        VALUES (?,?,?,?,?)
		        ON DUPLICATE KEY UPDATE taken_at = VALUES(taken_at), notes = VALUES(notes), user_id = VALUES(user_id)`
	}
	return `INSERT INTO medication_logs (medication_id, user_id, taken_date, taken_at, notes)
	        VALUES (?,?,?,?,?)
	        ON CONFLICT (medication_id, taken_date)
	        DO UPDATE SET taken_at = excluded.taken_at, notes = excluded.notes, user_id = excluded.user_id`
}

// Upsert records l for its (medication, day). An existing row for the same
// day is overwritten, so concurrent submissions settle on the last writer
// through the unique key rather than application locking. l is reloaded
// from the store.
func (r *MedicationLogRepo) Upsert(ctx context.Context, l *model.MedicationLog) error {
	if _, err := r.db.ExecContext(ctx, r.upsertSQL(),
		l.MedicationID, l.UserID, l.TakenDate, l.TakenAt.UTC(), nullString(l.Notes)); err != nil {
		return fmt.Errorf("upsert medication log: %w", err)
	}
	stored, err := r.GetByDay(ctx, l.MedicationID, l.TakenDate)
	if err != nil {
		return err
	}
	*l = *stored
	return nil
}

// GetByDay returns the log row of a medication for one day.
func (r *MedicationLogRepo) GetByDay(ctx context.Context, medicationID uint64, day model.Date) (*model.MedicationLog, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, medication_id, user_id, taken_date, taken_at, notes
		 FROM medication_logs WHERE medication_id = ? AND taken_date = ?`, medicationID, day)
	l, err := scanLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get medication log: %w", err)
	}
	return l, nil
}

// ListByMedication returns every log row of a medication ordered by day.
func (r *MedicationLogRepo) ListByMedication(ctx context.Context, medicationID uint64) ([]model.MedicationLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, medication_id, user_id, taken_date, taken_at, notes
		 FROM medication_logs WHERE medication_id = ? ORDER BY taken_date`, medicationID)
	if err != nil {
		return nil, fmt.Errorf("list medication logs: %w", err)
	}
	defer rows.Close()

	var out []model.MedicationLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan medication log: %w", err)
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// TakenDatesByUser returns, per medication id, the days the user marked the
// medication taken in ascending order. A nil from or to leaves that side of
// the range open.
func (r *MedicationLogRepo) TakenDatesByUser(ctx context.Context, userID uint64, from, to *model.Date) (map[uint64][]model.Date, error) {
	q := "SELECT medication_id, taken_date FROM medication_logs WHERE user_id = ?"
	args := []any{userID}
	if from != nil {
		q += " AND taken_date >= ?"
		args = append(args, *from)
	}
	if to != nil {
		q += " AND taken_date <= ?"
		args = append(args, *to)
	}
	q += " ORDER BY medication_id, taken_date"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list taken dates: %w", err)
	}
	defer rows.Close()

	out := make(map[uint64][]model.Date)
	for rows.Next() {
		var (
			medID uint64
			day   model.Date
		)
		if err := rows.Scan(&medID, &day); err != nil {
			return nil, fmt.Errorf("scan taken date: %w", err)
		}
		out[medID] = append(out[medID], day)
	}
	return out, rows.Err()
}

// Recent returns the user's latest logs joined with the medication name,
// most recently recorded first.
func (r *MedicationLogRepo) Recent(ctx context.Context, userID uint64, limit int) ([]Activity, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.id, m.name, ml.taken_date, ml.taken_at
		 FROM medication_logs ml
		 JOIN medications m ON m.id = ml.medication_id
		 WHERE ml.user_id = ?
		 ORDER BY ml.taken_at DESC, ml.id DESC
		 LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.MedicationID, &a.MedicationName, &a.TakenDate, &a.TakenAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanLog(row interface{ Scan(...any) error }) (*model.MedicationLog, error) {
	var (
		l     model.MedicationLog
		notes sql.NullString
	)
	if err := row.Scan(&l.ID, &l.MedicationID, &l.UserID, &l.TakenDate, &l.TakenAt, &notes); err != nil {
		return nil, err
	}
	if notes.Valid {
		l.Notes = &notes.String
	}
	return &l, nil
}
