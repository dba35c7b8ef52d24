package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/medication-adherence/internal/model"
)

// MedicationRepo encapsulates the queries on the `medications` table. Every
// read and write is scoped by owner: a medication belonging to another user
// behaves exactly like a missing one.
type MedicationRepo struct {
	db *sql.DB
}

func NewMedicationRepo(db *sql.DB) *MedicationRepo {
	return &MedicationRepo{db: db}
}

const medicationCols = `id, user_id, name, dosage, frequency, instructions, created_at, updated_at`

func scanMedication(row interface{ Scan(...any) error }) (*model.Medication, error) {
	var (
		m            model.Medication
		instructions sql.NullString
	)
	if err := row.Scan(&m.ID, &m.UserID, &m.Name, &m.Dosage, &m.Frequency, &instructions, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	if instructions.Valid {
		m.Instructions = &instructions.String
	}
	return &m, nil
}

// Create inserts m and refreshes it from the database so that id and
// timestamps are populated.
func (r *MedicationRepo) Create(ctx context.Context, m *model.Medication) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO medications (user_id, name, dosage, frequency, instructions) VALUES (?,?,?,?,?)",
		m.UserID, m.Name, m.Dosage, string(m.Frequency), nullString(m.Instructions))
	if err != nil {
		return fmt.Errorf("insert medication: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	stored, err := r.GetByIDAndOwner(ctx, uint64(id), m.UserID)
	if err != nil {
		return err
	}
	*m = *stored
	return nil
}

// GetByIDAndOwner returns the medication only if it belongs to userID.
func (r *MedicationRepo) GetByIDAndOwner(ctx context.Context, id, userID uint64) (*model.Medication, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+medicationCols+" FROM medications WHERE id = ? AND user_id = ?", id, userID)
	m, err := scanMedication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get medication: %w", err)
	}
	return m, nil
}

// ListByOwner returns the user's medications, newest first.
func (r *MedicationRepo) ListByOwner(ctx context.Context, userID uint64) ([]*model.Medication, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+medicationCols+" FROM medications WHERE user_id = ? ORDER BY created_at DESC, id DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}
	defer rows.Close()

	var out []*model.Medication
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan medication: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update overwrites the editable fields of m if it belongs to m.UserID and
// reloads it. ErrNotFound when no row matched.
func (r *MedicationRepo) Update(ctx context.Context, m *model.Medication) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE medications
		 SET name = ?, dosage = ?, frequency = ?, instructions = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ?`,
		m.Name, m.Dosage, string(m.Frequency), nullString(m.Instructions), m.ID, m.UserID)
	if err != nil {
		return fmt.Errorf("update medication: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	stored, err := r.GetByIDAndOwner(ctx, m.ID, m.UserID)
	if err != nil {
		return err
	}
	*m = *stored
	return nil
}

// DeleteByIDAndOwner removes a medication and its logs in one transaction.
// The logs are deleted explicitly so the cascade holds even where foreign
// keys are not enforced.
func (r *MedicationRepo) DeleteByIDAndOwner(ctx context.Context, id, userID uint64) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	var owner uint64
	if err = tx.QueryRowContext(ctx,
		"SELECT user_id FROM medications WHERE id = ?", id).Scan(&owner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrNotFound
		}
		return err
	}
	if owner != userID {
		err = ErrNotFound
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM medication_logs WHERE medication_id = ?", id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM medications WHERE id = ? AND user_id = ?", id, userID); err != nil {
		return err
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
