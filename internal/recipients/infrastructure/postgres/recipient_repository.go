package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	recipients "sensoralert/internal/recipients/domain"
)

// DBTX abstracts *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// RecipientRepository is a Postgres repository for recipients and their
// links to threshold configs.
type RecipientRepository struct {
	db DBTX
}

// NewRecipientRepository constructs a repository.
func NewRecipientRepository(db DBTX) *RecipientRepository {
	return &RecipientRepository{db: db}
}

// ListActiveByCompany returns all active recipients for a company.
func (r *RecipientRepository) ListActiveByCompany(ctx context.Context, companyID string) ([]recipients.Recipient, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("recipient repo: nil db")
	}
	if companyID == "" {
		return nil, errors.New("recipient repo: company id required")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, company_id, name, email, phone, role, active, created_at, updated_at
FROM recipients
WHERE company_id = $1 AND active = TRUE
ORDER BY created_at ASC`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecipients(rows)
}

// ListActiveByConfig returns the active recipients linked to a threshold config.
func (r *RecipientRepository) ListActiveByConfig(ctx context.Context, companyID, configID string) ([]recipients.Recipient, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("recipient repo: nil db")
	}
	if companyID == "" || configID == "" {
		return nil, errors.New("recipient repo: invalid query")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT rec.id, rec.company_id, rec.name, rec.email, rec.phone, rec.role, rec.active, rec.created_at, rec.updated_at
FROM recipients rec
JOIN sensor_config_recipients link ON link.recipient_id = rec.id
WHERE rec.company_id = $1 AND link.config_id = $2 AND rec.active = TRUE
ORDER BY rec.created_at ASC`, companyID, configID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecipients(rows)
}

// Link associates a recipient with a threshold config. Duplicate links are
// ignored.
func (r *RecipientRepository) Link(ctx context.Context, configID, recipientID string, linkedAt time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("recipient repo: nil db")
	}
	if configID == "" || recipientID == "" {
		return errors.New("recipient repo: invalid link")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO sensor_config_recipients (config_id, recipient_id, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (config_id, recipient_id) DO NOTHING`, configID, recipientID, linkedAt)
	return err
}

func collectRecipients(rows *sql.Rows) ([]recipients.Recipient, error) {
	var result []recipients.Recipient
	for rows.Next() {
		var rec recipients.Recipient
		var email sql.NullString
		var phone sql.NullString
		if err := rows.Scan(
			&rec.ID,
			&rec.CompanyID,
			&rec.Name,
			&email,
			&phone,
			&rec.Role,
			&rec.Active,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if email.Valid {
			rec.Email = email.String
		}
		if phone.Valid {
			rec.Phone = phone.String
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		rec.UpdatedAt = rec.UpdatedAt.UTC()
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
