package postgres

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/cashdesk/internal/domain"
)

// AuditRepository implements usecase.AuditSink on the audit_entries table.
type AuditRepository struct {
	db DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Log inserts a new audit entry. It runs outside any business transaction.
func (r *AuditRepository) Log(ctx context.Context, entry *domain.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	var payload []byte
	if entry.Payload != nil {
		var err error
		payload, err = json.Marshal(entry.Payload)
		if err != nil {
			return err
		}
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO audit_entries (
			id, actor_id, branch_id, action, payload, detail, level, status_code, reference, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID,
		entry.ActorID,
		entry.BranchID,
		string(entry.Action),
		payload,
		entry.Detail,
		string(entry.Level),
		entry.StatusCode,
		entry.Reference,
		timeToPgTimestamptz(entry.CreatedAt),
	)

	return err
}

// List retrieves audit entries matching filter, newest first.
func (r *AuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, error) {
	var (
		where []string
		args  []any
	)
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		where = append(where, column+" = $"+strconv.Itoa(len(args)))
	}
	add("actor_id", filter.ActorID)
	add("branch_id", filter.BranchID)
	add("action", string(filter.Action))
	add("reference", filter.Reference)

	query := `SELECT id, actor_id, branch_id, action, payload, detail, level, status_code, reference, created_at
		FROM audit_entries`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += " OFFSET $" + strconv.Itoa(len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.AuditEntry
	for rows.Next() {
		var (
			entry         domain.AuditEntry
			action, level string
			payload       []byte
			created       pgtype.Timestamptz
		)
		if err := rows.Scan(
			&entry.ID, &entry.ActorID, &entry.BranchID, &action, &payload,
			&entry.Detail, &level, &entry.StatusCode, &entry.Reference, &created,
		); err != nil {
			return nil, err
		}

		if payload != nil {
			_ = json.Unmarshal(payload, &entry.Payload)
		}
		entry.Action = domain.AuditAction(action)
		entry.Level = domain.AuditLevel(level)
		entry.CreatedAt = created.Time

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
