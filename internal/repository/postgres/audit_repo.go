package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/xela07ax/spaceai-assistant/internal/domain"
)

// Количество колонок, которые пишем в audit_log
const auditFields = 5

type AuditRepo struct {
	*Repo
}

func NewAuditRepo(r *Repo) *AuditRepo {
	return &AuditRepo{Repo: r}
}

// WriteBatch: пакетная вставка для AgentFS. Повтор той же пачки не дублирует записи.
func (r *AuditRepo) WriteBatch(ctx context.Context, entries []domain.AuditLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	var placeholders strings.Builder
	vals := make([]any, 0, len(entries)*auditFields)

	// Динамически строим запрос для пакетной вставки
	for i, e := range entries {
		p := i * auditFields
		if i > 0 {
			placeholders.WriteString(",")
		}
		fmt.Fprintf(&placeholders, "($%d, $%d, $%d, $%d, $%d)", p+1, p+2, p+3, p+4, p+5)

		details, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("postgres: marshal audit details %s: %w", e.ID, err)
		}
		vals = append(vals, e.ID, e.Event, e.Actor, details, e.CreatedAt)
	}

	query := fmt.Sprintf(
		"INSERT INTO audit_log (id, event, actor, details, created_at) VALUES %s ON CONFLICT (id) DO NOTHING",
		placeholders.String(),
	)

	if _, err := r.pool.Exec(ctx, query, vals...); err != nil {
		return fmt.Errorf("postgres: write audit batch: %w", err)
	}
	return nil
}

// Recent возвращает limit последних записей в хронологическом порядке (для audit.Trail.Restore).
func (r *AuditRepo) Recent(ctx context.Context, limit int) ([]domain.AuditLogEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, event, actor, details, created_at FROM audit_log ORDER BY seq DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: query audit log: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.AuditLogEntry, 0)
	for rows.Next() {
		var (
			e       domain.AuditLogEntry
			details []byte
		)
		if err := rows.Scan(&e.ID, &e.Event, &e.Actor, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan audit entry: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal audit details %s: %w", e.ID, err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}

	slices.Reverse(entries)
	return entries, nil
}
