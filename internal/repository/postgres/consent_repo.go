package postgres

/*
Файл consent_repo.go: хранилище журнала согласий (Human-in-the-loop).
Реализует consent.Store: решение принимается атомарно одним UPDATE ... WHERE status = 'pending'.
*/

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/xela07ax/spaceai-assistant/internal/domain"
)

const consentColumns = `id, capability_name, payload, status, created_at, resolved_at, resolution`

type ConsentRepo struct {
	*Repo
}

func NewConsentRepo(r *Repo) *ConsentRepo {
	return &ConsentRepo{Repo: r}
}

// Insert создает запись в таблице consent_requests.
func (r *ConsentRepo) Insert(ctx context.Context, req *domain.ConsentRequest) error {
	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return fmt.Errorf("postgres: marshal consent payload: %w", err)
	}

	query := `INSERT INTO consent_requests (id, capability_name, payload, status, created_at)
	          VALUES ($1, $2, $3, $4, $5)`
	_, err = r.pool.Exec(ctx, query, req.ID, req.CapabilityName, payload, string(req.Status), req.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: failed to create consent request: %w", err)
	}
	return nil
}

func (r *ConsentRepo) Get(ctx context.Context, id string) (*domain.ConsentRequest, error) {
	query := `SELECT ` + consentColumns + ` FROM consent_requests WHERE id = $1`

	req, err := scanConsent(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get consent request: %w", err)
	}
	return req, nil
}

// List выбирает запросы в порядке создания. Пустой status = без фильтра.
func (r *ConsentRepo) List(ctx context.Context, status domain.ConsentStatus) ([]*domain.ConsentRequest, error) {
	query := `SELECT ` + consentColumns + ` FROM consent_requests`

	var args []any
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, string(status))
	}
	query += " ORDER BY seq ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query consent requests: %w", err)
	}
	defer rows.Close()

	// Инициализируем пустой слайс, чтобы в JSON был [] вместо null
	results := make([]*domain.ConsentRequest, 0)
	for rows.Next() {
		req, err := scanConsent(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan consent request: %w", err)
		}
		results = append(results, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}
	return results, nil
}

// Resolve атомарно переводит запрос из pending в терминальный статус.
// Условие WHERE status = 'pending' исключает двойное решение.
func (r *ConsentRepo) Resolve(ctx context.Context, id string, approved bool, at time.Time) (*domain.ConsentRequest, error) {
	status := domain.ConsentDenied
	if approved {
		status = domain.ConsentApproved
	}

	// RETURNING отдает итоговую запись за один проход, без предварительного SELECT
	query := `
		UPDATE consent_requests
		SET status = $1,
		    resolved_at = $2,
		    resolution = $1
		WHERE id = $3 AND status = 'pending'
		RETURNING ` + consentColumns

	req, err := scanConsent(r.pool.QueryRow(ctx, query, string(status), at, id))
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("postgres: failed to resolve consent request: %w", err)
	}

	// Строк нет: либо неверный id, либо решение уже было принято ранее
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM consent_requests WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("postgres: check consent request: %w", err)
	}
	if exists {
		return nil, domain.ErrAlreadyResolved
	}
	return nil, domain.ErrNotFound
}

func scanConsent(row pgx.Row) (*domain.ConsentRequest, error) {
	var (
		req     domain.ConsentRequest
		payload []byte
		status  string
	)
	if err := row.Scan(&req.ID, &req.CapabilityName, &payload, &status, &req.CreatedAt, &req.ResolvedAt, &req.Resolution); err != nil {
		return nil, err
	}
	req.Status = domain.ConsentStatus(status)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	return &req, nil
}
