package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyhub/weekly-dispatch/internal/domain"
)

type pgOutcomeRepository struct {
	pool *pgxpool.Pool
}

// NewPgOutcomeRepository returns an OutcomeRepository backed by PostgreSQL.
// Uniqueness of slot claims and of one outcome per slot is enforced by
// constraints, so concurrent runs cannot both pass the check.
func NewPgOutcomeRepository(pool *pgxpool.Pool) OutcomeRepository {
	return &pgOutcomeRepository{pool: pool}
}

func (r *pgOutcomeRepository) ClaimSlot(ctx context.Context, c *domain.SlotClaim) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO dispatch_slots (id, user_id, local_date, slot, run_id, claimed_at)
		VALUES ($1, $2, $3::date, $4, $5, $6)`,
		c.ID, c.UserID, c.LocalDate, c.Slot, c.RunID, c.ClaimedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlotClaimed
		}
		return fmt.Errorf("insert slot claim: %w", err)
	}
	return nil
}

func (r *pgOutcomeRepository) Append(ctx context.Context, o *domain.Outcome) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO dispatch_outcomes
			(id, user_id, run_id, slot_id, subject, recipient, status, item_count,
			 attempted_at, delivered_at, failure_reason, provider_msg_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		o.ID, o.UserID, o.RunID, o.SlotID, o.Subject, o.Recipient, o.Status, o.ItemCount,
		o.AttemptedAt, o.DeliveredAt, o.FailureReason, o.ProviderMsgID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

func (r *pgOutcomeRepository) List(ctx context.Context, f domain.OutcomeFilter) ([]*domain.Outcome, int, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	where, args := buildOutcomeWhere(f)
	offset := (max(f.Page, 1) - 1) * f.Limit

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM dispatch_outcomes"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count outcomes: %w", err)
	}

	args = append(args, f.Limit, offset)
	query := fmt.Sprintf(`
		SELECT id, user_id, run_id, slot_id, subject, recipient, status, item_count,
		       attempted_at, delivered_at, failure_reason, provider_msg_id
		FROM dispatch_outcomes%s
		ORDER BY attempted_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []*domain.Outcome
	for rows.Next() {
		var o domain.Outcome
		if err := rows.Scan(
			&o.ID, &o.UserID, &o.RunID, &o.SlotID, &o.Subject, &o.Recipient, &o.Status,
			&o.ItemCount, &o.AttemptedAt, &o.DeliveredAt, &o.FailureReason, &o.ProviderMsgID,
		); err != nil {
			return nil, 0, err
		}
		outcomes = append(outcomes, &o)
	}
	return outcomes, total, rows.Err()
}

// ---- helpers ----

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// buildOutcomeWhere builds a parameterised WHERE clause from an OutcomeFilter.
func buildOutcomeWhere(f domain.OutcomeFilter) (string, []any) {
	var conditions []string
	var args []any

	add := func(condition string, val any) {
		args = append(args, val)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if f.Status != nil {
		add("status = $%d", *f.Status)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
