package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyhub/weekly-dispatch/internal/domain"
)

type pgUserRepository struct {
	pool *pgxpool.Pool
}

// NewPgUserRepository returns a UserRepository backed by PostgreSQL.
func NewPgUserRepository(pool *pgxpool.Pool) UserRepository {
	return &pgUserRepository{pool: pool}
}

const userColumns = `
	id, email, name, schedule_enabled, schedule_day, schedule_time, timezone,
	item_count, focus_areas, avoid_topics, preferred_formats, created_at, updated_at`

func (r *pgUserRepository) ListScheduled(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT`+userColumns+`
		FROM users
		WHERE schedule_enabled = TRUE
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list scheduled users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *pgUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	// Ids are uuid columns; anything else cannot exist.
	if uuid.Validate(id) != nil {
		return nil, domain.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT`+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return u, err
}

func (r *pgUserRepository) UpdateSchedule(ctx context.Context, id string, s domain.Schedule) error {
	if uuid.Validate(id) != nil {
		return domain.ErrNotFound
	}
	p := s.Preferences.Normalize()
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET schedule_enabled = $1, schedule_day = $2, schedule_time = $3, timezone = $4,
		    item_count = $5, focus_areas = $6, avoid_topics = $7, preferred_formats = $8,
		    updated_at = NOW()
		WHERE id = $9`,
		s.Enabled, s.Day.String(), s.Time, s.Timezone, s.ItemCount,
		p.FocusAreas, p.AvoidTopics, p.PreferredFormats, id,
	)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// scanUser reads a single user row from any pgx row type.
// A stored day that no longer parses is surfaced as an error rather than
// silently mapped to a default.
func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u   domain.User
		day string
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.Name,
		&u.Schedule.Enabled, &day, &u.Schedule.Time, &u.Schedule.Timezone,
		&u.Schedule.ItemCount,
		&u.Schedule.Preferences.FocusAreas,
		&u.Schedule.Preferences.AvoidTopics,
		&u.Schedule.Preferences.PreferredFormats,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if u.Schedule.Day, err = domain.ParseWeekday(day); err != nil {
		return nil, fmt.Errorf("user %s: %w", u.ID, err)
	}
	return &u, nil
}
