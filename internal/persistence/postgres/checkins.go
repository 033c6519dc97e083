// Package postgres provides Postgres-backed persistence for check-ins,
// passive data points, and the transactional outbox.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/moodtrack/internal/domain"
	"example.com/moodtrack/internal/events"
	"example.com/moodtrack/internal/observability"
)

const checkinColumns = `checkin_id, user_id, ts, mood_rating, mood_category, keywords, notes, location, weather,
        energy_level, stress_level, sleep_quality, social_interaction, created_at, updated_at`

// CheckinRepository stores check-ins and emits outbox events on creation.
type CheckinRepository struct {
	pool *pgxpool.Pool
}

// NewCheckinRepository constructs a CheckinRepository.
func NewCheckinRepository(pool *pgxpool.Pool) *CheckinRepository {
	return &CheckinRepository{pool: pool}
}

// Create persists the check-in and records the outbox event inside a single
// transaction. The store's per-day unique constraint settles races between
// concurrent creates: the loser surfaces as domain.ErrCheckinExists.
func (r *CheckinRepository) Create(ctx context.Context, checkin domain.CheckIn) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const insert = `INSERT INTO checkins (checkin_id, user_id, ts, checkin_date, mood_rating, mood_category, keywords, notes, location, weather,
        energy_level, stress_level, sleep_quality, social_interaction, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`

	// The timestamp carries the service's reference location; its calendar
	// day backs the per-day uniqueness constraint.
	_, err = tx.Exec(ctx, insert,
		checkin.ID,
		checkin.UserID,
		checkin.Timestamp,
		checkin.Timestamp.Format("2006-01-02"),
		checkin.MoodRating,
		string(checkin.MoodCategory),
		checkin.Keywords,
		checkin.Notes,
		checkin.Location,
		checkin.Weather,
		checkin.EnergyLevel,
		checkin.StressLevel,
		checkin.SleepQuality,
		checkin.SocialInteraction,
		checkin.CreatedAt,
		checkin.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "checkins_user_day_key" {
			return domain.ErrCheckinExists
		}
		return err
	}

	if err = insertOutbox(ctx, tx, "checkin", checkin.ID, checkin.UserID, "checkin.created", events.CheckinCreated{
		CheckinID:    checkin.ID,
		UserID:       checkin.UserID,
		Timestamp:    checkin.Timestamp,
		MoodRating:   checkin.MoodRating,
		MoodCategory: string(checkin.MoodCategory),
	}); err != nil {
		return err
	}

	err = tx.Commit(ctx)
	if err != nil {
		return err
	}
	observability.RecordCheckinPersisted(checkin.CreatedAt)
	return nil
}

// Get retrieves a check-in by ID. A missing row yields (nil, nil).
func (r *CheckinRepository) Get(ctx context.Context, userID, checkinID string) (*domain.CheckIn, error) {
	const query = `SELECT ` + checkinColumns + ` FROM checkins WHERE user_id=$1 AND checkin_id=$2`

	row := r.pool.QueryRow(ctx, query, userID, checkinID)
	checkin, err := scanCheckin(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return checkin, nil
}

// FindByDay returns the check-in whose timestamp falls in [dayStart, dayEnd).
func (r *CheckinRepository) FindByDay(ctx context.Context, userID string, dayStart, dayEnd time.Time) (*domain.CheckIn, error) {
	const query = `SELECT ` + checkinColumns + ` FROM checkins
        WHERE user_id=$1 AND ts >= $2 AND ts < $3
        ORDER BY ts LIMIT 1`

	row := r.pool.QueryRow(ctx, query, userID, dayStart, dayEnd)
	checkin, err := scanCheckin(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return checkin, nil
}

// ListByUser returns check-ins newest first with keyset pagination.
func (r *CheckinRepository) ListByUser(ctx context.Context, userID string, cursor *domain.Cursor, limit int) ([]domain.CheckIn, *domain.Cursor, error) {
	args := []interface{}{userID, limit}
	query := `SELECT ` + checkinColumns + ` FROM checkins WHERE user_id=$1`

	if cursor != nil {
		query += ` AND (ts, checkin_id) < ($3, $4)`
		args = append(args, cursor.Timestamp, cursor.ID)
	}

	query += ` ORDER BY ts DESC, checkin_id DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	results := make([]domain.CheckIn, 0, limit)
	for rows.Next() {
		checkin, err := scanCheckin(rows)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, *checkin)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var nextCursor *domain.Cursor
	if len(results) == limit {
		last := results[len(results)-1]
		nextCursor = &domain.Cursor{Timestamp: last.Timestamp, ID: last.ID}
	}

	return results, nextCursor, nil
}

// ListAllDesc returns the user's full history ordered by timestamp descending.
func (r *CheckinRepository) ListAllDesc(ctx context.Context, userID string) ([]domain.CheckIn, error) {
	const query = `SELECT ` + checkinColumns + ` FROM checkins WHERE user_id=$1 ORDER BY ts DESC`
	return r.queryCheckins(ctx, query, userID)
}

// ListRangeAsc returns check-ins in [start, end] ordered ascending.
func (r *CheckinRepository) ListRangeAsc(ctx context.Context, userID string, start, end time.Time) ([]domain.CheckIn, error) {
	const query = `SELECT ` + checkinColumns + ` FROM checkins
        WHERE user_id=$1 AND ts >= $2 AND ts <= $3
        ORDER BY ts ASC`
	return r.queryCheckins(ctx, query, userID, start, end)
}

// Update rewrites the mutable fields of an existing check-in.
func (r *CheckinRepository) Update(ctx context.Context, checkin domain.CheckIn) error {
	const stmt = `UPDATE checkins SET mood_rating=$3, mood_category=$4, keywords=$5, notes=$6, location=$7, weather=$8,
        energy_level=$9, stress_level=$10, sleep_quality=$11, social_interaction=$12, updated_at=$13
        WHERE user_id=$1 AND checkin_id=$2`

	tag, err := r.pool.Exec(ctx, stmt,
		checkin.UserID,
		checkin.ID,
		checkin.MoodRating,
		string(checkin.MoodCategory),
		checkin.Keywords,
		checkin.Notes,
		checkin.Location,
		checkin.Weather,
		checkin.EnergyLevel,
		checkin.StressLevel,
		checkin.SleepQuality,
		checkin.SocialInteraction,
		checkin.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCheckinNotFound
	}
	return nil
}

func (r *CheckinRepository) queryCheckins(ctx context.Context, query string, args ...interface{}) ([]domain.CheckIn, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.CheckIn
	for rows.Next() {
		checkin, err := scanCheckin(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *checkin)
	}
	return results, rows.Err()
}

func scanCheckin(row pgx.Row) (*domain.CheckIn, error) {
	var c domain.CheckIn
	var category string
	if err := row.Scan(&c.ID, &c.UserID, &c.Timestamp, &c.MoodRating, &category, &c.Keywords, &c.Notes,
		&c.Location, &c.Weather, &c.EnergyLevel, &c.StressLevel, &c.SleepQuality, &c.SocialInteraction,
		&c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.MoodCategory = domain.MoodCategory(category)
	return &c, nil
}
