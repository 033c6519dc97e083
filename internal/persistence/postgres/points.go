package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/moodtrack/internal/domain"
	"example.com/moodtrack/internal/events"
	"example.com/moodtrack/internal/observability"
)

const pointColumns = `point_id, user_id, ts, data_type, value, source, metadata, quality_score, processed, created_at`

// PointRepository stores passive data points and emits outbox events on
// ingestion.
type PointRepository struct {
	pool *pgxpool.Pool
}

// NewPointRepository constructs a PointRepository.
func NewPointRepository(pool *pgxpool.Pool) *PointRepository {
	return &PointRepository{pool: pool}
}

// Insert persists one point and its outbox event in a single transaction.
func (r *PointRepository) Insert(ctx context.Context, point domain.PassiveDataPoint) error {
	return r.insertAll(ctx, []domain.PassiveDataPoint{point})
}

// InsertBatch persists a validated batch atomically.
func (r *PointRepository) InsertBatch(ctx context.Context, points []domain.PassiveDataPoint) error {
	if len(points) == 0 {
		return nil
	}
	return r.insertAll(ctx, points)
}

func (r *PointRepository) insertAll(ctx context.Context, points []domain.PassiveDataPoint) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const insert = `INSERT INTO passive_data_points (point_id, user_id, ts, data_type, value, source, metadata, quality_score, processed, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

	var latest time.Time
	for _, point := range points {
		_, err = tx.Exec(ctx, insert,
			point.ID,
			point.UserID,
			point.Timestamp,
			string(point.DataType),
			point.Value,
			string(point.Source),
			point.Metadata,
			point.QualityScore,
			point.Processed,
			point.CreatedAt,
		)
		if err != nil {
			return err
		}

		if err = insertOutbox(ctx, tx, "passive_data_point", point.ID, point.UserID, "passive_data.ingested", events.PassiveDataIngested{
			PointID:   point.ID,
			UserID:    point.UserID,
			DataType:  string(point.DataType),
			Source:    string(point.Source),
			Timestamp: point.Timestamp,
		}); err != nil {
			return err
		}

		if point.CreatedAt.After(latest) {
			latest = point.CreatedAt
		}
	}

	err = tx.Commit(ctx)
	if err != nil {
		return err
	}
	observability.RecordPointIngested(latest)
	return nil
}

// Get retrieves a point by ID. A missing row yields (nil, nil).
func (r *PointRepository) Get(ctx context.Context, userID, pointID string) (*domain.PassiveDataPoint, error) {
	const query = `SELECT ` + pointColumns + ` FROM passive_data_points WHERE user_id=$1 AND point_id=$2`

	row := r.pool.QueryRow(ctx, query, userID, pointID)
	point, err := scanPoint(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return point, nil
}

// FindInWindow returns points sharing user, type, and source with timestamps
// in [start, end]. The dedupe check reads through here.
func (r *PointRepository) FindInWindow(ctx context.Context, userID string, dataType domain.DataType, source domain.DataSource, start, end time.Time) ([]domain.PassiveDataPoint, error) {
	const query = `SELECT ` + pointColumns + ` FROM passive_data_points
        WHERE user_id=$1 AND data_type=$2 AND source=$3 AND ts >= $4 AND ts <= $5
        ORDER BY ts`
	return r.queryPoints(ctx, query, userID, string(dataType), string(source), start, end)
}

// List returns points matching the filter ordered by timestamp descending.
func (r *PointRepository) List(ctx context.Context, userID string, filter domain.PointFilter) ([]domain.PassiveDataPoint, error) {
	args := []interface{}{userID}
	query := `SELECT ` + pointColumns + ` FROM passive_data_points WHERE user_id=$1`

	if filter.DataType != "" {
		args = append(args, string(filter.DataType))
		query += fmt.Sprintf(" AND data_type=$%d", len(args))
	}
	if filter.Source != "" {
		args = append(args, string(filter.Source))
		query += fmt.Sprintf(" AND source=$%d", len(args))
	}
	if !filter.Start.IsZero() {
		args = append(args, filter.Start)
		query += fmt.Sprintf(" AND ts >= $%d", len(args))
	}
	if !filter.End.IsZero() {
		args = append(args, filter.End)
		query += fmt.Sprintf(" AND ts <= $%d", len(args))
	}

	query += " ORDER BY ts DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	return r.queryPoints(ctx, query, args...)
}

// Update rewrites the mutable fields of an existing point.
func (r *PointRepository) Update(ctx context.Context, point domain.PassiveDataPoint) error {
	const stmt = `UPDATE passive_data_points SET value=$3, metadata=$4, quality_score=$5, processed=$6
        WHERE user_id=$1 AND point_id=$2`

	tag, err := r.pool.Exec(ctx, stmt,
		point.UserID,
		point.ID,
		point.Value,
		point.Metadata,
		point.QualityScore,
		point.Processed,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPointNotFound
	}
	return nil
}

// MarkProcessed flags the given points and returns how many rows changed.
func (r *PointRepository) MarkProcessed(ctx context.Context, pointIDs []string) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE passive_data_points SET processed = TRUE WHERE point_id = ANY($1) AND NOT processed`,
		pointIDs,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListUnprocessed returns unprocessed points across users, oldest first.
func (r *PointRepository) ListUnprocessed(ctx context.Context, limit int) ([]domain.PassiveDataPoint, error) {
	const query = `SELECT ` + pointColumns + ` FROM passive_data_points
        WHERE NOT processed ORDER BY ts LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPoints(rows)
}

func (r *PointRepository) queryPoints(ctx context.Context, query string, args ...interface{}) ([]domain.PassiveDataPoint, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPoints(rows)
}

func collectPoints(rows pgx.Rows) ([]domain.PassiveDataPoint, error) {
	var results []domain.PassiveDataPoint
	for rows.Next() {
		point, err := scanPoint(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *point)
	}
	return results, rows.Err()
}

func scanPoint(row pgx.Row) (*domain.PassiveDataPoint, error) {
	var p domain.PassiveDataPoint
	var dataType, source string
	if err := row.Scan(&p.ID, &p.UserID, &p.Timestamp, &dataType, &p.Value, &source,
		&p.Metadata, &p.QualityScore, &p.Processed, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.DataType = domain.DataType(dataType)
	p.Source = domain.DataSource(source)
	return &p, nil
}
