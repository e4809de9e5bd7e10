package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/duka/core/stats"
)

type statsRepository struct {
	db *sqlx.DB
}

var _ stats.Repository = (*statsRepository)(nil) // interface compliance check

func NewStatsRepository(db *sqlx.DB) *statsRepository {
	return &statsRepository{db: db}
}

func (repo statsRepository) RecordActivity(ctx context.Context, userID string) (stats.Activity, error) {
	act := stats.Activity{
		ID:         uuid.New().String(),
		UserID:     userID,
		RecordedAt: time.Now().UTC(),
	}
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO user_statistics (id, user_id, recorded_at)
		VALUES ($1, $2, $3)`, act.ID, act.UserID, act.RecordedAt)
	if err != nil {
		return stats.Activity{}, trapErr(err, "recording activity")
	}
	return act, nil
}

func (repo statsRepository) CountActiveUsers(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := repo.db.GetContext(ctx, &count, `
		SELECT COUNT(DISTINCT user_id) FROM user_statistics
		WHERE recorded_at >= $1`, since.UTC())
	if err != nil {
		return 0, trapErr(err, "counting active users")
	}
	return count, nil
}

func (repo statsRepository) CountNewUsers(ctx context.Context, since time.Time) (int, error) {
	// a user's creation time is their earliest recorded activity
	var count int
	err := repo.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM (
		    SELECT user_id, MIN(recorded_at) AS first_seen
		    FROM user_statistics
		    GROUP BY user_id
		) firsts
		WHERE first_seen >= $1`, since.UTC())
	if err != nil {
		return 0, trapErr(err, "counting new users")
	}
	return count, nil
}
