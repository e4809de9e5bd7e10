package dummydb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/duka/core/stats"
)

type statsRepository struct {
	db *statsTable
}

var _ stats.Repository = (*statsRepository)(nil) // interface compliance check

func NewStatsRepository(db *DB) *statsRepository {
	return &statsRepository{db: db.stats}
}

func (repo *statsRepository) RecordActivity(ctx context.Context, userID string) (stats.Activity, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	act := stats.Activity{
		ID:         uuid.New().String(),
		UserID:     userID,
		RecordedAt: time.Now().UTC(),
	}
	repo.db.table = append(repo.db.table, act)
	return act, nil
}

// RecordActivityAt backdates an activity; test helper.
func (repo *statsRepository) RecordActivityAt(userID string, at time.Time) stats.Activity {
	repo.db.Lock()
	defer repo.db.Unlock()

	act := stats.Activity{
		ID:         uuid.New().String(),
		UserID:     userID,
		RecordedAt: at.UTC(),
	}
	repo.db.table = append(repo.db.table, act)
	return act
}

func (repo *statsRepository) CountActiveUsers(ctx context.Context, since time.Time) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	seen := make(map[string]bool)
	for _, act := range repo.db.table {
		if !act.RecordedAt.Before(since) {
			seen[act.UserID] = true
		}
	}
	return len(seen), nil
}

func (repo *statsRepository) CountNewUsers(ctx context.Context, since time.Time) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	firsts := make(map[string]time.Time)
	for _, act := range repo.db.table {
		if first, ok := firsts[act.UserID]; !ok || act.RecordedAt.Before(first) {
			firsts[act.UserID] = act.RecordedAt
		}
	}

	var count int
	for _, first := range firsts {
		if !first.Before(since) {
			count++
		}
	}
	return count, nil
}
