package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/duka/core/visitor"
)

type visitorRepository struct {
	db *visitorTable
}

var _ visitor.Repository = (*visitorRepository)(nil) // interface compliance check

func NewVisitorRepository(db *DB) *visitorRepository {
	return &visitorRepository{db: db.visitor}
}

// live returns non-deleted visitors, newest visit first.
func (repo *visitorRepository) live() []visitor.Visitor {
	visitors := make([]visitor.Visitor, 0, len(repo.db.table))
	for _, v := range repo.db.table {
		if !v.IsDeleted {
			visitors = append(visitors, *v)
		}
	}
	sort.Slice(visitors, func(i, j int) bool {
		return visitors[i].LastVisitedAt.After(visitors[j].LastVisitedAt)
	})
	return visitors
}

func (repo *visitorRepository) findByIP(ip string) *visitor.Visitor {
	for _, v := range repo.db.table {
		if v.IPAddress == ip && !v.IsDeleted {
			return v
		}
	}
	return nil
}

func (repo *visitorRepository) UpsertVisitorByIP(ctx context.Context, v visitor.Visitor) (visitor.Visitor, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	now := time.Now().UTC()
	if existing := repo.findByIP(v.IPAddress); existing != nil {
		existing.Revisit(v, now)
		return *existing, nil
	}

	rec := visitor.FirstVisit(v, now)
	rec.ID = uuid.New().String()
	repo.db.table[rec.ID] = &rec
	return rec, nil
}

func (repo *visitorRepository) GetVisitor(ctx context.Context, filter visitor.GetFilter) (visitor.Visitor, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if v, ok := repo.db.table[filter.ID]; ok && !v.IsDeleted {
			return *v, nil
		}
		return visitor.Visitor{}, visitor.ErrNotFound
	}
	if v := repo.findByIP(filter.IPAddress); v != nil {
		return *v, nil
	}
	return visitor.Visitor{}, visitor.ErrNotFound
}

func (repo *visitorRepository) UpdateVisitor(ctx context.Context, v visitor.Visitor) (visitor.Visitor, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	existing, ok := repo.db.table[v.ID]
	if !ok || existing.IsDeleted {
		return visitor.Visitor{}, visitor.ErrNotFound
	}
	if v.VisitCount < 1 {
		v.VisitCount = 1
	}
	v.CreatedAt = existing.CreatedAt
	repo.db.table[v.ID] = &v
	return v, nil
}

func (repo *visitorRepository) QueryVisitors(ctx context.Context, offset, limit int) ([]visitor.Visitor, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	visitors := repo.live()
	total := len(visitors)
	if offset >= total {
		return []visitor.Visitor{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return visitors[offset:end], total, nil
}

func (repo *visitorRepository) AllVisitors(ctx context.Context) ([]visitor.Visitor, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.live(), nil
}

func (repo *visitorRepository) DeleteVisitor(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	v, ok := repo.db.table[id]
	if !ok || v.IsDeleted {
		return visitor.ErrNotFound
	}
	v.IsDeleted = true
	v.UpdatedAt = time.Now().UTC()
	return nil
}

func (repo *visitorRepository) CountVisitors(ctx context.Context) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return len(repo.live()), nil
}

func (repo *visitorRepository) CountryCounts(ctx context.Context) ([]visitor.CountryCount, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	byCode := make(map[string]int)
	for _, v := range repo.live() {
		if v.Location == nil || v.Location.CountryCode == "" {
			continue
		}
		count := v.VisitCount
		if count < 1 {
			count = 1
		}
		byCode[v.Location.CountryCode] += count
	}

	counts := make([]visitor.CountryCount, 0, len(byCode))
	for code, value := range byCode {
		counts = append(counts, visitor.CountryCount{ID: code, Value: value})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Value != counts[j].Value {
			return counts[i].Value > counts[j].Value
		}
		return counts[i].ID < counts[j].ID
	})
	return counts, nil
}
