package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/duka/core/visitor"
)

type visitorRow struct {
	ID            string       `db:"id"`
	IPAddress     string       `db:"ip_address"`
	Name          string       `db:"name"`
	Country       string       `db:"country"`
	City          string       `db:"city"`
	CountryCode   string       `db:"country_code"`
	Latitude      null.Float64 `db:"latitude"`
	Longitude     null.Float64 `db:"longitude"`
	DeviceInfo    string       `db:"device_info"`
	Browser       string       `db:"browser"`
	OS            string       `db:"os"`
	Referrer      string       `db:"referrer"`
	VisitCount    int          `db:"visit_count"`
	LastVisitedAt time.Time    `db:"last_visited_at"`
	IsDeleted     bool         `db:"is_deleted"`
	CreatedAt     time.Time    `db:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at"`
}

const visitorColumns = `id, ip_address, name, country, city, country_code, latitude, longitude,
	device_info, browser, os, referrer, visit_count, last_visited_at, is_deleted, created_at, updated_at`

type visitorRepository struct {
	db *sqlx.DB
}

var _ visitor.Repository = (*visitorRepository)(nil) // interface compliance check

func NewVisitorRepository(db *sqlx.DB) *visitorRepository {
	return &visitorRepository{db: db}
}

func (repo visitorRepository) row(v visitor.Visitor) visitorRow {
	r := visitorRow{
		ID:            v.ID,
		IPAddress:     v.IPAddress,
		Name:          v.Name,
		DeviceInfo:    v.DeviceInfo,
		Browser:       v.Browser,
		OS:            v.OS,
		Referrer:      v.Referrer,
		VisitCount:    v.VisitCount,
		LastVisitedAt: v.LastVisitedAt.UTC(),
		IsDeleted:     v.IsDeleted,
		CreatedAt:     v.CreatedAt.UTC(),
		UpdatedAt:     v.UpdatedAt.UTC(),
	}
	if v.Location != nil {
		r.Country = v.Location.Country
		r.City = v.Location.City
		r.CountryCode = v.Location.CountryCode
		r.Latitude = null.Float64FromPtr(v.Location.Latitude)
		r.Longitude = null.Float64FromPtr(v.Location.Longitude)
	}
	return r
}

func (repo visitorRepository) unrow(r visitorRow) visitor.Visitor {
	v := visitor.Visitor{
		ID:            r.ID,
		IPAddress:     r.IPAddress,
		Name:          r.Name,
		DeviceInfo:    r.DeviceInfo,
		Browser:       r.Browser,
		OS:            r.OS,
		Referrer:      r.Referrer,
		VisitCount:    r.VisitCount,
		LastVisitedAt: r.LastVisitedAt,
		IsDeleted:     r.IsDeleted,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.Country != "" || r.City != "" || r.CountryCode != "" || r.Latitude.Valid || r.Longitude.Valid {
		v.Location = visitor.NormalizeLocation(&visitor.Location{
			Country:     r.Country,
			City:        r.City,
			CountryCode: r.CountryCode,
			Latitude:    r.Latitude.Ptr(),
			Longitude:   r.Longitude.Ptr(),
		})
	}
	return v
}

func (repo visitorRepository) unrowSlice(rows []visitorRow) []visitor.Visitor {
	visitors := make([]visitor.Visitor, 0, len(rows))
	for _, r := range rows {
		visitors = append(visitors, repo.unrow(r))
	}
	return visitors
}

// upsertQuery races safely: the partial unique index on live ip_address
// rows makes concurrent first visits collapse into one record. Incoming
// descriptive fields only overwrite when non-empty; location columns
// only when a location was supplied ($15).
const upsertQuery = `
	INSERT INTO visitor (` + visitorColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8,
	        COALESCE(NULLIF($9, ''), 'Unknown'),
	        COALESCE(NULLIF($10, ''), 'Unknown'),
	        COALESCE(NULLIF($11, ''), 'Unknown'),
	        $12, GREATEST($13, 1), $14, false, $14, $14)
	ON CONFLICT (ip_address) WHERE NOT is_deleted DO UPDATE SET
	    visit_count     = visitor.visit_count + 1,
	    last_visited_at = $14,
	    updated_at      = $14,
	    name            = CASE WHEN $3 <> ''  THEN $3  ELSE visitor.name END,
	    country         = CASE WHEN $15       THEN $4  ELSE visitor.country END,
	    city            = CASE WHEN $15       THEN $5  ELSE visitor.city END,
	    country_code    = CASE WHEN $15       THEN $6  ELSE visitor.country_code END,
	    latitude        = CASE WHEN $15       THEN $7  ELSE visitor.latitude END,
	    longitude       = CASE WHEN $15       THEN $8  ELSE visitor.longitude END,
	    device_info     = CASE WHEN $9 <> ''  THEN $9  ELSE visitor.device_info END,
	    browser         = CASE WHEN $10 <> '' THEN $10 ELSE visitor.browser END,
	    os              = CASE WHEN $11 <> '' THEN $11 ELSE visitor.os END,
	    referrer        = CASE WHEN $12 <> '' THEN $12 ELSE visitor.referrer END
	RETURNING ` + visitorColumns

func (repo visitorRepository) UpsertVisitorByIP(ctx context.Context, v visitor.Visitor) (visitor.Visitor, error) {
	r := repo.row(v)
	now := time.Now().UTC()

	var saved visitorRow
	err := repo.db.QueryRowxContext(ctx, upsertQuery,
		uuid.New().String(), r.IPAddress, r.Name, r.Country, r.City, r.CountryCode,
		r.Latitude, r.Longitude, r.DeviceInfo, r.Browser, r.OS, r.Referrer,
		r.VisitCount, now, v.Location != nil,
	).StructScan(&saved)
	if err != nil {
		return visitor.Visitor{}, trapErr(err, "upserting visitor")
	}
	return repo.unrow(saved), nil
}

func (repo visitorRepository) GetVisitor(ctx context.Context, filter visitor.GetFilter) (visitor.Visitor, error) {
	var r visitorRow
	var err error

	if filter.ID != "" {
		if _, err = uuid.Parse(filter.ID); err != nil {
			return visitor.Visitor{}, visitor.ErrNotFound
		}
		err = repo.db.GetContext(ctx, &r,
			`SELECT `+visitorColumns+` FROM visitor WHERE id = $1 AND NOT is_deleted`, filter.ID)
	} else {
		err = repo.db.GetContext(ctx, &r,
			`SELECT `+visitorColumns+` FROM visitor WHERE ip_address = $1 AND NOT is_deleted`, filter.IPAddress)
	}
	if err != nil {
		return visitor.Visitor{}, trapErr(err, "finding visitor")
	}
	return repo.unrow(r), nil
}

func (repo visitorRepository) UpdateVisitor(ctx context.Context, v visitor.Visitor) (visitor.Visitor, error) {
	r := repo.row(v)

	var saved visitorRow
	err := repo.db.QueryRowxContext(ctx, `
		UPDATE visitor SET
		    name = $2, country = $3, city = $4, country_code = $5, latitude = $6, longitude = $7,
		    device_info = $8, browser = $9, os = $10, referrer = $11, visit_count = GREATEST($12, 1),
		    updated_at = $13
		WHERE id = $1 AND NOT is_deleted
		RETURNING `+visitorColumns,
		r.ID, r.Name, r.Country, r.City, r.CountryCode, r.Latitude, r.Longitude,
		r.DeviceInfo, r.Browser, r.OS, r.Referrer, r.VisitCount, time.Now().UTC(),
	).StructScan(&saved)
	if err != nil {
		return visitor.Visitor{}, trapErr(err, "updating visitor")
	}
	return repo.unrow(saved), nil
}

func (repo visitorRepository) QueryVisitors(ctx context.Context, offset, limit int) ([]visitor.Visitor, int, error) {
	var total int
	if err := repo.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM visitor WHERE NOT is_deleted`); err != nil {
		return nil, 0, trapErr(err, "counting visitors")
	}

	var rows []visitorRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT `+visitorColumns+` FROM visitor
		WHERE NOT is_deleted
		ORDER BY last_visited_at DESC
		OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, 0, trapErr(err, "querying visitors")
	}
	return repo.unrowSlice(rows), total, nil
}

func (repo visitorRepository) AllVisitors(ctx context.Context) ([]visitor.Visitor, error) {
	var rows []visitorRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT `+visitorColumns+` FROM visitor
		WHERE NOT is_deleted
		ORDER BY last_visited_at DESC`)
	if err != nil {
		return nil, trapErr(err, "querying visitors")
	}
	return repo.unrowSlice(rows), nil
}

func (repo visitorRepository) DeleteVisitor(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return visitor.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `
		UPDATE visitor SET is_deleted = true, updated_at = $2
		WHERE id = $1 AND NOT is_deleted`, id, time.Now().UTC())
	if err != nil {
		return trapErr(err, "deleting visitor")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return visitor.ErrNotFound
	}
	return nil
}

func (repo visitorRepository) CountVisitors(ctx context.Context) (int, error) {
	var total int
	if err := repo.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM visitor WHERE NOT is_deleted`); err != nil {
		return 0, trapErr(err, "counting visitors")
	}
	return total, nil
}

func (repo visitorRepository) CountryCounts(ctx context.Context) ([]visitor.CountryCount, error) {
	var counts []visitor.CountryCount
	err := repo.db.SelectContext(ctx, &counts, `
		SELECT country_code AS id, SUM(GREATEST(visit_count, 1)) AS value
		FROM visitor
		WHERE NOT is_deleted AND country_code <> ''
		GROUP BY country_code
		ORDER BY value DESC`)
	if err != nil {
		return nil, trapErr(err, "aggregating countries")
	}
	return counts, nil
}
