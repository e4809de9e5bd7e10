package visitor

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/duka/core"
)

var ErrNotFound = errors.New("visitor not found")

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

type (
	// GetFilter finds a single non-deleted visitor; ID wins when both
	// fields are set.
	GetFilter struct {
		ID        string
		IPAddress string
	}

	Repository interface {
		// UpsertVisitorByIP atomically creates a visitor or records a repeat
		// visit, keyed on v.IPAddress. Existing records get their visit count
		// bumped by one and the visit timestamp refreshed; incoming fields
		// overwrite stored ones only when supplied (non-empty strings,
		// non-nil Location). New records get Unknown defaults for missing
		// descriptive fields and a visit count of max(v.VisitCount, 1).
		// Soft-deleted records are invisible here: a revisit from a deleted
		// visitor's IP creates a fresh record.
		UpsertVisitorByIP(ctx context.Context, v Visitor) (Visitor, error)
		GetVisitor(ctx context.Context, filter GetFilter) (Visitor, error)
		UpdateVisitor(ctx context.Context, v Visitor) (Visitor, error)
		// QueryVisitors returns one page of non-deleted visitors ordered by
		// last_visited_at descending, plus the total non-deleted count.
		QueryVisitors(ctx context.Context, offset, limit int) ([]Visitor, int, error)
		AllVisitors(ctx context.Context) ([]Visitor, error)
		// DeleteVisitor soft-deletes; the record is never physically removed.
		DeleteVisitor(ctx context.Context, id string) error
		CountVisitors(ctx context.Context) (int, error)
		// CountryCounts sums visit counts per country code over non-deleted
		// visitors; records without a country code are excluded.
		CountryCounts(ctx context.Context) ([]CountryCount, error)
	}

	// Resolver looks up a best-effort location for an IP address.
	Resolver interface {
		LookupIP(ctx context.Context, ip string) (*Location, error)
	}

	Service struct {
		repo     Repository
		resolver Resolver // optional; nil disables IP enrichment
		logger   core.Logger
	}
)

func NewService(repo Repository, resolver Resolver, logger core.Logger) *Service {
	return &Service{repo: repo, resolver: resolver, logger: logger}
}

// Upsert records a visit: the first one from an IP creates a Visitor,
// subsequent ones increment it. An address that does not parse as an
// IP is rejected with a core.ValidationError. A location is taken from
// the request when supplied; otherwise a best-effort IP lookup fills
// it in, and a lookup failure never fails the visit.
func (svc *Service) Upsert(ctx context.Context, nv NewVisitor) (Visitor, error) {
	ip := core.CleanString(nv.IPAddress)
	if net.ParseIP(ip) == nil {
		return Visitor{}, core.NewValidationError(errors.New("invalid visitor"),
			core.FieldError{Field: "ip_address", Error: "must be a valid IP address"})
	}

	loc := SanitizeLocation(nv.Location)
	if loc == nil && svc.resolver != nil {
		resolved, err := svc.resolver.LookupIP(ctx, ip)
		if err != nil {
			if svc.logger != nil {
				svc.logger.Warn(fmt.Sprintf("ip lookup failed for %s: %v", ip, err))
			}
		} else {
			loc = resolved
		}
	}

	browser := core.CleanString(nv.Browser)
	osName := core.CleanString(nv.OS)
	device := core.CleanString(nv.DeviceInfo)
	if nv.UserAgent != "" && (browser == "" || osName == "" || device == "") {
		ua := ParseUserAgent(nv.UserAgent)
		if browser == "" {
			browser = ua.Browser
		}
		if osName == "" {
			osName = ua.OS
		}
		if device == "" {
			device = ua.DeviceInfo
		}
	}

	v := Visitor{
		IPAddress:  ip,
		Name:       nv.Name,
		Location:   loc,
		DeviceInfo: device,
		Browser:    browser,
		OS:         osName,
		Referrer:   core.CleanString(nv.Referrer),
		VisitCount: nv.VisitCount,
	}
	return svc.repo.UpsertVisitorByIP(ctx, v)
}

// Update applies an explicit admin edit to an existing visitor; only
// the fields present in the request are overwritten, and the visit
// count is never bumped.
func (svc *Service) Update(ctx context.Context, id string, uv UpdateVisitor) (Visitor, error) {
	v, err := svc.repo.GetVisitor(ctx, GetFilter{ID: id})
	if err != nil {
		return Visitor{}, err
	}

	if uv.Name != nil {
		v.Name = core.CleanString(*uv.Name)
	}
	if uv.Location != nil {
		v.Location = SanitizeLocation(uv.Location)
	}
	if uv.DeviceInfo != nil {
		v.DeviceInfo = core.CleanString(*uv.DeviceInfo)
	}
	if uv.Browser != nil {
		v.Browser = core.CleanString(*uv.Browser)
	}
	if uv.OS != nil {
		v.OS = core.CleanString(*uv.OS)
	}
	if uv.Referrer != nil {
		v.Referrer = core.CleanString(*uv.Referrer)
	}
	if uv.VisitCount != nil && *uv.VisitCount >= 1 {
		v.VisitCount = *uv.VisitCount
	}
	v.UpdatedAt = time.Now().UTC()

	return svc.repo.UpdateVisitor(ctx, v)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Visitor, error) {
	return svc.repo.GetVisitor(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByIP(ctx context.Context, ip string) (Visitor, error) {
	return svc.repo.GetVisitor(ctx, GetFilter{IPAddress: core.CleanString(ip)})
}

// Query pages through non-deleted visitors, newest visit first.
func (svc *Service) Query(ctx context.Context, page, limit int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	} else if limit > maxPageLimit {
		limit = maxPageLimit
	}

	visitors, total, err := svc.repo.QueryVisitors(ctx, (page-1)*limit, limit)
	if err != nil {
		return Page{}, err
	}
	if visitors == nil {
		visitors = []Visitor{}
	}
	return Page{
		Visitors:    visitors,
		TotalPages:  (total + limit - 1) / limit,
		CurrentPage: page,
	}, nil
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteVisitor(ctx, id)
}

func (svc *Service) Count(ctx context.Context) (int, error) {
	return svc.repo.CountVisitors(ctx)
}

// MapPoints renders all non-deleted visitors with a resolvable position
// into map markers. Records where neither coordinate representation
// yields two finite numbers are skipped, not errored.
func (svc *Service) MapPoints(ctx context.Context) ([]MapPoint, error) {
	visitors, err := svc.repo.AllVisitors(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying visitors")
	}

	points := make([]MapPoint, 0, len(visitors))
	for _, v := range visitors {
		lat, lng, ok := v.Location.Point()
		if !ok {
			continue
		}

		name := v.Name
		if name == "" {
			name = AnonymousName
		}
		city, country := v.Location.City, v.Location.Country
		if city == "" {
			city = Unknown
		}
		if country == "" {
			country = Unknown
		}
		count := v.VisitCount
		if count < 1 {
			count = 1
		}

		points = append(points, MapPoint{
			ID:            v.ID,
			Name:          name,
			City:          city,
			Country:       country,
			Latitude:      lat,
			Longitude:     lng,
			VisitCount:    count,
			LastVisitedAt: v.LastVisitedAt,
			IPAddress:     v.IPAddress,
		})
	}
	return points, nil
}

// Geography sums visit counts per country code.
func (svc *Service) Geography(ctx context.Context) ([]CountryCount, error) {
	counts, err := svc.repo.CountryCounts(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "aggregating countries")
	}
	if counts == nil {
		counts = []CountryCount{}
	}
	return counts, nil
}
