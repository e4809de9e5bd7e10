package stats

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
)

const (
	// retention compares recent activity against recent signups
	activityWindow = 7 * 24 * time.Hour
	signupWindow   = 30 * 24 * time.Hour
)

type (
	Repository interface {
		RecordActivity(ctx context.Context, userID string) (Activity, error)
		// CountActiveUsers counts distinct users with activity since the
		// given time.
		CountActiveUsers(ctx context.Context, since time.Time) (int, error)
		// CountNewUsers counts users whose earliest activity is since the
		// given time.
		CountNewUsers(ctx context.Context, since time.Time) (int, error)
	}

	// VisitorCounter reports the non-deleted Visitor record count. It is
	// deliberately the only bridge to the visitor collection: totals must
	// come from it, never from the activity log.
	VisitorCounter interface {
		CountVisitors(ctx context.Context) (int, error)
	}

	Service struct {
		repo     Repository
		visitors VisitorCounter
		sessions *SessionStore
	}
)

func NewService(repo Repository, visitors VisitorCounter, sessions *SessionStore) *Service {
	return &Service{repo: repo, visitors: visitors, sessions: sessions}
}

func (svc *Service) RecordActivity(ctx context.Context, userID string) (Activity, error) {
	return svc.repo.RecordActivity(ctx, userID)
}

// RetentionRate is the share of users signed up in the last 30 days
// that were active in the last 7, as a percentage rounded to one
// decimal. No recent signups yields 0, not a division error.
func (svc *Service) RetentionRate(ctx context.Context) (float64, error) {
	now := time.Now().UTC()

	newUsers, err := svc.repo.CountNewUsers(ctx, now.Add(-signupWindow))
	if err != nil {
		return 0, errors.Wrap(err, "counting new users")
	}
	if newUsers == 0 {
		return 0, nil
	}

	active, err := svc.repo.CountActiveUsers(ctx, now.Add(-activityWindow))
	if err != nil {
		return 0, errors.Wrap(err, "counting active users")
	}

	rate := float64(active) / float64(newUsers) * 100
	return math.Round(rate*10) / 10, nil
}

// VisitorTotals assembles the dashboard statistics. TotalVisitors is
// the Visitor collection's non-deleted count; RetentionRate comes from
// the activity log.
func (svc *Service) VisitorTotals(ctx context.Context) (Totals, error) {
	total, err := svc.visitors.CountVisitors(ctx)
	if err != nil {
		return Totals{}, errors.Wrap(err, "counting visitors")
	}

	rate, err := svc.RetentionRate(ctx)
	if err != nil {
		return Totals{}, err
	}

	var active int
	if svc.sessions != nil {
		active = svc.sessions.ActiveCount()
	}

	return Totals{
		RetentionRate:  rate,
		TotalVisitors:  total,
		ActiveVisitors: active,
		LastUpdated:    time.Now().UTC(),
	}, nil
}

// TouchSession marks a visitor session as active.
func (svc *Service) TouchSession(id string) {
	if svc.sessions != nil {
		svc.sessions.Touch(id)
	}
}
