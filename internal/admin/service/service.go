package service

import (
	"context"
	"time"

	accountrepo "knowledge-hub/internal/account/repository"
	"knowledge-hub/internal/common/clock"
	commonerrors "knowledge-hub/internal/common/errors"
	"knowledge-hub/internal/common/logger"
	searchrepo "knowledge-hub/internal/search/repository"
)

type Metrics struct {
	TotalUsers   int64
	TotalEntries int64
	ActiveUsers  int64
}

// AdminService aggregates the counters behind the admin panel. Activity means
// a login inside the configured window.
type AdminService struct {
	users          accountrepo.Repository
	entries        searchrepo.Repository
	clock          clock.Clock
	activityWindow time.Duration
	log            *logger.Logger
}

func NewAdminService(
	users accountrepo.Repository,
	entries searchrepo.Repository,
	clk clock.Clock,
	activityWindow time.Duration,
	log *logger.Logger,
) *AdminService {
	return &AdminService{
		users:          users,
		entries:        entries,
		clock:          clk,
		activityWindow: activityWindow,
		log:            log,
	}
}

func (s *AdminService) Metrics(ctx context.Context) (Metrics, error) {
	totalUsers, err := s.users.CountAll(ctx)
	if err != nil {
		return Metrics{}, commonerrors.ErrStoreUnavailable.WithCause(err)
	}

	totalEntries, err := s.entries.CountAll(ctx)
	if err != nil {
		return Metrics{}, commonerrors.ErrStoreUnavailable.WithCause(err)
	}

	activeUsers, err := s.users.CountActiveSince(ctx, s.clock.Now().Add(-s.activityWindow))
	if err != nil {
		return Metrics{}, commonerrors.ErrStoreUnavailable.WithCause(err)
	}

	s.log.WithFields(ctx, logger.Fields{
		"total_users":   totalUsers,
		"total_entries": totalEntries,
		"active_users":  activeUsers,
		"action":        "admin_metrics",
	}).Debug("admin metrics collected")

	return Metrics{
		TotalUsers:   totalUsers,
		TotalEntries: totalEntries,
		ActiveUsers:  activeUsers,
	}, nil
}
