package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/calendar-bridge/internal/persistence"
)

// ProviderStatusSource exposes the current status of every known provider.
type ProviderStatusSource interface {
	StatusByProvider(ctx context.Context) map[string]persistence.ProviderStatus
}

// HealthService answers system health queries over the live stores.
type HealthService struct {
	providers          ProviderStatusSource
	connections        persistence.ConnectionRepository
	jobs               persistence.SyncJobRepository
	failedJobThreshold int
	now                func() time.Time
	logger             *slog.Logger
}

// NewHealthService wires dependencies for health checks. A threshold of zero
// falls back to 5 failed jobs.
func NewHealthService(providers ProviderStatusSource, connections persistence.ConnectionRepository, jobs persistence.SyncJobRepository, failedJobThreshold int, now func() time.Time, logger *slog.Logger) *HealthService {
	if failedJobThreshold <= 0 {
		failedJobThreshold = 5
	}
	if now == nil {
		now = time.Now
	}
	return &HealthService{
		providers:          providers,
		connections:        connections,
		jobs:               jobs,
		failedJobThreshold: failedJobThreshold,
		now:                now,
		logger:             defaultLogger(logger),
	}
}

// Check computes the health report. Any errored connection or failed job
// degrades the status; errored connections outnumbering active ones, or
// failed jobs past the threshold, make it unhealthy.
func (s *HealthService) Check(ctx context.Context) (HealthReport, error) {
	report := HealthReport{
		Status:    HealthHealthy,
		CheckedAt: s.now(),
	}
	if s.providers != nil {
		report.Providers = s.providers.StatusByProvider(ctx)
	}

	conns, err := s.connections.ListConnections(ctx, persistence.ConnectionFilter{})
	if err != nil {
		return HealthReport{}, err
	}
	for _, conn := range conns {
		report.Connections.Total++
		switch conn.Status {
		case persistence.ConnectionStatusConnected:
			report.Connections.Active++
		case persistence.ConnectionStatusError:
			report.Connections.Error++
		}
	}

	jobs, err := s.jobs.ListSyncJobs(ctx, persistence.SyncJobFilter{})
	if err != nil {
		return HealthReport{}, err
	}
	for _, job := range jobs {
		switch job.Status {
		case persistence.SyncJobPending:
			report.SyncJobs.Pending++
		case persistence.SyncJobRunning:
			report.SyncJobs.Running++
		case persistence.SyncJobFailed:
			report.SyncJobs.Failed++
		}
	}

	if report.Connections.Error > 0 || report.SyncJobs.Failed > 0 {
		report.Status = HealthDegraded
	}
	if report.Connections.Error > report.Connections.Active || report.SyncJobs.Failed > s.failedJobThreshold {
		report.Status = HealthUnhealthy
	}

	return report, nil
}
