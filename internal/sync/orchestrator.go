package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/calendar-bridge/internal/events"
	"github.com/example/calendar-bridge/internal/persistence"
)

// Orchestrator creates, runs, and tracks sync jobs. Jobs for the same
// connection run one at a time in FIFO order; jobs for different connections
// interleave freely.
type Orchestrator struct {
	connections persistence.ConnectionRepository
	eventStore  persistence.EventRepository
	jobs        persistence.SyncJobRepository
	adapter     ProviderAdapter
	bus         *events.Bus
	logger      *slog.Logger
	idGenerator func() string
	now         func() time.Time

	mu      sync.Mutex
	runners map[string]*connectionRunner
	cancels map[string]context.CancelFunc

	// base bounds the lifetime of all job goroutines; closed by Shutdown.
	base     context.Context
	stopBase context.CancelFunc
	wg       sync.WaitGroup
}

// connectionRunner serializes job execution for a single connection.
type connectionRunner struct {
	queue  []string
	active bool
}

// OrchestratorConfig wires dependencies for the orchestrator.
type OrchestratorConfig struct {
	Connections persistence.ConnectionRepository
	Events      persistence.EventRepository
	Jobs        persistence.SyncJobRepository
	Adapter     ProviderAdapter
	Bus         *events.Bus
	Logger      *slog.Logger
	IDGenerator func() string
	Now         func() time.Time
}

// NewOrchestrator constructs an orchestrator. IDGenerator and Now fall back to
// safe defaults when nil.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	idGenerator := cfg.IDGenerator
	if idGenerator == nil {
		idGenerator = func() string { return fmt.Sprintf("job-%d", time.Now().UnixNano()) }
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	base, stopBase := context.WithCancel(context.Background())
	return &Orchestrator{
		connections: cfg.Connections,
		eventStore:  cfg.Events,
		jobs:        cfg.Jobs,
		adapter:     cfg.Adapter,
		bus:         cfg.Bus,
		logger:      logger,
		idGenerator: idGenerator,
		now:         now,
		runners:     make(map[string]*connectionRunner),
		cancels:     make(map[string]context.CancelFunc),
		base:        base,
		stopBase:    stopBase,
	}
}

// Schedule creates a pending job for the connection and returns its id
// immediately. Execution happens asynchronously; callers poll GetJob. When a
// job is already in flight for the connection the new job waits its turn.
func (o *Orchestrator) Schedule(ctx context.Context, connectionID string, syncType persistence.SyncType) (string, error) {
	if _, err := o.connections.GetConnection(ctx, connectionID); err != nil {
		return "", err
	}

	now := o.now()
	job := persistence.SyncJob{
		ID:           o.idGenerator(),
		ConnectionID: connectionID,
		Type:         syncType,
		Status:       persistence.SyncJobPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := o.jobs.CreateSyncJob(ctx, job); err != nil {
		return "", err
	}

	o.enqueue(connectionID, job.ID)
	return job.ID, nil
}

// GetJob returns the current state of a job.
func (o *Orchestrator) GetJob(ctx context.Context, jobID string) (persistence.SyncJob, error) {
	return o.jobs.GetSyncJob(ctx, jobID)
}

// ListJobs enumerates jobs matching the filter.
func (o *Orchestrator) ListJobs(ctx context.Context, filter persistence.SyncJobFilter) ([]persistence.SyncJob, error) {
	return o.jobs.ListSyncJobs(ctx, filter)
}

// Cancel requests cooperative cancellation of a running job. Cancelling a
// pending or terminal job is a silent no-op. The syncCancelled notification
// fires once the job has actually stopped.
func (o *Orchestrator) Cancel(ctx context.Context, jobID string) error {
	job, err := o.jobs.GetSyncJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != persistence.SyncJobRunning {
		return nil
	}

	o.mu.Lock()
	cancel, ok := o.cancels[jobID]
	o.mu.Unlock()
	if ok {
		cancel()
	}
	return nil
}

// CancelForConnection tears down all sync work for a connection: queued jobs
// are marked cancelled, the in-flight job (if any) is cancelled, and the call
// blocks until the connection's runner has drained. Used by the connection
// delete cascade so no job outlives its connection.
func (o *Orchestrator) CancelForConnection(ctx context.Context, connectionID string) error {
	o.mu.Lock()
	runner := o.runners[connectionID]
	var queued []string
	if runner != nil {
		queued = runner.queue
		runner.queue = nil
	}
	o.mu.Unlock()

	now := o.now()
	for _, jobID := range queued {
		job, err := o.jobs.GetSyncJob(ctx, jobID)
		if err != nil {
			continue
		}
		job.Status = persistence.SyncJobCancelled
		job.CompletedAt = &now
		job.UpdatedAt = now
		if err := o.jobs.UpdateSyncJob(ctx, job); err != nil {
			o.logger.Warn("failed to cancel queued job", "job_id", jobID, "error", err)
		}
	}

	running, err := o.jobs.ListSyncJobs(ctx, persistence.SyncJobFilter{
		ConnectionID: connectionID,
		Statuses:     []persistence.SyncJobStatus{persistence.SyncJobRunning},
	})
	if err != nil {
		return err
	}
	for _, job := range running {
		o.mu.Lock()
		cancel, ok := o.cancels[job.ID]
		o.mu.Unlock()
		if ok {
			cancel()
		}
	}

	o.awaitRunner(connectionID)
	return nil
}

// awaitRunner polls until the connection's runner goroutine has exited.
func (o *Orchestrator) awaitRunner(connectionID string) {
	for {
		o.mu.Lock()
		runner := o.runners[connectionID]
		idle := runner == nil || (!runner.active && len(runner.queue) == 0)
		o.mu.Unlock()
		if idle {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// Tick schedules an incremental sync for every connected, sync-enabled
// connection that is due. A failure to schedule one connection never blocks
// the rest.
func (o *Orchestrator) Tick(ctx context.Context) {
	now := o.now()
	due, err := o.connections.ListConnections(ctx, persistence.ConnectionFilter{
		Status:        persistence.ConnectionStatusConnected,
		SyncDueBefore: &now,
	})
	if err != nil {
		o.logger.Error("scheduler tick failed to list connections", "error", err)
		return
	}

	for _, conn := range due {
		if _, err := o.Schedule(ctx, conn.ID, persistence.SyncTypeIncremental); err != nil {
			o.logger.Error("failed to schedule sync",
				"connection_id", conn.ID,
				"error", err,
			)
		}
	}
}

// Run drives the scheduler tick on the given interval until ctx is done.
func (o *Orchestrator) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.Tick(ctx)
		}
	}
}

// Shutdown cancels all in-flight jobs and waits for their goroutines to exit.
func (o *Orchestrator) Shutdown() {
	o.stopBase()
	o.wg.Wait()
}

// enqueue appends the job to the connection's queue and starts a runner
// goroutine when none is active.
func (o *Orchestrator) enqueue(connectionID, jobID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	runner := o.runners[connectionID]
	if runner == nil {
		runner = &connectionRunner{}
		o.runners[connectionID] = runner
	}
	runner.queue = append(runner.queue, jobID)
	if runner.active {
		return
	}
	runner.active = true
	o.wg.Add(1)
	go o.drain(connectionID)
}

// drain executes the connection's queued jobs one at a time.
func (o *Orchestrator) drain(connectionID string) {
	defer o.wg.Done()
	for {
		o.mu.Lock()
		runner := o.runners[connectionID]
		if runner == nil || len(runner.queue) == 0 {
			if runner != nil {
				runner.active = false
			}
			o.mu.Unlock()
			return
		}
		jobID := runner.queue[0]
		runner.queue = runner.queue[1:]
		o.mu.Unlock()

		o.execute(jobID)
	}
}

// execute runs one job through the state machine.
func (o *Orchestrator) execute(jobID string) {
	ctx, cancel := context.WithCancel(o.base)
	defer cancel()

	job, err := o.jobs.GetSyncJob(ctx, jobID)
	if err != nil {
		o.logger.Error("job disappeared before execution", "job_id", jobID, "error", err)
		return
	}
	if job.Status != persistence.SyncJobPending {
		return
	}

	started := o.now()
	job.Status = persistence.SyncJobRunning
	job.StartedAt = &started
	job.UpdatedAt = started
	if err := o.jobs.UpdateSyncJob(ctx, job); err != nil {
		o.logger.Error("failed to mark job running", "job_id", jobID, "error", err)
		return
	}

	o.mu.Lock()
	o.cancels[jobID] = cancel
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		delete(o.cancels, jobID)
		o.mu.Unlock()
	}()

	conn, err := o.connections.GetConnection(ctx, job.ConnectionID)
	if err != nil {
		o.fail(job, fmt.Errorf("load connection %s: %w", job.ConnectionID, err))
		return
	}

	var since *time.Time
	if job.Type == persistence.SyncTypeIncremental {
		since = conn.SyncSettings.LastSync
	}

	deltas, err := o.adapter.PullDeltas(ctx, conn, since)
	if err != nil {
		if ctx.Err() != nil {
			o.cancelled(job)
			return
		}
		o.fail(job, fmt.Errorf("pull deltas: %w", err))
		return
	}

	total := len(deltas)
	for i, delta := range deltas {
		// Cancellation is checked before each unit of work, never mid-unit.
		if ctx.Err() != nil {
			o.cancelled(job)
			return
		}

		if err := o.applyDelta(ctx, &job, conn, delta); err != nil {
			o.fail(job, fmt.Errorf("apply delta %d/%d: %w", i+1, total, err))
			return
		}

		job.Processed++
		if progress := job.Processed * 100 / total; progress > job.Progress {
			job.Progress = progress
		}
		job.UpdatedAt = o.now()
		if err := o.jobs.UpdateSyncJob(ctx, job); err != nil {
			o.logger.Warn("failed to persist job progress", "job_id", job.ID, "error", err)
		}
	}

	o.complete(job, conn)
}

// applyDelta reconciles one remote change into the event store.
func (o *Orchestrator) applyDelta(ctx context.Context, job *persistence.SyncJob, conn persistence.Connection, delta Delta) error {
	existing, err := o.eventStore.GetEventByExternalID(ctx, conn.ID, delta.Remote.ExternalID)
	known := err == nil

	now := o.now()
	switch delta.Op {
	case DeltaCreate, DeltaUpdate:
		if known {
			existing.Title = delta.Remote.Title
			existing.Start = delta.Remote.Start
			existing.End = delta.Remote.End
			existing.Categories = delta.Remote.Categories
			existing.Attendees = delta.Remote.Attendees
			existing.Availability = delta.Remote.Availability
			existing.SyncedAt = &now
			existing.UpdatedAt = now
			if err := o.eventStore.UpdateEvent(ctx, existing); err != nil {
				return err
			}
			job.Updated++
			return nil
		}
		event := persistence.Event{
			ID:           o.idGenerator(),
			ConnectionID: conn.ID,
			TenantID:     conn.TenantID,
			Title:        delta.Remote.Title,
			Start:        delta.Remote.Start,
			End:          delta.Remote.End,
			Categories:   delta.Remote.Categories,
			Attendees:    delta.Remote.Attendees,
			Availability: delta.Remote.Availability,
			Status:       persistence.EventStatusConfirmed,
			ExternalID:   delta.Remote.ExternalID,
			SyncedAt:     &now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if event.Availability == "" {
			event.Availability = persistence.AvailabilityBusy
		}
		if err := o.eventStore.CreateEvent(ctx, event); err != nil {
			return err
		}
		job.Created++
		return nil

	case DeltaDelete:
		if !known {
			return nil
		}
		if err := o.eventStore.DeleteEvent(ctx, existing.ID); err != nil {
			return err
		}
		job.Deleted++
		return nil
	}

	return fmt.Errorf("unknown delta operation %q", delta.Op)
}

// complete finalises a successful job and rolls the connection's sync window.
func (o *Orchestrator) complete(job persistence.SyncJob, conn persistence.Connection) {
	// Terminal bookkeeping uses a background context so a cancelled job
	// context cannot block the final state write.
	ctx := context.Background()
	now := o.now()

	job.Status = persistence.SyncJobCompleted
	job.Progress = 100
	job.CompletedAt = &now
	job.UpdatedAt = now
	if err := o.jobs.UpdateSyncJob(ctx, job); err != nil {
		o.logger.Error("failed to mark job completed", "job_id", job.ID, "error", err)
	}

	current, err := o.connections.GetConnection(ctx, conn.ID)
	if err == nil {
		next := now.Add(current.SyncSettings.Interval)
		current.SyncSettings.LastSync = &now
		current.SyncSettings.NextSync = &next
		current.UpdatedAt = now
		if err := o.connections.UpdateConnection(ctx, current); err != nil {
			o.logger.Error("failed to roll sync window", "connection_id", conn.ID, "error", err)
		}
	}

	o.bus.Publish(events.Event{
		Type:         events.SyncCompleted,
		ConnectionID: job.ConnectionID,
		JobID:        job.ID,
		At:           now,
	})
	o.logger.Info("sync completed",
		"job_id", job.ID,
		"connection_id", job.ConnectionID,
		"processed", job.Processed,
		"created", job.Created,
		"updated", job.Updated,
		"deleted", job.Deleted,
	)
}

// fail finalises a job that hit an adapter or internal error. No automatic
// retry; the next scheduler tick decides whether to try again.
func (o *Orchestrator) fail(job persistence.SyncJob, cause error) {
	ctx := context.Background()
	now := o.now()

	job.Status = persistence.SyncJobFailed
	job.Errors = append(job.Errors, persistence.SyncError{Message: cause.Error(), At: now})
	job.CompletedAt = &now
	job.UpdatedAt = now
	if err := o.jobs.UpdateSyncJob(ctx, job); err != nil {
		o.logger.Error("failed to mark job failed", "job_id", job.ID, "error", err)
	}

	o.logger.Error("sync failed",
		"job_id", job.ID,
		"connection_id", job.ConnectionID,
		"error", cause,
	)
}

// cancelled finalises a job whose cancellation request has been honoured.
// Partial counters are retained.
func (o *Orchestrator) cancelled(job persistence.SyncJob) {
	ctx := context.Background()
	now := o.now()

	job.Status = persistence.SyncJobCancelled
	job.CompletedAt = &now
	job.UpdatedAt = now
	if err := o.jobs.UpdateSyncJob(ctx, job); err != nil {
		o.logger.Error("failed to mark job cancelled", "job_id", job.ID, "error", err)
	}

	o.bus.Publish(events.Event{
		Type:         events.SyncCancelled,
		ConnectionID: job.ConnectionID,
		JobID:        job.ID,
		At:           now,
	})
	o.logger.Info("sync cancelled",
		"job_id", job.ID,
		"connection_id", job.ConnectionID,
		"processed", job.Processed,
	)
}
