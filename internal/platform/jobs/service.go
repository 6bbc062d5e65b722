package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"hcm/internal/domain/leave"
	"hcm/internal/platform/config"
	"hcm/internal/platform/querier"
)

const (
	JobBalanceInit  = "balance_initialization"
	JobCarryForward = "leave_carry_forward"
)

// Service is a small in-process job runner. Every run is bookkept in
// job_runs so operators can see what fired, when, and with what result.
type Service struct {
	DB    querier.Querier
	Cfg   config.Config
	Leave *leave.Service
	queue chan job
}

type job struct {
	Type string
	Run  func(context.Context) (any, error)
}

func New(db querier.Querier, cfg config.Config, leaveSvc *leave.Service) *Service {
	return &Service{
		DB:    db,
		Cfg:   cfg,
		Leave: leaveSvc,
		queue: make(chan job, 128),
	}
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.Cfg.CarryForwardInterval > 0 {
		go s.scheduleCarryForward(ctx, s.Cfg.CarryForwardInterval)
	}
}

func (s *Service) Enqueue(jobType string, run func(context.Context) (any, error)) {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType)
	}
}

// RunNow executes a job inline, with the same job_runs bookkeeping as
// queued work. Handlers use it for the synchronous bulk operations.
func (s *Service) RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	if err := s.DB.QueryRow(ctx, `
		INSERT INTO job_runs (job_type, status)
		VALUES ($1, $2)
		RETURNING id`,
		j.Type, "running").Scan(&runID); err != nil {
		slog.Warn("job run insert failed", "err", err)
	}

	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		if _, updErr := s.DB.Exec(ctx, `
			UPDATE job_runs
			SET status = $1, details_json = $2, completed_at = now()
			WHERE id = $3`,
			status, detailsJSON, runID); updErr != nil {
			slog.Warn("job run update failed", "err", updErr)
		}
	}
	return details, err
}

// scheduleCarryForward checks on each tick whether a new year has
// started and, once per year boundary, rolls the previous year's
// balances forward. The underlying upsert is idempotent, so a tick
// racing a manual trigger cannot double-credit.
func (s *Service) scheduleCarryForward(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			if now.Month() != time.January {
				continue
			}
			fromYear := now.Year() - 1
			s.Enqueue(JobCarryForward, func(ctx context.Context) (any, error) {
				credited, err := s.Leave.CarryForward(ctx, fromYear)
				return map[string]any{"fromYear": fromYear, "credited": credited}, err
			})
		}
	}
}

// ListRuns returns recent job executions, newest first.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]map[string]any, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, job_type, status, details_json, started_at, completed_at
		FROM job_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var (
			id, jobType, status string
			details             json.RawMessage
			startedAt           time.Time
			completedAt         *time.Time
		)
		if err := rows.Scan(&id, &jobType, &status, &details, &startedAt, &completedAt); err != nil {
			return nil, err
		}
		out = append(out, map[string]any{
			"id":          id,
			"jobType":     jobType,
			"status":      status,
			"details":     details,
			"startedAt":   startedAt,
			"completedAt": completedAt,
		})
	}
	return out, rows.Err()
}
