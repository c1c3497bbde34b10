package cron_feature

import (
	"context"
	"encoding/json"
	"time"

	"go-crm-sync/internal/config"
	"go-crm-sync/internal/features/events"
	"go-crm-sync/internal/features/outbound"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SchedulerService wires the idempotent processing and dispatch passes onto
// cron schedules. The engine stays trigger-driven; a schedule entry is just
// one more caller of the same operations the API exposes, so overlapping or
// redundant firings are harmless.
type SchedulerService interface {
	Start() error
	Stop() error
	ListRuns(ctx context.Context, pass string, limit int64) ([]CronRun, error)
}

type SchedulerServiceImpl struct {
	Repo       CronRepository
	Processor  events.ProcessorService
	Dispatcher outbound.DispatcherService
	Config     *config.Config
	Logger     *zap.Logger

	scheduler *cron.Cron
}

func NewSchedulerService(
	repo CronRepository,
	processor events.ProcessorService,
	dispatcher outbound.DispatcherService,
	cfg *config.Config,
	logger *zap.Logger,
) SchedulerService {
	return &SchedulerServiceImpl{
		Repo:       repo,
		Processor:  processor,
		Dispatcher: dispatcher,
		Config:     cfg,
		Logger:     logger,
		scheduler:  cron.New(),
	}
}

func (s *SchedulerServiceImpl) Start() error {
	if s.Config.ProcessSchedule != "" {
		if _, err := s.scheduler.AddFunc(s.Config.ProcessSchedule, s.runProcessPass); err != nil {
			return err
		}
	}
	if s.Config.DispatchSchedule != "" {
		if _, err := s.scheduler.AddFunc(s.Config.DispatchSchedule, s.runDispatchPass); err != nil {
			return err
		}
	}

	s.scheduler.Start()
	s.Logger.Info("scheduler started",
		zap.String("process_schedule", s.Config.ProcessSchedule),
		zap.String("dispatch_schedule", s.Config.DispatchSchedule),
	)
	return nil
}

func (s *SchedulerServiceImpl) Stop() error {
	ctx := s.scheduler.Stop()
	<-ctx.Done()
	s.Logger.Info("scheduler stopped")
	return nil
}

// resultMap flattens a pass result struct for the run log.
func resultMap(v interface{}) map[string]interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

func (s *SchedulerServiceImpl) runProcessPass() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	run := &CronRun{Pass: PassProcess, StartedAt: time.Now()}
	result, err := s.Processor.ProcessBatch(ctx, nil, 0)
	run.FinishedAt = time.Now()
	if err != nil {
		run.Error = err.Error()
		s.Logger.Error("scheduled processing pass failed", zap.Error(err))
	} else {
		run.Result = resultMap(result)
	}

	if err := s.Repo.RecordRun(ctx, run); err != nil {
		s.Logger.Warn("failed to record cron run", zap.Error(err))
	}
}

func (s *SchedulerServiceImpl) runDispatchPass() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	run := &CronRun{Pass: PassDispatch, StartedAt: time.Now()}
	result, err := s.Dispatcher.DispatchPending(ctx, 0)
	run.FinishedAt = time.Now()
	if err != nil {
		run.Error = err.Error()
		s.Logger.Error("scheduled dispatch pass failed", zap.Error(err))
	} else {
		run.Result = resultMap(result)
	}

	if err := s.Repo.RecordRun(ctx, run); err != nil {
		s.Logger.Warn("failed to record cron run", zap.Error(err))
	}
}

func (s *SchedulerServiceImpl) ListRuns(ctx context.Context, pass string, limit int64) ([]CronRun, error) {
	return s.Repo.ListRuns(ctx, pass, limit)
}
