package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Runner runs one delivery pass.
type Runner interface {
	Deliver(ctx context.Context) (Result, error)
}

// Scheduler wraps a gocron scheduler running delivery passes periodically.
type Scheduler struct {
	scheduler gocron.Scheduler
	runner    Runner
	logger    *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewScheduler creates a scheduler for runner. Nothing runs until a job is scheduled and Start is called.
func NewScheduler(runner Runner, logger *zap.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		scheduler: s,
		runner:    runner,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// SchedulePeriodicDelivery runs a delivery pass immediately and then every interval. A pass still
// running when the next one is due causes that run to be skipped. Returns the job ID.
func (s *Scheduler) SchedulePeriodicDelivery(interval time.Duration) (string, error) {
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.executeDelivery, interval),
		gocron.WithName("periodic-delivery"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create periodic delivery job: %w", err)
	}

	return job.ID().String(), nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	s.logger.Info("starting delivery scheduler")
	s.scheduler.Start()
}

// Shutdown cancels a running pass and stops the scheduler.
func (s *Scheduler) Shutdown() error {
	s.logger.Info("stopping delivery scheduler")
	s.cancel()

	return s.scheduler.Shutdown()
}

// executeDelivery is called by gocron. A pass may run at most one interval.
func (s *Scheduler) executeDelivery(interval time.Duration) {
	ctx, cancel := context.WithTimeout(s.ctx, interval)
	defer cancel()

	if _, err := s.runner.Deliver(ctx); err != nil {
		s.logger.Warn("scheduled delivery failed", zap.Error(err))
	}
}
