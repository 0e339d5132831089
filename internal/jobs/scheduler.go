package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/guestvoice/guestvoice-backend/internal/logger"
	"github.com/guestvoice/guestvoice-backend/internal/metrics"
	"github.com/guestvoice/guestvoice-backend/internal/services"
)

// Job names, used as metric labels
const (
	JobEscalation = "request_escalation"
	JobOTPCleanup = "otp_cleanup"
	JobDigest     = "daily_digest"
	JobBilling    = "billing_cycle"
)

// job is one recurring task. next returns the first run strictly after now.
type job struct {
	name string
	next func(now time.Time) time.Time
	run  func(ctx context.Context) error
}

// Config holds job timing
type Config struct {
	EscalateAfter time.Duration
}

// Scheduler runs the platform's recurring jobs, each in its own goroutine
type Scheduler struct {
	jobs []job
	now  func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewScheduler wires the standard jobs:
// escalation every 5 minutes, OTP cleanup hourly, digests at 08:00 UTC and billing at 01:00 UTC.
func NewScheduler(cfg Config, requests *services.RequestService, otp *services.OTPService,
	dashboard *services.DashboardService, billing *services.BillingService) *Scheduler {
	s := &Scheduler{now: time.Now}
	if cfg.EscalateAfter <= 0 {
		cfg.EscalateAfter = 15 * time.Minute
	}

	s.add(JobEscalation, every(5*time.Minute), func(ctx context.Context) error {
		n, err := requests.EscalateStale(ctx, cfg.EscalateAfter)
		if n > 0 {
			logger.FromContext(ctx).Info("Stale requests escalated", zap.Int("count", n))
		}
		return err
	})
	s.add(JobOTPCleanup, every(time.Hour), func(ctx context.Context) error {
		_, err := otp.CleanupExpired(ctx)
		return err
	})
	s.add(JobDigest, dailyAt(8, 0), func(ctx context.Context) error {
		n, err := dashboard.SendDigests(ctx, s.now())
		logger.FromContext(ctx).Info("Daily digests sent", zap.Int("count", n))
		return err
	})
	s.add(JobBilling, dailyAt(1, 0), func(ctx context.Context) error {
		res, err := billing.RunBillingCycle(ctx, s.now())
		if res != nil {
			logger.FromContext(ctx).Info("Billing cycle finished",
				zap.Int("invoiced", res.Invoiced),
				zap.Int("past_due", res.PastDue),
				zap.Int("trials_ended", res.TrialsEnded))
		}
		return err
	})
	return s
}

func (s *Scheduler) add(name string, next func(time.Time) time.Time, run func(context.Context) error) {
	s.jobs = append(s.jobs, job{name: name, next: next, run: run})
}

// Start begins all scheduled jobs. They stop when ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		logger.Warn("Scheduled jobs already running")
		return
	}
	s.running = true

	ctx, s.cancel = context.WithCancel(ctx)
	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, j)
	}
	logger.Info("Scheduled jobs started", zap.Int("jobs", len(s.jobs)))
}

// Stop halts all scheduled jobs and waits for in-flight runs to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	logger.Info("Scheduled jobs stopped")
}

func (s *Scheduler) loop(ctx context.Context, j job) {
	defer s.wg.Done()
	for {
		now := s.now()
		wait := j.next(now).Sub(now)
		logger.Debug("Next job run scheduled", zap.String("job", j.name), zap.Duration("in", wait))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		s.runOnce(ctx, j)
	}
}

// runOnce executes a job, recovering panics so one bad run does not kill the schedule
func (s *Scheduler) runOnce(ctx context.Context, j job) {
	log := logger.FromContext(ctx).WithFields(zap.String("job", j.name))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error("Job panicked", zap.Any("panic", r))
			metrics.JobRunsTotal.WithLabelValues(j.name, "panic").Inc()
		}
	}()

	if err := j.run(ctx); err != nil {
		log.Error("Job failed", zap.Error(err), zap.Duration("took", time.Since(start)))
		metrics.JobRunsTotal.WithLabelValues(j.name, "error").Inc()
		return
	}
	log.Debug("Job finished", zap.Duration("took", time.Since(start)))
	metrics.JobRunsTotal.WithLabelValues(j.name, "success").Inc()
}

// every schedules on wall-clock multiples of interval, e.g. :00, :05, :10 for five minutes
func every(interval time.Duration) func(time.Time) time.Time {
	return func(now time.Time) time.Time {
		return now.Truncate(interval).Add(interval)
	}
}

// dailyAt schedules once a day at hour:minute UTC
func dailyAt(hour, minute int) func(time.Time) time.Time {
	return func(now time.Time) time.Time {
		now = now.UTC()
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		return next
	}
}
