package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// auditRetention is how long action audit entries are kept
const auditRetention = 180 * 24 * time.Hour

// CronService manages scheduled housekeeping jobs
type CronService struct {
	cron      *cron.Cron
	payments  *QRPaymentService
	schedules *ScheduleAvailabilityService
	audit     *AuditService
	logger    *logrus.Logger
	timeout   time.Duration
}

// NewCronService creates a new CronService
func NewCronService(payments *QRPaymentService, schedules *ScheduleAvailabilityService, audit *AuditService, logger *logrus.Logger) *CronService {
	// seconds precision
	c := cron.New(cron.WithSeconds())

	return &CronService{
		cron:      c,
		payments:  payments,
		schedules: schedules,
		audit:     audit,
		logger:    logger,
		timeout:   time.Minute,
	}
}

// Start starts all cron jobs
func (s *CronService) Start() error {
	s.logger.Info("Starting cron service...")

	// Cron format: second minute hour day month weekday

	// "0 * * * * *" = every minute
	if _, err := s.cron.AddFunc("0 * * * * *", s.expireQRCodesJob); err != nil {
		return fmt.Errorf("failed to schedule QR expiry job: %w", err)
	}
	s.logger.Info("Scheduled: Expire stale QR codes (every minute)")

	// "0 5 * * * *" = five past every hour
	if _, err := s.cron.AddFunc("0 5 * * * *", s.completeSchedulesJob); err != nil {
		return fmt.Errorf("failed to schedule completion job: %w", err)
	}
	s.logger.Info("Scheduled: Complete finished schedules (hourly)")

	// "0 0 4 * * 0" = 4:00 AM every Sunday
	if s.audit != nil {
		if _, err := s.cron.AddFunc("0 0 4 * * 0", s.cleanupAuditLogsJob); err != nil {
			return fmt.Errorf("failed to schedule audit cleanup job: %w", err)
		}
		s.logger.Info("Scheduled: Cleanup old audit logs (Sundays at 4:00 AM)")
	}

	s.cron.Start()
	s.logger.Info("Cron service started successfully")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

// AddJob schedules an extra housekeeping job owned by another component
func (s *CronService) AddJob(spec, name string, job func(ctx context.Context) (int64, error)) error {
	if _, err := s.cron.AddFunc(spec, func() { s.runJob(name, job) }); err != nil {
		return fmt.Errorf("failed to schedule %s job: %w", name, err)
	}
	s.logger.WithFields(logrus.Fields{"job": name, "spec": spec}).Info("Scheduled extra job")
	return nil
}

func (s *CronService) expireQRCodesJob() {
	s.runJob("expire_qr_codes", func(ctx context.Context) (int64, error) {
		return s.payments.ExpireStaleCodes(ctx)
	})
}

func (s *CronService) completeSchedulesJob() {
	s.runJob("complete_schedules", func(ctx context.Context) (int64, error) {
		return s.schedules.CompleteFinishedSchedules(ctx)
	})
}

func (s *CronService) cleanupAuditLogsJob() {
	s.runJob("cleanup_audit_logs", func(ctx context.Context) (int64, error) {
		return s.audit.CleanupOldAuditLogs(ctx, auditRetention)
	})
}

// runJob runs one job with a timeout and logs its outcome
func (s *CronService) runJob(name string, job func(ctx context.Context) (int64, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	startTime := time.Now()
	affected, err := job(ctx)
	if err != nil {
		s.logger.WithError(err).WithField("job", name).Error("Cron job failed")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"job":      name,
		"affected": affected,
		"duration": time.Since(startTime).String(),
	}).Info("Cron job finished")
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}
