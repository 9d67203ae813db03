package scheduler

import (
	"context"
	"time"

	"github.com/deepfake-detector/detector-console/internal/config"
	"github.com/deepfake-detector/detector-console/internal/detector"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Jobs is the subset of the detector service driven by the scheduler
type Jobs interface {
	CheckBackend(ctx context.Context) detector.BackendHealth
	SendDigest() error
}

// Service handles scheduling of background detector tasks
type Service struct {
	config *config.Config
	jobs   Jobs
	cron   *cron.Cron
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, jobs Jobs) *Service {
	return &Service{
		config: cfg,
		jobs:   jobs,
		cron:   cron.New(cron.WithSeconds()),
	}
}

// Start registers the health probe and the optional digest, then starts the scheduler
func (s *Service) Start() error {
	_, err := s.cron.AddFunc(s.config.HealthCheckSchedule, s.probeBackend)
	if err != nil {
		return err
	}

	if s.config.DigestSchedule != "" {
		_, err = s.cron.AddFunc(s.config.DigestSchedule, func() {
			logrus.Info("Starting scheduled history digest")
			if err := s.jobs.SendDigest(); err != nil {
				logrus.Errorf("Scheduled history digest failed: %v", err)
			}
		})

		if err != nil {
			return err
		}
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with health checks %q (digest: %q)", s.config.HealthCheckSchedule, s.config.DigestSchedule)
	return nil
}

func (s *Service) probeBackend() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	health := s.jobs.CheckBackend(ctx)
	logrus.Debugf("Analysis Service reachable: %t", health.Reachable)
}

// Stop stops the scheduler and waits for running jobs
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		logrus.Info("Scheduler stopped")
	}
}
