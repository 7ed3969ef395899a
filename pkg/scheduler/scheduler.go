package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"keeway/pkg/service"
)

type Config struct {
	ScanEnabled   bool
	ScanInterval  time.Duration
	DrainEnabled  bool
	DrainInterval time.Duration
}

// Scheduler owns the two background loops: the scan cycle that feeds the
// ledger and the drain cycle that sweeps deposit wallets. It is constructed,
// started, and stopped explicitly from main.
type Scheduler struct {
	cfg        Config
	reconciler service.Reconciler
	drainer    service.Drainer
	cron       gocron.Scheduler
}

func New(cfg Config, reconciler service.Reconciler, drainer service.Drainer) (*Scheduler, error) {
	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.Wrap(err, "scheduler: init")
	}
	return &Scheduler{cfg: cfg, reconciler: reconciler, drainer: drainer, cron: cron}, nil
}

func (s *Scheduler) Start() error {
	if s.cfg.ScanEnabled {
		_, err := s.cron.NewJob(
			gocron.DurationJob(s.cfg.ScanInterval),
			gocron.NewTask(s.runScan),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithName("scan"),
		)
		if err != nil {
			return errors.Wrap(err, "scheduler: scan job")
		}
	}
	if s.cfg.DrainEnabled {
		_, err := s.cron.NewJob(
			gocron.DurationJob(s.cfg.DrainInterval),
			gocron.NewTask(s.runDrain),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithName("drain"),
		)
		if err != nil {
			return errors.Wrap(err, "scheduler: drain job")
		}
	}

	s.cron.Start()
	logrus.WithFields(logrus.Fields{
		"scan":  s.cfg.ScanEnabled,
		"drain": s.cfg.DrainEnabled,
	}).Info("scheduler started")
	return nil
}

func (s *Scheduler) Stop() error {
	return s.cron.Shutdown()
}

func (s *Scheduler) runScan() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ScanInterval*4)
	defer cancel()
	if err := s.reconciler.ScanAll(ctx); err != nil {
		logrus.WithError(err).Error("scan cycle")
	}
}

func (s *Scheduler) runDrain() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.DrainInterval)
	defer cancel()
	if err := s.drainer.DrainAll(ctx); err != nil {
		logrus.WithError(err).Error("drain cycle")
	}
}
