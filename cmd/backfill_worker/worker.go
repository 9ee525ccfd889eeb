package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/kcal-diary-bot/internal/application"
)

type jobRunner interface {
	Run(ctx context.Context, job application.BackfillJob) (application.BackfillReport, error)
}

type worker struct {
	svc    jobRunner
	logger *logrus.Logger
	// busyDelay holds back the requeue of a job that found another run in progress.
	busyDelay time.Duration
}

// handle acks finished jobs, drops undecodable ones and requeues jobs interrupted by shutdown.
// A whole-catalog job that collides with a running pass is acked since that pass covers it;
// a job with explicit names is requeued after busyDelay.
func (w *worker) handle(ctx context.Context, msg amqp.Delivery) {
	var job application.BackfillJob
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		w.logger.WithError(err).Warn("bad backfill message")
		_ = msg.Nack(false, false)
		return
	}
	log := w.logger.WithFields(logrus.Fields{"job_id": job.ID, "requested_by": job.RequestedBy})

	report, err := w.svc.Run(ctx, job)
	switch {
	case ctx.Err() != nil:
		log.WithError(err).Info("backfill job requeued")
		_ = msg.Nack(false, true)
	case errors.Is(err, application.ErrBackfillRunning) && len(job.Names) == 0:
		log.Info("catalog backfill already running, job dropped")
		_ = msg.Ack(false)
	case errors.Is(err, application.ErrBackfillRunning):
		log.WithField("delay", w.busyDelay).Info("backfill busy, requeue delayed")
		w.wait(ctx)
		_ = msg.Nack(false, true)
	case err != nil:
		log.WithError(err).Error("backfill job failed")
		_ = msg.Nack(false, false)
	default:
		log.WithFields(logrus.Fields{
			"resolved":   len(report.Resolved),
			"unresolved": len(report.Unresolved),
		}).Info("backfill job done")
		_ = msg.Ack(false)
	}
}

func (w *worker) wait(ctx context.Context) {
	if w.busyDelay <= 0 {
		return
	}
	t := time.NewTimer(w.busyDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
