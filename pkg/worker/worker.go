// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package worker runs the periodic coordinator passes.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-ranked-matchmaker/pkg/envelope"
)

// Coordinator is what the worker drives.
type Coordinator interface {
	SweepTimeouts(rootScope *envelope.Scope, now time.Time) int
	MatchQueued(rootScope *envelope.Scope, now time.Time) int
	ReconcileRatings(rootScope *envelope.Scope) int
}

type Worker struct {
	scheduler   gocron.Scheduler
	coordinator Coordinator
	now         func() time.Time
}

// New schedules the timeout sweep and the queue matching every interval, and the rating
// reconciliation every reconcileInterval. Runs of one job never overlap.
func New(coordinator Coordinator, interval, reconcileInterval time.Duration) (*Worker, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	w := &Worker{scheduler: scheduler, coordinator: coordinator, now: time.Now}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(w.Tick),
		gocron.WithName("sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule sweep: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(reconcileInterval),
		gocron.NewTask(w.Reconcile),
		gocron.WithName("reconcile"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule reconcile: %w", err)
	}

	return w, nil
}

func (w *Worker) Start() {
	w.scheduler.Start()
}

// Stop waits for running jobs to return.
func (w *Worker) Stop() error {
	return w.scheduler.Shutdown()
}

// Tick expires overdue turns, then pairs waiting players.
func (w *Worker) Tick() {
	scope := envelope.NewRootScope(context.Background(), "Worker.Tick", "")
	defer scope.Finish()

	now := w.now()
	expired := w.coordinator.SweepTimeouts(scope, now)
	matched := w.coordinator.MatchQueued(scope, now)
	if expired > 0 || matched > 0 {
		scope.Log.WithFields(logrus.Fields{"expiredTurns": expired, "newSessions": matched}).Debug("worker tick")
	}
}

func (w *Worker) Reconcile() {
	scope := envelope.NewRootScope(context.Background(), "Worker.Reconcile", "")
	defer scope.Finish()

	if n := w.coordinator.ReconcileRatings(scope); n > 0 {
		scope.Log.WithField("outcomes", n).Info("reconciled parked outcomes")
	}
}
