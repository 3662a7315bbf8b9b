/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package scheduler batches document change events into one recompute per
// affected connector. The host decides when a turn ends by calling Flush.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"goconnector/internal/anchor"
	"goconnector/internal/domain"
	applog "goconnector/internal/log"
)

// Recomputer regenerates a connector path from its ends.
type Recomputer interface {
	RecomputeFromEnds(c *domain.Connector) error
}

// Registry gives access to connectors and the shape-to-connector fan-out.
type Registry interface {
	Connector(id string) (*domain.Connector, bool)
	ConnectorsAttachedTo(shapeID string) []string
}

// FlushReport summarizes one flush.
type FlushReport struct {
	// Recomputed lists connectors whose path was regenerated.
	Recomputed []string
	// Unroutable lists connectors left with their stale path because an end
	// could not be resolved.
	Unroutable []string
	// Failed maps connectors to the error that aborted their recompute.
	Failed map[string]error
	// Deferred lists connectors skipped because a drag owns their path. They
	// stay queued for the next flush.
	Deferred []string
}

// Empty reports whether the flush did nothing. Deferred connectors do not
// count.
func (r FlushReport) Empty() bool {
	return len(r.Recomputed) == 0 && len(r.Unroutable) == 0 && len(r.Failed) == 0
}

// Scheduler collects connector ids between flushes. It is safe for
// concurrent use; flushes are serialized.
type Scheduler struct {
	reg     Registry
	gen     Recomputer
	mu      sync.Mutex
	flushMu sync.Mutex
	pending *PendingSet
	seq     uint64 // flushes that found work; guarded by flushMu
	log     *slog.Logger
}

// New returns a scheduler recomputing connectors of reg through gen.
func New(reg Registry, gen Recomputer) *Scheduler {
	return &Scheduler{reg: reg, gen: gen, pending: NewPendingSet(), log: applog.WithComponent("scheduler")}
}

// Attach subscribes the scheduler to the document change feed.
func (s *Scheduler) Attach(d *domain.Document) {
	d.Subscribe(s.HandleEvent)
}

// Enqueue marks a connector for the next flush.
func (s *Scheduler) Enqueue(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.Add(id)
}

// Pending returns the number of queued connectors.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.Len()
}

// HandleEvent translates one change event into queued connector ids. Only
// geometry relevant changes queue work.
func (s *Scheduler) HandleEvent(ev domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch item := ev.Item.(type) {
	case domain.ConnectorItem:
		switch ev.Kind {
		case domain.ShapeAdded:
			s.pending.Add(ev.ID)
		case domain.ShapeUpdated:
			if ev.Has("mode") && item.Connector != nil {
				item.Connector.Flags.ModeUpdating = true
			}
			if ev.Has("source") || ev.Has("target") || ev.Has("mode") {
				s.pending.Add(ev.ID)
			}
		case domain.ShapeRemoved:
			s.pending.Remove(ev.ID)
		}
	case domain.ShapeItem:
		if ev.Kind == domain.ShapeUpdated && !ev.Has("xywh") && !ev.Has("rotate") && !ev.Has("connectable") {
			return
		}
		for _, id := range s.reg.ConnectorsAttachedTo(ev.ID) {
			s.pending.Add(id)
		}
	}
}

// Flush drains the pending set and recomputes each connector once.
// Connectors under an active drag are queued again untouched. When
// ctx ends mid-flush the remaining ids are queued again and ctx.Err() is
// returned with the partial report.
func (s *Scheduler) Flush(ctx context.Context) (FlushReport, error) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	ids := s.pending.Drain()
	s.mu.Unlock()

	var rep FlushReport
	if len(ids) == 0 {
		return rep, nil
	}
	s.seq++
	ctx = applog.ContextWithFlush(ctx, s.seq)
	start := time.Now()
	lg := applog.WithOperation(s.log, "flush")
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			s.mu.Lock()
			for _, rest := range ids[i:] {
				s.pending.Add(rest)
			}
			s.mu.Unlock()
			return rep, err
		}
		c, ok := s.reg.Connector(id)
		if !ok {
			continue
		}
		if c.Flags.LocalUpdating {
			s.Enqueue(id)
			rep.Deferred = append(rep.Deferred, id)
			continue
		}
		cctx := applog.ContextWithConnector(ctx, id)
		err := s.gen.RecomputeFromEnds(c)
		switch {
		case err == nil:
			rep.Recomputed = append(rep.Recomputed, id)
		case errors.Is(err, anchor.ErrUnresolvable):
			lg.DebugContext(cctx, "connector unroutable, keeping stale path")
			rep.Unroutable = append(rep.Unroutable, id)
		default:
			lg.ErrorContext(cctx, "recompute failed", "err", err)
			if rep.Failed == nil {
				rep.Failed = make(map[string]error)
			}
			rep.Failed[id] = err
		}
	}
	lg.DebugContext(ctx, "flushed", "recomputed", len(rep.Recomputed), "unroutable", len(rep.Unroutable),
		"failed", len(rep.Failed), "deferred", len(rep.Deferred), "duration", time.Since(start))
	return rep, nil
}

// Run flushes on every tick until ctx ends. Non-empty reports are passed
// to onReport when it is set.
func (s *Scheduler) Run(ctx context.Context, ticks <-chan time.Time, onReport func(FlushReport)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticks:
			rep, err := s.Flush(ctx)
			if err != nil {
				return err
			}
			if onReport != nil && !rep.Empty() {
				onReport(rep)
			}
		}
	}
}
