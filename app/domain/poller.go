// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

package domain

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/greenkube/greenkube-agent/app/config"
	"github.com/greenkube/greenkube-agent/app/types"
)

// Poller drives the processor on the configured interval. Each tick covers
// the window from the previous window's end to now, so consecutive runs tile
// the timeline without gaps regardless of how long a run takes.
type poller struct {
	ctx       context.Context
	cancel    context.CancelFunc
	settings  *config.Settings
	clock     types.TimeProvider
	processor *Processor
	sinks     []types.ReportSink
	running   bool
	done      chan struct{}
	mu        sync.Mutex
}

func NewPoller(ctx context.Context, settings *config.Settings, clock types.TimeProvider, processor *Processor, sinks ...types.ReportSink) types.Runnable {
	ctx, cancel := context.WithCancel(ctx)
	return &poller{
		ctx:       ctx,
		cancel:    cancel,
		settings:  settings,
		clock:     clock,
		processor: processor,
		sinks:     sinks,
		done:      make(chan struct{}),
	}
}

// Run implements types.Runnable.
func (p *poller) Run() error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	go func() {
		defer close(p.done)

		interval := p.settings.Processing.PollInterval
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		// each run starts where the previous window ended, not at a fresh
		// clock reading, so run duration never opens a gap between windows
		last := p.runOnce(p.clock.GetCurrentTime().Add(-interval))

		for {
			select {
			case <-p.ctx.Done():
				return
			case <-ticker.C:
				last = p.runOnce(last)
			}
		}
	}()
	return nil
}

// runOnce processes [since, now) and returns the window end for the next
// tick to start from.
func (p *poller) runOnce(since time.Time) time.Time {
	window := types.NewTimeWindow(since, p.clock.GetCurrentTime())

	result, err := p.processor.Run(p.ctx, window, p.settings.Processing.Namespace)
	if err != nil {
		if p.ctx.Err() != nil {
			return window.End
		}
		log.Ctx(p.ctx).Error().Err(err).
			Time("window_start", window.Start).
			Time("window_end", window.End).
			Msg("processing run aborted")
		return window.End
	}
	for _, runErr := range result.Errs {
		log.Ctx(p.ctx).Warn().Err(runErr).Msg("processing run degraded")
	}

	if len(p.sinks) == 0 {
		return window.End
	}
	report := types.NewReport(p.settings.ClusterName, window, result.Metrics, result.Recommendations)
	for _, sink := range p.sinks {
		if err := sink.Write(p.ctx, report); err != nil && p.ctx.Err() == nil {
			log.Ctx(p.ctx).Warn().Err(err).Msg("report export failed")
		}
	}
	return window.End
}

// Shutdown implements types.Runnable. It cancels the in-flight run and waits
// for the loop to exit.
func (p *poller) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cancel()
	if p.running {
		<-p.done
		p.running = false
	}
	return nil
}
