// Package scheduler runs parent-report turns on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	robfigcron "github.com/robfig/cron/v3"

	"github.com/kidslingo/kidslingo/internal/config"
	"github.com/kidslingo/kidslingo/internal/schema"
	"github.com/kidslingo/kidslingo/internal/shared/llmutils"
	"github.com/kidslingo/kidslingo/internal/store"
)

// Report is the outcome of one scheduled report turn.
type Report struct {
	ChildID string
	Period  string
	Content string
	Err     error
	At      time.Time
}

// Sink receives every finished report.
type Sink func(ctx context.Context, r Report)

// Scheduler fires one report turn per configured child on each tick.
// Ticks never overlap: a tick that arrives while the previous one is still
// running is skipped.
type Scheduler struct {
	cfg    config.ReportsConfig
	runner schema.TurnRunner
	sink   Sink
	sched  robfigcron.Schedule
	cron   *robfigcron.Cron

	running sync.Mutex
}

// New parses the schedule. A nil sink only logs.
func New(cfg config.ReportsConfig, runner schema.TurnRunner, sink Sink) (*Scheduler, error) {
	parser := robfigcron.NewParser(
		robfigcron.Minute | robfigcron.Hour | robfigcron.Dom | robfigcron.Month | robfigcron.Dow | robfigcron.Descriptor,
	)
	sched, err := parser.Parse(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("parse report schedule %q: %w", cfg.Schedule, err)
	}
	if cfg.Period == "" {
		cfg.Period = "7d"
	}
	if sink == nil {
		sink = func(context.Context, Report) {}
	}
	return &Scheduler{
		cfg:    cfg,
		runner: runner,
		sink:   sink,
		sched:  sched,
		cron:   robfigcron.New(),
	}, nil
}

// Next returns the first tick after t.
func (s *Scheduler) Next(t time.Time) time.Time { return s.sched.Next(t) }

// Run schedules ticks until ctx is cancelled, then waits for a running tick.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Schedule(s.sched, robfigcron.FuncJob(func() { s.tick(ctx) }))
	s.cron.Start()
	slog.Info("Report scheduler started",
		"schedule", s.cfg.Schedule, "children", len(s.cfg.ChildIDs), "next", s.Next(time.Now()).Format(time.RFC3339))

	<-ctx.Done()
	<-s.cron.Stop().Done()
	slog.Info("Report scheduler stopped")
	return nil
}

func (s *Scheduler) tick(ctx context.Context) {
	if !s.running.TryLock() {
		slog.Warn("Report tick skipped, previous tick still running")
		return
	}
	defer s.running.Unlock()
	s.RunOnce(ctx)
}

// RunOnce produces a report for every configured child, in order.
func (s *Scheduler) RunOnce(ctx context.Context) []Report {
	reports := make([]Report, 0, len(s.cfg.ChildIDs))
	for _, childID := range s.cfg.ChildIDs {
		if ctx.Err() != nil {
			break
		}
		r := s.report(ctx, childID)
		s.sink(ctx, r)
		reports = append(reports, r)
	}
	return reports
}

func (s *Scheduler) report(ctx context.Context, childID string) Report {
	prompt := fmt.Sprintf(
		"I am the parent of child %s. Please call parent_report with period %s and summarise the learning progress for me in a few friendly sentences.",
		childID, s.cfg.Period,
	)
	content, err := s.runner.RunTurn(ctx, []schema.Message{schema.NewUserMessage(prompt)})
	r := Report{ChildID: childID, Period: s.cfg.Period, Content: content, Err: err, At: time.Now()}
	if err != nil {
		slog.Error("Parent report failed", "child", childID, "err", err)
	} else {
		slog.Info("Parent report", "child", childID, "content", llmutils.Truncate(content, 200))
	}
	return r
}

// StoreSink saves successful reports as documents.
func StoreSink(st store.Store) Sink {
	return func(ctx context.Context, r Report) {
		if r.Err != nil {
			return
		}
		doc := store.Document{
			ID:      fmt.Sprintf("report_%s_%s", r.ChildID, r.At.UTC().Format("20060102T150405")),
			Kind:    store.KindReport,
			ChildID: r.ChildID,
			Body:    map[string]any{"period": r.Period, "content": r.Content},
		}
		if err := st.Upsert(ctx, doc); err != nil {
			slog.Warn("Saving report failed", "child", r.ChildID, "err", err)
		}
	}
}
