package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/kpiboard/internal/adapters/crm"
	"github.com/okian/kpiboard/internal/domain/model"
	"github.com/okian/kpiboard/pkg/logger"
	"github.com/okian/kpiboard/pkg/metrics"
)

// RefreshReport summarizes one refresh from the CRM backend.
type RefreshReport struct {
	People     int       `json:"people"`
	Degraded   int       `json:"degraded"`
	Updated    int       `json:"updated"`
	Failed     int       `json:"failed"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
}

// Refresh pulls the sales roster, fetches every person's active pipelines
// in parallel and scores the result into the ranking store.
//
// A failed per-person fetch degrades that person to an all-zero record with
// no pipelines; only a failure to list the roster fails the refresh.
func (s *Service) Refresh(ctx context.Context) (RefreshReport, error) {
	store, err := s.running()
	if err != nil {
		return RefreshReport{}, err
	}
	if s.source == nil {
		return RefreshReport{}, ErrNoSource
	}
	if !s.refreshMu.TryLock() {
		return RefreshReport{}, ErrRefreshInProgress
	}
	defer s.refreshMu.Unlock()

	start := time.Now()
	report, err := s.refresh(ctx)
	report.StartedAt = start
	report.DurationMS = time.Since(start).Milliseconds()
	if err != nil {
		metrics.RecordRefresh("failed", time.Since(start).Seconds())
		s.logger.Error(ctx, "refresh failed", logger.Error(err))
		return report, err
	}
	metrics.RecordRefresh("ok", time.Since(start).Seconds())
	s.lastRefresh.Store(&report)

	if summary, err := s.teamSummary(ctx, store); err == nil {
		metrics.UpdateTeamSummary(summary.People, summary.AvgKPIScore, summary.RevenueProgress)
	}
	s.logger.Info(ctx, "refresh completed",
		logger.Int("people", report.People),
		logger.Int("degraded", report.Degraded),
		logger.Int("updated", report.Updated),
		logger.Int("failed", report.Failed),
		logger.Duration("took", time.Since(start)),
	)
	return report, nil
}

// LastRefresh returns the report of the last successful refresh, if any.
func (s *Service) LastRefresh() *RefreshReport {
	return s.lastRefresh.Load()
}

func (s *Service) refresh(ctx context.Context) (RefreshReport, error) {
	people, err := s.source.ListSalesPeople(ctx)
	if err != nil {
		metrics.RecordFetchFailure("list_users")
		if errors.Is(err, crm.ErrUnauthorized) && s.session != nil {
			s.session.SetToken("")
			s.logger.Warn(ctx, "CRM rejected the session token; session signed out")
		}
		return RefreshReport{}, fmt.Errorf("%w: %w", ErrListUsers, err)
	}

	profiles := s.fetchProfiles(ctx, people)
	if err := ctx.Err(); err != nil {
		return RefreshReport{People: len(people)}, fmt.Errorf("refresh cancelled: %w", err)
	}

	report := RefreshReport{People: len(profiles)}
	now := time.Now()
	for _, p := range profiles {
		if p.Degraded {
			report.Degraded++
		}
		snap := model.SnapshotFromProfile(uuid.NewString(), p, now)
		_, changed, err := s.processor.Process(ctx, snap)
		if err != nil {
			report.Failed++
			s.logger.Warn(ctx, "refresh could not store salesperson",
				logger.String("salesID", p.Person.ID), logger.Error(err))
			continue
		}
		if changed {
			report.Updated++
		}
	}
	return report, nil
}

// fetchProfiles fetches every person's pipelines, at most fetchConcurrency
// at a time. Results keep the roster order.
func (s *Service) fetchProfiles(ctx context.Context, people []model.SalesPerson) []model.Profile {
	profiles := make([]model.Profile, len(people))
	var g errgroup.Group
	g.SetLimit(s.fetchConcurrency)
	for i, person := range people {
		g.Go(func() error {
			pipelines, err := s.source.ActivePipelines(ctx, person.ID)
			if err != nil {
				metrics.RecordFetchFailure("pipelines")
				s.logger.Warn(ctx, "salesperson fetch failed; using zero metrics",
					logger.String("salesID", person.ID), logger.Error(err))
				profiles[i] = model.Profile{
					Person:   model.SalesPerson{ID: person.ID, Name: person.Name},
					Degraded: true,
				}
				return nil
			}
			profiles[i] = model.Profile{Person: person, Pipelines: pipelines}
			return nil
		})
	}
	_ = g.Wait()
	return profiles
}

func (s *Service) refreshLoop(ctx context.Context) {
	defer s.loopWG.Done()
	run := func() {
		if _, err := s.Refresh(ctx); err != nil && !errors.Is(err, ErrRefreshInProgress) {
			s.logger.Warn(ctx, "scheduled refresh failed", logger.Error(err))
		}
	}
	run()
	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}
