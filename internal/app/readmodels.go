package service

import (
	"context"

	"github.com/okian/kpiboard/internal/adapters/repository"
	"github.com/okian/kpiboard/internal/domain/kpi"
	"github.com/okian/kpiboard/internal/domain/types"
)

func toEntry(e repository.Entry) types.Entry { //nolint:gocritic // hugeParam
	return types.Entry{
		Rank:           e.Rank,
		SalesID:        e.SalesID,
		Name:           e.Name,
		CompositeScore: e.Result.Composite,
		Level:          e.Result.Level,
	}
}

// TopN returns the top N leaderboard entries.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	store, err := s.running()
	if err != nil {
		return nil, err
	}
	entries, err := store.TopN(ctx, n)
	if err != nil {
		return nil, err
	}
	out := make([]types.Entry, len(entries))
	for i, e := range entries {
		out[i] = toEntry(e)
	}
	return out, nil
}

// Rank returns the badge entry for one salesperson.
func (s *Service) Rank(ctx context.Context, salesID string) (types.Entry, error) {
	store, err := s.running()
	if err != nil {
		return types.Entry{}, err
	}
	e, err := store.Rank(ctx, salesID)
	if err != nil {
		return types.Entry{}, err
	}
	return toEntry(e), nil
}

// Heatmap returns every salesperson's sub-scores in rank order.
func (s *Service) Heatmap(ctx context.Context) (types.Heatmap, error) {
	store, err := s.running()
	if err != nil {
		return types.Heatmap{}, err
	}
	entries, err := store.All(ctx)
	if err != nil {
		return types.Heatmap{}, err
	}
	hm := types.NewHeatmap(len(entries))
	for _, e := range entries {
		hm.Series = append(hm.Series, types.HeatmapSeries{
			SalesID: e.SalesID,
			Name:    e.Name,
			Data:    e.Result.Vector.Slice(),
		})
	}
	return hm, nil
}

// TeamSummary returns the team rollup with formatted money amounts.
func (s *Service) TeamSummary(ctx context.Context) (types.TeamSummary, error) {
	store, err := s.running()
	if err != nil {
		return types.TeamSummary{}, err
	}
	return s.teamSummary(ctx, store)
}

func (s *Service) teamSummary(ctx context.Context, store repository.Store) (types.TeamSummary, error) {
	entries, err := store.All(ctx)
	if err != nil {
		return types.TeamSummary{}, err
	}
	members := make([]kpi.Member, len(entries))
	for i, e := range entries {
		members[i] = kpi.Member{Metrics: e.Metrics, Vector: e.Result.Vector, Stages: e.Stages}
	}
	sum := kpi.Rollup(members)

	symbol, locale := s.currencySymbol, s.locale
	if s.session != nil {
		st := s.session.Settings()
		if st.Currency != "" {
			symbol = st.Currency
		}
		if st.Locale != "" {
			locale = st.Locale
		}
	}
	tag := kpi.ParseLocale(locale)
	return types.TeamSummary{
		Summary:             sum,
		TotalRevenueDisplay: kpi.FormatCurrency(sum.TotalRevenue, symbol, tag),
		TotalTargetDisplay:  kpi.FormatCurrency(sum.TotalTarget, symbol, tag),
	}, nil
}

// LeaderboardLimit returns the session's preferred leaderboard size, or
// fallback when none is set.
func (s *Service) LeaderboardLimit(fallback int) int {
	if s.session != nil {
		if n := s.session.Settings().LeaderboardLimit; n > 0 {
			return n
		}
	}
	return fallback
}

// DedupeSize returns the number of tracked snapshot ids.
func (s *Service) DedupeSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}
