package event

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	zlog "github.com/rs/zerolog/log"
)

// viewsLookbackYears bounds the stats window used for view counts.
const viewsLookbackYears = 3

// withViews fills Views from the stats collector. A stats failure leaves every count at 0.
func (s *Service) withViews(ctx context.Context, events ...*domain.Event) {
	if len(events) == 0 {
		return
	}
	for _, e := range events {
		e.Views = 0
	}
	if s.stats == nil {
		return
	}

	uris := make([]string, 0, len(events))
	for _, e := range events {
		uris = append(uris, e.URI())
	}

	now := s.clock.Now().UTC()
	hits, err := s.stats.QueryHits(ctx, now.AddDate(-viewsLookbackYears, 0, 0), now, uris, true)
	if err != nil {
		zlog.Warn().Err(err).Int("uris", len(uris)).Msg("view stats unavailable")
		return
	}
	for _, e := range events {
		e.Views = hits[e.URI()]
	}
}
