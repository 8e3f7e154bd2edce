package event

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	zlog "github.com/rs/zerolog/log"
)

const (
	SortEventDate = "EVENT_DATE"
	SortViews     = "VIEWS"
)

type PublicFilter struct {
	Text          string
	Categories    []int64
	Paid          *bool
	RangeStart    *time.Time
	RangeEnd      *time.Time
	OnlyAvailable bool
	Sort          string
}

func (f *PublicFilter) Normalize() error {
	f.Text = strings.TrimSpace(f.Text)
	f.Sort = strings.ToUpper(strings.TrimSpace(f.Sort))
	if f.Sort == "" {
		f.Sort = SortEventDate
	}
	if f.Sort != SortEventDate && f.Sort != SortViews {
		return domain.ErrValidationMeta("invalid query param", map[string]string{
			"sort": "must be one of: EVENT_DATE, VIEWS",
		})
	}
	return checkRange(f.RangeStart, f.RangeEnd)
}

// Criteria only ever matches published events.
func (f PublicFilter) Criteria() domain.Criteria {
	return domain.NewCriteria().
		States(domain.StatePublished).
		Text(f.Text).
		Categories(f.Categories).
		Paid(f.Paid).
		DateFrom(f.RangeStart).
		DateTo(f.RangeEnd).
		OnlyAvailable(f.OnlyAvailable)
}

type AdminFilter struct {
	Users      []int64
	States     []domain.EventState
	Categories []int64
	RangeStart *time.Time
	RangeEnd   *time.Time
}

func (f AdminFilter) Normalize() error {
	for _, st := range f.States {
		if !st.Valid() {
			return domain.ErrValidationMeta("invalid query param", map[string]string{
				"states": "unknown state " + string(st),
			})
		}
	}
	return checkRange(f.RangeStart, f.RangeEnd)
}

// Criteria restricts to future events when no range is given.
func (f AdminFilter) Criteria(now time.Time) domain.Criteria {
	c := domain.NewCriteria().
		Initiators(f.Users).
		States(f.States...).
		Categories(f.Categories).
		DateFrom(f.RangeStart).
		DateTo(f.RangeEnd)
	if f.RangeStart == nil && f.RangeEnd == nil {
		c = c.DateAfter(now)
	}
	return c
}

func checkRange(start, end *time.Time) error {
	if start != nil && end != nil && start.After(*end) {
		return domain.ErrValidationMeta("invalid query param", map[string]string{
			"rangeStart": "must not be after rangeEnd",
		})
	}
	return nil
}

// SearchPublic lists published events ordered by event date. The first page is cached briefly.
func (s *Service) SearchPublic(ctx context.Context, f PublicFilter, p domain.Page) ([]*domain.Event, error) {
	if err := f.Normalize(); err != nil {
		return nil, err
	}
	p = p.Normalize()

	var items []*domain.Event
	cacheKey := ""
	cached := false

	if p.From == 0 && s.cache != nil {
		cacheKey = cacheKeyPublicList(f, p.Size)
		found, err := s.cache.Get(ctx, cacheKey, &items)
		if err != nil {
			zlog.Warn().Err(err).Str("key", cacheKey).Msg("cache list get failed")
		} else if found {
			cached = true
		}
	}

	if !cached {
		var err error
		items, err = s.repo.Find(ctx, f.Criteria(), p, domain.OrderEventDateAsc)
		if err != nil {
			return nil, err
		}
		if cacheKey != "" {
			if err := s.cache.Set(ctx, cacheKey, items, s.ttlList); err != nil {
				zlog.Warn().Err(err).Str("key", cacheKey).Msg("cache list set failed")
			}
		}
	}

	s.withViews(ctx, items...)
	if f.Sort == SortViews {
		sort.SliceStable(items, func(i, j int) bool { return items[i].Views > items[j].Views })
	}
	return items, nil
}

func (s *Service) SearchAdmin(ctx context.Context, f AdminFilter, p domain.Page) ([]*domain.Event, error) {
	if err := f.Normalize(); err != nil {
		return nil, err
	}
	items, err := s.repo.Find(ctx, f.Criteria(s.clock.Now().UTC()), p.Normalize(), domain.OrderNatural)
	if err != nil {
		return nil, err
	}
	s.withViews(ctx, items...)
	return items, nil
}
