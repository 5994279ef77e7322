package prices

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"albiondata-api/internal/cache"
	"albiondata-api/internal/market"
	"albiondata-api/internal/metrics"
	"albiondata-api/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// GoldScale is the factor gold prices are stored with.
const GoldScale = 10000

// DefaultChartWindow is the chart range used when a request gives no dates.
const DefaultChartWindow = 30 * 24 * time.Hour

// RecordSource supplies raw market records.
type RecordSource interface {
	MatchItemIDs(ctx context.Context, pattern market.ItemPattern) ([]string, error)
	FindOrders(ctx context.Context, q market.OrderQuery) ([]market.OrderRecord, error)
	FindHistories(ctx context.Context, q market.HistoryQuery) ([]market.HistoryRecord, error)
	FindGoldPrices(ctx context.Context, since time.Time, count int) ([]models.GoldPrice, error)
}

type Options struct {
	MaxAge          time.Duration
	HistoryLookback time.Duration
	// DefaultLocations replaces the per-mode location defaults when set.
	DefaultLocations []market.Location
	CacheTTL         time.Duration
	// Now is the clock, time.Now when nil.
	Now func() time.Time
}

type Service struct {
	src   RecordSource
	cache cache.Cache
	opts  Options
	log   *logrus.Logger
}

func NewService(src RecordSource, c cache.Cache, opts Options, log *logrus.Logger) *Service {
	if c == nil {
		c = cache.Noop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{src: src, cache: c, opts: opts, log: log}
}

// PriceRequest carries the raw filters of a price lookup.
type PriceRequest struct {
	Items     string
	Locations string
	Qualities string
	Mode      market.Mode
}

// ChartRequest carries the raw filters of a chart or history lookup.
type ChartRequest struct {
	Items     string
	Locations string
	Qualities string
	Mode      market.Mode
	Scale     market.TimeScale
	// Zero values select the default window: Date is now minus 30 days and
	// EndDate is Date plus 30 days.
	Date    time.Time
	EndDate time.Time
}

// GoldPoint is a gold price in silver.
type GoldPoint struct {
	Price     uint64    `json:"price" xml:"Price"`
	Timestamp time.Time `json:"timestamp" xml:"Timestamp"`
}

// Prices returns the current price corridor for every requested item,
// location and quality, backfilled from recent history where no live order
// exists.
func (s *Service) Prices(ctx context.Context, req PriceRequest) ([]market.PriceSummary, error) {
	start := s.opts.Now()
	items, err := s.resolveItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []market.PriceSummary{}, nil
	}

	locations := market.ParseLocationList(req.Locations)
	var qualities []uint8
	if !req.Mode.CollapsesQuality() {
		qualities = market.ParseQualityList(req.Qualities)
	}
	queryLocations := locations
	if len(queryLocations) == 0 {
		queryLocations = s.defaultLocations(req.Mode)
	}

	key := cache.Key("prices", req.Mode.String(), strings.Join(items, ","), joinLocations(queryLocations), joinQualities(qualities))
	var cached []market.PriceSummary
	if s.lookup(ctx, key, &cached) {
		return cached, nil
	}

	now := s.opts.Now()
	var orders []market.OrderRecord
	var history []market.HistoryRecord
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = s.src.FindOrders(gctx, market.OrderQuery{
			ItemIDs:   items,
			Locations: queryLocations,
			Qualities: qualities,
			Since:     now.Add(-s.opts.MaxAge),
		})
		return err
	})
	g.Go(func() error {
		var err error
		history, err = s.src.FindHistories(gctx, market.HistoryQuery{
			ItemIDs:   items,
			Locations: queryLocations,
			Qualities: qualities,
			Bucket:    market.BucketQuarterDay,
			From:      now.Add(-s.opts.HistoryLookback),
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load price records: %w", err)
	}
	metrics.RecordRecordsRead("orders", len(orders))
	metrics.RecordRecordsRead("history", len(history))

	live, err := market.AggregateOrders(ctx, orders, req.Mode)
	if err != nil {
		return nil, err
	}
	out := market.FillGaps(live, market.GroupHistory(history, req.Mode), market.GapRequest{
		Items:     items,
		Locations: queryLocations,
		Qualities: qualities,
		Mode:      req.Mode,
	})

	s.store(ctx, key, out)
	metrics.RecordOperation("prices", req.Mode.String(), s.opts.Now().Sub(start))
	s.log.WithFields(logrus.Fields{
		"items":   len(items),
		"orders":  len(orders),
		"history": len(history),
		"results": len(out),
		"mode":    req.Mode.String(),
	}).Debug("prices computed")
	return out, nil
}

// Charts returns one series per location, item and quality.
func (s *Service) Charts(ctx context.Context, req ChartRequest) ([]market.Series, error) {
	start := s.opts.Now()
	if req.Mode.CollapsesQuality() {
		req.Qualities = ""
		req.Scale = market.ScaleQuarterDay
	}
	if req.Scale == 0 {
		req.Scale = market.ScaleQuarterDay
	}
	if _, err := market.ParseTimeScale(int(req.Scale)); err != nil {
		return nil, err
	}

	items, err := s.resolveItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []market.Series{}, nil
	}
	from, until := s.window(req.Date, req.EndDate)
	locations := market.ParseLocationList(req.Locations)
	qualities := market.ParseQualityList(req.Qualities)

	key := cache.Key("charts", req.Mode.String(), strconv.Itoa(int(req.Scale)), strings.Join(items, ","),
		joinLocations(locations), joinQualities(qualities), from.Format(time.RFC3339), until.Format(time.RFC3339))
	var cached []market.Series
	if s.lookup(ctx, key, &cached) {
		return cached, nil
	}

	records, err := s.src.FindHistories(ctx, market.HistoryQuery{
		ItemIDs:   items,
		Locations: locations,
		Qualities: qualities,
		Bucket:    req.Scale.Bucket(),
		From:      from,
		Until:     until,
	})
	if err != nil {
		return nil, fmt.Errorf("load chart records: %w", err)
	}
	metrics.RecordRecordsRead("history", len(records))

	out := market.BuildSeries(records, market.ChartOptions{Mode: req.Mode, Scale: req.Scale})
	s.store(ctx, key, out)
	metrics.RecordOperation("charts", req.Mode.String(), s.opts.Now().Sub(start))
	return out, nil
}

// History returns the same groups as Charts together with their flat entries.
func (s *Service) History(ctx context.Context, req ChartRequest) ([]market.Series, []market.HistoryEntry, error) {
	series, err := s.Charts(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	return series, market.FlattenSeries(series), nil
}

// GoldPrices returns gold prices recorded after date, in silver. A zero date
// selects the last 30 days.
func (s *Service) GoldPrices(ctx context.Context, date time.Time, count int) ([]GoldPoint, error) {
	if date.IsZero() {
		date = s.opts.Now().UTC().Add(-DefaultChartWindow)
	}
	rows, err := s.src.FindGoldPrices(ctx, date, count)
	if err != nil {
		return nil, fmt.Errorf("load gold prices: %w", err)
	}
	out := make([]GoldPoint, len(rows))
	for i, r := range rows {
		out[i] = GoldPoint{Price: r.Price / GoldScale, Timestamp: r.Timestamp.UTC()}
	}
	return out, nil
}

func (s *Service) resolveItems(ctx context.Context, list string) ([]string, error) {
	filter, err := market.ParseItemList(list)
	if err != nil {
		return nil, err
	}
	matches := make(map[string][]string, len(filter.Patterns))
	if len(filter.Patterns) > 0 {
		found := make([][]string, len(filter.Patterns))
		g, gctx := errgroup.WithContext(ctx)
		for i, p := range filter.Patterns {
			i, p := i, p
			g.Go(func() error {
				ids, err := s.src.MatchItemIDs(gctx, p)
				found[i] = ids
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("resolve item patterns: %w", err)
		}
		for i, p := range filter.Patterns {
			matches[p.Raw] = found[i]
		}
	}
	return market.ResolveItems(filter, matches)
}

func (s *Service) defaultLocations(mode market.Mode) []market.Location {
	if len(s.opts.DefaultLocations) > 0 {
		return s.opts.DefaultLocations
	}
	return mode.DefaultLocations()
}

func (s *Service) window(date, end time.Time) (time.Time, time.Time) {
	if date.IsZero() {
		date = s.opts.Now().UTC().Add(-DefaultChartWindow)
	}
	if end.IsZero() {
		end = date.Add(DefaultChartWindow)
	}
	return date, end
}

func (s *Service) lookup(ctx context.Context, key string, dst interface{}) bool {
	ok, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache read failed")
		return false
	}
	metrics.RecordCacheLookup(ok)
	return ok
}

func (s *Service) store(ctx context.Context, key string, value interface{}) {
	if s.opts.CacheTTL <= 0 {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.opts.CacheTTL); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}

// IsClientError reports whether err was caused by the request itself.
func IsClientError(err error) bool {
	return errors.Is(err, market.ErrInvalidItemFilter) || errors.Is(err, market.ErrInvalidTimeScale)
}

func joinLocations(locs []market.Location) string {
	parts := make([]string, len(locs))
	for i, l := range locs {
		parts[i] = strconv.Itoa(int(l))
	}
	return strings.Join(parts, ",")
}

func joinQualities(qs []uint8) string {
	parts := make([]string, len(qs))
	for i, q := range qs {
		parts[i] = strconv.Itoa(int(q))
	}
	return strings.Join(parts, ",")
}
