package market

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrInvalidItemFilter is returned when an item list contains a malformed
	// wildcard pattern or a pattern that matches no known item.
	ErrInvalidItemFilter = errors.New("invalid item filter")
	// ErrInvalidTimeScale is returned for chart scales other than 1, 6 and 24.
	ErrInvalidTimeScale = errors.New("invalid time scale")
)

// Mode selects the response shape version.
type Mode uint8

const (
	// ModeLegacy is the v1 shape: quality collapsed to 0, fixed defaults.
	ModeLegacy Mode = iota + 1
	// ModeCurrent is the v2 shape: quality aware, adaptive defaults.
	ModeCurrent
)

func (m Mode) String() string {
	switch m {
	case ModeLegacy:
		return "legacy"
	case ModeCurrent:
		return "current"
	}
	return "unknown"
}

// CollapsesQuality reports whether quality levels are folded into 0.
func (m Mode) CollapsesQuality() bool { return m == ModeLegacy }

// DefaultLocations returns the location set used when a request names none.
func (m Mode) DefaultLocations() []Location {
	if m == ModeLegacy {
		return AllLocations()
	}
	return PrimaryLocations()
}

func (m Mode) quality(q uint8) uint8 {
	if m.CollapsesQuality() {
		return 0
	}
	return q
}

// AuctionType is the side of an order.
type AuctionType uint8

const (
	AuctionSell AuctionType = iota + 1
	AuctionBuy
)

func (a AuctionType) String() string {
	switch a {
	case AuctionSell:
		return "sell"
	case AuctionBuy:
		return "buy"
	}
	return "unknown"
}

// ParseAuctionType accepts both the public names and the storage names
// ("offer" for sell orders, "request" for buy orders).
func ParseAuctionType(s string) (AuctionType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sell", "offer":
		return AuctionSell, true
	case "buy", "request":
		return AuctionBuy, true
	}
	return 0, false
}

// AggregationBucket is the width of a pre-aggregated history row.
type AggregationBucket uint8

const (
	BucketHourly     AggregationBucket = 1
	BucketQuarterDay AggregationBucket = 6
)

func (b AggregationBucket) String() string {
	switch b {
	case BucketHourly:
		return "hourly"
	case BucketQuarterDay:
		return "quarter-day"
	}
	return "unknown"
}

// TimeScale is the chart granularity requested by a client, in hours.
type TimeScale uint8

const (
	ScaleHourly     TimeScale = 1
	ScaleQuarterDay TimeScale = 6
	ScaleDaily      TimeScale = 24
)

// ParseTimeScale validates a raw time-scale value.
func ParseTimeScale(v int) (TimeScale, error) {
	switch v {
	case int(ScaleHourly), int(ScaleQuarterDay), int(ScaleDaily):
		return TimeScale(v), nil
	}
	return 0, ErrInvalidTimeScale
}

// Bucket returns the stored aggregation bucket a scale reads from.
func (s TimeScale) Bucket() AggregationBucket {
	if s == ScaleHourly {
		return BucketHourly
	}
	return BucketQuarterDay
}

// OrderRecord is one live order snapshot row.
type OrderRecord struct {
	ItemTypeID   string
	Location     Location
	QualityLevel uint8
	AuctionType  AuctionType
	UnitPrice    uint64
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// HistoryRecord is one pre-aggregated history bucket.
type HistoryRecord struct {
	ItemTypeID   string
	Location     Location
	QualityLevel uint8
	Bucket       AggregationBucket
	BucketStart  time.Time
	ItemAmount   uint64
	SilverAmount uint64
}

// PricePoint is a price together with the minute bucket it was observed in.
type PricePoint struct {
	Value uint64
	At    time.Time
}

// PriceSummary is the current price corridor of one item at one location and quality.
type PriceSummary struct {
	ItemTypeID   string
	Location     Location
	QualityLevel uint8
	SellMin      PricePoint
	SellMax      PricePoint
	BuyMin       PricePoint
	BuyMax       PricePoint
}

// ChartPoint is one timestamp of a chart series.
type ChartPoint struct {
	Timestamp    time.Time
	ItemCount    uint64
	AveragePrice uint64
}

// Series is the chart of one (location, item, quality) group.
type Series struct {
	Location     Location
	ItemTypeID   string
	QualityLevel uint8
	Points       []ChartPoint
}

// HistoryEntry is the flat form of a chart point, carrying its group key.
type HistoryEntry struct {
	Location     Location
	ItemTypeID   string
	QualityLevel uint8
	ChartPoint
}

// OrderQuery describes the live orders a record source must return. Soft
// deleted orders and orders updated before Since are excluded by the source.
type OrderQuery struct {
	ItemIDs   []string
	Locations []Location
	Qualities []uint8
	Since     time.Time
}

// HistoryQuery describes the history rows a record source must return.
// A zero Until means no upper bound.
type HistoryQuery struct {
	ItemIDs   []string
	Locations []Location
	Qualities []uint8
	Bucket    AggregationBucket
	From      time.Time
	Until     time.Time
}
