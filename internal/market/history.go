package market

import (
	"sort"
	"time"
)

// AveragePrice is the truncating average unit price, 0 when nothing traded.
func AveragePrice(silverAmount, itemAmount uint64) uint64 {
	if itemAmount == 0 {
		return 0
	}
	return silverAmount / itemAmount
}

// HistoryGroup holds the history rows of one item, location and quality.
type HistoryGroup struct {
	ItemTypeID   string
	Location     Location
	QualityLevel uint8
	Rows         []HistoryRecord
}

// Totals sums item and silver amounts over every row.
func (g HistoryGroup) Totals() (items, silver uint64) {
	for _, r := range g.Rows {
		items += r.ItemAmount
		silver += r.SilverAmount
	}
	return items, silver
}

// AveragePrice is the average unit price across all rows of the group.
func (g HistoryGroup) AveragePrice() uint64 {
	items, silver := g.Totals()
	return AveragePrice(silver, items)
}

// AverageTimestamp is the mean bucket start of the group. Seconds are summed
// instead of nanoseconds so large groups cannot overflow.
func (g HistoryGroup) AverageTimestamp() time.Time {
	if len(g.Rows) == 0 {
		return time.Time{}
	}
	var sum int64
	for _, r := range g.Rows {
		sum += r.BucketStart.Unix()
	}
	return time.Unix(sum/int64(len(g.Rows)), 0).UTC()
}

// Buckets sums rows sharing a bucket start and returns one chart point per
// timestamp, ascending.
func (g HistoryGroup) Buckets() []ChartPoint {
	type totals struct{ items, silver uint64 }
	byStart := make(map[int64]*totals)
	starts := make([]time.Time, 0)
	for _, r := range g.Rows {
		k := r.BucketStart.UnixNano()
		t, ok := byStart[k]
		if !ok {
			t = &totals{}
			byStart[k] = t
			starts = append(starts, r.BucketStart.UTC())
		}
		t.items += r.ItemAmount
		t.silver += r.SilverAmount
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	points := make([]ChartPoint, 0, len(starts))
	for _, ts := range starts {
		t := byStart[ts.UnixNano()]
		points = append(points, ChartPoint{
			Timestamp:    ts,
			ItemCount:    t.items,
			AveragePrice: AveragePrice(t.silver, t.items),
		})
	}
	return points
}

// HistoryIndex groups history rows by item, location and quality.
type HistoryIndex struct {
	groups map[groupKey]*HistoryGroup
}

// GroupHistory indexes rows by item, location and quality. Legacy mode folds
// every quality into 0.
func GroupHistory(records []HistoryRecord, mode Mode) HistoryIndex {
	idx := HistoryIndex{groups: make(map[groupKey]*HistoryGroup)}
	for _, r := range records {
		r.QualityLevel = mode.quality(r.QualityLevel)
		k := groupKey{item: r.ItemTypeID, location: r.Location, quality: r.QualityLevel}
		g, ok := idx.groups[k]
		if !ok {
			g = &HistoryGroup{ItemTypeID: r.ItemTypeID, Location: r.Location, QualityLevel: r.QualityLevel}
			idx.groups[k] = g
		}
		g.Rows = append(g.Rows, r)
	}
	return idx
}

// Lookup returns the group for an exact key.
func (idx HistoryIndex) Lookup(item string, location Location, quality uint8) (HistoryGroup, bool) {
	g, ok := idx.groups[groupKey{item: item, location: location, quality: quality}]
	if !ok {
		return HistoryGroup{}, false
	}
	return *g, true
}

// Len is the number of groups.
func (idx HistoryIndex) Len() int { return len(idx.groups) }

// Groups returns every group ordered by location display name, item id and quality.
func (idx HistoryIndex) Groups() []HistoryGroup {
	out := make([]HistoryGroup, 0, len(idx.groups))
	for _, g := range idx.groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if an, bn := a.Location.String(), b.Location.String(); an != bn {
			return an < bn
		}
		if a.ItemTypeID != b.ItemTypeID {
			return a.ItemTypeID < b.ItemTypeID
		}
		return a.QualityLevel < b.QualityLevel
	})
	return out
}

func (idx HistoryIndex) hasQualityAbove(q uint8) bool {
	for k := range idx.groups {
		if k.quality > q {
			return true
		}
	}
	return false
}

// DailyRollup re-keys quarter-day rows by calendar day and sums them. A
// bucket stamped exactly at midnight closes the previous day, so one minute
// is subtracted before taking the date.
func DailyRollup(records []HistoryRecord) []HistoryRecord {
	type dayKey struct {
		groupKey
		day time.Time
	}
	byDay := make(map[dayKey]*HistoryRecord)
	order := make([]dayKey, 0)
	for _, r := range records {
		shifted := r.BucketStart.UTC().Add(-time.Minute)
		day := time.Date(shifted.Year(), shifted.Month(), shifted.Day(), 0, 0, 0, 0, time.UTC)
		k := dayKey{groupKey: groupKey{item: r.ItemTypeID, location: r.Location, quality: r.QualityLevel}, day: day}
		acc, ok := byDay[k]
		if !ok {
			acc = &HistoryRecord{
				ItemTypeID:   r.ItemTypeID,
				Location:     r.Location,
				QualityLevel: r.QualityLevel,
				Bucket:       r.Bucket,
				BucketStart:  day,
			}
			byDay[k] = acc
			order = append(order, k)
		}
		acc.ItemAmount += r.ItemAmount
		acc.SilverAmount += r.SilverAmount
	}

	out := make([]HistoryRecord, 0, len(order))
	for _, k := range order {
		out = append(out, *byDay[k])
	}
	return out
}
