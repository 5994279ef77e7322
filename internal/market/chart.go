package market

// ChartOptions controls series construction.
type ChartOptions struct {
	Mode  Mode
	Scale TimeScale
}

// BuildSeries turns history rows into one ordered series per location, item
// and quality. Rows sharing a timestamp are summed before averaging. The
// daily scale first rolls quarter-day rows up into calendar days.
func BuildSeries(records []HistoryRecord, opts ChartOptions) []Series {
	if opts.Mode.CollapsesQuality() {
		collapsed := make([]HistoryRecord, len(records))
		for i, r := range records {
			r.QualityLevel = 0
			collapsed[i] = r
		}
		records = collapsed
	}
	if opts.Scale == ScaleDaily {
		records = DailyRollup(records)
	}

	groups := GroupHistory(records, opts.Mode).Groups()
	out := make([]Series, 0, len(groups))
	for _, g := range groups {
		out = append(out, Series{
			Location:     g.Location,
			ItemTypeID:   g.ItemTypeID,
			QualityLevel: g.QualityLevel,
			Points:       g.Buckets(),
		})
	}
	return out
}

// FlattenSeries emits one entry per group and timestamp, keeping series order.
func FlattenSeries(series []Series) []HistoryEntry {
	n := 0
	for _, s := range series {
		n += len(s.Points)
	}
	out := make([]HistoryEntry, 0, n)
	for _, s := range series {
		for _, p := range s.Points {
			out = append(out, HistoryEntry{
				Location:     s.Location,
				ItemTypeID:   s.ItemTypeID,
				QualityLevel: s.QualityLevel,
				ChartPoint:   p,
			})
		}
	}
	return out
}
