package market

// NormalQuality is the quality level of an unqualified item.
const NormalQuality uint8 = 1

// AllQualities lists every quality level.
func AllQualities() []uint8 { return []uint8{1, 2, 3, 4, 5} }

// GapRequest names the combinations a price response must cover.
type GapRequest struct {
	Items     []string
	Locations []Location
	Qualities []uint8
	// DefaultLocations is used when Locations is empty.
	DefaultLocations []Location
	Mode             Mode
}

// DefaultQualities picks the quality set for a request that named none.
// Legacy responses always use normal quality. Current responses widen to all
// five levels as soon as any result carries a non-normal quality.
func DefaultQualities(mode Mode, live []PriceSummary, history HistoryIndex) []uint8 {
	if mode == ModeLegacy {
		return []uint8{NormalQuality}
	}
	for _, s := range live {
		if s.QualityLevel > NormalQuality {
			return AllQualities()
		}
	}
	if history.hasQualityAbove(NormalQuality) {
		return AllQualities()
	}
	return []uint8{NormalQuality}
}

// FillGaps returns live summaries plus one synthesized summary for every
// requested item, location and quality that live data does not cover.
// Synthesized entries take the history average as sell min and max; without
// history they stay at their zero value.
func FillGaps(live []PriceSummary, history HistoryIndex, req GapRequest) []PriceSummary {
	locs := req.Locations
	if len(locs) == 0 {
		locs = req.DefaultLocations
	}
	if len(locs) == 0 {
		locs = req.Mode.DefaultLocations()
	}
	quals := req.Qualities
	if len(quals) == 0 {
		quals = DefaultQualities(req.Mode, live, history)
	}
	if req.Mode.CollapsesQuality() {
		quals = []uint8{0}
	}

	covered := make(map[groupKey]struct{}, len(live))
	out := make([]PriceSummary, 0, len(req.Items)*len(locs)*len(quals))
	for _, s := range live {
		k := groupKey{item: s.ItemTypeID, location: s.Location, quality: s.QualityLevel}
		if _, dup := covered[k]; dup {
			continue
		}
		covered[k] = struct{}{}
		out = append(out, s)
	}

	for _, item := range req.Items {
		for _, loc := range locs {
			for _, q := range quals {
				k := groupKey{item: item, location: loc, quality: q}
				if _, ok := covered[k]; ok {
					continue
				}
				covered[k] = struct{}{}
				s := PriceSummary{ItemTypeID: item, Location: loc, QualityLevel: q}
				if g, ok := history.Lookup(item, loc, q); ok {
					p := PricePoint{Value: g.AveragePrice(), At: g.AverageTimestamp()}
					s.SellMin, s.SellMax = p, p
				}
				out = append(out, s)
			}
		}
	}
	sortSummaries(out)
	return out
}
