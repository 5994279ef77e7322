package market

import (
	"context"
	"sort"
	"time"
)

// cancelCheckEvery is how many orders are folded between context checks.
const cancelCheckEvery = 1024

type extremalKind uint8

const (
	kindMin extremalKind = iota
	kindMax
)

type groupKey struct {
	item     string
	location Location
	quality  uint8
}

type aggregateKey struct {
	groupKey
	auction AuctionType
	kind    extremalKind
}

// extremum is the running state of one aggregate: the latest minute bucket
// seen so far and the most extreme price inside that bucket.
type extremum struct {
	at    time.Time
	value uint64
}

func (e *extremum) observe(bucket time.Time, price uint64, kind extremalKind) {
	switch {
	case bucket.After(e.at):
		e.at, e.value = bucket, price
	case bucket.Equal(e.at):
		if (kind == kindMin && price < e.value) || (kind == kindMax && price > e.value) {
			e.value = price
		}
	}
}

func (e *extremum) point() PricePoint {
	if e == nil {
		return PricePoint{}
	}
	return PricePoint{Value: e.value, At: e.at}
}

// AggregateOrders folds live orders into one PriceSummary per item, location
// and quality. For each side the reported min and max come from the single
// most recently updated minute of that group: a newer minute replaces the
// state outright, extremity only decides within the same minute.
func AggregateOrders(ctx context.Context, orders []OrderRecord, mode Mode) ([]PriceSummary, error) {
	states := make(map[aggregateKey]*extremum)
	groups := make(map[groupKey]struct{})

	for i, o := range orders {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if o.DeletedAt != nil || (o.AuctionType != AuctionSell && o.AuctionType != AuctionBuy) {
			continue
		}

		g := groupKey{item: o.ItemTypeID, location: o.Location, quality: mode.quality(o.QualityLevel)}
		groups[g] = struct{}{}
		bucket := o.UpdatedAt.UTC().Truncate(time.Minute)
		for _, kind := range [...]extremalKind{kindMin, kindMax} {
			k := aggregateKey{groupKey: g, auction: o.AuctionType, kind: kind}
			st, ok := states[k]
			if !ok {
				st = &extremum{}
				states[k] = st
			}
			st.observe(bucket, o.UnitPrice, kind)
		}
	}

	out := make([]PriceSummary, 0, len(groups))
	for g := range groups {
		state := func(a AuctionType, kind extremalKind) PricePoint {
			return states[aggregateKey{groupKey: g, auction: a, kind: kind}].point()
		}
		out = append(out, PriceSummary{
			ItemTypeID:   g.item,
			Location:     g.location,
			QualityLevel: g.quality,
			SellMin:      state(AuctionSell, kindMin),
			SellMax:      state(AuctionSell, kindMax),
			BuyMin:       state(AuctionBuy, kindMin),
			BuyMax:       state(AuctionBuy, kindMax),
		})
	}
	sortSummaries(out)
	return out, nil
}

// sortSummaries orders by item id, location display name, then quality.
func sortSummaries(s []PriceSummary) {
	sort.Slice(s, func(i, j int) bool {
		a, b := s[i], s[j]
		if a.ItemTypeID != b.ItemTypeID {
			return a.ItemTypeID < b.ItemTypeID
		}
		if an, bn := a.Location.String(), b.Location.String(); an != bn {
			return an < bn
		}
		return a.QualityLevel < b.QualityLevel
	})
}
