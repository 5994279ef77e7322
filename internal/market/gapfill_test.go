package market

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyOf(s PriceSummary) string {
	return fmt.Sprintf("%s/%d/%d", s.ItemTypeID, s.Location, s.QualityLevel)
}

func TestFillGaps_Completeness(t *testing.T) {
	live, err := AggregateOrders(context.Background(), []OrderRecord{
		sellOrder("T4_BAG", Caerleon, 1000, at(12, 0, 0)),
	}, ModeCurrent)
	require.NoError(t, err)

	req := GapRequest{
		Items:     []string{"T4_BAG", "T5_BAG", "T6_BAG"},
		Locations: []Location{Caerleon, Martlock},
		Qualities: []uint8{1, 2},
		Mode:      ModeCurrent,
	}
	got := FillGaps(live, GroupHistory(nil, ModeCurrent), req)
	require.Len(t, got, 3*2*2)

	seen := map[string]bool{}
	for _, s := range got {
		assert.False(t, seen[keyOf(s)], "duplicate %s", keyOf(s))
		seen[keyOf(s)] = true
	}
	assert.Equal(t, uint64(1000), got[0].SellMin.Value, "live entry kept")
	assert.Equal(t, Caerleon, got[0].Location)
}

func TestFillGaps_HistoryFallback(t *testing.T) {
	history := GroupHistory([]HistoryRecord{
		hist("T4_BAG", Martlock, 1, day(1, 0), 2, 300),
		hist("T4_BAG", Martlock, 1, day(1, 12), 1, 0),
		hist("T4_BAG", Lymhurst, 1, day(1, 6), 0, 0),
	}, ModeCurrent)

	got := FillGaps(nil, history, GapRequest{
		Items:     []string{"T4_BAG"},
		Locations: []Location{Martlock, Lymhurst, Caerleon},
		Mode:      ModeCurrent,
	})
	require.Len(t, got, 3)

	// ordered by display name: Caerleon, Lymhurst, Martlock
	assert.Equal(t, PriceSummary{ItemTypeID: "T4_BAG", Location: Caerleon, QualityLevel: 1}, got[0])

	assert.Equal(t, Lymhurst, got[1].Location)
	assert.Equal(t, uint64(0), got[1].SellMin.Value)
	assert.Equal(t, day(1, 6), got[1].SellMin.At)

	martlock := got[2]
	want := PricePoint{Value: 100, At: day(1, 6)}
	assert.Equal(t, want, martlock.SellMin)
	assert.Equal(t, want, martlock.SellMax)
	assert.Equal(t, PricePoint{}, martlock.BuyMin)
	assert.Equal(t, PricePoint{}, martlock.BuyMax)
}

func TestFillGaps_AdaptiveQualities(t *testing.T) {
	live, err := AggregateOrders(context.Background(), []OrderRecord{
		{ItemTypeID: "T4_BAG", Location: Caerleon, QualityLevel: 3, AuctionType: AuctionSell, UnitPrice: 500, UpdatedAt: at(12, 0, 0)},
	}, ModeCurrent)
	require.NoError(t, err)

	got := FillGaps(live, GroupHistory(nil, ModeCurrent), GapRequest{Items: []string{"T4_BAG"}, Mode: ModeCurrent})
	require.Len(t, got, len(PrimaryLocations())*5)

	perLocation := map[Location][]uint8{}
	for _, s := range got {
		perLocation[s.Location] = append(perLocation[s.Location], s.QualityLevel)
	}
	for _, loc := range PrimaryLocations() {
		assert.Equal(t, []uint8{1, 2, 3, 4, 5}, perLocation[loc], loc.String())
	}
}

func TestFillGaps_NormalOnlyDefaultsToNormal(t *testing.T) {
	live, err := AggregateOrders(context.Background(), []OrderRecord{
		sellOrder("T4_BAG", Caerleon, 500, at(12, 0, 0)),
	}, ModeCurrent)
	require.NoError(t, err)

	got := FillGaps(live, GroupHistory(nil, ModeCurrent), GapRequest{Items: []string{"T4_BAG"}, Mode: ModeCurrent})
	require.Len(t, got, len(PrimaryLocations()))
	for _, s := range got {
		assert.Equal(t, NormalQuality, s.QualityLevel)
	}
}

func TestFillGaps_HistoryQualityWidensDefaults(t *testing.T) {
	history := GroupHistory([]HistoryRecord{hist("T4_BAG", Caerleon, 2, day(1, 6), 1, 10)}, ModeCurrent)
	assert.Equal(t, AllQualities(), DefaultQualities(ModeCurrent, nil, history))
	assert.Equal(t, []uint8{NormalQuality}, DefaultQualities(ModeLegacy, nil, history))
	assert.Equal(t, []uint8{NormalQuality}, DefaultQualities(ModeCurrent, nil, GroupHistory(nil, ModeCurrent)))
}

func TestFillGaps_ConfiguredDefaultLocations(t *testing.T) {
	got := FillGaps(nil, GroupHistory(nil, ModeCurrent), GapRequest{
		Items:            []string{"T4_BAG"},
		DefaultLocations: []Location{Brecilien},
		Mode:             ModeCurrent,
	})
	require.Len(t, got, 1)
	assert.Equal(t, Brecilien, got[0].Location)
}

func TestFillGaps_LegacyCoversEveryKnownLocationOnce(t *testing.T) {
	live, err := AggregateOrders(context.Background(), []OrderRecord{
		{ItemTypeID: "T4_BAG", Location: Caerleon, QualityLevel: 2, AuctionType: AuctionSell, UnitPrice: 500, UpdatedAt: at(12, 0, 0)},
	}, ModeLegacy)
	require.NoError(t, err)

	got := FillGaps(live, GroupHistory(nil, ModeLegacy), GapRequest{Items: []string{"T4_BAG"}, Mode: ModeLegacy})
	require.Len(t, got, len(AllLocations()))
	for _, s := range got {
		assert.Equal(t, uint8(0), s.QualityLevel)
		if s.Location == Caerleon {
			assert.Equal(t, uint64(500), s.SellMin.Value)
		}
	}
}
