package market

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hh, mm, ss int) time.Time {
	return time.Date(2024, 3, 10, hh, mm, ss, 0, time.UTC)
}

func sellOrder(item string, loc Location, price uint64, ts time.Time) OrderRecord {
	return OrderRecord{ItemTypeID: item, Location: loc, QualityLevel: 1, AuctionType: AuctionSell, UnitPrice: price, UpdatedAt: ts}
}

func permutations(orders []OrderRecord) [][]OrderRecord {
	if len(orders) <= 1 {
		return [][]OrderRecord{append([]OrderRecord(nil), orders...)}
	}
	var out [][]OrderRecord
	for i := range orders {
		rest := make([]OrderRecord, 0, len(orders)-1)
		rest = append(rest, orders[:i]...)
		rest = append(rest, orders[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]OrderRecord{orders[i]}, p...))
		}
	}
	return out
}

func TestAggregateOrders_NewerMinuteReplacesOlderExtreme(t *testing.T) {
	orders := []OrderRecord{
		sellOrder("T4_BAG", Caerleon, 1000, at(12, 0, 30)),
		sellOrder("T4_BAG", Caerleon, 900, at(12, 0, 45)),
		sellOrder("T4_BAG", Caerleon, 1200, at(12, 5, 0)),
	}

	for _, perm := range permutations(orders) {
		got, err := AggregateOrders(context.Background(), perm, ModeCurrent)
		require.NoError(t, err)
		require.Len(t, got, 1)

		s := got[0]
		assert.Equal(t, PricePoint{Value: 1200, At: at(12, 5, 0)}, s.SellMax)
		assert.Equal(t, PricePoint{Value: 1200, At: at(12, 5, 0)}, s.SellMin)
		assert.Equal(t, PricePoint{}, s.BuyMin)
		assert.Equal(t, PricePoint{}, s.BuyMax)
	}
}

func TestAggregateOrders_RecencyBeatsExtremity(t *testing.T) {
	orders := []OrderRecord{
		sellOrder("T5_BAG", Martlock, 50, at(9, 0, 10)),   // older, more extreme low
		sellOrder("T5_BAG", Martlock, 9000, at(9, 0, 20)), // older, more extreme high
		sellOrder("T5_BAG", Martlock, 400, at(9, 1, 0)),
	}
	for _, perm := range permutations(orders) {
		got, err := AggregateOrders(context.Background(), perm, ModeCurrent)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, uint64(400), got[0].SellMin.Value)
		assert.Equal(t, uint64(400), got[0].SellMax.Value)
		assert.Equal(t, at(9, 1, 0), got[0].SellMin.At)
	}
}

func TestAggregateOrders_TieBreakWithinMinute(t *testing.T) {
	orders := []OrderRecord{
		{ItemTypeID: "T4_ORE", Location: Lymhurst, QualityLevel: 1, AuctionType: AuctionBuy, UnitPrice: 100, UpdatedAt: at(8, 30, 1)},
		{ItemTypeID: "T4_ORE", Location: Lymhurst, QualityLevel: 1, AuctionType: AuctionBuy, UnitPrice: 80, UpdatedAt: at(8, 30, 59)},
	}
	for _, perm := range permutations(orders) {
		got, err := AggregateOrders(context.Background(), perm, ModeCurrent)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, uint64(80), got[0].BuyMin.Value)
		assert.Equal(t, uint64(100), got[0].BuyMax.Value)
		assert.Equal(t, at(8, 30, 0), got[0].BuyMin.At)
		assert.Equal(t, PricePoint{}, got[0].SellMin)
	}
}

func TestAggregateOrders_SidesAreIndependent(t *testing.T) {
	orders := []OrderRecord{
		sellOrder("T4_BAG", Thetford, 700, at(10, 0, 0)),
		{ItemTypeID: "T4_BAG", Location: Thetford, QualityLevel: 1, AuctionType: AuctionBuy, UnitPrice: 500, UpdatedAt: at(11, 0, 0)},
	}
	got, err := AggregateOrders(context.Background(), orders, ModeCurrent)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, PricePoint{Value: 700, At: at(10, 0, 0)}, got[0].SellMin)
	assert.Equal(t, PricePoint{Value: 500, At: at(11, 0, 0)}, got[0].BuyMax)
}

func TestAggregateOrders_GroupsAndOrdering(t *testing.T) {
	orders := []OrderRecord{
		sellOrder("T4_BAG", Thetford, 1, at(1, 0, 0)),
		sellOrder("T4_BAG", BlackMarket, 2, at(1, 0, 0)),
		sellOrder("T3_BAG", Martlock, 3, at(1, 0, 0)),
		{ItemTypeID: "T4_BAG", Location: BlackMarket, QualityLevel: 3, AuctionType: AuctionSell, UnitPrice: 4, UpdatedAt: at(1, 0, 0)},
	}
	got, err := AggregateOrders(context.Background(), orders, ModeCurrent)
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, "T3_BAG", got[0].ItemTypeID)
	assert.Equal(t, BlackMarket, got[1].Location)
	assert.Equal(t, uint8(1), got[1].QualityLevel)
	assert.Equal(t, BlackMarket, got[2].Location)
	assert.Equal(t, uint8(3), got[2].QualityLevel)
	assert.Equal(t, Thetford, got[3].Location)
}

func TestAggregateOrders_LegacyCollapsesQuality(t *testing.T) {
	orders := []OrderRecord{
		{ItemTypeID: "T4_BAG", Location: Caerleon, QualityLevel: 1, AuctionType: AuctionSell, UnitPrice: 300, UpdatedAt: at(12, 0, 0)},
		{ItemTypeID: "T4_BAG", Location: Caerleon, QualityLevel: 4, AuctionType: AuctionSell, UnitPrice: 200, UpdatedAt: at(12, 0, 30)},
	}
	got, err := AggregateOrders(context.Background(), orders, ModeLegacy)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint8(0), got[0].QualityLevel)
	assert.Equal(t, uint64(200), got[0].SellMin.Value)
	assert.Equal(t, uint64(300), got[0].SellMax.Value)
}

func TestAggregateOrders_SkipsDeletedAndUnknownSide(t *testing.T) {
	deleted := at(12, 0, 0)
	orders := []OrderRecord{
		{ItemTypeID: "T4_BAG", Location: Caerleon, QualityLevel: 1, AuctionType: AuctionSell, UnitPrice: 1, UpdatedAt: at(13, 0, 0), DeletedAt: &deleted},
		{ItemTypeID: "T4_BAG", Location: Caerleon, QualityLevel: 1, UnitPrice: 2, UpdatedAt: at(13, 0, 0)},
	}
	got, err := AggregateOrders(context.Background(), orders, ModeCurrent)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAggregateOrders_Idempotent(t *testing.T) {
	orders := []OrderRecord{
		sellOrder("T4_BAG", Caerleon, 1000, at(12, 0, 30)),
		sellOrder("T4_BAG", Lymhurst, 900, at(12, 0, 45)),
		{ItemTypeID: "T6_BAG", Location: Caerleon, QualityLevel: 2, AuctionType: AuctionBuy, UnitPrice: 50, UpdatedAt: at(3, 3, 3)},
	}
	first, err := AggregateOrders(context.Background(), orders, ModeCurrent)
	require.NoError(t, err)
	second, err := AggregateOrders(context.Background(), orders, ModeCurrent)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAggregateOrders_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := AggregateOrders(ctx, []OrderRecord{sellOrder("T4_BAG", Caerleon, 1, at(1, 0, 0))}, ModeCurrent)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, got)
}
