package database

import (
	"context"
	"fmt"
	"sort"
	"time"

	"albiondata-api/internal/market"
	"albiondata-api/internal/models"

	"gorm.io/gorm"
)

// Store reads market records through gorm.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// MatchItemIDs returns the distinct item ids in orders or history that
// match the wildcard pattern. MySQL treats backslash as the LIKE escape
// character, which is what LikeExpr emits.
func (s *Store) MatchItemIDs(ctx context.Context, pattern market.ItemPattern) ([]string, error) {
	like := pattern.LikeExpr()
	seen := make(map[string]struct{})
	for _, model := range []interface{}{&models.MarketOrder{}, &models.MarketHistory{}} {
		var ids []string
		err := s.db.WithContext(ctx).Model(model).
			Distinct("item_id").
			Where("item_id LIKE ?", like).
			Pluck("item_id", &ids).Error
		if err != nil {
			return nil, fmt.Errorf("match item ids %q: %w", pattern.Raw, err)
		}
		for _, id := range ids {
			seen[id] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// FindOrders returns live, non-deleted orders updated after q.Since.
func (s *Store) FindOrders(ctx context.Context, q market.OrderQuery) ([]market.OrderRecord, error) {
	if len(q.ItemIDs) == 0 {
		return nil, nil
	}
	tx := s.db.WithContext(ctx).
		Where("item_id IN ?", q.ItemIDs).
		Where("updated_at > ?", q.Since)
	if len(q.Locations) > 0 {
		tx = tx.Where("location IN ?", locationArgs(q.Locations))
	}
	if len(q.Qualities) > 0 {
		tx = tx.Where("quality_level IN ?", qualityArgs(q.Qualities))
	}

	var rows []models.MarketOrder
	if err := tx.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	out := make([]market.OrderRecord, len(rows))
	for i, r := range rows {
		out[i] = r.ToRecord()
	}
	return out, nil
}

// FindHistories returns history buckets of one aggregation width inside
// [From, Until]. A zero Until leaves the window open ended.
func (s *Store) FindHistories(ctx context.Context, q market.HistoryQuery) ([]market.HistoryRecord, error) {
	if len(q.ItemIDs) == 0 {
		return nil, nil
	}
	tx := s.db.WithContext(ctx).
		Where("item_id IN ?", q.ItemIDs).
		Where("aggregation_type = ?", uint8(q.Bucket)).
		Where("timestamp >= ?", q.From)
	if !q.Until.IsZero() {
		tx = tx.Where("timestamp <= ?", q.Until)
	}
	if len(q.Locations) > 0 {
		tx = tx.Where("location IN ?", locationArgs(q.Locations))
	}
	if len(q.Qualities) > 0 {
		tx = tx.Where("quality_level IN ?", qualityArgs(q.Qualities))
	}

	var rows []models.MarketHistory
	if err := tx.Order("timestamp ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find histories: %w", err)
	}
	out := make([]market.HistoryRecord, len(rows))
	for i, r := range rows {
		out[i] = r.ToRecord()
	}
	return out, nil
}

// FindGoldPrices returns prices recorded after since. With count > 0 only
// the newest count rows are returned, newest first; otherwise all rows
// oldest first.
func (s *Store) FindGoldPrices(ctx context.Context, since time.Time, count int) ([]models.GoldPrice, error) {
	tx := s.db.WithContext(ctx).Where("timestamp > ?", since)
	if count > 0 {
		tx = tx.Order("timestamp DESC").Limit(count)
	} else {
		tx = tx.Order("timestamp ASC")
	}
	var rows []models.GoldPrice
	if err := tx.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find gold prices: %w", err)
	}
	return rows, nil
}

// Ping checks the connection for health probes.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// []uint8 would bind as a single blob, so filters are widened to int.
func qualityArgs(qs []uint8) []int {
	out := make([]int, len(qs))
	for i, q := range qs {
		out[i] = int(q)
	}
	return out
}

func locationArgs(locs []market.Location) []int {
	out := make([]int, len(locs))
	for i, l := range locs {
		out[i] = int(l)
	}
	return out
}
