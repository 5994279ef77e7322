package models

import (
	"time"

	"albiondata-api/internal/market"

	"gorm.io/gorm"
)

// MarketOrder is one live order snapshot as written by the ingestion pipeline
type MarketOrder struct {
	ID               uint64         `json:"id" gorm:"primaryKey"`
	AlbionID         uint64         `json:"albion_id" gorm:"column:albion_id;uniqueIndex"`
	ItemTypeID       string         `json:"item_id" gorm:"column:item_id;size:128;index:idx_orders_item_location"`
	Location         uint16         `json:"location" gorm:"column:location;index:idx_orders_item_location"`
	QualityLevel     uint8          `json:"quality_level" gorm:"column:quality_level"`
	EnchantmentLevel uint8          `json:"enchantment_level" gorm:"column:enchantment_level"`
	UnitPriceSilver  uint64         `json:"price" gorm:"column:price"`
	Amount           uint32         `json:"amount" gorm:"column:amount"`
	InitialAmount    uint32         `json:"initial_amount" gorm:"column:initial_amount"`
	AuctionType      string         `json:"auction_type" gorm:"column:auction_type;size:16"` // offer, request
	Expires          time.Time      `json:"expires" gorm:"column:expires"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at" gorm:"index"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`
}

func (MarketOrder) TableName() string { return "market_orders" }

// ToRecord maps the row onto the aggregator input. Unknown auction types map
// to the zero value and are skipped by the aggregator.
func (o MarketOrder) ToRecord() market.OrderRecord {
	side, _ := market.ParseAuctionType(o.AuctionType)
	rec := market.OrderRecord{
		ItemTypeID:   o.ItemTypeID,
		Location:     market.Location(o.Location),
		QualityLevel: o.QualityLevel,
		AuctionType:  side,
		UnitPrice:    o.UnitPriceSilver,
		UpdatedAt:    o.UpdatedAt,
	}
	if o.DeletedAt.Valid {
		t := o.DeletedAt.Time
		rec.DeletedAt = &t
	}
	return rec
}

// MarketHistory is a pre-aggregated trade volume bucket
type MarketHistory struct {
	ID              uint64    `json:"id" gorm:"primaryKey"`
	ItemAmount      uint64    `json:"item_amount" gorm:"column:item_amount"`
	SilverAmount    uint64    `json:"silver_amount" gorm:"column:silver_amount"`
	ItemTypeID      string    `json:"item_id" gorm:"column:item_id;size:128;index:idx_history_lookup,priority:1"`
	Location        uint16    `json:"location" gorm:"column:location;index:idx_history_lookup,priority:2"`
	QualityLevel    uint8     `json:"quality_level" gorm:"column:quality_level"`
	Timestamp       time.Time `json:"timestamp" gorm:"column:timestamp;index:idx_history_lookup,priority:4"`
	AggregationType uint8     `json:"aggregation_type" gorm:"column:aggregation_type;index:idx_history_lookup,priority:3"` // 1 hourly, 6 quarter-day
}

func (MarketHistory) TableName() string { return "market_history" }

func (h MarketHistory) ToRecord() market.HistoryRecord {
	return market.HistoryRecord{
		ItemTypeID:   h.ItemTypeID,
		Location:     market.Location(h.Location),
		QualityLevel: h.QualityLevel,
		Bucket:       market.AggregationBucket(h.AggregationType),
		BucketStart:  h.Timestamp.UTC(),
		ItemAmount:   h.ItemAmount,
		SilverAmount: h.SilverAmount,
	}
}

// GoldPrice is the silver price of one gold, stored scaled by 10000
type GoldPrice struct {
	ID        uint64    `json:"id" gorm:"primaryKey"`
	Price     uint64    `json:"price" gorm:"column:price"`
	Timestamp time.Time `json:"timestamp" gorm:"column:timestamp;uniqueIndex"`
}

func (GoldPrice) TableName() string { return "gold_prices" }

// AllModels lists every table the API reads, in migration order.
func AllModels() []interface{} {
	return []interface{}{&MarketOrder{}, &MarketHistory{}, &GoldPrice{}}
}
