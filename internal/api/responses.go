package api

import (
	"encoding/xml"
	"time"

	"albiondata-api/internal/market"
	"albiondata-api/internal/services/prices"
)

// timestampLayout matches the zone-less UTC timestamps existing clients parse.
const timestampLayout = "2006-01-02T15:04:05"

// Timestamp renders a UTC time without zone suffix. The zero value renders
// as 0001-01-01T00:00:00.
type Timestamp time.Time

func (t Timestamp) MarshalText() ([]byte, error) {
	return []byte(time.Time(t).UTC().Format(timestampLayout)), nil
}

func (t *Timestamp) UnmarshalText(b []byte) error {
	v, err := time.ParseInLocation(timestampLayout, string(b), time.UTC)
	if err != nil {
		return err
	}
	*t = Timestamp(v)
	return nil
}

// MarketResponseV1 is a price corridor without quality.
type MarketResponseV1 struct {
	XMLName          xml.Name  `json:"-" xml:"MarketResponse"`
	ItemTypeID       string    `json:"item_id" xml:"ItemTypeId"`
	City             string    `json:"city" xml:"City"`
	SellPriceMin     uint64    `json:"sell_price_min" xml:"SellPriceMin"`
	SellPriceMinDate Timestamp `json:"sell_price_min_date" xml:"SellPriceMinDate"`
	SellPriceMax     uint64    `json:"sell_price_max" xml:"SellPriceMax"`
	SellPriceMaxDate Timestamp `json:"sell_price_max_date" xml:"SellPriceMaxDate"`
	BuyPriceMin      uint64    `json:"buy_price_min" xml:"BuyPriceMin"`
	BuyPriceMinDate  Timestamp `json:"buy_price_min_date" xml:"BuyPriceMinDate"`
	BuyPriceMax      uint64    `json:"buy_price_max" xml:"BuyPriceMax"`
	BuyPriceMaxDate  Timestamp `json:"buy_price_max_date" xml:"BuyPriceMaxDate"`
}

// MarketResponse is a price corridor of one quality level.
type MarketResponse struct {
	XMLName          xml.Name  `json:"-" xml:"MarketResponse"`
	ItemTypeID       string    `json:"item_id" xml:"ItemTypeId"`
	City             string    `json:"city" xml:"City"`
	QualityLevel     uint8     `json:"quality" xml:"QualityLevel"`
	SellPriceMin     uint64    `json:"sell_price_min" xml:"SellPriceMin"`
	SellPriceMinDate Timestamp `json:"sell_price_min_date" xml:"SellPriceMinDate"`
	SellPriceMax     uint64    `json:"sell_price_max" xml:"SellPriceMax"`
	SellPriceMaxDate Timestamp `json:"sell_price_max_date" xml:"SellPriceMaxDate"`
	BuyPriceMin      uint64    `json:"buy_price_min" xml:"BuyPriceMin"`
	BuyPriceMinDate  Timestamp `json:"buy_price_min_date" xml:"BuyPriceMinDate"`
	BuyPriceMax      uint64    `json:"buy_price_max" xml:"BuyPriceMax"`
	BuyPriceMaxDate  Timestamp `json:"buy_price_max_date" xml:"BuyPriceMaxDate"`
}

func newMarketResponse(s market.PriceSummary) MarketResponse {
	return MarketResponse{
		ItemTypeID:       s.ItemTypeID,
		City:             s.Location.String(),
		QualityLevel:     s.QualityLevel,
		SellPriceMin:     s.SellMin.Value,
		SellPriceMinDate: Timestamp(s.SellMin.At),
		SellPriceMax:     s.SellMax.Value,
		SellPriceMaxDate: Timestamp(s.SellMax.At),
		BuyPriceMin:      s.BuyMin.Value,
		BuyPriceMinDate:  Timestamp(s.BuyMin.At),
		BuyPriceMax:      s.BuyMax.Value,
		BuyPriceMaxDate:  Timestamp(s.BuyMax.At),
	}
}

func newMarketResponseV1(s market.PriceSummary) MarketResponseV1 {
	r := newMarketResponse(s)
	return MarketResponseV1{
		ItemTypeID:       r.ItemTypeID,
		City:             r.City,
		SellPriceMin:     r.SellPriceMin,
		SellPriceMinDate: r.SellPriceMinDate,
		SellPriceMax:     r.SellPriceMax,
		SellPriceMaxDate: r.SellPriceMaxDate,
		BuyPriceMin:      r.BuyPriceMin,
		BuyPriceMinDate:  r.BuyPriceMinDate,
		BuyPriceMax:      r.BuyPriceMax,
		BuyPriceMaxDate:  r.BuyPriceMaxDate,
	}
}

// ChartDataV1 mirrors min and max from the average; timestamps are Unix
// milliseconds.
type ChartDataV1 struct {
	Timestamps []int64  `json:"timestamps" xml:"Timestamps>long"`
	PricesAvg  []uint64 `json:"prices_avg" xml:"PricesAvg>decimal"`
	PricesMin  []uint64 `json:"prices_min" xml:"PricesMin>unsignedLong"`
	PricesMax  []uint64 `json:"prices_max" xml:"PricesMax>unsignedLong"`
	ItemCount  []uint64 `json:"item_count" xml:"ItemCount>unsignedLong"`
}

type ChartResponseV1 struct {
	XMLName      xml.Name    `json:"-" xml:"MarketStatChartResponse"`
	Location     string      `json:"location" xml:"Location"`
	ItemTypeID   string      `json:"item_id" xml:"ItemTypeId"`
	QualityLevel uint8       `json:"quality" xml:"QualityLevel"`
	Data         ChartDataV1 `json:"data" xml:"Data"`
}

type ChartData struct {
	Timestamps []Timestamp `json:"timestamps" xml:"Timestamps>dateTime"`
	PricesAvg  []uint64    `json:"prices_avg" xml:"PricesAverage>decimal"`
	ItemCount  []uint64    `json:"item_count" xml:"ItemCount>unsignedLong"`
}

type ChartResponse struct {
	XMLName      xml.Name  `json:"-" xml:"MarketStatChartResponsev2"`
	Location     string    `json:"location" xml:"Location"`
	ItemTypeID   string    `json:"item_id" xml:"ItemTypeId"`
	QualityLevel uint8     `json:"quality" xml:"QualityLevel"`
	Data         ChartData `json:"data" xml:"Data"`
}

type HistoryPoint struct {
	ItemCount    uint64    `json:"item_count" xml:"ItemCount"`
	AveragePrice uint64    `json:"avg_price" xml:"AveragePrice"`
	Timestamp    Timestamp `json:"timestamp" xml:"Timestamp"`
}

type HistoryResponse struct {
	XMLName      xml.Name       `json:"-" xml:"MarketHistoriesResponse"`
	Location     string         `json:"location" xml:"Location"`
	ItemTypeID   string         `json:"item_id" xml:"ItemTypeId"`
	QualityLevel uint8          `json:"quality" xml:"QualityLevel"`
	Data         []HistoryPoint `json:"data" xml:"Data>MarketHistoryResponse"`
}

type GoldResponse struct {
	XMLName   xml.Name  `json:"-" xml:"GoldPrice"`
	Price     uint64    `json:"price" xml:"Price"`
	Timestamp Timestamp `json:"timestamp" xml:"Timestamp"`
}

func toChartsV1(series []market.Series) []ChartResponseV1 {
	out := make([]ChartResponseV1, len(series))
	for i, s := range series {
		data := ChartDataV1{
			Timestamps: make([]int64, len(s.Points)),
			PricesAvg:  make([]uint64, len(s.Points)),
			PricesMin:  make([]uint64, len(s.Points)),
			PricesMax:  make([]uint64, len(s.Points)),
			ItemCount:  make([]uint64, len(s.Points)),
		}
		for j, p := range s.Points {
			data.Timestamps[j] = p.Timestamp.UnixMilli()
			data.PricesAvg[j] = p.AveragePrice
			data.PricesMin[j] = p.AveragePrice
			data.PricesMax[j] = p.AveragePrice
			data.ItemCount[j] = p.ItemCount
		}
		out[i] = ChartResponseV1{Location: s.Location.String(), ItemTypeID: s.ItemTypeID, QualityLevel: s.QualityLevel, Data: data}
	}
	return out
}

func toCharts(series []market.Series) []ChartResponse {
	out := make([]ChartResponse, len(series))
	for i, s := range series {
		data := ChartData{
			Timestamps: make([]Timestamp, len(s.Points)),
			PricesAvg:  make([]uint64, len(s.Points)),
			ItemCount:  make([]uint64, len(s.Points)),
		}
		for j, p := range s.Points {
			data.Timestamps[j] = Timestamp(p.Timestamp)
			data.PricesAvg[j] = p.AveragePrice
			data.ItemCount[j] = p.ItemCount
		}
		out[i] = ChartResponse{Location: s.Location.String(), ItemTypeID: s.ItemTypeID, QualityLevel: s.QualityLevel, Data: data}
	}
	return out
}

func toHistories(series []market.Series) []HistoryResponse {
	out := make([]HistoryResponse, len(series))
	for i, s := range series {
		data := make([]HistoryPoint, len(s.Points))
		for j, p := range s.Points {
			data[j] = HistoryPoint{ItemCount: p.ItemCount, AveragePrice: p.AveragePrice, Timestamp: Timestamp(p.Timestamp)}
		}
		out[i] = HistoryResponse{Location: s.Location.String(), ItemTypeID: s.ItemTypeID, QualityLevel: s.QualityLevel, Data: data}
	}
	return out
}

func toGold(points []prices.GoldPoint) []GoldResponse {
	out := make([]GoldResponse, len(points))
	for i, p := range points {
		out[i] = GoldResponse{Price: p.Price, Timestamp: Timestamp(p.Timestamp)}
	}
	return out
}
