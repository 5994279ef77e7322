package main

import (
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

type Price struct {
	ItemTypeID       string `json:"item_id"`
	City             string `json:"city"`
	QualityLevel     uint8  `json:"quality"`
	SellPriceMin     uint64 `json:"sell_price_min"`
	SellPriceMinDate string `json:"sell_price_min_date"`
	SellPriceMax     uint64 `json:"sell_price_max"`
	BuyPriceMin      uint64 `json:"buy_price_min"`
	BuyPriceMax      uint64 `json:"buy_price_max"`
	BuyPriceMaxDate  string `json:"buy_price_max_date"`
}

type HistoryPoint struct {
	ItemCount    uint64 `json:"item_count"`
	AveragePrice uint64 `json:"avg_price"`
	Timestamp    string `json:"timestamp"`
}

type History struct {
	Location     string         `json:"location"`
	ItemTypeID   string         `json:"item_id"`
	QualityLevel uint8          `json:"quality"`
	Data         []HistoryPoint `json:"data"`
}

type Gold struct {
	Price     uint64 `json:"price"`
	Timestamp string `json:"timestamp"`
}

type apiError struct {
	Error string `json:"error"`
}

// Client talks to a running albiondata api.
type Client struct {
	client *resty.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")
	client.SetRetryCount(2)
	client.SetRetryWaitTime(500 * time.Millisecond)
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || r.StatusCode() == 429 || r.StatusCode() >= 500
	})
	return &Client{client: client}
}

// Filter holds the optional query parameters shared by the lookups.
type Filter struct {
	Locations string
	Qualities string
	Scale     int
	Date      string
	EndDate   string
}

func (f Filter) params() map[string]string {
	p := map[string]string{}
	if f.Locations != "" {
		p["locations"] = f.Locations
	}
	if f.Qualities != "" {
		p["qualities"] = f.Qualities
	}
	if f.Scale > 0 {
		p["time-scale"] = fmt.Sprint(f.Scale)
	}
	if f.Date != "" {
		p["date"] = f.Date
	}
	if f.EndDate != "" {
		p["end_date"] = f.EndDate
	}
	return p
}

func (c *Client) Prices(items string, f Filter) ([]Price, error) {
	var out []Price
	err := c.get("/api/v2/stats/prices/"+url.PathEscape(items), f.params(), &out)
	return out, err
}

func (c *Client) History(items string, f Filter) ([]History, error) {
	var out []History
	err := c.get("/api/v2/stats/history/"+url.PathEscape(items), f.params(), &out)
	return out, err
}

func (c *Client) Gold(date string, count int) ([]Gold, error) {
	p := map[string]string{}
	if date != "" {
		p["date"] = date
	}
	if count > 0 {
		p["count"] = fmt.Sprint(count)
	}
	var out []Gold
	err := c.get("/api/v2/stats/gold", p, &out)
	return out, err
}

func (c *Client) get(path string, params map[string]string, result interface{}) error {
	resp, err := c.client.R().
		SetQueryParams(params).
		SetResult(result).
		SetError(&apiError{}).
		Get(path)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	if resp.IsError() {
		if e, ok := resp.Error().(*apiError); ok && e.Error != "" {
			return fmt.Errorf("api error %d: %s", resp.StatusCode(), e.Error)
		}
		return fmt.Errorf("api error %d", resp.StatusCode())
	}
	return nil
}
