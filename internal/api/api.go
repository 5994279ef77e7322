package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"albiondata-api/internal/config"
	"albiondata-api/internal/market"
	"albiondata-api/internal/services/prices"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Options configures request handling.
type Options struct {
	// InvalidItemResponse is one of config.InvalidItemError, InvalidItemEmpty
	// or InvalidItemLegacy.
	InvalidItemResponse string
	StreamInterval      time.Duration
}

type APIHandler struct {
	prices   *prices.Service
	opts     Options
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

func NewHandler(svc *prices.Service, opts Options, log *logrus.Logger) *APIHandler {
	if opts.StreamInterval <= 0 {
		opts.StreamInterval = 10 * time.Second
	}
	if opts.InvalidItemResponse == "" {
		opts.InvalidItemResponse = config.InvalidItemError
	}
	return &APIHandler{
		prices: svc,
		opts:   opts,
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// SetupRoutes registers the stats routes under r, which is mounted at /api.
func SetupRoutes(r *gin.RouterGroup, svc *prices.Service, opts Options, log *logrus.Logger) *APIHandler {
	handler := NewHandler(svc, opts, log)

	v1 := r.Group("/v1/stats")
	{
		v1.GET("/prices/:items", handler.GetPricesV1)
		v1.GET("/charts/:items", handler.GetChartsV1)
	}

	v2 := r.Group("/v2/stats")
	{
		v2.GET("/prices/stream", handler.StreamPrices)
		v2.GET("/prices/:items", handler.GetPrices)
		v2.GET("/charts/:items", handler.GetCharts)
		v2.GET("/history/:items", handler.GetHistory)
		v2.GET("/gold", handler.GetGold)
		v2.GET("/gold.json", handler.getGoldAs(formatJSON))
		v2.GET("/gold.xml", handler.getGoldAs(formatXML))
		v2.GET("/gold.xlsx", handler.getGoldAs(formatXLSX))
	}
	return handler
}

// GetPricesV1 returns price corridors without quality for every known location.
func (h *APIHandler) GetPricesV1(c *gin.Context) {
	items, f := h.itemsParam(c)
	summaries, err := h.prices.Prices(c.Request.Context(), prices.PriceRequest{
		Items:     items,
		Locations: c.Query("locations"),
		Mode:      market.ModeLegacy,
	})
	if err != nil {
		h.handlePriceError(c, f, items, market.ModeLegacy, err)
		return
	}
	body := make([]MarketResponseV1, len(summaries))
	for i, s := range summaries {
		body[i] = newMarketResponseV1(s)
	}
	render(c, f, http.StatusOK, "MarketResponse", body, func() table { return priceTable(summaries, false) })
}

// GetPrices returns price corridors per location and quality.
func (h *APIHandler) GetPrices(c *gin.Context) {
	items, f := h.itemsParam(c)
	summaries, err := h.prices.Prices(c.Request.Context(), prices.PriceRequest{
		Items:     items,
		Locations: c.Query("locations"),
		Qualities: c.Query("qualities"),
		Mode:      market.ModeCurrent,
	})
	if err != nil {
		h.handlePriceError(c, f, items, market.ModeCurrent, err)
		return
	}
	body := make([]MarketResponse, len(summaries))
	for i, s := range summaries {
		body[i] = newMarketResponse(s)
	}
	render(c, f, http.StatusOK, "MarketResponse", body, func() table { return priceTable(summaries, true) })
}

// GetChartsV1 returns quarter-day charts with quality collapsed.
func (h *APIHandler) GetChartsV1(c *gin.Context) {
	req, f, ok := h.chartRequest(c, market.ModeLegacy)
	if !ok {
		return
	}
	series, err := h.prices.Charts(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, f, err, func() { render(c, f, http.StatusOK, "MarketStatChartResponse", []ChartResponseV1{}, emptyChartTable) })
		return
	}
	render(c, f, http.StatusOK, "MarketStatChartResponse", toChartsV1(series), func() table { return chartTable(series) })
}

func (h *APIHandler) GetCharts(c *gin.Context) {
	req, f, ok := h.chartRequest(c, market.ModeCurrent)
	if !ok {
		return
	}
	series, err := h.prices.Charts(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, f, err, func() { render(c, f, http.StatusOK, "MarketStatChartResponsev2", []ChartResponse{}, emptyChartTable) })
		return
	}
	render(c, f, http.StatusOK, "MarketStatChartResponsev2", toCharts(series), func() table { return chartTable(series) })
}

// GetHistory returns the chart groups with one object per timestamp.
func (h *APIHandler) GetHistory(c *gin.Context) {
	req, f, ok := h.chartRequest(c, market.ModeCurrent)
	if !ok {
		return
	}
	series, entries, err := h.prices.History(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, f, err, func() { render(c, f, http.StatusOK, "MarketHistoriesResponse", []HistoryResponse{}, emptyChartTable) })
		return
	}
	render(c, f, http.StatusOK, "MarketHistoriesResponse", toHistories(series), func() table { return historyTable(entries) })
}

func (h *APIHandler) GetGold(c *gin.Context) {
	h.getGold(c, negotiate(c, ""))
}

func (h *APIHandler) getGoldAs(f format) gin.HandlerFunc {
	return func(c *gin.Context) { h.getGold(c, f) }
}

func (h *APIHandler) getGold(c *gin.Context, f format) {
	date, err := parseDate(c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	count := 0
	if raw := c.Query("count"); raw != "" {
		count, err = strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "count must be an integer"})
			return
		}
	}
	points, err := h.prices.GoldPrices(c.Request.Context(), date, count)
	if err != nil {
		h.handleError(c, f, err, nil)
		return
	}
	render(c, f, http.StatusOK, "GoldPrice", toGold(points), func() table {
		t := table{sheet: "Gold", header: []interface{}{"timestamp", "price"}}
		for _, p := range points {
			t.rows = append(t.rows, []interface{}{p.Timestamp, p.Price})
		}
		return t
	})
}

func (h *APIHandler) itemsParam(c *gin.Context) (string, format) {
	items, suffix, _ := splitFormat(c.Param("items"))
	return items, negotiate(c, suffix)
}

func (h *APIHandler) chartRequest(c *gin.Context, mode market.Mode) (prices.ChartRequest, format, bool) {
	items, f := h.itemsParam(c)
	req := prices.ChartRequest{
		Items:     items,
		Locations: c.Query("locations"),
		Qualities: c.Query("qualities"),
		Mode:      mode,
		Scale:     market.ScaleQuarterDay,
	}
	var err error
	if req.Date, err = parseDate(c.Query("date")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return req, f, false
	}
	if req.EndDate, err = parseDate(c.Query("end_date")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return req, f, false
	}
	if raw := c.Query("time-scale"); raw != "" && mode == market.ModeCurrent {
		v, convErr := strconv.Atoi(raw)
		if convErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": market.ErrInvalidTimeScale.Error()})
			return req, f, false
		}
		if req.Scale, err = market.ParseTimeScale(v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return req, f, false
		}
	}
	return req, f, true
}

// handlePriceError renders invalid item filters the configured way.
func (h *APIHandler) handlePriceError(c *gin.Context, f format, items string, mode market.Mode, err error) {
	h.handleError(c, f, err, func() {
		switch h.opts.InvalidItemResponse {
		case config.InvalidItemLegacy:
			placeholder := market.PriceSummary{ItemTypeID: items}
			if mode == market.ModeLegacy {
				render(c, f, http.StatusOK, "MarketResponse", []MarketResponseV1{newMarketResponseV1(placeholder)}, func() table {
					return priceTable([]market.PriceSummary{placeholder}, false)
				})
				return
			}
			render(c, f, http.StatusOK, "MarketResponse", []MarketResponse{newMarketResponse(placeholder)}, func() table {
				return priceTable([]market.PriceSummary{placeholder}, true)
			})
		default:
			render(c, f, http.StatusOK, "MarketResponse", []MarketResponse{}, func() table { return priceTable(nil, true) })
		}
	})
}

// handleError maps service errors onto responses. renderEmpty is used for
// invalid item filters when the configuration asks for a 200 answer.
func (h *APIHandler) handleError(c *gin.Context, f format, err error, renderEmpty func()) {
	switch {
	case errors.Is(err, market.ErrInvalidItemFilter):
		if h.opts.InvalidItemResponse != config.InvalidItemError && renderEmpty != nil {
			renderEmpty()
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, market.ErrInvalidTimeScale):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case c.Request.Context().Err() != nil:
		c.Status(499)
	default:
		h.log.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"1-2-2006",
	"1/2/2006",
}

// parseDate reads a query date as UTC. Empty input returns the zero time.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}

func priceTable(summaries []market.PriceSummary, withQuality bool) table {
	t := table{sheet: "Prices"}
	t.header = []interface{}{"item_id", "city"}
	if withQuality {
		t.header = append(t.header, "quality")
	}
	t.header = append(t.header,
		"sell_price_min", "sell_price_min_date", "sell_price_max", "sell_price_max_date",
		"buy_price_min", "buy_price_min_date", "buy_price_max", "buy_price_max_date")
	for _, s := range summaries {
		row := []interface{}{s.ItemTypeID, s.Location.String()}
		if withQuality {
			row = append(row, s.QualityLevel)
		}
		row = append(row,
			s.SellMin.Value, cellTime(s.SellMin.At), s.SellMax.Value, cellTime(s.SellMax.At),
			s.BuyMin.Value, cellTime(s.BuyMin.At), s.BuyMax.Value, cellTime(s.BuyMax.At))
		t.rows = append(t.rows, row)
	}
	return t
}

func chartTable(series []market.Series) table {
	return historyTable(market.FlattenSeries(series))
}

func emptyChartTable() table { return historyTable(nil) }

func historyTable(entries []market.HistoryEntry) table {
	t := table{
		sheet:  "History",
		header: []interface{}{"location", "item_id", "quality", "timestamp", "item_count", "avg_price"},
	}
	for _, e := range entries {
		t.rows = append(t.rows, []interface{}{e.Location.String(), e.ItemTypeID, e.QualityLevel, e.Timestamp, e.ItemCount, e.AveragePrice})
	}
	return t
}

// cellTime leaves never-observed timestamps blank.
func cellTime(t time.Time) interface{} {
	if t.IsZero() {
		return ""
	}
	return t
}
