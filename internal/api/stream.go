package api

import (
	"context"
	"net/http"
	"time"

	"albiondata-api/internal/market"
	"albiondata-api/internal/metrics"
	"albiondata-api/internal/services/prices"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const streamWriteTimeout = 10 * time.Second

// subscription selects what a stream client receives. Clients may send a new
// one as a JSON text message at any time.
type subscription struct {
	Items     string `json:"items"`
	Locations string `json:"locations"`
	Qualities string `json:"qualities"`
}

type streamMessage struct {
	Type  string           `json:"type"`
	At    Timestamp        `json:"at"`
	Data  []MarketResponse `json:"data,omitempty"`
	Error string           `json:"error,omitempty"`
}

// StreamPrices pushes current prices over a websocket every stream interval.
func (h *APIHandler) StreamPrices(c *gin.Context) {
	sub := subscription{
		Items:     c.Query("items"),
		Locations: c.Query("locations"),
		Qualities: c.Query("qualities"),
	}
	if _, err := market.ParseItemList(sub.Items); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()
	metrics.StreamConnected()
	defer metrics.StreamDisconnected()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	updates := make(chan subscription, 1)
	go func() {
		defer cancel()
		for {
			var next subscription
			if err := conn.ReadJSON(&next); err != nil {
				return
			}
			select {
			case updates <- next:
			case <-ctx.Done():
				return
			}
		}
	}()

	entry := h.log.WithFields(logrus.Fields{"client_ip": c.ClientIP(), "items": sub.Items})
	entry.Debug("price stream opened")
	defer entry.Debug("price stream closed")

	ticker := time.NewTicker(h.opts.StreamInterval)
	defer ticker.Stop()

	if err := h.pushPrices(ctx, conn, sub); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case sub = <-updates:
			if err := h.pushPrices(ctx, conn, sub); err != nil {
				return
			}
		case <-ticker.C:
			if err := h.pushPrices(ctx, conn, sub); err != nil {
				return
			}
		}
	}
}

// pushPrices sends one snapshot. Only write failures are returned; lookup
// failures are reported to the client as an error message.
func (h *APIHandler) pushPrices(ctx context.Context, conn *websocket.Conn, sub subscription) error {
	msg := streamMessage{Type: "prices", At: Timestamp(time.Now())}
	summaries, err := h.prices.Prices(ctx, prices.PriceRequest{
		Items:     sub.Items,
		Locations: sub.Locations,
		Qualities: sub.Qualities,
		Mode:      market.ModeCurrent,
	})
	switch {
	case err == nil:
		msg.Data = make([]MarketResponse, len(summaries))
		for i, s := range summaries {
			msg.Data[i] = newMarketResponse(s)
		}
	case ctx.Err() != nil:
		return ctx.Err()
	case prices.IsClientError(err):
		msg.Type, msg.Error = "error", err.Error()
	default:
		h.log.WithError(err).Error("price stream lookup failed")
		msg.Type, msg.Error = "error", "internal server error"
	}

	if err := conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}
