package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/stats/prices/T4_BAG", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Caerleon", r.URL.Query().Get("locations"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"item_id":"T4_BAG","city":"Caerleon","quality":1,"sell_price_min":1200,"sell_price_max":1500,"buy_price_min":900,"buy_price_max":1000}]`))
	})
	mux.HandleFunc("/api/v2/stats/history/T4_BAG", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "24", r.URL.Query().Get("time-scale"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"location":"Caerleon","item_id":"T4_BAG","quality":1,"data":[{"item_count":4,"avg_price":10,"timestamp":"2024-03-09T00:00:00"}]}]`))
	})
	mux.HandleFunc("/api/v2/stats/gold", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("count"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"price":4100,"timestamp":"2024-03-10T12:00:00"},{"price":4090,"timestamp":"2024-03-10T11:00:00"}]`))
	})
	mux.HandleFunc("/api/v2/stats/prices/T4_NOPE", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid item filter"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Prices(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL, 5*time.Second)

	rows, err := c.Prices("T4_BAG", Filter{Locations: "Caerleon"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, uint64(1200), rows[0].SellPriceMin)
	assert.Equal(t, uint64(1000), rows[0].BuyPriceMax)
}

func TestClient_APIError(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL, 5*time.Second)

	_, err := c.Prices("T4_NOPE", Filter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "invalid item filter")
}

func TestRun(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL, 5*time.Second)

	var buf bytes.Buffer
	require.NoError(t, run(&buf, c, "history", "T4_BAG", Filter{Scale: 24}, 0))
	assert.Contains(t, buf.String(), "2024-03-09T00:00:00")

	buf.Reset()
	require.NoError(t, run(&buf, c, "gold", "", Filter{}, 2))
	assert.Contains(t, buf.String(), "4100")

	assert.Error(t, run(&buf, c, "prices", "", Filter{}, 0))
	assert.Error(t, run(&buf, c, "bogus", "T4_BAG", Filter{}, 0))
}
