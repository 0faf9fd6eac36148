package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"post-sniper/internal/domain"
	"post-sniper/internal/monitor"
	"post-sniper/internal/reporting"
	"post-sniper/internal/storage/memory"
)

type staticPositions []domain.Position

func (s staticPositions) Positions() []domain.Position { return s }

func newTestAPI(t *testing.T) *httpAPI {
	t.Helper()

	positions := staticPositions{{
		ID:               "p1",
		Chain:            domain.ChainSolana,
		AssetID:          "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		Venue:            domain.VenuePumpFun,
		CostBasis:        decimal.NewFromInt(1),
		QuantityReceived: decimal.NewFromInt(1000),
		OpenedAt:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}}

	trades := memory.NewTradeRecordStore()
	require.NoError(t, trades.Insert(context.Background(), &domain.TradeRecord{
		TradeID:   "t1",
		Chain:     domain.ChainSolana,
		AssetID:   "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		Direction: domain.DirectionBuy,
		Venue:     domain.VenuePumpFun,
		Success:   true,
		AmountIn:  decimal.NewFromInt(1),
		AmountOut: decimal.NewFromInt(1000),
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}))

	return &httpAPI{
		started: time.Now(),
		status: func() monitor.Status {
			return monitor.Status{State: monitor.StateRunning, Handle: "dev", AutoExecute: true, Ticks: 3}
		},
		positions: positions.Positions,
		reports:   reporting.NewGenerator(positions, trades, 10),
		trades:    trades,
		logger:    logrus.NewEntry(logrus.New()),
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHTTP_Health(t *testing.T) {
	rec := get(t, newTestAPI(t).routes(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestHTTP_HealthChecksUpstreams(t *testing.T) {
	api := newTestAPI(t)
	var sawDeadline bool
	api.checks = []healthCheck{
		{name: "solana_rpc", check: func(ctx context.Context) error {
			_, sawDeadline = ctx.Deadline()
			return nil
		}},
		{name: "base_rpc", check: func(context.Context) error { return nil }},
	}

	rec := get(t, api.routes(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.True(t, sawDeadline)
}

func TestHTTP_HealthReportsFailedUpstream(t *testing.T) {
	api := newTestAPI(t)
	api.checks = []healthCheck{
		{name: "solana_rpc", check: func(context.Context) error { return errors.New("connection refused") }},
		{name: "base_rpc", check: func(context.Context) error { return nil }},
	}

	rec := get(t, api.routes(), "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "solana_rpc: connection refused")
	assert.NotContains(t, rec.Body.String(), "base_rpc")
}

func TestHTTP_Status(t *testing.T) {
	rec := get(t, newTestAPI(t).routes(), "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "running", resp.Status)
	assert.Equal(t, "dev", resp.Monitor.Handle)
	assert.Equal(t, 3, resp.Monitor.Ticks)
	assert.Equal(t, 1, resp.OpenPositions)
}

func TestHTTP_Positions(t *testing.T) {
	rec := get(t, newTestAPI(t).routes(), "/positions")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Positions []domain.Position `json:"positions"`
		Chains    []struct {
			Chain string `json:"chain"`
			Count int    `json:"count"`
		} `json:"chains"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Positions, 1)
	assert.Equal(t, "p1", body.Positions[0].ID)
	require.Len(t, body.Chains, 1)
	assert.Equal(t, "solana", body.Chains[0].Chain)
	assert.Equal(t, 1, body.Chains[0].Count)
}

func TestHTTP_Report(t *testing.T) {
	rec := get(t, newTestAPI(t).routes(), "/report")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "# Portfolio Report"))
	assert.Contains(t, rec.Body.String(), "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
}

func TestHTTP_TradesCSV(t *testing.T) {
	rec := get(t, newTestAPI(t).routes(), "/trades.csv")
	require.Equal(t, http.StatusOK, rec.Code)

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "trade_id,"))
	assert.True(t, strings.HasPrefix(lines[1], "t1,"))
}
