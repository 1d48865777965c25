package lm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDynamicFeedClient_UnknownMarketReturnsNoDataWithoutRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.Write([]byte(`{"status":"success","data":[]}`))
	}))
	defer srv.Close()

	client := NewDynamicFeedClient(srv.URL, map[string]int{})
	_, _, ok, err := client.GetSpread(context.Background(), "binance", "DOGE-USDT")

	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, called, "no lookup entry should mean no HTTP request is made")
}

func TestDynamicFeedClient_EmptyDataIsNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","data":[]}`))
	}))
	defer srv.Close()

	client := NewDynamicFeedClient(srv.URL, map[string]int{"binance|FIRO-USDT": 59})
	_, _, ok, err := client.GetSpread(context.Background(), "binance", "FIRO-USDT")

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDynamicFeedClient_NonSuccessStatusIsNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error","data":[]}`))
	}))
	defer srv.Close()

	client := NewDynamicFeedClient(srv.URL, map[string]int{"binance|FIRO-USDT": 59})
	_, _, ok, err := client.GetSpread(context.Background(), "binance", "FIRO-USDT")

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDynamicFeedClient_SuccessReturnsSpread(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "59", r.URL.Query().Get("market_id"))
		w.Write([]byte(`{"status":"success","data":[{"spread_ask":"0.02","spread_bid":"0.015","timestamp":1700000000}]}`))
	}))
	defer srv.Close()

	client := NewDynamicFeedClient(srv.URL, map[string]int{"binance|FIRO-USDT": 59})
	bid, ask, ok, err := client.GetSpread(context.Background(), "binance", "FIRO-USDT")

	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, bid.Equal(d("0.015")))
	assert.True(t, ask.Equal(d("0.02")))
}

func TestDynamicFeedClient_NonOKStatusIsNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewDynamicFeedClient(srv.URL, map[string]int{"binance|FIRO-USDT": 59})
	_, _, ok, err := client.GetSpread(context.Background(), "binance", "FIRO-USDT")

	require.NoError(t, err)
	assert.False(t, ok)
}
