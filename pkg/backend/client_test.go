package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	opts = append([]Option{
		WithHTTPClient(srv.Client()),
		WithFiatURL(srv.URL + "/fiat"),
		WithRetryDelay(time.Millisecond),
		WithUpdateDelay(time.Millisecond),
		WithRateLimit(time.Millisecond, 10),
	}, opts...)
	return NewClient(srv.URL+"/", "secret", opts...), srv
}

func TestAgentSendsAPIKey(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get(APIKeyHeader))
		assert.Equal(t, "/agents/0xabc", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{"address":"0xabc","name":"Spark","ticker":"SPK","status":1}}`))
	})

	agent, err := client.Agent(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "SPK", agent.Ticker)
	assert.True(t, agent.Active())

	agent.Status = 2
	assert.False(t, agent.Active())
}

func TestNon2xxIsStatusError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	})

	_, err := client.Agent(context.Background(), "0xabc")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusInternalServerError))

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Body, "boom")
}

func TestForumPaging(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/forum/0xabc/messages":
			assert.Equal(t, "20", r.URL.Query().Get("start"))
			assert.Equal(t, "10", r.URL.Query().Get("pageSize"))
			assert.Equal(t, "desc", r.URL.Query().Get("direction"))
			_, _ = w.Write([]byte(`{"data":[{"id":"1","message":"gm"},{"id":"2","message":"wagmi"}]}`))
		case "/forum/0xabc/count":
			_, _ = w.Write([]byte(`{"count":42}`))
		default:
			http.NotFound(w, r)
		}
	})

	msgs, err := client.ForumMessages(context.Background(), "0xabc", 20, 10, Newest)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "wagmi", msgs[1].Message)

	count, err := client.ForumCount(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, 42, count)
}

func TestLookupConversion(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "0xabc", body["address"])
		_, _ = w.Write([]byte(`{"needsUpdating":true,"data":{"conversion":{"price":"0.5","marketCap":"500"}}}`))
	})

	lookup, err := client.LookupConversion(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.True(t, lookup.NeedsUpdating)
	require.NotNil(t, lookup.Data.Conversion)
	assert.Equal(t, "500", lookup.Data.Conversion.MarketCap)
}

func TestUpdateConversionRetriesThreeTimes(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	})

	err := client.UpdateConversion(context.Background(), "0xabc", Conversion{Price: "1"})
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusBadGateway))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestUpdateConversionWaitsBetweenAttempts(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}, WithUpdateDelay(20*time.Millisecond))

	start := time.Now()
	err := client.UpdateConversion(context.Background(), "0xabc", Conversion{Price: "1"})
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestUpdateConversionStopsWhenCancelled(t *testing.T) {
	var calls int32
	ctx, cancel := context.WithCancel(context.Background())
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		cancel()
		w.WriteHeader(http.StatusBadGateway)
	}, WithUpdateDelay(time.Hour))

	err := client.UpdateConversion(ctx, "0xabc", Conversion{Price: "1"})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestUpdateConversionSucceedsAfterFailure(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.UpdateConversion(context.Background(), "0xabc", Conversion{Price: "1"}))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFiatConversionRetriesOnlyOnTooManyRequests(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"price":2.5}`))
	})

	price, err := client.FiatConversion(context.Background(), "eth", "usd")
	require.NoError(t, err)
	assert.Equal(t, 2.5, price)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFiatConversionGivesUpAfterRetries(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.FiatConversion(context.Background(), "eth", "usd")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusTooManyRequests))
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls), "one attempt plus three retries")
}

func TestFiatConversionDoesNotRetryOtherErrors(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := client.FiatConversion(context.Background(), "eth", "usd")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusBadRequest))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
