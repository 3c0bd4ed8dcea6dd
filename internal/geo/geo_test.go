package geo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/slushbook/internal/errs"
)

func upstream(t *testing.T, h http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestCountry_PrivateShortCircuit(t *testing.T) {
	srv, hits := upstream(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"country_code":"US"}`))
	})
	c := New(Config{Endpoint: srv.URL + "/{ip}", DefaultCountry: "SE"}, zaptest.NewLogger(t))

	for _, ip := range []string{"127.0.0.1", "::1", "10.1.2.3", "192.168.0.10", "172.16.5.4", "fe80::1", "::ffff:10.0.0.1"} {
		require.Equal(t, "DK", c.Country(context.Background(), ip), ip)
	}
	require.Equal(t, int32(0), hits.Load())
}

func TestCountry_UpstreamAndMemo(t *testing.T) {
	srv, hits := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lookup/8.8.8.8" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"country_code":"fr"}`))
	})
	c := New(Config{Endpoint: srv.URL + "/lookup/{ip}"}, zaptest.NewLogger(t))

	ctx := WithMemo(context.Background())
	require.Equal(t, "FR", c.Country(ctx, "8.8.8.8"))
	require.Equal(t, "FR", c.Country(ctx, "8.8.8.8"))
	require.Equal(t, int32(1), hits.Load())

	// A new request looks up again.
	require.Equal(t, "FR", c.Country(WithMemo(context.Background()), "8.8.8.8"))
	require.Equal(t, int32(2), hits.Load())
}

func TestCountry_FailuresDegrade(t *testing.T) {
	srv, _ := upstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	c := New(Config{Endpoint: srv.URL + "/{ip}"}, zaptest.NewLogger(t))

	require.Equal(t, "DK", c.Country(context.Background(), "1.1.1.1"))
	require.Equal(t, "DK", c.Country(context.Background(), "not-an-ip"))

	_, err := c.Lookup(context.Background(), "1.1.1.1")
	require.ErrorIs(t, err, errs.ErrUpstreamUnavailable)

	_, err = New(Config{}, nil).Lookup(context.Background(), "1.1.1.1")
	require.ErrorIs(t, err, errs.ErrUpstreamUnavailable)
}

func TestLookup_Deadline(t *testing.T) {
	srv, _ := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})
	c := New(Config{Endpoint: srv.URL + "/{ip}", Timeout: 50 * time.Millisecond}, zaptest.NewLogger(t))

	start := time.Now()
	_, err := c.Lookup(context.Background(), "9.9.9.9")
	require.ErrorIs(t, err, errs.ErrUpstreamUnavailable)
	require.Less(t, time.Since(start), time.Second)
}

func TestLookup_BreakerOpens(t *testing.T) {
	srv, hits := upstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	c := New(Config{Endpoint: srv.URL + "/{ip}"}, zaptest.NewLogger(t))

	for i := 0; i < 5; i++ {
		_, err := c.Lookup(context.Background(), fmt.Sprintf("2.2.2.%d", i))
		require.ErrorIs(t, err, errs.ErrUpstreamUnavailable)
	}
	require.Equal(t, int32(5), hits.Load())

	_, err := c.Lookup(context.Background(), "2.2.2.99")
	require.ErrorIs(t, err, errs.ErrUpstreamUnavailable)
	require.Equal(t, int32(5), hits.Load())
}

func TestIsPrivate(t *testing.T) {
	require.True(t, IsPrivate(netip.MustParseAddr("10.0.0.1")))
	require.False(t, IsPrivate(netip.MustParseAddr("8.8.4.4")))
}
