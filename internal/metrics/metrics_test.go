package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	first := newsRequestsTotal
	Init()

	if newsRequestsTotal == nil || newsRequestsTotal != first {
		t.Fatal("Init() must initialize collectors exactly once")
	}
}

func TestObserveHelpers(t *testing.T) {
	Init()
	before := testutil.ToFloat64(newsRequestsTotal.WithLabelValues("cache_hit"))
	ObserveRequest("cache_hit")
	if got := testutil.ToFloat64(newsRequestsTotal.WithLabelValues("cache_hit")); got != before+1 {
		t.Errorf("expected news_requests_total{cache_hit} to grow by 1, got %f -> %f", before, got)
	}

	ObserveLock("indeterminate")
	if val := testutil.ToFloat64(newsLockAcquireTotal.WithLabelValues("indeterminate")); val < 1 {
		t.Errorf("expected lock counter to be incremented, got %f", val)
	}

	ObserveFiltered("safety_net", 0)
	ObserveFiltered("safety_net", 3)
	if val := testutil.ToFloat64(newsArticlesFilteredTotal.WithLabelValues("safety_net")); val < 3 {
		t.Errorf("expected filtered counter >= 3, got %f", val)
	}

	SetQuotaRemaining(4)
	if val := testutil.ToFloat64(newsQuotaRemaining); val != 4 {
		t.Errorf("expected quota gauge 4, got %f", val)
	}

	ObserveClassifierPacing(250 * time.Millisecond)
	ObserveUpstreamFetch("primary", "ok")
	ObserveStoreFallback("get")
	ObserveClassifierBatch("ok")
}
