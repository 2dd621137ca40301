package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordUpstream(t *testing.T) {
	before200 := testutil.ToFloat64(UpstreamRequestsTotal.WithLabelValues("200"))
	beforeErr := testutil.ToFloat64(UpstreamRequestsTotal.WithLabelValues("error"))

	RecordUpstream(200, 150*time.Millisecond)
	RecordUpstream(0, time.Second)

	if got := testutil.ToFloat64(UpstreamRequestsTotal.WithLabelValues("200")); got != before200+1 {
		t.Errorf("expected 200 counter to grow by 1, got %v -> %v", before200, got)
	}
	if got := testutil.ToFloat64(UpstreamRequestsTotal.WithLabelValues("error")); got != beforeErr+1 {
		t.Errorf("expected error counter to grow by 1, got %v -> %v", beforeErr, got)
	}
}

func TestRecordBooksAndSearches(t *testing.T) {
	beforeBooks := testutil.ToFloat64(BooksExtractedTotal)
	beforeOK := testutil.ToFloat64(SearchesTotal.WithLabelValues("ok"))

	RecordBooks(12)
	RecordSearch("ok")

	if got := testutil.ToFloat64(BooksExtractedTotal); got != beforeBooks+12 {
		t.Errorf("expected books counter +12, got %v -> %v", beforeBooks, got)
	}
	if got := testutil.ToFloat64(SearchesTotal.WithLabelValues("ok")); got != beforeOK+1 {
		t.Errorf("expected ok searches +1, got %v -> %v", beforeOK, got)
	}
}

func TestRecordCacheLookup(t *testing.T) {
	beforeHit := testutil.ToFloat64(CacheLookupsTotal.WithLabelValues("hit"))
	beforeMiss := testutil.ToFloat64(CacheLookupsTotal.WithLabelValues("miss"))

	RecordCacheLookup(true)
	RecordCacheLookup(false)
	RecordCacheLookup(false)

	if got := testutil.ToFloat64(CacheLookupsTotal.WithLabelValues("hit")); got != beforeHit+1 {
		t.Errorf("expected hit +1, got %v -> %v", beforeHit, got)
	}
	if got := testutil.ToFloat64(CacheLookupsTotal.WithLabelValues("miss")); got != beforeMiss+2 {
		t.Errorf("expected miss +2, got %v -> %v", beforeMiss, got)
	}
}
