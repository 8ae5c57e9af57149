package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()
	require.NotNil(t, apiRequestsTotal)
	require.NotNil(t, cacheLookupsTotal)
	require.NotNil(t, httpRequestsTotal)
}

func TestObserveHelpers(t *testing.T) {
	Init()

	before := testutil.ToFloat64(cacheLookupsTotal.WithLabelValues("hit"))
	ObserveCacheLookup(true)
	require.InDelta(t, before+1, testutil.ToFloat64(cacheLookupsTotal.WithLabelValues("hit")), 1e-9)

	beforeOK := testutil.ToFloat64(apiRequestsTotal.WithLabelValues("ok"))
	ObserveAPIRequest("ok", 50, 200*time.Millisecond)
	require.InDelta(t, beforeOK+1, testutil.ToFloat64(apiRequestsTotal.WithLabelValues("ok")), 1e-9)

	beforeBytes := testutil.ToFloat64(downloadBytesTotal.WithLabelValues("oe.area"))
	ObserveDownload("oe.area", 0)
	ObserveDownload("oe.area", 2048)
	require.InDelta(t, beforeBytes+2048, testutil.ToFloat64(downloadBytesTotal.WithLabelValues("oe.area")), 1e-9)

	IncActiveWorkers()
	DecActiveWorkers()
	require.InDelta(t, 0.0, testutil.ToFloat64(crawlActiveWorkers), 1e-9)
}
