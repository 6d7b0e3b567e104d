package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestExporterCounters(t *testing.T) {
	e := NewExporter(Config{})

	e.RecordStageHit("knowledge")
	e.RecordStageHit("knowledge")
	e.RecordStageHit("cache")
	e.RecordCacheHit("answer")
	e.RecordCacheMiss("answer")
	e.RecordFeedback("positive")
	e.RecordResolve("knowledge", 10*time.Millisecond, true)
	e.RecordProviderCall("websearch", 50*time.Millisecond, false)

	require.InDelta(t, 2, testutil.ToFloat64(e.stageHits.WithLabelValues("knowledge")), 1e-9)
	require.InDelta(t, 1, testutil.ToFloat64(e.stageHits.WithLabelValues("cache")), 1e-9)
	require.InDelta(t, 1, testutil.ToFloat64(e.cacheHits.WithLabelValues("answer")), 1e-9)
	require.InDelta(t, 1, testutil.ToFloat64(e.cacheMisses.WithLabelValues("answer")), 1e-9)
	require.InDelta(t, 1, testutil.ToFloat64(e.feedbackTotal.WithLabelValues("positive")), 1e-9)
	require.InDelta(t, 1, testutil.ToFloat64(e.resolveRequests.WithLabelValues("knowledge", "success")), 1e-9)
	require.InDelta(t, 1, testutil.ToFloat64(e.providerCalls.WithLabelValues("websearch", "error")), 1e-9)
}

func TestExporterHandler(t *testing.T) {
	e := NewExporter(Config{})
	require.NotNil(t, e.Handler())
	require.NotNil(t, e.Registry())
}
