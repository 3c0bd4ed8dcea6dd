package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(ModerationTransitions.WithLabelValues("approve", "ok"))
	ModerationTransitions.WithLabelValues("approve", "ok").Inc()
	require.Equal(t, before+1, testutil.ToFloat64(ModerationTransitions.WithLabelValues("approve", "ok")))

	ObserveHTTP("GET", "/api/v1/recipes", 200, 15*time.Millisecond)
	require.Equal(t, 1, testutil.CollectAndCount(HTTPRequestDuration))
}
