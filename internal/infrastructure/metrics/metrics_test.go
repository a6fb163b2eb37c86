package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorders(t *testing.T) {
	Init()
	Init()

	before := testutil.ToFloat64(activityRequestsCounter.WithLabelValues("stale"))
	RecordActivityRequest("stale")
	assert.Equal(t, before+1, testutil.ToFloat64(activityRequestsCounter.WithLabelValues("stale")))

	RecordEdgeMutation("add", "rollback")
	assert.Equal(t, float64(1), testutil.ToFloat64(edgeMutationsCounter.WithLabelValues("add", "rollback")))

	RecordExplorerRequest(250*time.Millisecond, "txlist", false)
	assert.Equal(t, 1, testutil.CollectAndCount(explorerRequestDuration))
}
