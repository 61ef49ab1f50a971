package progress

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inatscraper/pkg/logger"
	"inatscraper/pkg/metrics"
)

func TestTrackerCounts(t *testing.T) {
	tr := NewTracker(nil, logger.NewNopLogger())
	tr.SetTotal(4)
	tr.RecordRequest()
	tr.RecordRequest()
	tr.RecordSpeciesDone()

	assert.Equal(t, Snapshot{RequestsIssued: 2, SpeciesCompleted: 1, SpeciesTotal: 4}, tr.Snapshot())
	assert.Equal(t, 25.0, tr.Snapshot().Percent())
}

func TestTrackerConcurrentUpdates(t *testing.T) {
	tr := NewTracker(nil, logger.NewNopLogger())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.RecordRequest()
			tr.RecordSpeciesDone()
		}()
	}
	wg.Wait()

	s := tr.Snapshot()
	assert.Equal(t, 50, s.RequestsIssued)
	assert.Equal(t, 50, s.SpeciesCompleted)
}

func TestReportWithZeroTotal(t *testing.T) {
	tl := logger.NewTestLogger()
	tr := NewTracker(nil, tl)
	tr.RecordSpeciesDone()

	assert.NotPanics(t, tr.Report)
	assert.True(t, tl.HasMessage("Species total unknown, progress reported as 0%"))
	assert.Zero(t, tr.Snapshot().Percent())
}

func TestReportLogsPercentage(t *testing.T) {
	tl := logger.NewTestLogger()
	tr := NewTracker(nil, tl)
	tr.SetTotal(3)
	tr.RecordRequest()
	tr.RecordSpeciesDone()
	tr.Report()

	msgs := tl.GetMessagesByLevel("INFO")
	require.Len(t, msgs, 1)
	assert.Equal(t, "Harvest progress", msgs[0].Message)
	assert.Equal(t, "33.33%", msgs[0].Fields["percentage"])
	assert.Equal(t, 1, msgs[0].Fields["requests"])
	assert.Equal(t, "progress", msgs[0].Fields["component"])
}

func TestTrackerMirrorsMetrics(t *testing.T) {
	m, err := metrics.NewHarvest()
	require.NoError(t, err)

	tr := NewTracker(m, logger.NewNopLogger())
	tr.SetTotal(7)
	tr.RecordRequest()

	assert.Equal(t, 7.0, testutil.ToFloat64(m.SpeciesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.APIRequests))
}
