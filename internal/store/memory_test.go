package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdstemmler/poker/internal/errs"
)

func TestMemoryLobbyRoundTrip(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	_, err := m.LoadLobby(ctx, "NOPE")
	assert.True(t, errs.IsKind(err, errs.NotFound))

	require.NoError(t, m.SaveLobby(ctx, "ABC234", []byte(`{"code":"ABC234"}`)))
	data, err := m.LoadLobby(ctx, "ABC234")
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"ABC234"}`, string(data))
}

func TestMemoryEngineRoundTrip(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	_, err := m.LoadEngine(ctx, "ABC234")
	assert.True(t, errs.IsKind(err, errs.NotFound))

	require.NoError(t, m.SaveEngine(ctx, "ABC234", []byte(`{"pot":40}`)))
	data, err := m.LoadEngine(ctx, "ABC234")
	require.NoError(t, err)
	assert.JSONEq(t, `{"pot":40}`, string(data))
}

func TestMemoryDeleteRemovesBothDocuments(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.SaveLobby(ctx, "ABC234", []byte(`{}`)))
	require.NoError(t, m.SaveEngine(ctx, "ABC234", []byte(`{}`)))
	require.NoError(t, m.Delete(ctx, "ABC234"))

	_, err := m.LoadLobby(ctx, "ABC234")
	assert.True(t, errs.IsKind(err, errs.NotFound))
	_, err = m.LoadEngine(ctx, "ABC234")
	assert.True(t, errs.IsKind(err, errs.NotFound))

	require.NoError(t, m.Delete(ctx, "ABC234"), "deleting twice is fine")
}

func TestMemoryListCodes(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	codes, err := m.ListCodes(ctx)
	require.NoError(t, err)
	assert.Empty(t, codes)

	require.NoError(t, m.SaveLobby(ctx, "AAAAAA", []byte(`{}`)))
	require.NoError(t, m.SaveLobby(ctx, "BBBBBB", []byte(`{}`)))
	codes, err = m.ListCodes(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"AAAAAA", "BBBBBB"}, codes)
}

func TestMemoryMetrics(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()
	now := time.Now()

	for i, at := range []time.Time{
		now.Add(-48 * time.Hour),
		now.Add(-2 * time.Hour),
		now.Add(-time.Minute),
	} {
		require.NoError(t, m.RecordMetric(ctx, MetricCreated, MetricEntry{
			Code: "GAME" + string(rune('A'+i)),
			At:   at.Unix(),
		}))
	}

	day, err := m.CountMetric(ctx, MetricCreated, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 2, day)

	week, err := m.CountMetric(ctx, MetricCreated, now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 3, week)

	none, err := m.CountMetric(ctx, MetricCompleted, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, none)
}

func TestMemoryMetricRetention(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()
	now := time.Now()

	ancient := MetricEntry{Code: "OLD", At: now.Add(-91 * 24 * time.Hour).Unix()}
	require.NoError(t, m.RecordMetric(ctx, MetricCleaned, ancient))
	fresh := MetricEntry{Code: "NEW", At: now.Unix()}
	require.NoError(t, m.RecordMetric(ctx, MetricCleaned, fresh))

	total, err := m.CountMetric(ctx, MetricCleaned, now.Add(-100*24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, total, "entries older than retention are pruned")
}
