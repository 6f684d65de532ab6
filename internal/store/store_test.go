package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jroosing/flowinspect/internal/flow"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flowinspect.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesSchema(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Health())
}

func TestRecordObservation_ThenQueryByIP(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.RecordObservation(ctx, 1, "93.184.216.34", []string{"example.com", "www.example.com"}, 1000)
	require.NoError(t, err)

	obs, err := s.ObservationsForIP(ctx, "93.184.216.34", 10)
	require.NoError(t, err)
	require.Len(t, obs, 2)
	for _, o := range obs {
		require.Equal(t, uint64(1), o.SessionID)
		require.Equal(t, int64(1000), o.ObservedAt)
	}
}

func TestRecordObservation_EmptyDomainsIsNoop(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordObservation(ctx, 1, "1.2.3.4", nil, 1000))

	obs, err := s.ObservationsForIP(ctx, "1.2.3.4", 10)
	require.NoError(t, err)
	require.Empty(t, obs)
}

func TestObservationsForIP_OrdersMostRecentFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordObservation(ctx, 1, "1.2.3.4", []string{"old.example"}, 100))
	require.NoError(t, s.RecordObservation(ctx, 2, "1.2.3.4", []string{"new.example"}, 200))

	obs, err := s.ObservationsForIP(ctx, "1.2.3.4", 10)
	require.NoError(t, err)
	require.Len(t, obs, 2)
	require.Equal(t, "new.example", obs[0].Domain)
	require.Equal(t, "old.example", obs[1].Domain)
}

func TestObservationsForIP_UnknownIPReturnsEmpty(t *testing.T) {
	s := openTestStore(t)
	obs, err := s.ObservationsForIP(context.Background(), "10.0.0.9", 10)
	require.NoError(t, err)
	require.Empty(t, obs)
}

func TestObservationsForIP_RespectsLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.RecordObservation(ctx, 1, "1.2.3.4", []string{"a.example", "b.example", "c.example"}, 100))

	obs, err := s.ObservationsForIP(ctx, "1.2.3.4", 2)
	require.NoError(t, err)
	require.Len(t, obs, 2)
}

func TestAsObserver_RecordsThroughAdapter(t *testing.T) {
	s := openTestStore(t)
	obs := s.AsObserver()
	obs.RecordObservation(7, "5.6.7.8", []string{"adapter.example"})

	rows, err := s.ObservationsForIP(context.Background(), "5.6.7.8", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, uint64(7), rows[0].SessionID)
	require.Equal(t, "adapter.example", rows[0].Domain)
}

func TestRecordObservation_WithLoggerSetDoesNotError(t *testing.T) {
	s := openTestStore(t)
	s.SetLogger(discardLogger())

	err := s.RecordObservation(context.Background(), 1, "1.2.3.4", []string{"logged.example"}, 1000)
	require.NoError(t, err)
}

func TestObserver_NilStoreIsNoop(t *testing.T) {
	var o Observer
	o.RecordObservation(1, "1.2.3.4", []string{"x.example"})
	o.RecordFlowSnapshot(flow.FlowSnapshot{SessionID: 1})
}

func testSnapshot() flow.FlowSnapshot {
	return flow.FlowSnapshot{
		SessionID:    42,
		FlowIP:       "93.184.216.34",
		DstPort:      443,
		Transport:    "tcp",
		Direction:    "outbound",
		ProcessID:    1234,
		ProcessName:  "curl",
		ProcessPath:  "/usr/bin/curl",
		Decision:     "allow",
		PathDecision: "local",
		Domains:      []string{"example.com", "www.example.com"},
	}
}

func TestRecordFlowSnapshot_ThenQueryBySession(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordFlowSnapshot(ctx, testSnapshot(), 1000))

	rec, err := s.FlowSnapshotForSession(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, uint64(42), rec.SessionID)
	require.Equal(t, "93.184.216.34", rec.FlowIP)
	require.Equal(t, uint16(443), rec.DstPort)
	require.Equal(t, "tcp", rec.Transport)
	require.Equal(t, "outbound", rec.Direction)
	require.Equal(t, 1234, rec.ProcessID)
	require.Equal(t, "curl", rec.ProcessName)
	require.Equal(t, "allow", rec.Decision)
	require.Equal(t, "local", rec.PathDecision)
	require.Equal(t, []string{"example.com", "www.example.com"}, rec.Domains)
	require.Equal(t, int64(1000), rec.UpdatedAt)
}

func TestRecordFlowSnapshot_LaterCloseOverwritesEarlier(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	snap := testSnapshot()
	require.NoError(t, s.RecordFlowSnapshot(ctx, snap, 1000))

	snap.Decision = "block"
	snap.Domains = []string{"blocked.example"}
	require.NoError(t, s.RecordFlowSnapshot(ctx, snap, 2000))

	rec, err := s.FlowSnapshotForSession(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, "block", rec.Decision)
	require.Equal(t, []string{"blocked.example"}, rec.Domains)
	require.Equal(t, int64(2000), rec.UpdatedAt)
}

func TestFlowSnapshotForSession_UnknownSessionReturnsNil(t *testing.T) {
	s := openTestStore(t)
	rec, err := s.FlowSnapshotForSession(context.Background(), 999)
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestAsObserver_RecordsFlowSnapshotThroughAdapter(t *testing.T) {
	s := openTestStore(t)
	obs := s.AsObserver()
	obs.RecordFlowSnapshot(testSnapshot())

	rec, err := s.FlowSnapshotForSession(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, "curl", rec.ProcessName)
}
