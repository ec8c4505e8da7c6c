package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podium-data/delivery.report/internal/db"
	"github.com/podium-data/delivery.report/internal/vision/pipeline"
)

func newTestStore(t *testing.T) *ObservationsStore {
	t.Helper()
	handle, err := db.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { handle.Close() })

	require.NoError(t, handle.MigrateUp("../../../../db/migrations"))
	return NewObservationsStore(handle.DB)
}

func sampleObservations(grade string) *pipeline.VisualObservations {
	return &pipeline.VisualObservations{
		Counters: pipeline.CounterSnapshot{
			FramesReceived: 40,
			FramesAnalyzed: 38,
		},
		DurationSeconds:        19.5,
		VideoQualityGrade:      grade,
		VideoQualityWarning:    grade != pipeline.GradeGood,
		MovementClassification: "stationary",
		ProcessingFingerprint:  "sha256:deadbeef",
	}
}

func TestInsertAndGetRoundTrip(t *testing.T) {
	store := newTestStore(t)

	rec := &SessionRecord{Observations: sampleObservations(pipeline.GradeGood)}
	require.NoError(t, store.Insert(rec))
	assert.NotEmpty(t, rec.SessionID, "insert assigns an ID")
	assert.NotZero(t, rec.CreatedAt)

	got, err := store.Get(rec.SessionID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.SessionID, got.SessionID)
	assert.Equal(t, int64(40), got.Observations.Counters.FramesReceived)
	assert.Equal(t, pipeline.GradeGood, got.Observations.VideoQualityGrade)
	assert.Equal(t, 19.5, got.Observations.DurationSeconds)
}

func TestGetMissingSession(t *testing.T) {
	store := newTestStore(t)
	got, err := store.Get("no-such-session")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInsertRejectsNilObservations(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.Insert(&SessionRecord{}))
}

func TestListNewestFirst(t *testing.T) {
	store := newTestStore(t)

	for i, grade := range []string{pipeline.GradePoor, pipeline.GradeDegraded, pipeline.GradeGood} {
		rec := &SessionRecord{
			CreatedAt:    int64(1000 + i),
			Observations: sampleObservations(grade),
		}
		require.NoError(t, store.Insert(rec))
	}

	recs, err := store.List(10)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, pipeline.GradeGood, recs[0].Observations.VideoQualityGrade)
	assert.Equal(t, pipeline.GradePoor, recs[2].Observations.VideoQualityGrade)

	limited, err := store.List(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}
