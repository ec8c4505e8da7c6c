package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/podium-data/delivery.report/internal/testutil"
	"github.com/podium-data/delivery.report/internal/vision/pipeline"
	"github.com/podium-data/delivery.report/internal/vision/storage/sqlite"
)

// fakeStore serves canned records without a database.
type fakeStore struct {
	records []*sqlite.SessionRecord
	err     error
}

func (f *fakeStore) Get(sessionID string) (*sqlite.SessionRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, rec := range f.records {
		if rec.SessionID == sessionID {
			return rec, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) List(limit int) ([]*sqlite.SessionRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit > len(f.records) {
		limit = len(f.records)
	}
	return f.records[:limit], nil
}

func testRecord(id string, grade string) *sqlite.SessionRecord {
	return &sqlite.SessionRecord{
		SessionID: id,
		CreatedAt: 1700000000,
		Observations: &pipeline.VisualObservations{
			Counters: pipeline.CounterSnapshot{
				FramesReceived: 40,
				FramesAnalyzed: 38,
			},
			DurationSeconds:       19.5,
			VideoQualityGrade:     grade,
			VideoQualityWarning:   grade != pipeline.GradeGood,
			ProcessingFingerprint: "sha256:feedface",
		},
	}
}

func serveRequest(t *testing.T, store SessionStore, method, path string) *http.Response {
	t.Helper()
	mux := NewServer(store).ServeMux()
	rec := testutil.NewTestRecorder()
	mux.ServeHTTP(rec, testutil.NewTestRequest(method, path))
	return rec.Result()
}

func TestHealthEndpoint(t *testing.T) {
	resp := serveRequest(t, &fakeStore{}, http.MethodGet, "/api/health")
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp.StatusCode, http.StatusOK)

	var body map[string]string
	testutil.AssertNoError(t, json.NewDecoder(resp.Body).Decode(&body))
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestHealthRejectsPost(t *testing.T) {
	resp := serveRequest(t, &fakeStore{}, http.MethodPost, "/api/health")
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp.StatusCode, http.StatusMethodNotAllowed)
}

func TestListSessions(t *testing.T) {
	store := &fakeStore{records: []*sqlite.SessionRecord{
		testRecord("s-1", pipeline.GradeGood),
		testRecord("s-2", pipeline.GradePoor),
	}}
	resp := serveRequest(t, store, http.MethodGet, "/api/sessions")
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp.StatusCode, http.StatusOK)

	var summaries []SessionSummary
	testutil.AssertNoError(t, json.NewDecoder(resp.Body).Decode(&summaries))
	if len(summaries) != 2 {
		t.Fatalf("len(summaries) = %d, want 2", len(summaries))
	}
	if summaries[0].SessionID != "s-1" || summaries[0].VideoQualityGrade != pipeline.GradeGood {
		t.Errorf("unexpected first summary: %+v", summaries[0])
	}
	if !summaries[1].VideoQualityWarning {
		t.Error("poor session should carry a quality warning")
	}
}

func TestListSessionsHonoursLimit(t *testing.T) {
	store := &fakeStore{records: []*sqlite.SessionRecord{
		testRecord("s-1", pipeline.GradeGood),
		testRecord("s-2", pipeline.GradeGood),
		testRecord("s-3", pipeline.GradeGood),
	}}
	resp := serveRequest(t, store, http.MethodGet, "/api/sessions?limit=2")
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp.StatusCode, http.StatusOK)

	var summaries []SessionSummary
	testutil.AssertNoError(t, json.NewDecoder(resp.Body).Decode(&summaries))
	if len(summaries) != 2 {
		t.Errorf("len(summaries) = %d, want 2", len(summaries))
	}
}

func TestListSessionsRejectsBadLimit(t *testing.T) {
	for _, limit := range []string{"0", "-3", "abc"} {
		resp := serveRequest(t, &fakeStore{}, http.MethodGet, "/api/sessions?limit="+limit)
		resp.Body.Close()
		testutil.AssertStatusCode(t, resp.StatusCode, http.StatusBadRequest)
	}
}

func TestListSessionsStoreError(t *testing.T) {
	resp := serveRequest(t, &fakeStore{err: errors.New("disk gone")}, http.MethodGet, "/api/sessions")
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp.StatusCode, http.StatusInternalServerError)
}

func TestShowSession(t *testing.T) {
	store := &fakeStore{records: []*sqlite.SessionRecord{testRecord("s-9", pipeline.GradeDegraded)}}
	resp := serveRequest(t, store, http.MethodGet, "/api/sessions/s-9")
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp.StatusCode, http.StatusOK)

	var rec sqlite.SessionRecord
	testutil.AssertNoError(t, json.NewDecoder(resp.Body).Decode(&rec))
	if rec.SessionID != "s-9" {
		t.Errorf("session_id = %q, want s-9", rec.SessionID)
	}
	if rec.Observations == nil || rec.Observations.VideoQualityGrade != pipeline.GradeDegraded {
		t.Errorf("unexpected observations: %+v", rec.Observations)
	}
}

func TestShowSessionNotFound(t *testing.T) {
	resp := serveRequest(t, &fakeStore{}, http.MethodGet, "/api/sessions/missing")
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp.StatusCode, http.StatusNotFound)
}

func TestShowSessionRejectsNestedPath(t *testing.T) {
	resp := serveRequest(t, &fakeStore{}, http.MethodGet, "/api/sessions/a/b")
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp.StatusCode, http.StatusBadRequest)
}
