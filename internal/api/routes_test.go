package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/heimdex/crucible/internal/annotations"
	"github.com/heimdex/crucible/internal/db"
	"github.com/heimdex/crucible/internal/logging"
	"github.com/heimdex/crucible/internal/media"
	"github.com/heimdex/crucible/internal/playback"
	"github.com/heimdex/crucible/internal/review"
)

const testToken = "test-token-123456"

const testManifest = `Xytech Workorder 1109
Producer: Jane Doe
Operator: John Doe
Job: Color Correction
/hpsans13/production/Avatar/reel1/partA/1920x1080
Notes: Deliver by Friday.
`

type testEnv struct {
	handler http.Handler
	svc     *review.Service
	repo    *review.SQLiteRepository
	dir     string
	mpath   string
	vpath   string
}

type fakeDoctor struct {
	caps *media.Capabilities
}

func (d *fakeDoctor) Check(ctx context.Context) (*media.Capabilities, error) {
	return d.caps, nil
}

func newTestEnv(t *testing.T, doctor *media.CachedDoctor) *testEnv {
	t.Helper()

	dir := t.TempDir()
	database, err := db.New(filepath.Join(dir, "test.db"), nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	logger := logging.Discard()
	repo := review.NewRepository(database.Conn())
	ann := annotations.NewRepository(database.Conn())
	ff := media.NewStubFFmpeg(media.VideoInfo{FrameCount: 200, FPS: 24}, logger)
	svc := review.NewService(repo, ann, ff, nil, review.Dirs{
		Thumbnails: filepath.Join(dir, "thumbnails"),
		Renders:    filepath.Join(dir, "renders"),
		Reports:    filepath.Join(dir, "reports"),
	}, logger)

	if err := repo.SetConfig(context.Background(), review.ConfigKeyAuthToken, testToken); err != nil {
		t.Fatal(err)
	}

	mpath := filepath.Join(dir, "xytech.txt")
	if err := os.WriteFile(mpath, []byte(testManifest), 0o644); err != nil {
		t.Fatal(err)
	}
	vpath := filepath.Join(dir, "video.mp4")
	if err := os.WriteFile(vpath, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	handler := NewRouter(ServerConfig{
		Service:        svc,
		Repository:     repo,
		Annotations:    ann,
		PlaybackServer: playback.NewServer(logger),
		Runner:         review.NewRunner(svc, repo, nil, time.Second, logger),
		Doctor:         doctor,
		Logger:         logger,
		StartTime:      time.Now(),
		Version:        "test",
	})

	return &testEnv{handler: handler, svc: svc, repo: repo, dir: dir, mpath: mpath, vpath: vpath}
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeJSONBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return body
}

// completedRun ingests annotations and runs a review synchronously.
func (e *testEnv) completedRun(t *testing.T) *review.Run {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/annotations",
		strings.NewReader("/baselightfilesystem1/Avatar/reel1/partA/1920x1080 10 11 12 15 16 20\n"))
	if rr.Code != http.StatusOK {
		t.Fatalf("POST /annotations status = %d: %s", rr.Code, rr.Body.String())
	}
	res, err := e.svc.Run(context.Background(), review.Request{ManifestPath: e.mpath, VideoPath: e.vpath})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return res.Run
}

func TestHealth_NoAuth(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeJSONBody(t, rr)
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestStatus(t *testing.T) {
	doctor := media.NewCachedDoctor(&fakeDoctor{caps: &media.Capabilities{
		FFmpeg:   media.ToolInfo{Available: true},
		ProbedAt: time.Now(),
	}}, logging.Discard())
	env := newTestEnv(t, doctor)
	env.completedRun(t)

	rr := env.do(t, http.MethodGet, "/status", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeJSONBody(t, rr)
	if body["state"] != "idle" {
		t.Errorf("state = %v", body["state"])
	}
	if body["annotations_count"] != float64(1) {
		t.Errorf("annotations_count = %v", body["annotations_count"])
	}
	tools, ok := body["tools"].(map[string]any)
	if !ok {
		t.Fatal("tools missing from response")
	}
	if tools["ffmpeg"] != true || tools["ffprobe"] != false {
		t.Errorf("tools = %v", tools)
	}
}

func TestStatus_NilDoctor(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(t, http.MethodGet, "/status", nil)
	body := decodeJSONBody(t, rr)
	if _, ok := body["tools"]; ok {
		t.Fatal("tools should be omitted when doctor is nil")
	}
}

func TestSubmitAndGetRun(t *testing.T) {
	env := newTestEnv(t, nil)

	payload, _ := json.Marshal(review.Request{ManifestPath: env.mpath, VideoPath: env.vpath, IncludeIsolated: true})
	rr := env.do(t, http.MethodPost, "/runs", bytes.NewReader(payload))
	if rr.Code != http.StatusAccepted {
		t.Fatalf("POST /runs status = %d: %s", rr.Code, rr.Body.String())
	}
	id, _ := decodeJSONBody(t, rr)["run_id"].(string)
	if id == "" {
		t.Fatal("run_id missing")
	}

	rr = env.do(t, http.MethodGet, "/runs/"+id, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /runs/{id} status = %d", rr.Code)
	}
	body := decodeJSONBody(t, rr)
	if body["status"] != review.RunStatusPending || body["include_isolated"] != true {
		t.Errorf("run = %v", body)
	}

	rr = env.do(t, http.MethodGet, "/runs", nil)
	var list RunsResponse
	if err := json.NewDecoder(rr.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list.Runs) != 1 || list.Runs[0].ID != id {
		t.Errorf("runs = %+v", list.Runs)
	}
}

func TestSubmitRun_BadRequests(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "{"},
		{name: "missing manifest", body: `{"video_path":"/v.mp4"}`},
		{name: "upload without uploader", body: `{"manifest_path":"/m","video_path":"/v","upload":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/runs", strings.NewReader(tt.body))
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rr.Code)
			}
			if code := decodeJSONBody(t, rr)["code"]; code != "BAD_REQUEST" {
				t.Errorf("code = %v", code)
			}
		})
	}
}

func TestGetRun_NotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, path := range []string{"/runs/nope", "/runs/nope/ranges", "/runs/nope/clips/render_1_2.mp4"} {
		rr := env.do(t, http.MethodGet, path, nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, rr.Code)
		}
	}
}

func TestListRanges(t *testing.T) {
	env := newTestEnv(t, nil)
	run := env.completedRun(t)

	rr := env.do(t, http.MethodGet, "/runs/"+run.ID+"/ranges", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp RangesResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Ranges) != 2 {
		t.Fatalf("ranges = %+v", resp.Ranges)
	}
	first := resp.Ranges[0]
	if first.FrameRange != "10-12" || first.TimecodeRange != "00:00:00:10-00:00:00:12" {
		t.Errorf("first range = %+v", first)
	}
	if first.Clip != "render_10_12.mp4" || first.Thumbnail != "thumbnail_11.png" {
		t.Errorf("artifacts = %q, %q", first.Clip, first.Thumbnail)
	}
}

func TestArtifacts(t *testing.T) {
	env := newTestEnv(t, nil)
	run := env.completedRun(t)

	rr := env.do(t, http.MethodGet, "/runs/"+run.ID+"/thumbnails/thumbnail_11.png", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("thumbnail status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}

	rr = env.do(t, http.MethodGet, "/runs/"+run.ID+"/clips/render_15_16.mp4", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("clip status = %d", rr.Code)
	}

	rr = env.do(t, http.MethodGet, "/runs/"+run.ID+"/clips/render_99_100.mp4", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown clip status = %d, want 404", rr.Code)
	}
}

func TestExportRun(t *testing.T) {
	env := newTestEnv(t, nil)
	run := env.completedRun(t)
	outDir := t.TempDir()

	body := `{"format":"edl","output_dir":"` + outDir + `","title":"Avatar"}`
	rr := env.do(t, http.MethodPost, "/runs/"+run.ID+"/export", strings.NewReader(body))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeJSONBody(t, rr)
	if resp["range_count"] != float64(2) {
		t.Errorf("range_count = %v", resp["range_count"])
	}
	if _, err := os.Stat(filepath.Join(outDir, "workorder_Avatar.edl")); err != nil {
		t.Errorf("edl not written: %v", err)
	}
}

func TestExportRun_Errors(t *testing.T) {
	env := newTestEnv(t, nil)
	outDir := t.TempDir()
	pending, err := env.svc.Submit(context.Background(), review.Request{ManifestPath: env.mpath, VideoPath: env.vpath})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		id     string
		body   string
		status int
	}{
		{name: "bad format", id: pending.ID, body: `{"format":"pdf","output_dir":"` + outDir + `"}`, status: http.StatusBadRequest},
		{name: "traversal", id: pending.ID, body: `{"format":"edl","output_dir":"/tmp/../etc"}`, status: http.StatusBadRequest},
		{name: "unknown run", id: "nope", body: `{"format":"edl","output_dir":"` + outDir + `"}`, status: http.StatusNotFound},
		{name: "not finished", id: pending.ID, body: `{"format":"edl","output_dir":"` + outDir + `"}`, status: http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/runs/"+tt.id+"/export", strings.NewReader(tt.body))
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.status, rr.Body.String())
			}
		})
	}
}

func TestTimecodeRoutes(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		path   string
		status int
		key    string
		want   any
	}{
		{path: "/timecode/frame?frame=0&fps=24", status: http.StatusOK, key: "timecode", want: "00:00:00:00"},
		{path: "/timecode/frame?frame=12345&fps=25", status: http.StatusOK, key: "timecode", want: "00:08:13:20"},
		{path: "/timecode/ms?timecode=00:00:01:00&fps=24", status: http.StatusOK, key: "milliseconds", want: float64(1000)},
		{path: "/timecode/duration?ms=61001", status: http.StatusOK, key: "duration", want: "00:01:01.001"},
		{path: "/timecode/frame?frame=1&fps=0", status: http.StatusBadRequest},
		{path: "/timecode/frame?frame=-1&fps=24", status: http.StatusBadRequest},
		{path: "/timecode/frame?frame=x&fps=24", status: http.StatusBadRequest},
		{path: "/timecode/ms?timecode=00:01:00&fps=24", status: http.StatusBadRequest},
		{path: "/timecode/duration?ms=-5", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := env.do(t, http.MethodGet, tt.path, nil)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.status, rr.Body.String())
			}
			if tt.key == "" {
				return
			}
			if got := decodeJSONBody(t, rr)[tt.key]; got != tt.want {
				t.Errorf("%s = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestIngest(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(t, http.MethodPost, "/annotations", strings.NewReader("/a/b 1 2 3\n/c/d <err> 4\n\n"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := decodeJSONBody(t, rr)["records"]; got != float64(2) {
		t.Errorf("records = %v, want 2", got)
	}
}
