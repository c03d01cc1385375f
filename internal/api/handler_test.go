package api

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ivlev/sketchcast/internal/scene"
)

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	sc := &scene.Scene{
		Title: "centre",
		Operations: []scene.Operation{
			{ID: "c1", Kind: scene.KindCircle, DurationMs: scene.Float(1000), X: scene.Float(88), Y: scene.Float(50), Width: scene.Float(20)},
			{ID: "l1", Kind: scene.KindLabel, DelayMs: 1200, DurationMs: scene.Float(500), X: scene.Float(88), Y: scene.Float(60), Label: scene.String("Center")},
		},
	}
	return NewRouter(NewHandler(sc, Options{Width: 320, MaxWidth: 640}))
}

func do(t *testing.T, r http.Handler, method, url string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, nil)
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON %q: %v", w.Body.String(), err)
	}
	return body
}

func TestGetScene(t *testing.T) {
	w := do(t, testRouter(), http.MethodGet, "/api/scene")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	body := decode(t, w)
	if body["end_ms"] != 1700.0 || body["total_ms"] != 2700.0 {
		t.Errorf("Unexpected timing: %v", body)
	}
	sc := body["scene"].(map[string]interface{})
	if ops := sc["canvas_operations"].([]interface{}); len(ops) != 2 {
		t.Errorf("Expected 2 operations, got %d", len(ops))
	}
}

func TestGetFrame(t *testing.T) {
	r := testRouter()

	tests := []struct {
		url        string
		code       int
		wantWidth  int
		wantShapes string
	}{
		{"/api/frame.png", http.StatusOK, 320, "1"},
		{"/api/frame.png?t=1500&width=480", http.StatusOK, 480, "2"},
		{"/api/frame.png?t=abc", http.StatusBadRequest, 0, ""},
		{"/api/frame.png?width=10000", http.StatusBadRequest, 0, ""},
		{"/api/frame.png?width=8", http.StatusBadRequest, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			w := do(t, r, http.MethodGet, tt.url)
			if w.Code != tt.code {
				t.Fatalf("Expected %d, got %d: %s", tt.code, w.Code, w.Body.String())
			}
			if tt.code != http.StatusOK {
				return
			}
			if ct := w.Header().Get("Content-Type"); ct != "image/png" {
				t.Errorf("Expected image/png, got %q", ct)
			}
			if got := w.Header().Get("X-Frame-Shapes"); got != tt.wantShapes {
				t.Errorf("Expected %s shapes, got %s", tt.wantShapes, got)
			}
			img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
			if err != nil {
				t.Fatal(err)
			}
			if img.Bounds().Dx() != tt.wantWidth || img.Bounds().Dy() != tt.wantWidth*9/16 {
				t.Errorf("Unexpected frame size %v", img.Bounds())
			}
		})
	}
}

func TestGetTimeline(t *testing.T) {
	w := do(t, testRouter(), http.MethodGet, "/api/timeline?t=500")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	ops := decode(t, w)["operations"].([]interface{})
	if len(ops) != 2 {
		t.Fatalf("Expected 2 operations, got %d", len(ops))
	}
	first := ops[0].(map[string]interface{})
	if first["status"] != "drawing" || first["eased"] != 0.875 {
		t.Errorf("Unexpected circle state: %v", first)
	}
	if second := ops[1].(map[string]interface{}); second["status"] != "pending" {
		t.Errorf("Label should be pending, got %v", second)
	}
}

func TestSessionLifecycle(t *testing.T) {
	r := testRouter()

	w := do(t, r, http.MethodPost, "/api/sessions?width=160")
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	created := decode(t, w)
	id := created["id"].(string)
	if created["playing"] != false || created["width"] != 160.0 {
		t.Errorf("Unexpected new session: %v", created)
	}

	w = do(t, r, http.MethodPost, "/api/sessions/"+id+"/seek?t=1200")
	if w.Code != http.StatusOK || decode(t, w)["current_ms"] != 1200.0 {
		t.Fatalf("Seek failed: %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodPost, "/api/sessions/"+id+"/skip?delta=-5000")
	if decode(t, w)["current_ms"] != 0.0 {
		t.Errorf("Skip should clamp to 0: %s", w.Body.String())
	}

	w = do(t, r, http.MethodPost, "/api/sessions/"+id+"/play")
	if decode(t, w)["playing"] != true {
		t.Errorf("Expected playing: %s", w.Body.String())
	}
	w = do(t, r, http.MethodPost, "/api/sessions/"+id+"/pause")
	if decode(t, w)["playing"] != false {
		t.Errorf("Expected paused: %s", w.Body.String())
	}

	if w = do(t, r, http.MethodPost, "/api/sessions/"+id+"/seek"); w.Code != http.StatusBadRequest {
		t.Errorf("Seek without t should be rejected, got %d", w.Code)
	}
	if w = do(t, r, http.MethodPost, "/api/sessions/"+id+"/dance"); w.Code != http.StatusNotFound {
		t.Errorf("Unknown action should be 404, got %d", w.Code)
	}

	w = do(t, r, http.MethodGet, "/api/sessions/"+id+"/frame.png")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	if err != nil || img.Bounds().Dx() != 160 {
		t.Errorf("Expected a 160 wide PNG, got %v (%v)", img, err)
	}

	if w = do(t, r, http.MethodDelete, "/api/sessions/"+id); w.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", w.Code)
	}
	if w = do(t, r, http.MethodGet, "/api/sessions/"+id); w.Code != http.StatusNotFound {
		t.Errorf("Deleted session should be gone, got %d", w.Code)
	}
	if w = do(t, r, http.MethodGet, "/api/sessions/not-a-uuid"); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a bad id, got %d", w.Code)
	}
}

func createSession(t *testing.T, r http.Handler) string {
	t.Helper()
	w := do(t, r, http.MethodPost, "/api/sessions?width=160")
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	return decode(t, w)["id"].(string)
}

func TestSessionSeekClamps(t *testing.T) {
	r := testRouter()
	id := createSession(t, r)

	tests := []struct {
		query string
		code  int
		want  float64
	}{
		{"t=-500", http.StatusOK, 0},
		{"t=99999", http.StatusOK, 2700},
		{"t=1200", http.StatusOK, 1200},
		{"t=soon", http.StatusBadRequest, 0},
		{"", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		w := do(t, r, http.MethodPost, "/api/sessions/"+id+"/seek?"+tt.query)
		if w.Code != tt.code {
			t.Errorf("seek?%s: expected %d, got %d", tt.query, tt.code, w.Code)
			continue
		}
		if tt.code == http.StatusOK && decode(t, w)["current_ms"] != tt.want {
			t.Errorf("seek?%s: expected current_ms %v, got %s", tt.query, tt.want, w.Body.String())
		}
	}
}

func TestSessionEviction(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	h := NewHandler(&scene.Scene{Operations: []scene.Operation{}}, Options{
		Width:       320,
		MaxSessions: 2,
		SessionTTL:  time.Minute,
		now:         func() time.Time { return now },
	})
	r := NewRouter(h)

	first := createSession(t, r)
	now = now.Add(time.Second)
	second := createSession(t, r)
	now = now.Add(time.Second)

	// Using the first session makes the second the least recently used
	if w := do(t, r, http.MethodGet, "/api/sessions/"+first); w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	now = now.Add(time.Second)
	third := createSession(t, r)

	if len(h.sessions) != 2 {
		t.Errorf("Expected the cap of 2 sessions, got %d", len(h.sessions))
	}
	if w := do(t, r, http.MethodGet, "/api/sessions/"+second); w.Code != http.StatusNotFound {
		t.Errorf("Least recently used session should be evicted, got %d", w.Code)
	}
	for _, id := range []string{first, third} {
		if w := do(t, r, http.MethodGet, "/api/sessions/"+id); w.Code != http.StatusOK {
			t.Errorf("Session %s should survive, got %d", id, w.Code)
		}
	}

	now = now.Add(2 * time.Minute)
	if w := do(t, r, http.MethodGet, "/api/sessions/"+third); w.Code != http.StatusNotFound {
		t.Errorf("Idle session should expire, got %d", w.Code)
	}
	if len(h.sessions) != 0 {
		t.Errorf("Expired sessions should be dropped, %d left", len(h.sessions))
	}
}
