package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"navgraph/config"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

var arena = BuildNavGraphRequest{
	Contour: []Point{{0, 0}, {20, 0}, {20, 10}, {0, 10}},
	Obstacles: [][]Point{
		{{9, 4}, {11, 4}, {11, 6}, {9, 6}},
	},
}

func TestServerLifecycle(t *testing.T) {
	h := newServer(config.Default(), nil).handler()

	var health map[string]interface{}
	decode(t, do(t, h, http.MethodGet, "/health", nil), &health)
	if health["hasNavGraph"] != false {
		t.Errorf("health before build = %v, want hasNavGraph false", health)
	}

	if rec := do(t, h, http.MethodPost, "/route", RouteRequest{Start: Point{1, 5}, End: Point{19, 5}}); rec.Code != http.StatusBadRequest {
		t.Errorf("route before build status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if rec := do(t, h, http.MethodGet, "/getNavGraphLines", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("lines before build status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec := do(t, h, http.MethodPost, "/buildNavGraph", arena)
	if rec.Code != http.StatusOK {
		t.Fatalf("build status = %d, body %s", rec.Code, rec.Body.String())
	}
	var built map[string]interface{}
	decode(t, rec, &built)
	if built["success"] != true || built["numObstacles"] != float64(1) {
		t.Errorf("build response = %v", built)
	}

	if rec := do(t, h, http.MethodPost, "/buildNavGraph", arena); rec.Code != http.StatusConflict {
		t.Errorf("second build status = %d, want %d", rec.Code, http.StatusConflict)
	}
	forced := arena
	forced.Force = true
	if rec := do(t, h, http.MethodPost, "/buildNavGraph", forced); rec.Code != http.StatusOK {
		t.Errorf("forced build status = %d, want %d", rec.Code, http.StatusOK)
	}

	decode(t, do(t, h, http.MethodGet, "/health", nil), &health)
	if health["hasNavGraph"] != true || health["numNodes"].(float64) <= 0 {
		t.Errorf("health after build = %v", health)
	}

	var lines struct {
		Lines     []Segment `json:"lines"`
		Triangles [][]Point `json:"triangles"`
	}
	decode(t, do(t, h, http.MethodGet, "/getNavGraphLines", nil), &lines)
	if len(lines.Lines) == 0 || len(lines.Triangles) == 0 {
		t.Errorf("lines response has %d lines and %d triangles", len(lines.Lines), len(lines.Triangles))
	}
}

func TestRoute(t *testing.T) {
	h := newServer(config.Default(), nil).handler()
	if rec := do(t, h, http.MethodPost, "/buildNavGraph", arena); rec.Code != http.StatusOK {
		t.Fatalf("build status = %d", rec.Code)
	}

	tests := []struct {
		name        string
		req         RouteRequest
		wantStatus  int
		wantSuccess bool
	}{
		{"astar", RouteRequest{Start: Point{1, 5}, End: Point{19, 5}}, http.StatusOK, true},
		{"uppercase algorithm", RouteRequest{Start: Point{1, 5}, End: Point{19, 5}, Algorithm: " ASTAR "}, http.StatusOK, true},
		{"bfs unsmoothed", RouteRequest{Start: Point{1, 5}, End: Point{19, 5}, Algorithm: "bfs", Smooth: new(bool)}, http.StatusOK, true},
		{"start outside", RouteRequest{Start: Point{-5, 5}, End: Point{19, 5}}, http.StatusOK, false},
		{"inside obstacle", RouteRequest{Start: Point{1, 5}, End: Point{10, 5}}, http.StatusOK, false},
		{"unknown algorithm", RouteRequest{Start: Point{1, 5}, End: Point{19, 5}, Algorithm: "teleport"}, http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/route", tt.req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var resp RouteResponse
			decode(t, rec, &resp)
			if resp.Success != tt.wantSuccess {
				t.Fatalf("success = %v, want %v (%s)", resp.Success, tt.wantSuccess, resp.Message)
			}
			if !tt.wantSuccess {
				return
			}
			if resp.Path[0] != tt.req.Start || resp.Path[len(resp.Path)-1] != tt.req.End {
				t.Errorf("path runs from %v to %v", resp.Path[0], resp.Path[len(resp.Path)-1])
			}
			if resp.Distance <= 18 {
				t.Errorf("distance = %v, want a detour longer than 18", resp.Distance)
			}
		})
	}
}

func TestConcurrentBuildsStoreOneGraph(t *testing.T) {
	h := newServer(config.Default(), nil).handler()
	body, err := json.Marshal(arena)
	if err != nil {
		t.Fatal(err)
	}

	const builds = 8
	codes := make([]int, builds)
	var wg sync.WaitGroup
	for i := 0; i < builds; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/buildNavGraph", bytes.NewReader(body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()

	created := 0
	for i, code := range codes {
		switch code {
		case http.StatusOK:
			created++
		case http.StatusConflict:
		default:
			t.Errorf("build %d status = %d", i, code)
		}
	}
	if created != 1 {
		t.Errorf("%d builds stored a graph, want 1 (statuses %v)", created, codes)
	}
}

func TestStoreNavGraph(t *testing.T) {
	s := newServer(config.Default(), nil)
	first, err := s.buildNavGraph(arena)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.buildNavGraph(arena)
	if err != nil {
		t.Fatal(err)
	}

	if !s.storeNavGraph(first, false) {
		t.Fatal("storeNavGraph() refused the first graph")
	}
	if s.storeNavGraph(second, false) || s.graph() != first {
		t.Error("storeNavGraph() replaced a graph without force")
	}
	if !s.storeNavGraph(second, true) || s.graph() != second {
		t.Error("storeNavGraph() ignored force")
	}
}

func TestBuildFromTriangles(t *testing.T) {
	h := newServer(config.Default(), nil).handler()

	req := BuildNavGraphRequest{Triangles: [][]Point{
		{{0, 0}, {10, 0}, {10, 10}},
		{{0, 0}, {10, 10}, {0, 10}},
	}}
	rec := do(t, h, http.MethodPost, "/buildNavGraph", req)
	if rec.Code != http.StatusOK {
		t.Fatalf("build status = %d, body %s", rec.Code, rec.Body.String())
	}
	var built map[string]interface{}
	decode(t, rec, &built)
	if built["numNodes"] != float64(1) || built["numTriangles"] != float64(2) {
		t.Errorf("build response = %v, want 1 node and 2 triangles", built)
	}

	var resp RouteResponse
	decode(t, do(t, h, http.MethodPost, "/route", RouteRequest{Start: Point{8, 2}, End: Point{2, 8}}), &resp)
	if !resp.Success {
		t.Errorf("route over prebuilt mesh failed: %s", resp.Message)
	}

	bad := BuildNavGraphRequest{Triangles: [][]Point{{{0, 0}, {1, 0}}}, Force: true}
	if rec := do(t, h, http.MethodPost, "/buildNavGraph", bad); rec.Code != http.StatusBadRequest {
		t.Errorf("two-corner triangle status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestRouteRejectsBadRequests(t *testing.T) {
	h := newServer(config.Default(), nil).handler()

	req := httptest.NewRequest(http.MethodPost, "/route", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	if rec := do(t, h, http.MethodGet, "/route", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /route status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}

	bad := BuildNavGraphRequest{Contour: []Point{{0, 0}, {1, 1}}}
	if rec := do(t, h, http.MethodPost, "/buildNavGraph", bad); rec.Code != http.StatusBadRequest {
		t.Errorf("degenerate contour status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newServer(config.Default(), nil).handler()

	req := httptest.NewRequest(http.MethodOptions, "/route", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestParsePoint(t *testing.T) {
	tests := []struct {
		in      string
		want    [2]float64
		wantErr bool
	}{
		{in: "1,2", want: [2]float64{1, 2}},
		{in: " 3.5 , -4 ", want: [2]float64{3.5, -4}},
		{in: "1", wantErr: true},
		{in: "a,2", wantErr: true},
		{in: "1,b", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parsePoint(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parsePoint(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && (got[0] != tt.want[0] || got[1] != tt.want[1]) {
			t.Errorf("parsePoint(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

const sceneJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"role": "contour"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[20,0],[20,10],[0,10],[0,0]]]}},
    {"type": "Feature", "properties": {},
     "geometry": {"type": "Polygon", "coordinates": [[[9,4],[11,4],[11,6],[9,6],[9,4]]]}}
  ]
}`

func writeScene(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	scene := filepath.Join(dir, "arena.geojson")
	if err := os.WriteFile(scene, []byte(sceneJSON), 0644); err != nil {
		t.Fatal(err)
	}
	cfgFile := filepath.Join(dir, "config.yaml")
	cfg := "navmesh:\n  player_radius: 0.5\n  contour_file: " + scene + "\nlogging:\n  quiet: true\n"
	if err := os.WriteFile(cfgFile, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}
	return cfgFile
}

func TestBuildCmd(t *testing.T) {
	cmd := BuildCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", writeScene(t)})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("build error = %v", err)
	}
	if !strings.Contains(out.String(), "obstacles:   1") {
		t.Errorf("build output = %q, want one obstacle", out.String())
	}
}

func TestPathCmd(t *testing.T) {
	cmd := PathCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", writeScene(t), "--from", "1,5", "--to", "19,5", "--quiet"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("path error = %v", err)
	}
	output := out.String()
	if !strings.HasPrefix(output, "0: 1.000,5.000\n") || !strings.Contains(output, "distance: ") {
		t.Errorf("path output = %q", output)
	}
}

func TestBuildCmdWithoutScene(t *testing.T) {
	cmd := BuildCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err == nil {
		t.Error("build without a scene succeeded")
	}
}
