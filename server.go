package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"github.com/paulmach/orb"
	"github.com/rs/cors"

	"navgraph/config"
	"navgraph/mesh"
	"navgraph/navgraph"
	"navgraph/world"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) toOrb() orb.Point { return orb.Point{p.X, p.Y} }

func fromOrb(p orb.Point) Point { return Point{X: p[0], Y: p[1]} }

func toRing(points []Point) orb.Ring {
	ring := make(orb.Ring, len(points))
	for i, p := range points {
		ring[i] = p.toOrb()
	}
	return ring
}

type BuildNavGraphRequest struct {
	Contour      []Point   `json:"contour"`
	Obstacles    [][]Point `json:"obstacles"`
	Triangles    [][]Point `json:"triangles,omitempty"` // Prebuilt mesh, replaces contour and obstacles
	PlayerRadius *float64  `json:"playerRadius,omitempty"` // Defaults to navmesh.player_radius
	Force        bool      `json:"force,omitempty"`        // Set to true to force rebuild
}

type RouteRequest struct {
	Start     Point  `json:"start"`
	End       Point  `json:"end"`
	Algorithm string `json:"algorithm,omitempty"` // "astar" or "bfs"
	Smooth    *bool  `json:"smooth,omitempty"`
}

type RouteResponse struct {
	Path     []Point `json:"path"`
	Success  bool    `json:"success"`
	Message  string  `json:"message,omitempty"`
	Distance float64 `json:"distance,omitempty"`
}

type Segment struct {
	From Point `json:"from"`
	To   Point `json:"to"`
}

// server holds the navigation graph shared by all requests
type server struct {
	cfg *config.Config

	mu       sync.RWMutex
	navGraph *navgraph.NavGraph
}

func newServer(cfg *config.Config, ng *navgraph.NavGraph) *server {
	return &server{cfg: cfg, navGraph: ng}
}

func (s *server) graph() *navgraph.NavGraph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.navGraph
}

// storeNavGraph installs ng, unless a graph is already stored and force is false
func (s *server) storeNavGraph(ng *navgraph.NavGraph, force bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.navGraph != nil && !force {
		return false
	}
	s.navGraph = ng
	return true
}

// handler returns the router wrapped in the CORS middleware
func (s *server) handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/buildNavGraph", s.buildNavGraphHandler).Methods(http.MethodPost)
	r.HandleFunc("/getNavGraphLines", s.getNavGraphLinesHandler).Methods(http.MethodGet)
	r.HandleFunc("/route", s.routeHandler).Methods(http.MethodPost)
	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(r)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("⚠️  Failed to encode response: %v\n", err)
	}
}

// POST /route - Compute a path between two world positions
func (s *server) routeHandler(w http.ResponseWriter, r *http.Request) {
	log.Println("========================================")
	log.Println("📍 Route request received")
	defer log.Println("========================================")

	var req RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ Invalid request body: %v\n", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	log.Printf("   Start: (%.3f, %.3f)\n", req.Start.X, req.Start.Y)
	log.Printf("   End:   (%.3f, %.3f)\n", req.End.X, req.End.Y)

	ng := s.graph()
	if ng == nil {
		log.Println("❌ Navigation graph not available")
		http.Error(w, "Navigation graph not built. Call /buildNavGraph first", http.StatusBadRequest)
		return
	}

	opts := s.cfg.QueryOptions()
	if algorithm := strings.ToLower(strings.TrimSpace(req.Algorithm)); algorithm != "" {
		opts = append(opts, navgraph.WithAlgorithm(algorithm))
	}
	if req.Smooth != nil {
		opts = append(opts, navgraph.WithSmoothing(*req.Smooth))
	}

	log.Println("🔍 Searching navigation graph...")
	path, err := ng.FindPath(req.Start.toOrb(), req.End.toOrb(), opts...)
	if err != nil {
		log.Printf("❌ %v\n", err)
		status := http.StatusOK
		if !errors.Is(err, navgraph.ErrNoPath) && !errors.Is(err, navgraph.ErrOutsideNavMesh) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, RouteResponse{Path: []Point{}, Success: false, Message: err.Error()})
		return
	}

	response := RouteResponse{
		Path:     make([]Point, len(path.Waypoints)),
		Success:  true,
		Distance: path.Distance,
	}
	for i, p := range path.Waypoints {
		response.Path[i] = fromOrb(p)
	}

	log.Printf("✅ Path found with %d waypoints\n", len(response.Path))
	log.Printf("   Distance: %.2f\n", path.Distance)
	log.Printf("   Graph nodes crossed: %d\n", len(path.Nodes))

	writeJSON(w, http.StatusOK, response)
}

// GET /health - Health check endpoint
func (s *server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ng := s.graph()

	status := "ready"
	numNodes, numConnections := 0, 0
	if ng == nil {
		status = "waiting for navigation graph"
	} else {
		numNodes, numConnections = ng.NodeCount(), ng.ConnectionCount()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         status,
		"hasNavGraph":    ng != nil,
		"numNodes":       numNodes,
		"numConnections": numConnections,
	})
}

// POST /buildNavGraph - Build the navigation graph for a contour and its obstacles
func (s *server) buildNavGraphHandler(w http.ResponseWriter, r *http.Request) {
	log.Println("========================================")
	log.Println("🗺️  Build navigation graph request received")
	defer log.Println("========================================")

	var req BuildNavGraphRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ Invalid request body: %v\n", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	alreadyExists := s.graph() != nil
	if alreadyExists && !req.Force {
		writeConflict(w)
		return
	}
	if alreadyExists {
		log.Println("🔄 Force rebuild requested - recreating navigation graph...")
	}

	ng, err := s.buildNavGraph(req)
	if err != nil {
		log.Printf("❌ Failed to build navigation graph: %v\n", err)
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	// Another request may have stored a graph while this one was building
	if !s.storeNavGraph(ng, req.Force) {
		writeConflict(w)
		return
	}

	stats := ng.Stats()
	log.Printf("✅ Navigation graph built and stored in memory\n")

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"numNodes":       stats.Nodes,
		"numConnections": stats.Connections,
		"numTriangles":   stats.Triangles,
		"numObstacles":   stats.Obstacles,
	})
}

func writeConflict(w http.ResponseWriter) {
	log.Println("⚠️  Navigation graph already exists")
	log.Println("   To rebuild, set force:true in request or restart the server")

	writeJSON(w, http.StatusConflict, map[string]interface{}{
		"success": false,
		"error":   "navigation graph already exists",
		"message": "Graph is already built. Set 'force: true' to rebuild, or restart the server.",
	})
}

// buildNavGraph builds from explicit triangles when given, otherwise from the
// contour with the obstacles cut out
func (s *server) buildNavGraph(req BuildNavGraphRequest) (*navgraph.NavGraph, error) {
	if len(req.Triangles) > 0 {
		log.Printf("   Prebuilt mesh: %d triangles\n", len(req.Triangles))

		tris := make([][3]orb.Point, 0, len(req.Triangles))
		for i, tri := range req.Triangles {
			if len(tri) != 3 {
				return nil, fmt.Errorf("triangle %d has %d corners, want 3", i, len(tri))
			}
			tris = append(tris, [3]orb.Point{tri[0].toOrb(), tri[1].toOrb(), tri[2].toOrb()})
		}

		polygon, err := mesh.FromTriangles(tris)
		if err != nil {
			return nil, err
		}
		return navgraph.FromMesh(polygon)
	}

	radius := s.cfg.NavMesh.PlayerRadius
	if req.PlayerRadius != nil {
		radius = *req.PlayerRadius
	}

	obstacles := world.New()
	for _, obstacle := range req.Obstacles {
		obstacles.AddStaticShape(toRing(obstacle), world.NavigationCollider)
	}

	return navgraph.New(toRing(req.Contour), radius, obstacles, s.cfg.BuildOptions()...)
}

// GET /getNavGraphLines - Get graph connections and mesh triangles for visualization
func (s *server) getNavGraphLinesHandler(w http.ResponseWriter, r *http.Request) {
	log.Println("========================================")
	log.Println("📊 Get navigation graph lines request received")
	defer log.Println("========================================")

	ng := s.graph()
	if ng == nil {
		log.Println("❌ Navigation graph not built")
		http.Error(w, "Navigation graph not built. Call /buildNavGraph first", http.StatusBadRequest)
		return
	}

	lines := make([]Segment, 0, ng.ConnectionCount())
	for _, seg := range ng.Lines() {
		lines = append(lines, Segment{From: fromOrb(seg.P1), To: fromOrb(seg.P2)})
	}

	triangles := make([][]Point, 0, len(ng.NavMeshPolygon().Triangles()))
	for _, tri := range ng.NavMeshPolygon().Triangles() {
		triangles = append(triangles, []Point{fromOrb(tri.P1), fromOrb(tri.P2), fromOrb(tri.P3)})
	}

	log.Printf("   Returning %d line segments and %d triangles\n", len(lines), len(triangles))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"lines":          lines,
		"triangles":      triangles,
		"numNodes":       ng.NodeCount(),
		"numConnections": len(lines),
	})
}
