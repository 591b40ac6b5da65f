package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"navgraph/navgraph"
	"navgraph/pathfinding"
)

// Config holds all service configuration values
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	NavMesh     NavMeshConfig     `yaml:"navmesh"`
	Pathfinding PathfindingConfig `yaml:"pathfinding"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type ServerConfig struct {
	Address        string   `yaml:"address"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type NavMeshConfig struct {
	PlayerRadius    float64 `yaml:"player_radius"`
	SimplifyEpsilon float64 `yaml:"simplify_epsilon"`
	MergeObstacles  bool    `yaml:"merge_obstacles"`
	ContourFile     string  `yaml:"contour_file"`  // GeoJSON scene holding the contour feature
	ObstaclesDir    string  `yaml:"obstacles_dir"` // directory of GeoJSON scene files, used when contour_file is empty
}

type PathfindingConfig struct {
	Algorithm  string `yaml:"algorithm"`
	Heuristic  string `yaml:"heuristic"`
	SmoothPath bool   `yaml:"smooth_path"`
}

type LoggingConfig struct {
	Quiet bool `yaml:"quiet"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:        ":8080",
			AllowedOrigins: []string{"*"},
		},
		NavMesh: NavMeshConfig{
			PlayerRadius: 0.5,
		},
		Pathfinding: PathfindingConfig{
			Algorithm:  navgraph.AlgorithmAStar,
			Heuristic:  "euclidean",
			SmoothPath: true,
		},
	}
}

// Load reads a YAML file on top of the defaults. An empty filename yields the defaults.
func Load(filename string) (*Config, error) {
	cfg := Default()
	if filename == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filename, err)
	}
	return cfg, nil
}

// Validate checks value ranges and names
func (c *Config) Validate() error {
	if c.NavMesh.PlayerRadius < 0 {
		return fmt.Errorf("navmesh.player_radius must not be negative, got %v", c.NavMesh.PlayerRadius)
	}
	if c.NavMesh.SimplifyEpsilon < 0 {
		return fmt.Errorf("navmesh.simplify_epsilon must not be negative, got %v", c.NavMesh.SimplifyEpsilon)
	}

	switch strings.ToLower(c.Pathfinding.Algorithm) {
	case navgraph.AlgorithmAStar, navgraph.AlgorithmBFS:
		c.Pathfinding.Algorithm = strings.ToLower(c.Pathfinding.Algorithm)
	default:
		return fmt.Errorf("pathfinding.algorithm must be %q or %q, got %q",
			navgraph.AlgorithmAStar, navgraph.AlgorithmBFS, c.Pathfinding.Algorithm)
	}
	if _, err := pathfinding.HeuristicByName(c.Pathfinding.Heuristic); err != nil {
		return fmt.Errorf("pathfinding.heuristic: %w", err)
	}

	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	return nil
}

// BuildOptions returns the graph construction options for the navmesh section
func (c *Config) BuildOptions() []navgraph.Option {
	return []navgraph.Option{
		navgraph.WithSimplify(c.NavMesh.SimplifyEpsilon),
		navgraph.WithObstacleMerging(c.NavMesh.MergeObstacles),
	}
}

// QueryOptions returns the path query options for the pathfinding section
func (c *Config) QueryOptions() []navgraph.QueryOption {
	h, err := pathfinding.HeuristicByName(c.Pathfinding.Heuristic)
	if err != nil {
		h = pathfinding.Euclidean
	}
	return []navgraph.QueryOption{
		navgraph.WithAlgorithm(c.Pathfinding.Algorithm),
		navgraph.WithHeuristic(h),
		navgraph.WithSmoothing(c.Pathfinding.SmoothPath),
	}
}
