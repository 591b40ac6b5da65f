package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"navgraph/config"
	"navgraph/navgraph"
	"navgraph/world"
)

var errNoScene = errors.New("no scene configured: set navmesh.contour_file or navmesh.obstacles_dir")

func main() {
	root := &cobra.Command{
		Use:           "navgraph",
		Short:         "navigation mesh graph builder and path finder",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(ServeCmd(), BuildCmd(), PathCmd())

	if err := root.Execute(); err != nil {
		log.Printf("❌ %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the logging section
func loadConfig(filename string) (*config.Config, error) {
	cfg, err := config.Load(filename)
	if err != nil {
		return nil, err
	}
	if cfg.Logging.Quiet {
		log.SetOutput(io.Discard)
	}
	return cfg, nil
}

// loadScene reads the contour and obstacles named by the navmesh section
func loadScene(cfg *config.Config) (*world.Scene, error) {
	switch {
	case cfg.NavMesh.ContourFile != "":
		return world.LoadScene(cfg.NavMesh.ContourFile)
	case cfg.NavMesh.ObstaclesDir != "":
		return world.LoadSceneDir(cfg.NavMesh.ObstaclesDir)
	default:
		return nil, errNoScene
	}
}

func buildFromScene(cfg *config.Config) (*navgraph.NavGraph, error) {
	scene, err := loadScene(cfg)
	if err != nil {
		return nil, err
	}
	return navgraph.New(scene.Contour, cfg.NavMesh.PlayerRadius, scene.World, cfg.BuildOptions()...)
}

func ServeCmd() *cobra.Command {
	var configFile string
	c := &cobra.Command{
		Use:   "serve",
		Short: "start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}

			log.Println("========================================")
			log.Println("🚀 Navigation Graph Server")
			log.Println("========================================")

			// A configured scene is built up front, otherwise clients call /buildNavGraph
			var ng *navgraph.NavGraph
			ng, err = buildFromScene(cfg)
			switch {
			case errors.Is(err, errNoScene):
				log.Println("ℹ️  No scene configured (this is normal for API-driven use)")
				log.Println("   Call /buildNavGraph to create a navigation graph")
			case err != nil:
				return fmt.Errorf("failed to build navigation graph: %w", err)
			}

			s := newServer(cfg, ng)

			log.Println("")
			log.Printf("Server starting on %s\n", cfg.Server.Address)
			log.Println("")
			log.Println("Endpoints:")
			log.Println("  POST /buildNavGraph      - Build navigation graph from contour and obstacles")
			log.Println("  GET  /getNavGraphLines   - Get graph connections and triangles for visualization")
			log.Println("  POST /route              - Compute route with start and end points")
			log.Println("  GET  /health             - Check server status")
			log.Println("")
			log.Printf("CORS enabled for origins: %s\n", strings.Join(cfg.Server.AllowedOrigins, ", "))
			log.Println("========================================")

			return http.ListenAndServe(cfg.Server.Address, s.handler())
		},
	}
	c.Flags().StringVar(&configFile, "config", "", "config file")
	return c
}

func BuildCmd() *cobra.Command {
	var configFile string
	c := &cobra.Command{
		Use:   "build",
		Short: "build the navigation graph of the configured scene and print statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			ng, err := buildFromScene(cfg)
			if err != nil {
				return err
			}

			stats := ng.Stats()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "nodes:       %d\n", stats.Nodes)
			fmt.Fprintf(out, "connections: %d\n", stats.Connections)
			fmt.Fprintf(out, "triangles:   %d\n", stats.Triangles)
			fmt.Fprintf(out, "lines:       %d\n", stats.Lines)
			fmt.Fprintf(out, "obstacles:   %d\n", stats.Obstacles)
			fmt.Fprintf(out, "area:        %.3f\n", ng.NavMeshPolygon().Area())
			return nil
		},
	}
	c.Flags().StringVar(&configFile, "config", "", "config file")
	return c
}

func PathCmd() *cobra.Command {
	var configFile, from, to string
	var quiet bool
	c := &cobra.Command{
		Use:   "path",
		Short: "print the waypoints between two points of the configured scene",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			if quiet {
				log.SetOutput(io.Discard)
			}

			start, err := parsePoint(from)
			if err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
			goal, err := parsePoint(to)
			if err != nil {
				return fmt.Errorf("invalid --to: %w", err)
			}

			ng, err := buildFromScene(cfg)
			if err != nil {
				return err
			}
			path, err := ng.FindPath(start, goal, cfg.QueryOptions()...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, p := range path.Waypoints {
				fmt.Fprintf(out, "%d: %.3f,%.3f\n", i, p[0], p[1])
			}
			fmt.Fprintf(out, "distance: %.3f\n", path.Distance)
			return nil
		},
	}
	c.Flags().StringVar(&configFile, "config", "", "config file")
	c.Flags().StringVar(&from, "from", "", "start position as x,y")
	c.Flags().StringVar(&to, "to", "", "goal position as x,y")
	c.Flags().BoolVar(&quiet, "quiet", false, "suppress build logging")
	_ = c.MarkFlagRequired("from")
	_ = c.MarkFlagRequired("to")
	return c
}

// parsePoint reads "x,y"
func parsePoint(s string) (orb.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return orb.Point{}, fmt.Errorf("want x,y, got %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return orb.Point{}, err
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return orb.Point{}, err
	}
	return orb.Point{x, y}, nil
}
