package world

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// RoleProperty is the feature property that tags the walkable contour
const RoleProperty = "role"

// RoleContour marks the feature describing the walkable area outline
const RoleContour = "contour"

// Optional obstacle feature properties
const (
	// RadiusProperty turns a Point feature into a circular obstacle
	RadiusProperty = "radius"
	// WidthProperty and HeightProperty turn a Point feature into a box obstacle
	WidthProperty  = "width"
	HeightProperty = "height"
	// DynamicProperty marks a moving body, which navigation ignores
	DynamicProperty = "dynamic"
	// TriggerProperty marks a sensor shape that does not block movement
	TriggerProperty = "trigger"
)

// circleSegments is the outline resolution of circular obstacles
const circleSegments = 16

// ErrNoContour is returned when a scene does not describe a walkable contour
var ErrNoContour = errors.New("scene has no contour feature")

// Scene is a walkable contour together with the world holding its obstacles
type Scene struct {
	Contour orb.Ring
	World   *World
}

// LoadScene reads a single GeoJSON feature collection
func LoadScene(filename string) (*Scene, error) {
	scene := &Scene{World: New()}
	if err := scene.loadFile(filename); err != nil {
		return nil, err
	}
	if len(scene.Contour) == 0 {
		return nil, fmt.Errorf("failed to load %s: %w", filename, ErrNoContour)
	}
	return scene, nil
}

// LoadSceneDir loads every *.geojson file from dir into one scene.
// Files that fail to parse are skipped with a warning.
func LoadSceneDir(dir string) (*Scene, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.geojson"))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	log.Printf("Loading scene from %d GeoJSON files...\n", len(files))

	scene := &Scene{World: New()}
	for _, file := range files {
		if err := scene.loadFile(file); err != nil {
			log.Printf("⚠️  %v\n", err)
			continue
		}
	}

	if len(scene.Contour) == 0 {
		return nil, fmt.Errorf("failed to load %s: %w", dir, ErrNoContour)
	}

	log.Printf("Total obstacles loaded: %d shapes\n", len(scene.World.StaticShapes(NavigationCollider)))
	return scene, nil
}

func (s *Scene) loadFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", filename, err)
	}

	obstacleCount := 0
	for _, feature := range fc.Features {
		rings := outerRings(feature.Geometry)
		props := feature.Properties

		if props.MustString(RoleProperty, "") == RoleContour {
			if len(s.Contour) == 0 && len(rings) > 0 {
				s.Contour = rings[0]
			} else {
				log.Printf("⚠️  Ignoring extra contour in %s\n", filepath.Base(filename))
			}
			continue
		}

		if center, ok := feature.Geometry.(orb.Point); ok {
			width, height := props.MustFloat64(WidthProperty, 0), props.MustFloat64(HeightProperty, 0)
			switch radius := props.MustFloat64(RadiusProperty, 0); {
			case radius > 0:
				rings = append(rings, NewCircleShape(center, radius, circleSegments))
			case width > 0 && height > 0:
				rings = append(rings, NewBoxShape(center, width, height))
			}
		}

		flags := NavigationCollider
		if props.MustBool(TriggerProperty, false) {
			flags = Trigger
		}

		for _, ring := range rings {
			if props.MustBool(DynamicProperty, false) {
				s.World.AddDynamicShape(ring, flags)
				continue
			}
			s.World.AddStaticShape(ring, flags)
			if flags == NavigationCollider {
				obstacleCount++
			}
		}
	}

	log.Printf("   ✅ Loaded %d obstacles from %s\n", obstacleCount, filepath.Base(filename))
	return nil
}

// outerRings returns the outer ring of every polygon in a geometry
func outerRings(geometry orb.Geometry) []orb.Ring {
	var rings []orb.Ring

	switch g := geometry.(type) {
	case orb.Polygon:
		if len(g) > 0 {
			rings = append(rings, g[0])
		}
	case orb.MultiPolygon:
		for _, polygon := range g {
			if len(polygon) > 0 {
				rings = append(rings, polygon[0])
			}
		}
	case orb.Ring:
		rings = append(rings, g)
	}

	return rings
}
