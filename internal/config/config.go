// Package config reads glyphmap settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"glyphmap/internal/glyph"
	"glyphmap/internal/grid"
	"glyphmap/internal/spatial"
)

// Config is the complete application configuration.
type Config struct {
	Grid    GridConfig
	Data    DataConfig
	Display DisplayConfig
	LogFile string
}

// GridConfig holds aggregation settings.
type GridConfig struct {
	Type          grid.Type
	CellSize      float64
	Padding       float64
	Mode          spatial.Mode
	Throttle      time.Duration
	BaseZoom      int
	ScaleWithZoom bool
}

// DataConfig holds load settings.
type DataConfig struct {
	LatField string
	LngField string
	Fields   []string
}

// DisplayConfig holds the initial view.
type DisplayConfig struct {
	// Chart is empty to pick a chart per field type.
	Chart glyph.Kind
	Zoom  int
	Lat   float64
	Lng   float64
}

// Default returns the configuration used when no variable is set.
func Default() *Config {
	return &Config{
		Grid: GridConfig{
			Type:     grid.TypeSquare,
			CellSize: spatial.DefaultCellSize,
			Padding:  1,
			Mode:     spatial.Static,
			Throttle: spatial.DefaultThrottle,
			BaseZoom: 10,
		},
		Display: DisplayConfig{Zoom: 2},
		LogFile: "glyphmap.log",
	}
}

// Load reads a .env file when present, then GLYPHMAP_* variables.
// Variables already set in the environment win over the file.
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)
	return FromEnv()
}

// FromEnv builds a config from the environment alone.
func FromEnv() (*Config, error) {
	gt, err := grid.ParseType(os.Getenv("GLYPHMAP_GRID"))
	if err != nil {
		return nil, fmt.Errorf("GLYPHMAP_GRID: %w", err)
	}
	mode, err := spatial.ParseMode(os.Getenv("GLYPHMAP_MODE"))
	if err != nil {
		return nil, fmt.Errorf("GLYPHMAP_MODE: %w", err)
	}
	var chart glyph.Kind
	if v := os.Getenv("GLYPHMAP_CHART"); v != "" {
		if chart, err = glyph.ParseKind(v); err != nil {
			return nil, fmt.Errorf("GLYPHMAP_CHART: %w", err)
		}
	}
	d := Default()
	cfg := &Config{
		Grid: GridConfig{
			Type:          gt,
			CellSize:      getEnvFloatOrDefault("GLYPHMAP_CELL_SIZE", d.Grid.CellSize),
			Padding:       getEnvFloatOrDefault("GLYPHMAP_PADDING", d.Grid.Padding),
			Mode:          mode,
			Throttle:      getEnvDurationOrDefault("GLYPHMAP_THROTTLE", d.Grid.Throttle),
			BaseZoom:      getEnvIntOrDefault("GLYPHMAP_BASE_ZOOM", d.Grid.BaseZoom),
			ScaleWithZoom: getEnvBoolOrDefault("GLYPHMAP_SCALE_WITH_ZOOM", false),
		},
		Data: DataConfig{
			LatField: os.Getenv("GLYPHMAP_LAT_FIELD"),
			LngField: os.Getenv("GLYPHMAP_LNG_FIELD"),
			Fields:   splitList(os.Getenv("GLYPHMAP_FIELDS")),
		},
		Display: DisplayConfig{
			Chart: chart,
			Zoom:  getEnvIntOrDefault("GLYPHMAP_ZOOM", d.Display.Zoom),
			Lat:   getEnvFloatOrDefault("GLYPHMAP_LAT", 0),
			Lng:   getEnvFloatOrDefault("GLYPHMAP_LNG", 0),
		},
		LogFile: getEnvOrDefault("GLYPHMAP_LOG_FILE", d.LogFile),
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(c *Config) error {
	if c.Grid.CellSize < 2 {
		return fmt.Errorf("cell size must be at least 2, got %v", c.Grid.CellSize)
	}
	if c.Grid.Padding < 0 || 2*c.Grid.Padding >= c.Grid.CellSize {
		return fmt.Errorf("padding %v out of range for cell size %v", c.Grid.Padding, c.Grid.CellSize)
	}
	if c.Grid.Throttle <= 0 {
		return fmt.Errorf("throttle must be positive, got %v", c.Grid.Throttle)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDurationOrDefault accepts a Go duration ("150ms") or bare
// milliseconds ("150").
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
