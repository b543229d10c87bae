// Package catalog holds the immutable list of threat templates the engine spawns from.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

//go:embed threats.yaml
var defaultThreats []byte

// Severity ranks how dangerous a threat is.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// ParseSeverity accepts the lowercase names used in catalog files.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	case "critical":
		return SeverityCritical, nil
	default:
		return 0, fmt.Errorf("unknown severity %q", s)
	}
}

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// MarshalText lets snapshots carry the severity name in JSON.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Template describes one kind of threat. Templates are never mutated once
// the catalog is built.
type Template struct {
	ID          string
	Name        string
	Description string
	Fix         string
	Severity    Severity
	BaseDamage  int
	MinLevel    int
	BasePoints  int
}

// Catalog is an ordered, read-only collection of templates.
type Catalog struct {
	templates []Template
	byID      map[string]int
}

// templateRecord is the on-disk shape of a template.
type templateRecord struct {
	ID          string `mapstructure:"id"`
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	Fix         string `mapstructure:"fix"`
	Severity    string `mapstructure:"severity"`
	Damage      int    `mapstructure:"damage"`
	MinLevel    int    `mapstructure:"min_level"`
	Points      int    `mapstructure:"points"`
}

// New validates templates and builds a catalog that preserves their order.
func New(templates []Template) (*Catalog, error) {
	if len(templates) == 0 {
		return nil, errors.New("catalog is empty")
	}

	c := &Catalog{
		templates: make([]Template, len(templates)),
		byID:      make(map[string]int, len(templates)),
	}
	copy(c.templates, templates)

	fixes := make(map[string]string, len(templates))
	var errs []error
	for i, t := range c.templates {
		if err := t.validate(); err != nil {
			errs = append(errs, fmt.Errorf("template %d (%q): %w", i, t.ID, err))
			continue
		}
		if _, dup := c.byID[t.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate template id %q", t.ID))
			continue
		}
		// Fix strings must be unique so a submission resolves at most one threat
		key := strings.ToLower(t.Fix)
		if other, dup := fixes[key]; dup {
			errs = append(errs, fmt.Errorf("templates %q and %q share fix %q", other, t.ID, t.Fix))
			continue
		}
		fixes[key] = t.ID
		c.byID[t.ID] = i
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid catalog: %w", errors.Join(errs...))
	}
	return c, nil
}

func (t Template) validate() error {
	switch {
	case strings.TrimSpace(t.ID) == "":
		return errors.New("missing id")
	case strings.TrimSpace(t.Name) == "":
		return errors.New("missing name")
	case strings.TrimSpace(t.Fix) == "":
		return errors.New("missing fix")
	case t.Severity < SeverityLow || t.Severity > SeverityCritical:
		return fmt.Errorf("invalid severity %d", int(t.Severity))
	case t.BaseDamage <= 0:
		return fmt.Errorf("damage must be positive, got %d", t.BaseDamage)
	case t.BasePoints <= 0:
		return fmt.Errorf("points must be positive, got %d", t.BasePoints)
	case t.MinLevel < 1:
		return fmt.Errorf("min level must be at least 1, got %d", t.MinLevel)
	}
	return nil
}

// Default returns the catalog shipped with the game.
func Default() *Catalog {
	c, err := Parse(bytes.NewReader(defaultThreats), "yaml")
	if err != nil {
		panic(fmt.Errorf("embedded threat catalog: %w", err))
	}
	return c
}

// Load reads a catalog file; the format follows the file extension
// (yaml, json or toml). An empty path returns the default catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	format := strings.TrimPrefix(filepath.Ext(path), ".")
	c, err := Parse(f, format)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a catalog document with a top-level "threats" list.
func Parse(r io.Reader, format string) (*Catalog, error) {
	v := viper.New()
	v.SetConfigType(format)
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	var records []templateRecord
	if err := v.UnmarshalKey("threats", &records); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	templates := make([]Template, 0, len(records))
	for i, rec := range records {
		sev, err := ParseSeverity(rec.Severity)
		if err != nil {
			return nil, fmt.Errorf("threat %d (%q): %w", i, rec.ID, err)
		}
		templates = append(templates, Template{
			ID:          rec.ID,
			Name:        rec.Name,
			Description: rec.Description,
			Fix:         rec.Fix,
			Severity:    sev,
			BaseDamage:  rec.Damage,
			MinLevel:    rec.MinLevel,
			BasePoints:  rec.Points,
		})
	}
	return New(templates)
}

// Len returns the number of templates.
func (c *Catalog) Len() int {
	return len(c.templates)
}

// Templates returns a copy of all templates in catalog order.
func (c *Catalog) Templates() []Template {
	out := make([]Template, len(c.templates))
	copy(out, c.templates)
	return out
}

// Eligible returns, in catalog order, the templates unlocked at level that
// are not excluded. The returned pointers must be treated as read-only.
func (c *Catalog) Eligible(level int, excluded func(id string) bool) []*Template {
	var out []*Template
	for i := range c.templates {
		t := &c.templates[i]
		if t.MinLevel > level {
			continue
		}
		if excluded != nil && excluded(t.ID) {
			continue
		}
		out = append(out, t)
	}
	return out
}
