package hunt

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed dublin.yaml
var dublinYAML []byte

// Puzzle is the question posed at a location.
type Puzzle struct {
	Question string   `yaml:"question" json:"question"`
	Answers  []string `yaml:"answers" json:"-"`
	Hints    []string `yaml:"hints" json:"-"`
}

// Answer returns the canonical answer, revealed once attempts run out.
func (p Puzzle) Answer() string {
	if len(p.Answers) == 0 {
		return ""
	}
	return p.Answers[0]
}

// Location is one stop of the hunt.
type Location struct {
	ID            int     `yaml:"id" json:"id"`
	Name          string  `yaml:"name" json:"name"`
	MapsLink      string  `yaml:"maps_link" json:"mapsLink"`
	Audio         string  `yaml:"audio" json:"audio"`
	Lat           float64 `yaml:"lat" json:"lat"`
	Lon           float64 `yaml:"lon" json:"lon"`
	Puzzle        Puzzle  `yaml:"puzzle" json:"puzzle"`
	ArrivalReward int     `yaml:"arrival_reward" json:"arrivalReward,omitempty"`
	AnswerReward  int     `yaml:"answer_reward" json:"answerReward,omitempty"`
	HintPenalty   int     `yaml:"hint_penalty" json:"hintPenalty,omitempty"`
}

// Catalog is the ordered list of locations making up a hunt.
type Catalog struct {
	Title     string     `yaml:"title" json:"title"`
	Locations []Location `yaml:"locations" json:"locations"`
}

// Len returns N, the number of locations.
func (c *Catalog) Len() int { return len(c.Locations) }

// At returns the location at index i.
func (c *Catalog) At(i int) (Location, bool) {
	if i < 0 || i >= len(c.Locations) {
		return Location{}, false
	}
	return c.Locations[i], true
}

// DefaultCatalog returns the bundled Dublin city-centre hunt.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(dublinYAML)
}

// LoadCatalog reads a catalog from a YAML file. An empty path loads the
// bundled catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks that every location can be played.
func (c *Catalog) Validate() error {
	if len(c.Locations) == 0 {
		return errors.New("catalog has no locations")
	}
	seen := make(map[int]bool, len(c.Locations))
	for i, loc := range c.Locations {
		if seen[loc.ID] {
			return fmt.Errorf("location %d: duplicate id %d", i, loc.ID)
		}
		seen[loc.ID] = true
		if strings.TrimSpace(loc.Name) == "" {
			return fmt.Errorf("location %d: name is required", i)
		}
		if strings.TrimSpace(loc.Puzzle.Question) == "" {
			return fmt.Errorf("location %q: question is required", loc.Name)
		}
		if len(loc.Puzzle.Answers) == 0 {
			return fmt.Errorf("location %q: at least one answer is required", loc.Name)
		}
		if loc.ArrivalReward < 0 || loc.AnswerReward < 0 || loc.HintPenalty < 0 {
			return fmt.Errorf("location %q: rewards must not be negative", loc.Name)
		}
	}
	return nil
}
