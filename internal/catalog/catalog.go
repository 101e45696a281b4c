// Package catalog serves the authored challenge catalog.
package catalog

import (
	_ "embed"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/tatianab/mahes-quest/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed questions.yaml
var questionsYAML []byte

// Region is one stage of the map.
type Region struct {
	ID          int    `yaml:"id" json:"id"`
	Key         string `yaml:"key" json:"key"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
}

// Document is the authored catalog file.
type Document struct {
	Regions   []Region           `yaml:"regions" json:"regions"`
	Questions []models.Challenge `yaml:"questions" json:"questions"`
}

// Catalog is a read-only view over the authored challenges.
// It is not safe for concurrent use; give each session its own view with WithRand.
type Catalog struct {
	regions   []Region
	questions []models.Challenge
	byKey     map[string]int
	rng       *rand.Rand
}

// Load parses the embedded catalog.
func Load(rng *rand.Rand) (*Catalog, error) {
	return Parse(questionsYAML, rng)
}

// Parse decodes and validates a catalog document.
func Parse(data []byte, rng *rand.Rand) (*Catalog, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(doc, rng)
}

// New builds a catalog from a decoded document. A nil rng gets a randomly seeded one.
func New(doc Document, rng *rand.Rand) (*Catalog, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}
	regions := slices.Clone(doc.Regions)
	slices.SortFunc(regions, func(a, b Region) int { return a.ID - b.ID })

	byKey := make(map[string]int, len(regions))
	for _, r := range regions {
		byKey[r.Key] = r.ID
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Catalog{
		regions:   regions,
		questions: slices.Clone(doc.Questions),
		byKey:     byKey,
		rng:       rng,
	}, nil
}

// WithRand returns a view of the same catalog shuffling with rng.
func (c *Catalog) WithRand(rng *rand.Rand) *Catalog {
	cp := *c
	cp.rng = rng
	return &cp
}

// All returns every challenge in a freshly shuffled order.
func (c *Catalog) All() []models.Challenge {
	out := slices.Clone(c.questions)
	c.rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// ByRegion returns the challenges of a region in shuffled order.
func (c *Catalog) ByRegion(region int) []models.Challenge {
	var out []models.Challenge
	for _, q := range c.All() {
		if c.byKey[q.Region] == region {
			out = append(out, q)
		}
	}
	return out
}

// ByID finds a challenge by identifier.
func (c *Catalog) ByID(id string) (models.Challenge, bool) {
	for _, q := range c.questions {
		if q.ID == id {
			return q, true
		}
	}
	return models.Challenge{}, false
}

// RegionOf maps a challenge to its region id.
func (c *Catalog) RegionOf(q models.Challenge) int {
	return c.byKey[q.Region]
}

func (c *Catalog) Regions() []Region {
	return slices.Clone(c.regions)
}

func (c *Catalog) Region(id int) (Region, bool) {
	for _, r := range c.regions {
		if r.ID == id {
			return r, true
		}
	}
	return Region{}, false
}

// Size is the number of challenges in the catalog.
func (c *Catalog) Size() int {
	return len(c.questions)
}

// RegionSize is the number of challenges in a region.
func (c *Catalog) RegionSize(region int) int {
	n := 0
	for _, q := range c.questions {
		if c.byKey[q.Region] == region {
			n++
		}
	}
	return n
}

// FirstRegion and LastRegion bound the sequential unlock order.
func (c *Catalog) FirstRegion() int {
	return c.regions[0].ID
}

func (c *Catalog) LastRegion() int {
	return c.regions[len(c.regions)-1].ID
}
