// README: Question catalog loaded from embedded YAML (or an override file).
package preference

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed questions.yaml
var defaultQuestions []byte

// Step keys the collector understands. Order comes from the catalog.
const (
	StepIdentity      = "identity"
	StepAccessibility = "accessibility"
	StepInterests     = "interests"
)

var ErrInvalidCatalog = errors.New("invalid preference catalog")

type Option struct {
	Label string `yaml:"label"`
	Value string `yaml:"value"`
}

type Question struct {
	Key         string   `yaml:"key"`
	Prompt      string   `yaml:"prompt"`
	MultiSelect bool     `yaml:"multi_select"`
	Exclusive   string   `yaml:"exclusive"`
	Options     []Option `yaml:"options"`
}

func (q *Question) option(value string) (Option, bool) {
	for _, o := range q.Options {
		if o.Value == value {
			return o, true
		}
	}
	return Option{}, false
}

type Catalog struct {
	SubmitLabel string     `yaml:"submit_label"`
	Steps       []Question `yaml:"steps"`
}

// LoadCatalog reads path, or the embedded catalog when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultQuestions
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read preference catalog: %w", err)
		}
		data = b
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse preference catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.SubmitLabel == "" {
		c.SubmitLabel = "Continue"
	}
	return &c, nil
}

// MustDefaultCatalog panics if the embedded catalog is broken.
func MustDefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultQuestions)
	if err != nil {
		panic(err)
	}
	return c
}

// Validate requires identity, accessibility and interests in that order.
func (c *Catalog) Validate() error {
	want := []string{StepIdentity, StepAccessibility, StepInterests}
	if len(c.Steps) != len(want) {
		return fmt.Errorf("%w: expected %d steps, got %d", ErrInvalidCatalog, len(want), len(c.Steps))
	}
	for i, key := range want {
		q := c.Steps[i]
		if q.Key != key {
			return fmt.Errorf("%w: step %d is %q, want %q", ErrInvalidCatalog, i+1, q.Key, key)
		}
		if len(q.Options) == 0 {
			return fmt.Errorf("%w: step %q has no options", ErrInvalidCatalog, key)
		}
		seen := map[string]bool{}
		for _, o := range q.Options {
			if o.Value == "" || o.Label == "" {
				return fmt.Errorf("%w: step %q has an option without label or value", ErrInvalidCatalog, key)
			}
			if seen[o.Value] {
				return fmt.Errorf("%w: step %q repeats option %q", ErrInvalidCatalog, key, o.Value)
			}
			seen[o.Value] = true
		}
		if q.Exclusive != "" && !seen[q.Exclusive] {
			return fmt.Errorf("%w: step %q exclusive option %q is not listed", ErrInvalidCatalog, key, q.Exclusive)
		}
	}
	if c.Steps[0].MultiSelect {
		return fmt.Errorf("%w: identity must be single-select", ErrInvalidCatalog)
	}
	if !c.Steps[1].MultiSelect || !c.Steps[2].MultiSelect {
		return fmt.Errorf("%w: accessibility and interests must be multi-select", ErrInvalidCatalog)
	}
	return nil
}
