package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jwebster45206/infamy/pkg/character"
)

// Seed is the JSON document used to populate an empty catalog.
type Seed struct {
	Items  []character.Item `json:"items"`
	Quests []string         `json:"quests"`
}

// LoadSeed reads a seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &seed, nil
}

// Validate reports every problem in the seed rather than stopping at the first.
func (s *Seed) Validate() []error {
	var errs []error
	seen := make(map[string]bool)
	for i, item := range s.Items {
		if err := item.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("item %d (%s): %w", i, item.Name, err))
		}
		key := strings.ToLower(item.Name)
		if seen[key] {
			errs = append(errs, fmt.Errorf("item %d: duplicate name %q", i, item.Name))
		}
		seen[key] = true
	}
	for i, q := range s.Quests {
		if strings.TrimSpace(q) == "" {
			errs = append(errs, fmt.Errorf("quest %d: empty text", i))
		}
	}
	return errs
}

// SeedIfEmpty loads the seed file into the catalog when it has no items yet.
// It returns how many items were inserted.
func (c *Catalog) SeedIfEmpty(ctx context.Context, path string) (int, error) {
	var n int
	if err := c.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM shop_items"); err != nil {
		return 0, fmt.Errorf("failed to count shop items: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	seed, err := LoadSeed(path)
	if err != nil {
		return 0, err
	}
	if errs := seed.Validate(); len(errs) > 0 {
		return 0, fmt.Errorf("invalid seed: %w", errors.Join(errs...))
	}

	for _, item := range seed.Items {
		if err := c.AddItem(ctx, item); err != nil {
			return 0, err
		}
	}
	for _, q := range seed.Quests {
		if err := c.AddQuest(ctx, q); err != nil {
			return 0, err
		}
	}
	c.logger.Info("Seeded catalog", "items", len(seed.Items), "quests", len(seed.Quests), "path", path)
	return len(seed.Items), nil
}
