package catalog

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// seedFile is the YAML shape accepted by SeedFromFile.
type seedFile struct {
	Items []seedItem `yaml:"items"`
}

type seedItem struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Price       float64  `yaml:"price"`
	Category    string   `yaml:"category"`
	Triggers    []string `yaml:"triggers"`
}

var validCategories = map[Category]bool{
	CategoryFood:     true,
	CategoryBeverage: true,
	CategorySide:     true,
	CategoryAddition: true,
}

// SeedFromFile loads a YAML menu definition and inserts every item and
// trigger into the store. Intended for bootstrapping a fresh database;
// it does not deduplicate against existing rows.
func SeedFromFile(ctx context.Context, s *Store, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return 0, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if len(seed.Items) == 0 {
		return 0, fmt.Errorf("seed file %s contains no items", path)
	}

	for i, si := range seed.Items {
		if si.Name == "" {
			return 0, fmt.Errorf("seed item %d: missing name", i)
		}
		if si.Price < 0 {
			return 0, fmt.Errorf("seed item %q: negative price", si.Name)
		}
		cat := Category(si.Category)
		if !validCategories[cat] {
			return 0, fmt.Errorf("seed item %q: unknown category %q", si.Name, si.Category)
		}

		id, err := s.AddItem(ctx, Item{
			Name:        si.Name,
			Description: si.Description,
			Price:       si.Price,
			Category:    cat,
			Available:   true,
		})
		if err != nil {
			return 0, fmt.Errorf("seed item %q: %w", si.Name, err)
		}
		for _, phrase := range si.Triggers {
			if err := s.AddTrigger(ctx, phrase, id); err != nil {
				return 0, fmt.Errorf("seed item %q: %w", si.Name, err)
			}
		}
	}
	return len(seed.Items), nil
}
