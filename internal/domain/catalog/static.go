package catalog

import (
	_ "embed"
	"fmt"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed menu.yaml
var menuYAML []byte

type menuFile struct {
	Items []menuItem `yaml:"items"`
}

type menuItem struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Price       string `yaml:"price"`
	Category    string `yaml:"category"`
	Description string `yaml:"description"`
	Image       string `yaml:"image"`
	Inventory   int    `yaml:"inventory"`
}

// StaticMenu parses the embedded menu
func StaticMenu() ([]Product, error) {
	return parseMenu(menuYAML)
}

func parseMenu(data []byte) ([]Product, error) {
	var file menuFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse menu: %w", err)
	}

	seen := make(map[string]bool, len(file.Items))
	products := make([]Product, 0, len(file.Items))
	for _, item := range file.Items {
		if item.ID == "" || seen[item.ID] {
			return nil, fmt.Errorf("menu item %q: missing or duplicate id", item.ID)
		}
		seen[item.ID] = true

		price, err := decimal.NewFromString(item.Price)
		if err != nil || !price.IsPositive() {
			return nil, fmt.Errorf("menu item %s: invalid price %q", item.ID, item.Price)
		}
		category := Category(item.Category)
		if !category.IsValid() {
			return nil, fmt.Errorf("menu item %s: unknown category %q", item.ID, item.Category)
		}
		if item.Inventory < 0 {
			return nil, fmt.Errorf("menu item %s: negative inventory", item.ID)
		}

		products = append(products, Product{
			ID:          item.ID,
			Name:        item.Name,
			Price:       price.Round(2),
			Category:    category,
			Description: item.Description,
			Image:       item.Image,
			Inventory:   item.Inventory,
			Available:   true,
		})
	}
	return products, nil
}
