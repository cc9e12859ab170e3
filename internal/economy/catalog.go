// Package economy describes what tokens can buy.
package economy

import (
	"oomf-core/internal/config"
	"oomf-core/internal/model"
)

// ItemType identifies a purchasable action.
type ItemType string

const (
	ItemHint          ItemType = "hint"           // one sender clue
	ItemReveal        ItemType = "reveal"         // full sender disclosure
	ItemSecretAdmirer ItemType = "secret_admirer" // custom-text compliment with a chat thread
)

// ItemConfig holds the configuration for a purchasable action.
type ItemConfig struct {
	Type        ItemType `json:"type"`
	Name        string   `json:"name"`
	Emoji       string   `json:"emoji"`
	Price       int64    `json:"price"`
	Description string   `json:"description"`
	TxType      string   `json:"-"`
}

// Catalog is the fixed price list for token purchases.
type Catalog struct {
	items map[ItemType]ItemConfig
}

// NewCatalog builds the catalog from economy settings.
func NewCatalog(cfg config.EconomyConfig) *Catalog {
	return &Catalog{items: map[ItemType]ItemConfig{
		ItemHint: {
			Type:        ItemHint,
			Name:        "Hint",
			Emoji:       "🔍",
			Price:       cfg.HintCost,
			Description: "Unlock the next clue about who sent a compliment",
			TxType:      model.TxTypeHint,
		},
		ItemReveal: {
			Type:        ItemReveal,
			Name:        "Reveal",
			Emoji:       "👀",
			Price:       cfg.RevealCost,
			Description: "See exactly who sent a compliment",
			TxType:      model.TxTypeReveal,
		},
		ItemSecretAdmirer: {
			Type:        ItemSecretAdmirer,
			Name:        "Secret Admirer",
			Emoji:       "💌",
			Price:       cfg.SecretAdmirerCost,
			Description: "Send a custom message and chat anonymously",
			TxType:      model.TxTypeSecretAdmirer,
		},
	}}
}

// DefaultCatalog returns the catalog with the standard prices (1/3/3).
func DefaultCatalog() *Catalog {
	return NewCatalog(config.EconomyConfig{HintCost: 1, RevealCost: 3, SecretAdmirerCost: 3})
}

// Get returns the item config for a given type.
func (c *Catalog) Get(itemType ItemType) (ItemConfig, bool) {
	item, ok := c.items[itemType]
	return item, ok
}

// Price returns the token price of an item, or 0 if it is unknown.
func (c *Catalog) Price(itemType ItemType) int64 {
	return c.items[itemType].Price
}

// All returns all items in display order.
func (c *Catalog) All() []ItemConfig {
	order := []ItemType{ItemHint, ItemReveal, ItemSecretAdmirer}

	items := make([]ItemConfig, 0, len(order))
	for _, itemType := range order {
		if item, ok := c.items[itemType]; ok {
			items = append(items, item)
		}
	}
	return items
}
