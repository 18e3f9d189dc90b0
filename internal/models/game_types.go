package models

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type CardType string

const (
	CardQuickPick CardType = "QuickPick"
	CardLucky7s   CardType = "Lucky7s"
	CardHotShot   CardType = "HotShot"
	CardMegaGold  CardType = "MegaGold"
)

// CardTypes lists card types in on-ledger enum order.
var CardTypes = []CardType{CardQuickPick, CardLucky7s, CardHotShot, CardMegaGold}

// Index returns the enum variant index the ledger program expects.
func (c CardType) Index() (uint8, bool) {
	for i, ct := range CardTypes {
		if ct == c {
			return uint8(i), true
		}
	}
	return 0, false
}

// CardProduct is a static catalog entry. Odds and top prize are display-only.
type CardProduct struct {
	ID          CardType `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Price       uint64   `yaml:"price_lamports" json:"price_lamports"`
	TopPrize    string   `yaml:"top_prize" json:"top_prize"`
	Odds        string   `yaml:"odds" json:"odds"`
	Subtitle    string   `yaml:"subtitle" json:"subtitle"`
	AccentColor string   `yaml:"accent_color" json:"accent_color"`
}

func (p CardProduct) PriceLabel() string {
	return FormatSOL(p.Price)
}

//go:embed catalog.yaml
var defaultCatalog []byte

type Catalog struct {
	order []CardType
	cards map[CardType]CardProduct
}

type catalogFile struct {
	Cards []CardProduct `yaml:"cards"`
}

// LoadCatalog reads the catalog at path, or the embedded catalog when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return ParseCatalog(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %v", err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %v", err)
	}
	if len(file.Cards) == 0 {
		return nil, fmt.Errorf("catalog has no cards")
	}

	c := &Catalog{cards: make(map[CardType]CardProduct, len(file.Cards))}
	for _, card := range file.Cards {
		if _, ok := card.ID.Index(); !ok {
			return nil, fmt.Errorf("catalog: unknown card type %q", card.ID)
		}
		if card.Price == 0 {
			return nil, fmt.Errorf("catalog: card %s has no price", card.ID)
		}
		if _, dup := c.cards[card.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate card %s", card.ID)
		}
		c.cards[card.ID] = card
		c.order = append(c.order, card.ID)
	}
	return c, nil
}

func (c *Catalog) Get(id CardType) (CardProduct, bool) {
	card, ok := c.cards[id]
	return card, ok
}

func (c *Catalog) All() []CardProduct {
	out := make([]CardProduct, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.cards[id])
	}
	return out
}
