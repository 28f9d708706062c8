package models

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

type Category string

const (
	CategoryMOBA         Category = "moba"
	CategoryBattleRoyale Category = "battle_royale"
	CategoryRPG          Category = "rpg"
	CategoryFPS          Category = "fps"
	CategoryRacing       Category = "racing"
	CategorySports       Category = "sports"
)

// Categories is the display order used by GET /api/categories.
var Categories = []Category{
	CategoryMOBA,
	CategoryBattleRoyale,
	CategoryRPG,
	CategoryFPS,
	CategoryRacing,
	CategorySports,
}

var categoryLabels = map[Category]string{
	CategoryMOBA:         "MOBA",
	CategoryBattleRoyale: "Battle Royale",
	CategoryRPG:          "RPG",
	CategoryFPS:          "FPS",
	CategoryRacing:       "Racing",
	CategorySports:       "Sports",
}

func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// Product is one brand in the catalog. ID is derived from the brand name so a
// re-sync of the same brand keeps the same identity.
type Product struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Brand        string          `json:"brand"`
	Category     Category        `json:"category"`
	Code         string          `json:"code"`
	Image        string          `json:"image,omitempty"`
	Description  string          `json:"description"`
	Type         string          `json:"type"` // prepaid | postpaid
	Status       Status          `json:"status"`
	IsPopular    bool            `json:"is_popular"`
	GameIDConfig *GameIDConfig   `json:"game_id_config,omitempty"`
	Variants     []ProductVariant `json:"variants"`
}

// ProductVariant is a purchasable denomination. ID is the upstream SKU code.
type ProductVariant struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Amount        string `json:"amount"` // "86 Diamonds", "60 UC"
	Price         int64  `json:"price"`
	OriginalPrice int64  `json:"original_price,omitempty"`
	Code          string `json:"code"`
	Status        Status `json:"status"`
}

// Variant looks up a variant by id.
func (p *Product) Variant(id string) (*ProductVariant, bool) {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy so callers can modify the result without touching
// the source catalog.
func (p Product) Clone() Product {
	out := p
	if p.GameIDConfig != nil {
		cfg := *p.GameIDConfig
		out.GameIDConfig = &cfg
	}
	out.Variants = make([]ProductVariant, len(p.Variants))
	copy(out.Variants, p.Variants)
	return out
}

type IDFormat string

const (
	FormatNumeric      IDFormat = "numeric"
	FormatAlphanumeric IDFormat = "alphanumeric"
)

// GameIDConfig describes what the storefront must collect before purchase.
// Zero length bounds mean "no bound".
type GameIDConfig struct {
	RequiresGameID    bool     `json:"requires_game_id"`
	GameIDLabel       string   `json:"game_id_label"`
	GameIDPlaceholder string   `json:"game_id_placeholder"`
	GameIDFormat      IDFormat `json:"game_id_format,omitempty"`
	GameIDMinLength   int      `json:"game_id_min_length,omitempty"`
	GameIDMaxLength   int      `json:"game_id_max_length,omitempty"`

	RequiresServerID    bool     `json:"requires_server_id"`
	ServerIDLabel       string   `json:"server_id_label,omitempty"`
	ServerIDPlaceholder string   `json:"server_id_placeholder,omitempty"`
	ServerIDFormat      IDFormat `json:"server_id_format,omitempty"`
	ServerIDMinLength   int      `json:"server_id_min_length,omitempty"`
	ServerIDMaxLength   int      `json:"server_id_max_length,omitempty"`
}
