package domain

import (
	"time"
)

// PlaceholderImage is used when a product has no uploaded image.
const PlaceholderImage = "/placeholder.svg"

// VariantGroup is a named choice dimension on a product (e.g. size, color)
type VariantGroup struct {
	Type    string   `json:"type"`
	Options []string `json:"options"`
}

// Product represents a product in the catalog
type Product struct {
	ID            string         `json:"id" db:"id"`
	Name          string         `json:"name" db:"name"`
	Price         int64          `json:"price" db:"price"`
	OriginalPrice *int64         `json:"original_price,omitempty" db:"original_price"`
	ImageURL      string         `json:"image" db:"image_url"`
	Category      string         `json:"category" db:"category"`
	Occasion      []string       `json:"occasion" db:"occasion"`
	Recipient     []string       `json:"recipient" db:"recipient"`
	Rating        float64        `json:"rating" db:"rating"`
	Reviews       int            `json:"reviews" db:"reviews"`
	Badge         *string        `json:"badge,omitempty" db:"badge"`
	Description   string         `json:"description" db:"description"`
	Variants      []VariantGroup `json:"variants,omitempty" db:"variants"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

// HasOccasion reports whether the product is tagged with the occasion.
func (p *Product) HasOccasion(id string) bool {
	return contains(p.Occasion, id)
}

// HasRecipient reports whether the product is tagged for the recipient.
func (p *Product) HasRecipient(tag string) bool {
	return contains(p.Recipient, tag)
}

// VariantGroup returns the variant group with the given type label.
func (p *Product) VariantGroup(variantType string) (VariantGroup, bool) {
	for _, v := range p.Variants {
		if v.Type == variantType {
			return v, true
		}
	}
	return VariantGroup{}, false
}

// Discount returns the whole percentage saved against the original price, or 0.
func (p *Product) Discount() int {
	if p.OriginalPrice == nil || *p.OriginalPrice <= p.Price || *p.OriginalPrice == 0 {
		return 0
	}
	return int((*p.OriginalPrice - p.Price) * 100 / *p.OriginalPrice)
}

// Clone returns a deep copy so callers can hold a snapshot independent of the catalog.
func (p Product) Clone() Product {
	c := p
	c.Occasion = append([]string(nil), p.Occasion...)
	c.Recipient = append([]string(nil), p.Recipient...)
	if p.OriginalPrice != nil {
		v := *p.OriginalPrice
		c.OriginalPrice = &v
	}
	if p.Badge != nil {
		v := *p.Badge
		c.Badge = &v
	}
	if p.Variants != nil {
		c.Variants = make([]VariantGroup, len(p.Variants))
		for i, v := range p.Variants {
			c.Variants[i] = VariantGroup{Type: v.Type, Options: append([]string(nil), v.Options...)}
		}
	}
	return c
}

// Category represents a product category
type Category struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Icon      string    `json:"icon" db:"icon"`
	Count     int       `json:"count" db:"-"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Occasion groups products by the event they are bought for
type Occasion struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Emoji     string    `json:"emoji" db:"emoji"`
	Count     int       `json:"count" db:"-"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
