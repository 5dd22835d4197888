package communities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Community struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BankID       string    `gorm:"size:50;not null;index" json:"-"`
	Municipality string    `gorm:"size:100;not null;index" json:"municipality"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	FamilyCount  int       `gorm:"not null;default:1" json:"family_count"`
	Notes        *string   `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (c *Community) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// TemplateProduct is one line of a bank's standard delivery template. The
// rows of a bank together form its single template.
type TemplateProduct struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	BankID     string    `gorm:"size:50;not null;uniqueIndex:idx_template_bank_product,priority:1" json:"-"`
	ProductKey string    `gorm:"size:100;not null;uniqueIndex:idx_template_bank_product,priority:2" json:"product_id"`
	Name       string    `gorm:"size:255;not null" json:"name"`
	Quantity   float64   `gorm:"not null" json:"quantity"`
	Unit       string    `gorm:"size:50" json:"unit"`
	Category   string    `gorm:"size:50;not null" json:"category"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (p *TemplateProduct) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Product is a template line as it is copied into deliveries.
type Product struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Category string  `json:"category"`
}

// Products maps product id to product.
type Products map[string]Product

// Clone returns an independent copy.
func (p Products) Clone() Products {
	out := make(Products, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

type Template struct {
	Products  Products   `json:"products"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// --- DTOs ---

type CommunityRequest struct {
	Municipality string  `json:"municipality" validate:"notblank"`
	Name         string  `json:"name" validate:"notblank,max=255"`
	FamilyCount  int     `json:"family_count" validate:"min=1"`
	Notes        *string `json:"notes"`
}

type TemplateProductRequest struct {
	Name     string  `json:"name" yaml:"name" validate:"notblank,max=255"`
	Quantity float64 `json:"quantity" yaml:"quantity" validate:"gt=0,half_step"`
	Unit     string  `json:"unit" yaml:"unit" validate:"max=50"`
	Category string  `json:"category" yaml:"category" validate:"category"`
}
