package deliveries

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/apps/communities"
)

const (
	StatusScheduled = "Scheduled"
	StatusEnRoute   = "EnRoute"
	StatusDelivered = "Delivered"
)

// Delivery is one beneficiary's package from one scheduling run. Community
// fields and products are copied at creation and never follow later edits.
type Delivery struct {
	ID               uuid.UUID                                `gorm:"type:uuid;primaryKey" json:"id"`
	BankID           string                                   `gorm:"size:50;not null;index" json:"-"`
	DeliveryRecordID string                                   `gorm:"size:64;not null;uniqueIndex" json:"delivery_record_id"`
	RunKey           string                                   `gorm:"size:120;not null;uniqueIndex:idx_delivery_run_beneficiary,priority:1" json:"-"`
	CommunityID      uuid.UUID                                `gorm:"type:uuid;not null;index" json:"community_id"`
	CommunityName    string                                   `gorm:"size:255" json:"community_name"`
	Municipality     string                                   `gorm:"size:100" json:"municipality"`
	FamilyCount      int                                      `json:"family_count"`
	DeliveryDate     time.Time                                `gorm:"not null;index" json:"delivery_date"`
	Volunteers       []Volunteer                              `gorm:"foreignKey:DeliveryID;constraint:OnDelete:CASCADE" json:"volunteers"`
	Beneficiary      BeneficiaryRef                           `gorm:"embedded;embeddedPrefix:beneficiary_" json:"beneficiary"`
	Products         datatypes.JSONType[communities.Products] `json:"products"`
	Status           string                                   `gorm:"size:20;not null;index" json:"status"`
	DeliveredAt      *time.Time                               `json:"delivered_at,omitempty"`
	RedeemedBy       *uuid.UUID                               `gorm:"type:uuid" json:"redeemed_by,omitempty"`
	CreatedAt        time.Time                                `json:"created_at"`
	UpdatedAt        time.Time                                `json:"updated_at"`
}

func (d *Delivery) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.DeliveryRecordID == "" {
		d.DeliveryRecordID = uuid.NewString()
	}
	return nil
}

// BeneficiaryRef is the beneficiary as seen by a delivery. Code is the
// beneficiary's redemption code, shared by all of their deliveries.
type BeneficiaryRef struct {
	ID       uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_delivery_run_beneficiary,priority:2" json:"id"`
	Name     string    `gorm:"size:255" json:"name"`
	Code     string    `gorm:"size:64;not null;index" json:"code"`
	Redeemed bool      `gorm:"not null;default:false" json:"redeemed"`
}

// Volunteer is a staff member assigned to a delivery.
type Volunteer struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	DeliveryID uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	StaffID    uuid.UUID `gorm:"type:uuid;not null;index" json:"id"`
	Name       string    `gorm:"size:255" json:"name"`
}

func (Volunteer) TableName() string { return "delivery_volunteers" }

func (v *Volunteer) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// ProductList returns the product snapshot of the delivery.
func (d Delivery) ProductList() communities.Products {
	return d.Products.Data()
}

// RunKey identifies one scheduling run: a community on a delivery date.
func RunKey(communityID uuid.UUID, deliveryDate time.Time) string {
	return communityID.String() + "@" + deliveryDate.UTC().Format(time.RFC3339)
}

// --- DTOs ---

type ScheduleRequest struct {
	CommunityID  uuid.UUID   `json:"community_id"`
	DeliveryDate time.Time   `json:"delivery_date"`
	StaffIDs     []uuid.UUID `json:"staff_ids"`
}

type ScheduleResult struct {
	CreatedCount int         `json:"created_count"`
	SkippedCount int         `json:"skipped_count"`
	DeliveryIDs  []uuid.UUID `json:"delivery_ids"`
}

type RedeemRequest struct {
	Code string `json:"code"`
}

type RedeemResult struct {
	DeliveryID      uuid.UUID `json:"delivery_id"`
	BeneficiaryName string    `json:"beneficiary_name"`
	DeliveredAt     time.Time `json:"delivered_at"`
	// Fallback is set when the code belonged to another pending delivery of
	// the same beneficiary, which was redeemed instead.
	Fallback bool `json:"fallback"`
}

type ListFilter struct {
	CommunityID *uuid.UUID
	Status      string
	Limit       int
	Offset      int
}
