package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleBeneficiary = "beneficiary"
	RoleStaff       = "staff"
	RoleAdmin       = "admin"

	StatusActive   = "active"
	StatusInactive = "inactive"
)

// User is a beneficiary, staff member or admin of one food bank.
//
// Community holds the community name as typed at sign-up. Beneficiaries are
// tied to communities by CommunityKey, a normalized copy of that name; there
// is no foreign key, so renaming a community detaches its beneficiaries.
type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	BankID       string         `gorm:"size:50;not null;uniqueIndex:idx_users_bank_email" json:"-"`
	Email        string         `gorm:"not null;size:255;uniqueIndex:idx_users_bank_email" json:"email"`
	Password     string         `gorm:"not null" json:"-"`
	Role         string         `gorm:"size:20;default:'beneficiary';index" json:"role"`
	FullName     string         `gorm:"size:255" json:"full_name"`
	Community    string         `gorm:"size:255" json:"community"`
	CommunityKey string         `gorm:"size:255;index" json:"-"`
	FamilySize   int            `gorm:"default:1" json:"family_size"`
	Status       string         `gorm:"size:20;default:'active'" json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) BeforeSave(tx *gorm.DB) error {
	u.CommunityKey = CommunityKey(u.Community)
	return nil
}

// DisplayName falls back to the email when no full name was given.
func (u *User) DisplayName() string {
	if name := strings.TrimSpace(u.FullName); name != "" {
		return name
	}
	return u.Email
}

// CommunityKey normalizes a community name for matching: lower case, trimmed,
// inner whitespace collapsed to single spaces.
func CommunityKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
