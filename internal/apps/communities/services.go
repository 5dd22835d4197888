package communities

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/tenant"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/validator"
)

var (
	ErrCommunityNotFound = apperr.NotFound("community not found")
	ErrProductNotFound   = apperr.NotFound("template product not found")
	ErrUnknownBank       = apperr.Validation("unknown food bank")
)

// Service is the registry of communities and of each bank's standard template.
type Service struct {
	db       *gorm.DB
	registry *tenant.Registry
	validate *validator.Validator
}

func NewService(db *gorm.DB, registry *tenant.Registry, validate *validator.Validator) *Service {
	return &Service{db: db, registry: registry, validate: validate}
}

func (s *Service) ListCommunities(ctx context.Context, bankID string) ([]Community, error) {
	var list []Community
	err := s.db.WithContext(ctx).Scopes(tenant.ForBank(bankID)).
		Order("municipality ASC, name ASC").Find(&list).Error
	if err != nil {
		return nil, apperr.Store("list communities", err)
	}
	return list, nil
}

func (s *Service) GetCommunity(ctx context.Context, bankID string, id uuid.UUID) (*Community, error) {
	return s.getCommunity(s.db.WithContext(ctx), bankID, id)
}

// GetCommunityTx reads a community inside an open transaction.
func (s *Service) GetCommunityTx(tx *gorm.DB, bankID string, id uuid.UUID) (*Community, error) {
	return s.getCommunity(tx, bankID, id)
}

func (s *Service) getCommunity(db *gorm.DB, bankID string, id uuid.UUID) (*Community, error) {
	var c Community
	err := db.Scopes(tenant.ForBank(bankID)).First(&c, "id = ?", id).Error
	if err != nil {
		return nil, apperr.FromDB("get community", err, ErrCommunityNotFound)
	}
	return &c, nil
}

// UpsertCommunity creates a community when id is nil and updates it otherwise.
func (s *Service) UpsertCommunity(ctx context.Context, bankID string, id *uuid.UUID, req *CommunityRequest) (*Community, error) {
	if !s.registry.Exists(bankID) {
		return nil, ErrUnknownBank
	}
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}
	municipality, ok := s.registry.CanonicalMunicipality(bankID, req.Municipality)
	if !ok {
		return nil, apperr.Validation("municipality must be one of " + strings.Join(s.registry.Municipalities(bankID), ", "))
	}

	db := s.db.WithContext(ctx)
	if id == nil {
		c := Community{
			BankID:       bankID,
			Municipality: municipality,
			Name:         strings.TrimSpace(req.Name),
			FamilyCount:  req.FamilyCount,
			Notes:        trimmedOrNil(req.Notes),
		}
		if err := db.Create(&c).Error; err != nil {
			return nil, apperr.Store("create community", err)
		}
		return &c, nil
	}

	c, err := s.getCommunity(db, bankID, *id)
	if err != nil {
		return nil, err
	}
	c.Municipality = municipality
	c.Name = strings.TrimSpace(req.Name)
	c.FamilyCount = req.FamilyCount
	c.Notes = trimmedOrNil(req.Notes)
	if err := db.Save(c).Error; err != nil {
		return nil, apperr.Store("update community", err)
	}
	return c, nil
}

func (s *Service) DeleteCommunity(ctx context.Context, bankID string, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Scopes(tenant.ForBank(bankID)).
		Where("id = ?", id).Delete(&Community{})
	if result.Error != nil {
		return apperr.Store("delete community", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCommunityNotFound
	}
	return nil
}

func (s *Service) GetTemplate(ctx context.Context, bankID string) (*Template, error) {
	return s.GetTemplateTx(s.db.WithContext(ctx), bankID)
}

// GetTemplateTx reads the template inside an open transaction. The returned
// map is freshly built and owned by the caller.
func (s *Service) GetTemplateTx(tx *gorm.DB, bankID string) (*Template, error) {
	var rows []TemplateProduct
	if err := tx.Scopes(tenant.ForBank(bankID)).Order("product_key ASC").Find(&rows).Error; err != nil {
		return nil, apperr.Store("load template", err)
	}

	tpl := &Template{Products: make(Products, len(rows))}
	for _, r := range rows {
		tpl.Products[r.ProductKey] = Product{Name: r.Name, Quantity: r.Quantity, Unit: r.Unit, Category: r.Category}
		if tpl.UpdatedAt == nil || r.UpdatedAt.After(*tpl.UpdatedAt) {
			updated := r.UpdatedAt
			tpl.UpdatedAt = &updated
		}
	}
	return tpl, nil
}

// UpsertTemplateProduct writes one product of the template. An empty
// productID mints a new one.
func (s *Service) UpsertTemplateProduct(ctx context.Context, bankID, productID string, req *TemplateProductRequest) (string, error) {
	if !s.registry.Exists(bankID) {
		return "", ErrUnknownBank
	}
	if err := s.validate.Validate(req); err != nil {
		return "", err
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		productID = uuid.NewString()
	}

	row := TemplateProduct{
		BankID:     bankID,
		ProductKey: productID,
		Name:       strings.TrimSpace(req.Name),
		Quantity:   req.Quantity,
		Unit:       strings.TrimSpace(req.Unit),
		Category:   req.Category,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "bank_id"}, {Name: "product_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "quantity", "unit", "category", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return "", apperr.Store("upsert template product", err)
	}
	return productID, nil
}

func (s *Service) RemoveTemplateProduct(ctx context.Context, bankID, productID string) error {
	result := s.db.WithContext(ctx).Scopes(tenant.ForBank(bankID)).
		Where("product_key = ?", productID).Delete(&TemplateProduct{})
	if result.Error != nil {
		return apperr.Store("remove template product", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// BeneficiariesOf returns the beneficiaries whose community name matches
// communityName after normalization.
func (s *Service) BeneficiariesOf(ctx context.Context, bankID, communityName string) ([]models.User, error) {
	return s.BeneficiariesOfTx(s.db.WithContext(ctx), bankID, communityName)
}

func (s *Service) BeneficiariesOfTx(tx *gorm.DB, bankID, communityName string) ([]models.User, error) {
	key := models.CommunityKey(communityName)
	if key == "" {
		return nil, nil
	}
	var users []models.User
	err := tx.Scopes(tenant.ForBank(bankID)).
		Where("role = ? AND community_key = ?", models.RoleBeneficiary, key).
		Order("full_name ASC, id ASC").Find(&users).Error
	if err != nil {
		return nil, apperr.Store("list beneficiaries", err)
	}
	return users, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
