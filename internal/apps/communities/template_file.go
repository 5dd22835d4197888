package communities

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/tenant"
)

// TemplateFile is the YAML form of a standard template:
//
//	products:
//	  rice:
//	    name: Arroz
//	    quantity: 2
//	    unit: kg
//	    category: basic_basket
type TemplateFile struct {
	Products map[string]TemplateProductRequest `yaml:"products"`
}

// ParseTemplateFile decodes and validates a template file. Unknown keys are
// rejected so a typo never silently drops a field.
func ParseTemplateFile(data []byte) (*TemplateFile, error) {
	var file TemplateFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, apperr.Validation(fmt.Sprintf("invalid template file: %v", err))
	}
	if len(file.Products) == 0 {
		return nil, apperr.Validation("template file has no products")
	}
	for id := range file.Products {
		if strings.TrimSpace(id) == "" {
			return nil, apperr.Validation("template file has an empty product id")
		}
	}
	return &file, nil
}

// ImportTemplate writes every product of file into the bank's template in
// one transaction. With replace set, products missing from the file are
// removed.
func (s *Service) ImportTemplate(ctx context.Context, bankID string, file *TemplateFile, replace bool) (int, error) {
	if !s.registry.Exists(bankID) {
		return 0, ErrUnknownBank
	}

	ids := make([]string, 0, len(file.Products))
	for id := range file.Products {
		ids = append(ids, strings.TrimSpace(id))
	}

	rows := make([]TemplateProduct, 0, len(ids))
	for id, req := range file.Products {
		req := req
		if err := s.validate.Validate(&req); err != nil {
			return 0, apperr.Validation(fmt.Sprintf("product %s: %s", id, apperr.Message(err)))
		}
		rows = append(rows, TemplateProduct{
			BankID:     bankID,
			ProductKey: strings.TrimSpace(id),
			Name:       strings.TrimSpace(req.Name),
			Quantity:   req.Quantity,
			Unit:       strings.TrimSpace(req.Unit),
			Category:   req.Category,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if replace {
			if err := tx.Scopes(tenant.ForBank(bankID)).
				Where("product_key NOT IN ?", ids).
				Delete(&TemplateProduct{}).Error; err != nil {
				return err
			}
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "bank_id"}, {Name: "product_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "quantity", "unit", "category", "updated_at"}),
		}).Create(&rows).Error
	})
	if err != nil {
		return 0, apperr.Store("import template", err)
	}
	return len(rows), nil
}
