package deliveries

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/tenant"
)

var (
	ErrNoCode        = apperr.NotFound("no redemption code issued yet")
	ErrInvalidStatus = apperr.Validation("status must be one of Scheduled, EnRoute, Delivered")
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Service answers read queries over deliveries.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ListForBeneficiary returns the beneficiary's own deliveries, newest first.
func (s *Service) ListForBeneficiary(ctx context.Context, sess tenant.Session) ([]Delivery, error) {
	var list []Delivery
	err := s.db.WithContext(ctx).Scopes(tenant.ForBank(sess.BankID)).
		Preload("Volunteers").
		Where("beneficiary_id = ?", sess.UserID).
		Order("delivery_date DESC, created_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, apperr.Store("list beneficiary deliveries", err)
	}
	return list, nil
}

// CodeFor returns the caller's redemption code.
func (s *Service) CodeFor(ctx context.Context, sess tenant.Session) (string, error) {
	code, found, err := existingCode(s.db.WithContext(ctx), sess.BankID, sess.UserID)
	if err != nil {
		return "", err
	}
	if !found {
		return "", ErrNoCode
	}
	return code, nil
}

// ListAssigned returns the deliveries the staff member is a volunteer on.
func (s *Service) ListAssigned(ctx context.Context, sess tenant.Session, status string) ([]Delivery, error) {
	if err := checkStatus(status); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	assigned := db.Model(&Volunteer{}).Select("delivery_id").Where("staff_id = ?", sess.UserID)

	q := db.Scopes(tenant.ForBank(sess.BankID)).
		Preload("Volunteers").
		Where("id IN (?)", assigned)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var list []Delivery
	if err := q.Order("delivery_date ASC, community_name ASC, beneficiary_name ASC").Find(&list).Error; err != nil {
		return nil, apperr.Store("list assigned deliveries", err)
	}
	return list, nil
}

// List returns one page of the bank's deliveries and the total match count.
func (s *Service) List(ctx context.Context, bankID string, filter ListFilter) ([]Delivery, int64, error) {
	if err := checkStatus(filter.Status); err != nil {
		return nil, 0, err
	}

	q := s.db.WithContext(ctx).Model(&Delivery{}).Scopes(tenant.ForBank(bankID))
	if filter.CommunityID != nil {
		q = q.Where("community_id = ?", *filter.CommunityID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Store("count deliveries", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	var list []Delivery
	err := q.Preload("Volunteers").
		Order("delivery_date DESC, beneficiary_name ASC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	if err != nil {
		return nil, 0, apperr.Store("list deliveries", err)
	}
	return list, total, nil
}

func (s *Service) Get(ctx context.Context, bankID string, id uuid.UUID) (*Delivery, error) {
	var d Delivery
	err := s.db.WithContext(ctx).Scopes(tenant.ForBank(bankID)).
		Preload("Volunteers").
		First(&d, "id = ?", id).Error
	if err != nil {
		return nil, apperr.FromDB("get delivery", err, ErrDeliveryNotFound)
	}
	return &d, nil
}

func checkStatus(status string) error {
	switch status {
	case "", StatusScheduled, StatusEnRoute, StatusDelivered:
		return nil
	}
	return ErrInvalidStatus
}
