package deliveries

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/scanguard"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/tenant"
)

var (
	ErrDeliveryNotFound = apperr.NotFound("delivery not found")
	ErrEmptyCode        = apperr.Validation("scanned code is empty")
	ErrCodeMismatch     = apperr.Mismatch("code does not correspond to this beneficiary")
	ErrAlreadyDelivered = apperr.Conflict("delivery already redeemed")
	ErrScanInProgress   = apperr.Conflict("this code is already being processed, scan again in a moment")
	ErrNotScheduled     = apperr.Conflict("only scheduled deliveries can be marked en route")
)

// Redeemer turns a scanned code into a Scheduled -> Delivered transition.
type Redeemer struct {
	db    *gorm.DB
	guard scanguard.Guard
	now   func() time.Time
}

func NewRedeemer(db *gorm.DB, guard scanguard.Guard) *Redeemer {
	return &Redeemer{db: db, guard: guard, now: time.Now}
}

// Redeem redeems the delivery the scanner was opened against, or another
// pending delivery of the same beneficiary that carries the scanned code.
// Delivered is terminal: a delivered record is never stamped twice.
func (r *Redeemer) Redeem(ctx context.Context, bankID string, staffID, deliveryID uuid.UUID, req *RedeemRequest) (*RedeemResult, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, ErrEmptyCode
	}

	key := deliveryID.String() + ":" + code
	acquired, err := r.guard.Acquire(ctx, key)
	if err != nil {
		// The database update below is conditional, so a guard outage only
		// loses the debounce.
		slog.Warn("scan guard unavailable", "bank_id", bankID, "error", err.Error())
	} else if !acquired {
		return nil, ErrScanInProgress
	} else {
		defer func() {
			if err := r.guard.Release(context.WithoutCancel(ctx), key); err != nil {
				slog.Warn("scan guard release failed", "bank_id", bankID, "error", err.Error())
			}
		}()
	}

	var result *RedeemResult
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var expected Delivery
		if err := tx.Scopes(tenant.ForBank(bankID)).First(&expected, "id = ?", deliveryID).Error; err != nil {
			return apperr.FromDB("load delivery", err, ErrDeliveryNotFound)
		}

		target := &expected
		fallback := false
		if expected.Beneficiary.Code != code {
			other, err := pendingWithCode(tx, bankID, expected.Beneficiary.ID, code)
			if err != nil {
				return err
			}
			target = other
			fallback = true
		}

		if target.Status == StatusDelivered {
			return ErrAlreadyDelivered
		}

		now := r.now().UTC()
		res := tx.Model(&Delivery{}).
			Where("id = ? AND status <> ?", target.ID, StatusDelivered).
			Updates(map[string]any{
				"status":               StatusDelivered,
				"delivered_at":         now,
				"beneficiary_redeemed": true,
				"redeemed_by":          staffID,
			})
		if res.Error != nil {
			return apperr.Store("redeem delivery", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyDelivered
		}

		result = &RedeemResult{
			DeliveryID:      target.ID,
			BeneficiaryName: target.Beneficiary.Name,
			DeliveredAt:     now,
			Fallback:        fallback,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrMismatch) {
			slog.Info("redemption code mismatch", "bank_id", bankID, "user_id", staffID.String(), "delivery_id", deliveryID)
		}
		return nil, err
	}

	slog.Info("delivery redeemed",
		"bank_id", bankID,
		"user_id", staffID.String(),
		"delivery_id", result.DeliveryID,
		"fallback", result.Fallback,
	)
	return result, nil
}

// pendingWithCode finds the beneficiary's oldest undelivered delivery that
// carries code. When only delivered ones carry it the scan is a repeat.
func pendingWithCode(tx *gorm.DB, bankID string, beneficiaryID uuid.UUID, code string) (*Delivery, error) {
	var matches []Delivery
	err := tx.Scopes(tenant.ForBank(bankID)).
		Where("beneficiary_id = ? AND beneficiary_code = ?", beneficiaryID, code).
		Order("delivery_date ASC, created_at ASC").
		Find(&matches).Error
	if err != nil {
		return nil, apperr.Store("search beneficiary deliveries", err)
	}
	if len(matches) == 0 {
		return nil, ErrCodeMismatch
	}
	for i := range matches {
		if matches[i].Status != StatusDelivered {
			return &matches[i], nil
		}
	}
	return nil, ErrAlreadyDelivered
}

// MarkEnRoute flags a scheduled delivery as on its way. It has no effect on
// redemption.
func (r *Redeemer) MarkEnRoute(ctx context.Context, bankID string, deliveryID uuid.UUID) (*Delivery, error) {
	db := r.db.WithContext(ctx)
	res := db.Model(&Delivery{}).Scopes(tenant.ForBank(bankID)).
		Where("id = ? AND status = ?", deliveryID, StatusScheduled).
		Update("status", StatusEnRoute)
	if res.Error != nil {
		return nil, apperr.Store("mark delivery en route", res.Error)
	}

	var d Delivery
	if err := db.Scopes(tenant.ForBank(bankID)).Preload("Volunteers").First(&d, "id = ?", deliveryID).Error; err != nil {
		return nil, apperr.FromDB("load delivery", err, ErrDeliveryNotFound)
	}
	if res.RowsAffected == 0 && d.Status != StatusEnRoute {
		return nil, ErrNotScheduled
	}
	return &d, nil
}
