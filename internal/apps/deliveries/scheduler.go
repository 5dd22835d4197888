package deliveries

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/apps/communities"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/tenant"
)

var (
	ErrNoCommunity   = apperr.Validation("no community selected")
	ErrNoStaff       = apperr.Validation("no staff assigned")
	ErrNoDate        = apperr.Validation("delivery date is required")
	ErrEmptyTemplate = apperr.Validation("standard template is empty or not loaded")
	ErrUnknownStaff  = apperr.Validation("assigned staff member not found")
)

// Scheduler expands a community's beneficiaries into one delivery each.
type Scheduler struct {
	db       *gorm.DB
	registry *communities.Service
	codes    *CodeAllocator
}

func NewScheduler(db *gorm.DB, registry *communities.Service, codes *CodeAllocator) *Scheduler {
	return &Scheduler{db: db, registry: registry, codes: codes}
}

// Schedule creates the deliveries of one run in a single transaction.
// Beneficiaries that already have a delivery for the same community and date
// are skipped, so repeating a call never duplicates deliveries.
func (s *Scheduler) Schedule(ctx context.Context, bankID string, req *ScheduleRequest) (*ScheduleResult, error) {
	if req.CommunityID == uuid.Nil {
		return nil, ErrNoCommunity
	}
	if len(req.StaffIDs) == 0 {
		return nil, ErrNoStaff
	}
	if req.DeliveryDate.IsZero() {
		return nil, ErrNoDate
	}

	result := &ScheduleResult{DeliveryIDs: []uuid.UUID{}}
	runKey := RunKey(req.CommunityID, req.DeliveryDate)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		community, err := s.registry.GetCommunityTx(tx, bankID, req.CommunityID)
		if err != nil {
			return err
		}

		tpl, err := s.registry.GetTemplateTx(tx, bankID)
		if err != nil {
			return err
		}
		if len(tpl.Products) == 0 {
			return ErrEmptyTemplate
		}

		volunteers, err := resolveStaff(tx, bankID, req.StaffIDs)
		if err != nil {
			return err
		}

		// Row locks serialize concurrent runs over the same beneficiaries so
		// the second run sees the codes the first one committed.
		locked := tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
		beneficiaries, err := s.registry.BeneficiariesOfTx(locked, bankID, community.Name)
		if err != nil {
			return err
		}

		scheduled, err := alreadyScheduled(tx, bankID, runKey)
		if err != nil {
			return err
		}

		run := NewCodeRun()
		batch := make([]Delivery, 0, len(beneficiaries))
		for _, b := range beneficiaries {
			if scheduled[b.ID] {
				result.SkippedCount++
				continue
			}

			code, err := s.codes.Allocate(tx, bankID, b.ID, run)
			if err != nil {
				return err
			}

			batch = append(batch, Delivery{
				ID:               uuid.New(),
				BankID:           bankID,
				DeliveryRecordID: uuid.NewString(),
				RunKey:           runKey,
				CommunityID:      community.ID,
				CommunityName:    community.Name,
				Municipality:     community.Municipality,
				FamilyCount:      community.FamilyCount,
				DeliveryDate:     req.DeliveryDate.UTC(),
				Volunteers:       cloneVolunteers(volunteers),
				Beneficiary: BeneficiaryRef{
					ID:   b.ID,
					Name: b.DisplayName(),
					Code: code,
				},
				Products: datatypes.NewJSONType(tpl.Products.Clone()),
				Status:   StatusScheduled,
			})
		}

		if len(batch) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(&batch, 100).Error; err != nil {
			return apperr.Store("create deliveries", err)
		}
		for _, d := range batch {
			result.DeliveryIDs = append(result.DeliveryIDs, d.ID)
		}
		result.CreatedCount = len(batch)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("deliveries scheduled",
		"bank_id", bankID,
		"community_id", req.CommunityID,
		"delivery_date", req.DeliveryDate,
		"created", result.CreatedCount,
		"skipped", result.SkippedCount,
	)
	return result, nil
}

// resolveStaff loads the assigned staff. Every id must be a staff member or
// admin of the bank.
func resolveStaff(tx *gorm.DB, bankID string, ids []uuid.UUID) ([]Volunteer, error) {
	seen := make(map[uuid.UUID]bool, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return nil, ErrNoStaff
	}

	var users []models.User
	err := tx.Scopes(tenant.ForBank(bankID)).
		Where("id IN ? AND role IN ?", unique, []string{models.RoleStaff, models.RoleAdmin}).
		Find(&users).Error
	if err != nil {
		return nil, apperr.Store("load staff", err)
	}
	if len(users) != len(unique) {
		return nil, ErrUnknownStaff
	}

	byID := make(map[uuid.UUID]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	out := make([]Volunteer, 0, len(unique))
	for _, id := range unique {
		u := byID[id]
		out = append(out, Volunteer{StaffID: u.ID, Name: u.DisplayName()})
	}
	return out, nil
}

func alreadyScheduled(tx *gorm.DB, bankID, runKey string) (map[uuid.UUID]bool, error) {
	var ids []uuid.UUID
	err := tx.Model(&Delivery{}).Scopes(tenant.ForBank(bankID)).
		Where("run_key = ?", runKey).
		Pluck("beneficiary_id", &ids).Error
	if err != nil {
		return nil, apperr.Store("load scheduled deliveries", err)
	}
	out := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func cloneVolunteers(in []Volunteer) []Volunteer {
	out := make([]Volunteer, len(in))
	for i, v := range in {
		out[i] = Volunteer{StaffID: v.StaffID, Name: v.Name}
	}
	return out
}
