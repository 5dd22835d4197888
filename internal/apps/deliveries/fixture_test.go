package deliveries

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/apps/communities"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/scanguard"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/testutil"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/validator"
)

type fixture struct {
	db        *gorm.DB
	registry  *communities.Service
	scheduler *Scheduler
	redeemer  *Redeemer
	service   *Service
	staff     models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t, &communities.Community{}, &communities.TemplateProduct{}, &Delivery{}, &Volunteer{})
	registry := communities.NewService(db, testutil.NewRegistry(), validator.New())

	return &fixture{
		db:        db,
		registry:  registry,
		scheduler: NewScheduler(db, registry, NewCodeAllocator()),
		redeemer:  NewRedeemer(db, scanguard.NewMemoryGuard(time.Second)),
		service:   NewService(db),
		staff:     testutil.CreateUser(t, db, models.RoleStaff, "Rosa Staff", ""),
	}
}

func (f *fixture) community(t *testing.T, name string) *communities.Community {
	t.Helper()
	c, err := f.registry.UpsertCommunity(context.Background(), testutil.BankID, nil, &communities.CommunityRequest{
		Municipality: "Zapopan",
		Name:         name,
		FamilyCount:  10,
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) product(t *testing.T, id, name string, qty float64) {
	t.Helper()
	_, err := f.registry.UpsertTemplateProduct(context.Background(), testutil.BankID, id, &communities.TemplateProductRequest{
		Name:     name,
		Quantity: qty,
		Unit:     "kg",
		Category: "basic_basket",
	})
	require.NoError(t, err)
}

func (f *fixture) schedule(t *testing.T, c *communities.Community, date time.Time) *ScheduleResult {
	t.Helper()
	res, err := f.scheduler.Schedule(context.Background(), testutil.BankID, &ScheduleRequest{
		CommunityID:  c.ID,
		DeliveryDate: date,
		StaffIDs:     []uuid.UUID{f.staff.ID},
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) delivery(t *testing.T, id uuid.UUID) Delivery {
	t.Helper()
	var d Delivery
	require.NoError(t, f.db.Preload("Volunteers").First(&d, "id = ?", id).Error)
	return d
}

func (f *fixture) count(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&Delivery{}).Count(&n).Error)
	return n
}

func day(offset int) time.Time {
	return time.Date(2026, 11, 1, 10, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

// seedDelivery inserts a delivery directly, bypassing the scheduler.
func seedDelivery(t *testing.T, db *gorm.DB, beneficiary models.User, code, status string, date time.Time) Delivery {
	t.Helper()
	communityID := uuid.New()
	d := Delivery{
		BankID:        testutil.BankID,
		RunKey:        RunKey(communityID, date),
		CommunityID:   communityID,
		CommunityName: beneficiary.Community,
		Municipality:  "Zapopan",
		FamilyCount:   10,
		DeliveryDate:  date,
		Beneficiary: BeneficiaryRef{
			ID:       beneficiary.ID,
			Name:     beneficiary.DisplayName(),
			Code:     code,
			Redeemed: status == StatusDelivered,
		},
		Products: datatypes.NewJSONType(communities.Products{
			"rice": {Name: "Arroz", Quantity: 1, Unit: "kg", Category: "basic_basket"},
		}),
		Status: status,
	}
	if status == StatusDelivered {
		at := date.Add(time.Hour)
		d.DeliveredAt = &at
	}
	require.NoError(t, db.Create(&d).Error)
	return d
}
