package deliveries

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/scanguard"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/testutil"
)

func (f *fixture) redeem(deliveryID uuid.UUID, code string) (*RedeemResult, error) {
	return f.redeemer.Redeem(context.Background(), testutil.BankID, f.staff.ID, deliveryID, &RedeemRequest{Code: code})
}

func TestRedeem_DirectMatch(t *testing.T) {
	f := newFixture(t)
	b := testutil.CreateUser(t, f.db, models.RoleBeneficiary, "Ana", "Centro")
	d := seedDelivery(t, f.db, b, "qr_abc123", StatusScheduled, day(0))

	stamp := time.Date(2026, 11, 1, 12, 30, 0, 0, time.UTC)
	f.redeemer.now = func() time.Time { return stamp }

	res, err := f.redeem(d.ID, "  qr_abc123 ")
	require.NoError(t, err)
	assert.Equal(t, d.ID, res.DeliveryID)
	assert.Equal(t, "Ana", res.BeneficiaryName)
	assert.False(t, res.Fallback)
	assert.True(t, res.DeliveredAt.Equal(stamp))

	got := f.delivery(t, d.ID)
	assert.Equal(t, StatusDelivered, got.Status)
	assert.True(t, got.Beneficiary.Redeemed)
	require.NotNil(t, got.DeliveredAt)
	assert.True(t, got.DeliveredAt.Equal(stamp))
	require.NotNil(t, got.RedeemedBy)
	assert.Equal(t, f.staff.ID, *got.RedeemedBy)
}

func TestRedeem_FromEnRoute(t *testing.T) {
	f := newFixture(t)
	b := testutil.CreateUser(t, f.db, models.RoleBeneficiary, "Ana", "Centro")
	d := seedDelivery(t, f.db, b, "qr_abc123", StatusEnRoute, day(0))

	_, err := f.redeem(d.ID, "qr_abc123")
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, f.delivery(t, d.ID).Status)
}

func TestRedeem_FallsBackToDeliveryHoldingCode(t *testing.T) {
	f := newFixture(t)
	b := testutil.CreateUser(t, f.db, models.RoleBeneficiary, "Ana", "Centro")
	d1 := seedDelivery(t, f.db, b, "qr_xyz999", StatusScheduled, day(0))
	d2 := seedDelivery(t, f.db, b, "qr_abc123", StatusScheduled, day(7))

	res, err := f.redeem(d1.ID, "qr_abc123")
	require.NoError(t, err)
	assert.Equal(t, d2.ID, res.DeliveryID)
	assert.True(t, res.Fallback)

	assert.Equal(t, StatusScheduled, f.delivery(t, d1.ID).Status)
	assert.Equal(t, StatusDelivered, f.delivery(t, d2.ID).Status)
	assert.EqualValues(t, 2, f.count(t), "no record is created")
}

func TestRedeem_SharedCodeMarksExactlyOne(t *testing.T) {
	f := newFixture(t)
	b := testutil.CreateUser(t, f.db, models.RoleBeneficiary, "Ana", "Centro")
	d1 := seedDelivery(t, f.db, b, "qr_same", StatusScheduled, day(0))
	d2 := seedDelivery(t, f.db, b, "qr_same", StatusScheduled, day(7))

	_, err := f.redeem(d1.ID, "qr_same")
	require.NoError(t, err)

	var delivered int64
	require.NoError(t, f.db.Model(&Delivery{}).Where("status = ?", StatusDelivered).Count(&delivered).Error)
	assert.EqualValues(t, 1, delivered)
	assert.Equal(t, StatusScheduled, f.delivery(t, d2.ID).Status)
	assert.EqualValues(t, 2, f.count(t))
}

func TestRedeem_AlreadyDeliveredNeverRestamped(t *testing.T) {
	f := newFixture(t)
	b := testutil.CreateUser(t, f.db, models.RoleBeneficiary, "Ana", "Centro")
	d := seedDelivery(t, f.db, b, "qr_abc123", StatusScheduled, day(0))

	_, err := f.redeem(d.ID, "qr_abc123")
	require.NoError(t, err)
	first := f.delivery(t, d.ID).DeliveredAt
	require.NotNil(t, first)

	f.redeemer.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	for i := 0; i < 3; i++ {
		_, err := f.redeem(d.ID, "qr_abc123")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAlreadyDelivered)
		assert.Equal(t, 409, apperr.Status(err))
	}

	again := f.delivery(t, d.ID).DeliveredAt
	require.NotNil(t, again)
	assert.True(t, first.Equal(*again))
}

func TestRedeem_FallbackOnlyDeliveredIsRepeat(t *testing.T) {
	f := newFixture(t)
	b := testutil.CreateUser(t, f.db, models.RoleBeneficiary, "Ana", "Centro")
	d1 := seedDelivery(t, f.db, b, "qr_xyz999", StatusScheduled, day(7))
	seedDelivery(t, f.db, b, "qr_abc123", StatusDelivered, day(0))

	_, err := f.redeem(d1.ID, "qr_abc123")
	assert.ErrorIs(t, err, ErrAlreadyDelivered)
	assert.Equal(t, StatusScheduled, f.delivery(t, d1.ID).Status)
}

func TestRedeem_CodeOfAnotherBeneficiary(t *testing.T) {
	f := newFixture(t)
	ana := testutil.CreateUser(t, f.db, models.RoleBeneficiary, "Ana", "Centro")
	beto := testutil.CreateUser(t, f.db, models.RoleBeneficiary, "Beto", "Centro")
	d := seedDelivery(t, f.db, ana, "qr_ana", StatusScheduled, day(0))
	other := seedDelivery(t, f.db, beto, "qr_beto", StatusScheduled, day(0))

	_, err := f.redeem(d.ID, "qr_beto")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCodeMismatch)
	assert.True(t, errors.Is(err, apperr.ErrMismatch))
	assert.Equal(t, "code does not correspond to this beneficiary", apperr.Message(err))

	assert.Equal(t, StatusScheduled, f.delivery(t, d.ID).Status)
	assert.Equal(t, StatusScheduled, f.delivery(t, other.ID).Status)

	// The scanner is re-armed: a correct scan right after succeeds.
	_, err = f.redeem(d.ID, "qr_ana")
	require.NoError(t, err)
}

func TestRedeem_Errors(t *testing.T) {
	f := newFixture(t)
	b := testutil.CreateUser(t, f.db, models.RoleBeneficiary, "Ana", "Centro")
	d := seedDelivery(t, f.db, b, "qr_abc123", StatusScheduled, day(0))

	_, err := f.redeem(uuid.New(), "qr_abc123")
	assert.ErrorIs(t, err, ErrDeliveryNotFound)

	_, err = f.redeem(d.ID, "   ")
	assert.ErrorIs(t, err, ErrEmptyCode)

	_, err = f.redeemer.Redeem(context.Background(), "otro-banco", f.staff.ID, d.ID, &RedeemRequest{Code: "qr_abc123"})
	assert.ErrorIs(t, err, ErrDeliveryNotFound)

	assert.Equal(t, StatusScheduled, f.delivery(t, d.ID).Status)
}

func TestRedeem_HeldScanRefused(t *testing.T) {
	f := newFixture(t)
	b := testutil.CreateUser(t, f.db, models.RoleBeneficiary, "Ana", "Centro")
	d := seedDelivery(t, f.db, b, "qr_abc123", StatusScheduled, day(0))

	guard := scanguard.NewMemoryGuard(time.Minute)
	f.redeemer.guard = guard
	key := d.ID.String() + ":qr_abc123"
	ok, err := guard.Acquire(context.Background(), key)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.redeem(d.ID, "qr_abc123")
	assert.ErrorIs(t, err, ErrScanInProgress)
	assert.Equal(t, StatusScheduled, f.delivery(t, d.ID).Status)

	require.NoError(t, guard.Release(context.Background(), key))
	_, err = f.redeem(d.ID, "qr_abc123")
	require.NoError(t, err)
}

func TestRedeem_ReleasesGuardAfterAttempt(t *testing.T) {
	f := newFixture(t)
	b := testutil.CreateUser(t, f.db, models.RoleBeneficiary, "Ana", "Centro")
	d := seedDelivery(t, f.db, b, "qr_abc123", StatusScheduled, day(0))

	_, err := f.redeem(d.ID, "qr_wrong")
	require.ErrorIs(t, err, ErrCodeMismatch)

	// A failed attempt must not keep the key locked.
	_, err = f.redeem(d.ID, "qr_wrong")
	assert.ErrorIs(t, err, ErrCodeMismatch)
}

type brokenGuard struct{}

func (brokenGuard) Acquire(context.Context, string) (bool, error) {
	return false, errors.New("connection refused")
}

func (brokenGuard) Release(context.Context, string) error { return nil }

func TestRedeem_GuardOutageStillRedeemsOnce(t *testing.T) {
	f := newFixture(t)
	b := testutil.CreateUser(t, f.db, models.RoleBeneficiary, "Ana", "Centro")
	d := seedDelivery(t, f.db, b, "qr_abc123", StatusScheduled, day(0))
	f.redeemer.guard = brokenGuard{}

	_, err := f.redeem(d.ID, "qr_abc123")
	require.NoError(t, err)
	_, err = f.redeem(d.ID, "qr_abc123")
	assert.ErrorIs(t, err, ErrAlreadyDelivered)
}

func TestMarkEnRoute(t *testing.T) {
	f := newFixture(t)
	b := testutil.CreateUser(t, f.db, models.RoleBeneficiary, "Ana", "Centro")
	d := seedDelivery(t, f.db, b, "qr_abc123", StatusScheduled, day(0))
	ctx := context.Background()

	got, err := f.redeemer.MarkEnRoute(ctx, testutil.BankID, d.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusEnRoute, got.Status)

	got, err = f.redeemer.MarkEnRoute(ctx, testutil.BankID, d.ID)
	require.NoError(t, err, "marking twice is harmless")
	assert.Equal(t, StatusEnRoute, got.Status)

	_, err = f.redeem(d.ID, "qr_abc123")
	require.NoError(t, err)
	_, err = f.redeemer.MarkEnRoute(ctx, testutil.BankID, d.ID)
	assert.ErrorIs(t, err, ErrNotScheduled)

	_, err = f.redeemer.MarkEnRoute(ctx, testutil.BankID, uuid.New())
	assert.ErrorIs(t, err, ErrDeliveryNotFound)
}
