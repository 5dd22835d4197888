package communities

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/testutil"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/validator"
)

func newService(t *testing.T) *Service {
	t.Helper()
	db := testutil.NewDB(t, &Community{}, &TemplateProduct{})
	return NewService(db, testutil.NewRegistry(), validator.New())
}

func TestUpsertCommunity_Create(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	notes := "  acceso por terracería  "

	c, err := svc.UpsertCommunity(ctx, testutil.BankID, nil, &CommunityRequest{
		Municipality: "zapopan",
		Name:         "  Las Águilas ",
		FamilyCount:  42,
		Notes:        &notes,
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, c.ID)
	assert.Equal(t, "Zapopan", c.Municipality, "municipality is stored with its configured spelling")
	assert.Equal(t, "Las Águilas", c.Name)
	require.NotNil(t, c.Notes)
	assert.Equal(t, "acceso por terracería", *c.Notes)
}

func TestUpsertCommunity_Validation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		bankID  string
		req     CommunityRequest
		message string
	}{
		{
			name:    "blank_name",
			bankID:  testutil.BankID,
			req:     CommunityRequest{Municipality: "Zapopan", Name: " ", FamilyCount: 3},
			message: "name is required",
		},
		{
			name:    "zero_families",
			bankID:  testutil.BankID,
			req:     CommunityRequest{Municipality: "Zapopan", Name: "Centro", FamilyCount: 0},
			message: "family_count must be at least 1",
		},
		{
			name:    "unknown_municipality",
			bankID:  testutil.BankID,
			req:     CommunityRequest{Municipality: "Monterrey", Name: "Centro", FamilyCount: 3},
			message: "municipality must be one of Zapopan, Tlaquepaque, Tonalá",
		},
		{
			name:    "unknown_bank",
			bankID:  "nope",
			req:     CommunityRequest{Municipality: "Zapopan", Name: "Centro", FamilyCount: 3},
			message: "unknown food bank",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpsertCommunity(ctx, tt.bankID, nil, &tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperr.ErrValidation)
			assert.Equal(t, tt.message, err.Error())
		})
	}
}

func TestUpsertCommunity_UpdateAndDelete(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	c, err := svc.UpsertCommunity(ctx, testutil.BankID, nil, &CommunityRequest{Municipality: "Tonalá", Name: "Centro", FamilyCount: 10})
	require.NoError(t, err)

	updated, err := svc.UpsertCommunity(ctx, testutil.BankID, &c.ID, &CommunityRequest{Municipality: "Tonalá", Name: "Centro Histórico", FamilyCount: 12})
	require.NoError(t, err)
	assert.Equal(t, c.ID, updated.ID)
	assert.Equal(t, "Centro Histórico", updated.Name)

	list, err := svc.ListCommunities(ctx, testutil.BankID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 12, list[0].FamilyCount)

	missing := uuid.New()
	_, err = svc.UpsertCommunity(ctx, testutil.BankID, &missing, &CommunityRequest{Municipality: "Tonalá", Name: "X", FamilyCount: 1})
	assert.ErrorIs(t, err, ErrCommunityNotFound)

	require.NoError(t, svc.DeleteCommunity(ctx, testutil.BankID, c.ID))
	assert.ErrorIs(t, svc.DeleteCommunity(ctx, testutil.BankID, c.ID), ErrCommunityNotFound)

	_, err = svc.GetCommunity(ctx, testutil.BankID, c.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListCommunities_ScopedToBank(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.UpsertCommunity(ctx, testutil.BankID, nil, &CommunityRequest{Municipality: "Zapopan", Name: "B", FamilyCount: 1})
	require.NoError(t, err)
	_, err = svc.UpsertCommunity(ctx, testutil.BankID, nil, &CommunityRequest{Municipality: "Tlaquepaque", Name: "A", FamilyCount: 1})
	require.NoError(t, err)
	require.NoError(t, svc.db.Create(&Community{BankID: "other", Municipality: "X", Name: "Other", FamilyCount: 1}).Error)

	list, err := svc.ListCommunities(ctx, testutil.BankID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Tlaquepaque", list[0].Municipality)
	assert.Equal(t, "Zapopan", list[1].Municipality)
}

func TestTemplateProducts(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	tpl, err := svc.GetTemplate(ctx, testutil.BankID)
	require.NoError(t, err)
	assert.Empty(t, tpl.Products)
	assert.Nil(t, tpl.UpdatedAt)

	id, err := svc.UpsertTemplateProduct(ctx, testutil.BankID, "rice", &TemplateProductRequest{
		Name: "Arroz", Quantity: 2, Unit: "kg", Category: "basic_basket",
	})
	require.NoError(t, err)
	assert.Equal(t, "rice", id)

	generated, err := svc.UpsertTemplateProduct(ctx, testutil.BankID, "", &TemplateProductRequest{
		Name: "Jabón", Quantity: 1, Unit: "pz", Category: "non_food",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, generated)

	_, err = svc.UpsertTemplateProduct(ctx, testutil.BankID, "rice", &TemplateProductRequest{
		Name: "Arroz integral", Quantity: 2.5, Unit: "kg", Category: "basic_basket",
	})
	require.NoError(t, err)

	tpl, err = svc.GetTemplate(ctx, testutil.BankID)
	require.NoError(t, err)
	require.Len(t, tpl.Products, 2)
	assert.Equal(t, Product{Name: "Arroz integral", Quantity: 2.5, Unit: "kg", Category: "basic_basket"}, tpl.Products["rice"])
	assert.NotNil(t, tpl.UpdatedAt)

	require.NoError(t, svc.RemoveTemplateProduct(ctx, testutil.BankID, generated))
	assert.ErrorIs(t, svc.RemoveTemplateProduct(ctx, testutil.BankID, generated), ErrProductNotFound)

	tpl, err = svc.GetTemplate(ctx, testutil.BankID)
	require.NoError(t, err)
	assert.Len(t, tpl.Products, 1)
}

func TestTemplateProduct_Validation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.UpsertTemplateProduct(ctx, testutil.BankID, "milk", &TemplateProductRequest{Name: "Leche", Quantity: 0, Category: "meat_dairy"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.UpsertTemplateProduct(ctx, testutil.BankID, "milk", &TemplateProductRequest{Name: "", Quantity: 1, Category: "meat_dairy"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.UpsertTemplateProduct(ctx, testutil.BankID, "milk", &TemplateProductRequest{Name: "Leche", Quantity: 1, Category: "dairy"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestProductsClone(t *testing.T) {
	p := Products{"rice": {Name: "Arroz", Quantity: 1}}
	c := p.Clone()
	c["rice"] = Product{Name: "changed"}
	c["beans"] = Product{Name: "Frijol"}

	assert.Equal(t, "Arroz", p["rice"].Name)
	assert.Len(t, p, 1)
}

func TestBeneficiariesOf_NormalizedNameMatch(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	a := testutil.CreateUser(t, svc.db, models.RoleBeneficiary, "Ana", "Las Águilas")
	b := testutil.CreateUser(t, svc.db, models.RoleBeneficiary, "Beto", "  las   águilas ")
	testutil.CreateUser(t, svc.db, models.RoleBeneficiary, "Carla", "Las Aguilas Norte")
	testutil.CreateUser(t, svc.db, models.RoleStaff, "Diego", "Las Águilas")

	users, err := svc.BeneficiariesOf(ctx, testutil.BankID, "LAS ÁGUILAS")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, a.ID, users[0].ID)
	assert.Equal(t, b.ID, users[1].ID)

	users, err = svc.BeneficiariesOf(ctx, testutil.BankID, "   ")
	require.NoError(t, err)
	assert.Empty(t, users)
}
