package billing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/meditrack/internal/domain/models"
	"github.com/mamadbah2/meditrack/internal/repository"
	"github.com/mamadbah2/meditrack/internal/repository/memory"
)

func ptr(f float64) *float64 { return &f }

func seed(t *testing.T) (repository.Store, *models.Prescription) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	farmer := &models.User{Name: "Awa", Phone: "1", Role: models.RoleFarmer}
	require.NoError(t, store.Users.Create(ctx, farmer))
	animal := &models.Animal{OwnerID: farmer.ID, AnimalTagID: "COW-01", Type: "Cow"}
	require.NoError(t, store.Animals.Create(ctx, animal))

	p := &models.Prescription{
		VetID:     primitive.NewObjectID(),
		AnimalID:  animal.ID,
		Location:  "Dakar",
		Medicines: []models.Medicine{{Name: "Penicillin", Dosage: "10ml BID"}},
	}
	require.NoError(t, store.Prescriptions.Create(ctx, p))
	return store, p
}

func TestTotal(t *testing.T) {
	total, err := Total([]models.BillItem{{Name: "a", Price: ptr(0.1)}, {Name: "b", Price: ptr(0.2)}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.3, total)

	total, err = Total([]models.BillItem{{Name: "a", Price: ptr(0.1)}, {Name: "b", Price: ptr(0.2)}}, ptr(0.3))
	require.NoError(t, err)
	assert.Equal(t, 0.3, total)

	_, err = Total([]models.BillItem{{Name: "a", Price: ptr(10)}}, ptr(12))
	assert.ErrorIs(t, err, models.ErrValidation)

	total, err = Total([]models.BillItem{{Name: "a"}}, ptr(45.5))
	require.NoError(t, err)
	assert.Equal(t, 45.5, total)

	_, err = Total(nil, nil)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = Total([]models.BillItem{{Name: "a"}}, ptr(0))
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestCreate_BillsPrescriptionOnce(t *testing.T) {
	store, p := seed(t)
	svc := NewService(store, nil)
	ctx := context.Background()
	pharmacist := primitive.NewObjectID()

	bill, err := svc.Create(ctx, pharmacist, CreateInput{
		PrescriptionID: p.ID.Hex(),
		Items:          []models.BillItem{{Name: "Penicillin", Dosage: "10ml BID", Price: ptr(150)}},
	})
	require.NoError(t, err)
	assert.Equal(t, 150.0, bill.TotalAmount)
	assert.Equal(t, models.BillStatusPaid, bill.Status)
	assert.Equal(t, "COW-01", bill.AnimalTagID)
	assert.Equal(t, "Awa", bill.FarmerName)
	assert.Equal(t, pharmacist, bill.PharmacistID)
	require.Len(t, bill.Items, 1)
	assert.Equal(t, "Penicillin", bill.Items[0].Name)
	assert.Equal(t, "10ml BID", bill.Items[0].Dosage)

	stored, err := store.Prescriptions.FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.BillID)
	assert.Equal(t, bill.ID, *stored.BillID)

	_, err = svc.Create(ctx, primitive.NewObjectID(), CreateInput{PrescriptionID: p.ID.Hex(), TotalAmount: ptr(10)})
	assert.ErrorIs(t, err, models.ErrDuplicate)

	recent, err := svc.Recent(ctx, pharmacist, 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.NotNil(t, recent[0].Prescription)
	require.NotNil(t, recent[0].Animal)
	assert.Equal(t, "COW-01", recent[0].Animal.AnimalTagID)
}

func TestCreate_Validation(t *testing.T) {
	store, p := seed(t)
	svc := NewService(store, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, primitive.NewObjectID(), CreateInput{TotalAmount: ptr(5)})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.Create(ctx, primitive.NewObjectID(), CreateInput{PrescriptionID: primitive.NewObjectID().Hex(), TotalAmount: ptr(5)})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.Create(ctx, primitive.NewObjectID(), CreateInput{PrescriptionID: p.ID.Hex(), Items: []models.BillItem{{Name: " "}}, TotalAmount: ptr(5)})
	assert.ErrorIs(t, err, models.ErrValidation)
}
