package requests

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/meditrack/internal/domain/models"
	"github.com/mamadbah2/meditrack/internal/repository"
	"github.com/mamadbah2/meditrack/internal/repository/memory"
	"github.com/mamadbah2/meditrack/internal/storage/uploads"
)

type fixture struct {
	svc    *Service
	store  repository.Store
	fs     afero.Fs
	farmer *models.User
	vet    *models.User
	animal *models.Animal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	fs := afero.NewMemMapFs()
	photos, err := uploads.NewStore(fs, "uploads", 4<<20, nil)
	require.NoError(t, err)

	farmer := &models.User{Name: "Awa", Phone: "1", Role: models.RoleFarmer, City: "Dakar"}
	vet := &models.User{Name: "Dr Diop", Phone: "2", Role: models.RoleVet, City: "Dakar"}
	require.NoError(t, store.Users.Create(ctx, farmer))
	require.NoError(t, store.Users.Create(ctx, vet))

	animal := &models.Animal{OwnerID: farmer.ID, AnimalTagID: "COW-1", Type: "Cow"}
	require.NoError(t, store.Animals.Create(ctx, animal))

	return &fixture{
		svc:    NewService(store, photos, nil),
		store:  store,
		fs:     fs,
		farmer: farmer,
		vet:    vet,
		animal: animal,
	}
}

func photo(t *testing.T) *uploads.File {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))))
	data := buf.Bytes()
	return &uploads.File{
		Filename: "cow.png",
		Size:     int64(len(data)),
		Open:     func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

func uploadCount(t *testing.T, fs afero.Fs) int {
	t.Helper()
	entries, err := afero.ReadDir(fs, "uploads")
	require.NoError(t, err)
	return len(entries)
}

func (f *fixture) animalStatus(t *testing.T) models.AnimalStatus {
	t.Helper()
	a, err := f.store.Animals.FindByID(context.Background(), f.animal.ID)
	require.NoError(t, err)
	return a.Status
}

func TestCreate_ValidatesBeforeWritingPhoto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.farmer.ID, CreateInput{AnimalID: f.animal.ID.Hex(), ProblemDescription: "   ", Photo: photo(t)})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = f.svc.Create(ctx, f.farmer.ID, CreateInput{AnimalID: "bad", ProblemDescription: "cough", Photo: photo(t)})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = f.svc.Create(ctx, f.farmer.ID, CreateInput{AnimalID: primitive.NewObjectID().Hex(), ProblemDescription: "cough", Photo: photo(t)})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.svc.Create(ctx, primitive.NewObjectID(), CreateInput{AnimalID: f.animal.ID.Hex(), ProblemDescription: "cough", Photo: photo(t)})
	assert.ErrorIs(t, err, models.ErrForbidden)

	assert.Zero(t, uploadCount(t, f.fs))
	assert.Equal(t, models.AnimalHealthy, f.animalStatus(t))
}

func TestCreate_StoresPhotoAndMarksAnimal(t *testing.T) {
	f := newFixture(t)

	req, err := f.svc.Create(context.Background(), f.farmer.ID, CreateInput{
		AnimalID:           f.animal.ID.Hex(),
		ProblemDescription: "Coughing since Monday",
		Photo:              photo(t),
	})
	require.NoError(t, err)

	assert.Equal(t, models.RequestPending, req.Status)
	require.NotNil(t, req.MediaURL)
	assert.Contains(t, *req.MediaURL, uploads.URLPrefix)
	assert.Equal(t, 1, uploadCount(t, f.fs))
	assert.Equal(t, models.AnimalUnderTreatment, f.animalStatus(t))
}

func TestAccept_ConcurrentVetsHaveOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.Create(ctx, f.farmer.ID, CreateInput{AnimalID: f.animal.ID.Hex(), ProblemDescription: "fever"})
	require.NoError(t, err)

	const vets = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < vets; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Accept(ctx, primitive.NewObjectID(), req.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if assert.ErrorIs(t, err, models.ErrConflict) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, vets-1, conflicts)

	_, err = f.svc.Accept(ctx, f.vet.ID, primitive.NewObjectID())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDecline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.Create(ctx, f.farmer.ID, CreateInput{AnimalID: f.animal.ID.Hex(), ProblemDescription: "limping"})
	require.NoError(t, err)

	_, err = f.svc.Decline(ctx, f.vet.ID, req.ID, " ")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = f.svc.Accept(ctx, f.vet.ID, req.ID)
	require.NoError(t, err)

	_, err = f.svc.Decline(ctx, primitive.NewObjectID(), req.ID, "busy")
	assert.ErrorIs(t, err, models.ErrConflict)

	declined, err := f.svc.Decline(ctx, f.vet.ID, req.ID, "needs a specialist")
	require.NoError(t, err)
	assert.Equal(t, models.RequestDeclined, declined.Status)
	require.NotNil(t, declined.DeclineReason)
	assert.Equal(t, "needs a specialist", *declined.DeclineReason)
	assert.Equal(t, models.AnimalHealthy, f.animalStatus(t))

	_, err = f.svc.Accept(ctx, f.vet.ID, req.ID)
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestComplete_OnlyAssignedVet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.Create(ctx, f.farmer.ID, CreateInput{AnimalID: f.animal.ID.Hex(), ProblemDescription: "fever"})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Complete(ctx, f.vet.ID, req.ID, primitive.NewObjectID()), models.ErrConflict)

	_, err = f.svc.Accept(ctx, f.vet.ID, req.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.Complete(ctx, primitive.NewObjectID(), req.ID, primitive.NewObjectID()), models.ErrConflict)

	prescriptionID := primitive.NewObjectID()
	require.NoError(t, f.svc.Complete(ctx, f.vet.ID, req.ID, prescriptionID))

	got, err := f.store.Requests.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestCompleted, got.Status)
	require.NotNil(t, got.PrescriptionID)
	assert.Equal(t, prescriptionID, *got.PrescriptionID)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.Create(ctx, f.farmer.ID, CreateInput{AnimalID: f.animal.ID.Hex(), ProblemDescription: "rash", Photo: photo(t)})
	require.NoError(t, err)
	require.Equal(t, 1, uploadCount(t, f.fs))

	assert.ErrorIs(t, f.svc.Delete(ctx, primitive.NewObjectID(), req.ID), models.ErrForbidden)

	require.NoError(t, f.svc.Delete(ctx, f.farmer.ID, req.ID))
	assert.Zero(t, uploadCount(t, f.fs))
	assert.Equal(t, models.AnimalHealthy, f.animalStatus(t))
	assert.ErrorIs(t, f.svc.Delete(ctx, f.farmer.ID, req.ID), models.ErrNotFound)

	accepted, err := f.svc.Create(ctx, f.farmer.ID, CreateInput{AnimalID: f.animal.ID.Hex(), ProblemDescription: "rash"})
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, f.vet.ID, accepted.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.Delete(ctx, f.farmer.ID, accepted.ID), models.ErrConflict)
}

func TestQueries_PopulateAndAuthorize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, f.farmer.ID, CreateInput{AnimalID: f.animal.ID.Hex(), ProblemDescription: "one"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.farmer.ID, CreateInput{AnimalID: f.animal.ID.Hex(), ProblemDescription: "two"})
	require.NoError(t, err)

	pending, err := f.svc.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.NotNil(t, pending[0].Farmer)
	assert.Equal(t, "Awa", pending[0].Farmer.Name)
	require.NotNil(t, pending[0].Animal)
	assert.Equal(t, "COW-1", pending[0].Animal.AnimalTagID)

	_, err = f.svc.Accept(ctx, f.vet.ID, first.ID)
	require.NoError(t, err)

	vetIdentity := models.Identity{UserID: f.vet.ID, Role: models.RoleVet}
	accepted, err := f.svc.AcceptedByVet(ctx, vetIdentity, f.vet.ID)
	require.NoError(t, err)
	require.Len(t, accepted, 1)
	assert.Equal(t, first.ID, accepted[0].ID)

	_, err = f.svc.AcceptedByVet(ctx, models.Identity{UserID: primitive.NewObjectID(), Role: models.RoleVet}, f.vet.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	farmerIdentity := models.Identity{UserID: f.farmer.ID, Role: models.RoleFarmer}
	mine, err := f.svc.ForFarmer(ctx, farmerIdentity, f.farmer.ID)
	require.NoError(t, err)
	again, err := f.svc.ForFarmer(ctx, farmerIdentity, f.farmer.ID)
	require.NoError(t, err)
	assert.Equal(t, mine, again)
	require.Len(t, mine, 2)
	for _, v := range mine {
		if v.ID == first.ID {
			require.NotNil(t, v.Vet)
			assert.Equal(t, "Dr Diop", v.Vet.Name)
		}
	}

	_, err = f.svc.ForFarmer(ctx, models.Identity{UserID: primitive.NewObjectID(), Role: models.RoleFarmer}, f.farmer.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)
}
