package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mamadbah2/meditrack/internal/domain/models"
	"github.com/mamadbah2/meditrack/internal/repository/memory"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc := NewService(memory.NewStore().Users, "test-secret", time.Hour, nil)
	svc.cost = bcrypt.MinCost
	return svc
}

func validInput() RegisterInput {
	return RegisterInput{Name: "Awa", Phone: "+221770000001", Password: "pa55", Role: models.RoleFarmer, City: "Dakar"}
}

func TestRegister_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	missingCity := validInput()
	missingCity.City = "  "
	_, err := svc.Register(ctx, missingCity)
	assert.ErrorIs(t, err, models.ErrValidation)

	badRole := validInput()
	badRole.Role = "Butcher"
	_, err = svc.Register(ctx, badRole)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestRegister_HashesPasswordAndRejectsDuplicatePhone(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, validInput())
	require.NoError(t, err)
	assert.NotEqual(t, "pa55", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pa55")))

	_, err = svc.Register(ctx, validInput())
	assert.ErrorIs(t, err, models.ErrDuplicate)
}

func TestLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	_, err = svc.Login(ctx, "+221700000000", "pa55")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.Login(ctx, user.Phone, "wrong")
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	res, err := svc.Login(ctx, user.Phone, "pa55")
	require.NoError(t, err)
	assert.Equal(t, LoginUser{UserID: user.ID.Hex(), Name: "Awa", Role: models.RoleFarmer, City: "Dakar"}, res.User)

	id, err := svc.ParseToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, models.Identity{UserID: user.ID, Role: models.RoleFarmer}, id)
}

func TestParseToken_RejectsExpiredAndForeignTokens(t *testing.T) {
	svc := newTestService(t)
	user, err := svc.Register(context.Background(), validInput())
	require.NoError(t, err)

	issuedAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issuedAt }
	token, err := svc.IssueToken(user.ID, user.Role)
	require.NoError(t, err)

	svc.now = func() time.Time { return issuedAt.Add(2 * time.Hour) }
	_, err = svc.ParseToken(token)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	other := NewService(nil, "other-secret", time.Hour, nil)
	foreign, err := other.IssueToken(user.ID, user.Role)
	require.NoError(t, err)
	svc.now = time.Now
	_, err = svc.ParseToken(foreign)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = svc.ParseToken("not-a-token")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}
