package ledger

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/meditrack/internal/domain/models"
	"github.com/mamadbah2/meditrack/internal/repository/memory"
)

type fakeClient struct {
	txHash string
	err    error
	block  bool
	calls  int
}

func (f *fakeClient) AddEvent(ctx context.Context, actionType, subjectID, contentHash string) (string, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.txHash, f.err
}

func samplePrescription() models.Prescription {
	return models.Prescription{
		ID:        primitive.NewObjectID(),
		VetID:     primitive.NewObjectID(),
		AnimalID:  primitive.NewObjectID(),
		Location:  "Dakar",
		CreatedAt: time.Date(2025, 1, 10, 8, 30, 0, 0, time.UTC),
	}
}

func TestEventFor_HashIsDeterministic(t *testing.T) {
	p := samplePrescription()

	first, err := EventFor(p)
	require.NoError(t, err)
	second, err := EventFor(p)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, models.ActionPrescriptionCreated, first.ActionType)
	assert.Equal(t, p.AnimalID.Hex(), first.SubjectID)
	assert.Regexp(t, regexp.MustCompile(`^0x[0-9a-f]{64}$`), first.ContentHash)

	p.Location = "Thies"
	changed, err := EventFor(p)
	require.NoError(t, err)
	assert.NotEqual(t, first.ContentHash, changed.ContentHash)
}

func TestKeccak256Hex_KnownVector(t *testing.T) {
	assert.Equal(t, "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", Keccak256Hex(nil))
}

func TestNotarize_Outcomes(t *testing.T) {
	event := models.LedgerEvent{ActionType: models.ActionPrescriptionCreated, SubjectID: "a1", ContentHash: "0x01"}

	t.Run("confirmed", func(t *testing.T) {
		svc := NewService(&fakeClient{txHash: "0xtx"}, nil, time.Second, nil)
		out := svc.Notarize(context.Background(), event, models.LedgerOutcome{})
		assert.Equal(t, models.LedgerConfirmed, out.Status)
		require.NotNil(t, out.TxHash)
		assert.Equal(t, "0xtx", *out.TxHash)
		assert.Equal(t, 1, out.Attempts)
	})

	t.Run("failed", func(t *testing.T) {
		svc := NewService(&fakeClient{err: errors.New("boom")}, nil, time.Second, nil)
		out := svc.Notarize(context.Background(), event, models.LedgerOutcome{Attempts: 2})
		assert.Equal(t, models.LedgerFailed, out.Status)
		assert.Nil(t, out.TxHash)
		assert.Equal(t, "boom", out.Reason)
		assert.Equal(t, 3, out.Attempts)
	})

	t.Run("timed out", func(t *testing.T) {
		svc := NewService(&fakeClient{block: true}, nil, 20*time.Millisecond, nil)
		out := svc.Notarize(context.Background(), event, models.LedgerOutcome{})
		assert.Equal(t, models.LedgerTimedOut, out.Status)
		assert.Nil(t, out.TxHash)
	})

	t.Run("disabled", func(t *testing.T) {
		svc := NewService(nil, nil, time.Second, nil)
		out := svc.Notarize(context.Background(), event, models.LedgerOutcome{})
		assert.Equal(t, models.LedgerDisabled, out.Status)
	})
}

func TestReconcile_RetriesFailedOutcomes(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	failing := &fakeClient{err: errors.New("gateway down")}
	svc := NewService(failing, store.Prescriptions, time.Second, nil)

	p := samplePrescription()
	require.NoError(t, store.Prescriptions.Create(ctx, &p))
	first := svc.Record(ctx, &p)
	assert.Equal(t, models.LedgerFailed, first.Status)

	healthy := &fakeClient{txHash: "0xok"}
	svc.client = healthy

	res, err := svc.Reconcile(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, ReconcileResult{Attempted: 1, Confirmed: 1}, res)

	stored, err := store.Prescriptions.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LedgerConfirmed, stored.Ledger.Status)
	assert.Equal(t, 2, stored.Ledger.Attempts)

	res, err = svc.Reconcile(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, res.Attempted)
	assert.Equal(t, 1, healthy.calls)
}
