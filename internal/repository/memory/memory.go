// Package memory is an in-process backend used for local development and
// tests. It honours the same conditional-write rules as the MongoDB store.
package memory

import (
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/meditrack/internal/domain/models"
	"github.com/mamadbah2/meditrack/internal/repository"
)

type db struct {
	mu            sync.RWMutex
	users         map[primitive.ObjectID]models.User
	animals       map[primitive.ObjectID]models.Animal
	requests      map[primitive.ObjectID]models.TreatmentRequest
	prescriptions map[primitive.ObjectID]models.Prescription
	bills         map[primitive.ObjectID]models.Bill
	usage         map[usageKey]int64
	snapshots     map[string]models.AreaUsageSnapshot
	records       map[primitive.ObjectID]models.AMURecord
	now           func() time.Time
}

type usageKey struct {
	area string
	date string
}

// NewStore returns an empty repository set.
func NewStore() repository.Store {
	d := &db{
		users:         make(map[primitive.ObjectID]models.User),
		animals:       make(map[primitive.ObjectID]models.Animal),
		requests:      make(map[primitive.ObjectID]models.TreatmentRequest),
		prescriptions: make(map[primitive.ObjectID]models.Prescription),
		bills:         make(map[primitive.ObjectID]models.Bill),
		usage:         make(map[usageKey]int64),
		snapshots:     make(map[string]models.AreaUsageSnapshot),
		records:       make(map[primitive.ObjectID]models.AMURecord),
		now:           func() time.Time { return time.Now().UTC() },
	}
	return repository.Store{
		Users:         &users{d},
		Animals:       &animals{d},
		Requests:      &requests{d},
		Prescriptions: &prescriptions{d},
		Bills:         &bills{d},
		Usage:         &usage{d},
		Records:       &records{d},
	}
}

func (d *db) stamp(id *primitive.ObjectID, createdAt, updatedAt *time.Time) {
	if id.IsZero() {
		*id = primitive.NewObjectID()
	}
	now := d.now()
	*createdAt, *updatedAt = now, now
}

func collect[T any](m map[primitive.ObjectID]T, keep func(T) bool) []T {
	out := make([]T, 0)
	for _, v := range m {
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func pick[T any](m map[primitive.ObjectID]T, ids []primitive.ObjectID) []T {
	out := make([]T, 0, len(ids))
	for _, id := range repository.UniqueIDs(ids) {
		if v, ok := m[id]; ok {
			out = append(out, v)
		}
	}
	return out
}

// newestFirst orders by createdAt descending with the id as tie-breaker.
func newestFirst(aTime, bTime time.Time, aID, bID primitive.ObjectID) bool {
	if !aTime.Equal(bTime) {
		return aTime.After(bTime)
	}
	return aID.Hex() > bID.Hex()
}

func limit[T any](items []T, n int64) []T {
	if n > 0 && int64(len(items)) > n {
		return items[:n]
	}
	return items
}

func sortStrings(s []string) []string {
	sort.Strings(s)
	return s
}
