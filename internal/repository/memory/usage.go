package memory

import (
	"context"
	"sort"

	"github.com/mamadbah2/meditrack/internal/domain/models"
)

type usage struct{ *db }

func (s *usage) Increment(_ context.Context, area, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage[usageKey{area: area, date: date}]++
	return nil
}

func (s *usage) ListAreas(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for k := range s.usage {
		seen[k.area] = struct{}{}
	}
	areas := make([]string, 0, len(seen))
	for area := range seen {
		areas = append(areas, area)
	}
	return sortStrings(areas), nil
}

func (s *usage) records(keep func(usageKey) bool) []models.AreaUsageRecord {
	out := make([]models.AreaUsageRecord, 0)
	for k, q := range s.usage {
		if keep(k) {
			out = append(out, models.AreaUsageRecord{Area: k.area, Date: k.date, Quantity: q})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Area != out[j].Area {
			return out[i].Area < out[j].Area
		}
		return out[i].Date < out[j].Date
	})
	return out
}

func (s *usage) ListByArea(_ context.Context, area string) ([]models.AreaUsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records(func(k usageKey) bool { return k.area == area }), nil
}

func (s *usage) ListAll(_ context.Context) ([]models.AreaUsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records(func(usageKey) bool { return true }), nil
}

func (s *usage) TotalsByArea(_ context.Context) ([]models.AreaTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[string]int64)
	for k, q := range s.usage {
		totals[k.area] += q
	}
	out := make([]models.AreaTotal, 0, len(totals))
	for area, q := range totals {
		out = append(out, models.AreaTotal{Area: area, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		return out[i].Area < out[j].Area
	})
	return out, nil
}

func (s *usage) SaveSnapshot(_ context.Context, snapshot models.AreaUsageSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshot.Area] = snapshot
	return nil
}

func (s *usage) ListSnapshots(_ context.Context) ([]models.AreaUsageSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.AreaUsageSnapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Area < out[j].Area })
	return out, nil
}
