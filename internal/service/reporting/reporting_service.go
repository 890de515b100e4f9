package reporting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/meditrack/internal/domain/models"
	"github.com/mamadbah2/meditrack/internal/repository"
)

// Overview is the admin dashboard headline counts.
type Overview struct {
	TotalFarmers       int64 `json:"totalFarmers"`
	TotalVets          int64 `json:"totalVets"`
	TotalAnimals       int64 `json:"totalAnimals"`
	TotalPrescriptions int64 `json:"totalPrescriptions"`
	TotalMRLActive     int64 `json:"totalMRLActive"`
}

// Service exposes usage analytics, admin dashboards and exports.
type Service struct {
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires a new reporting service instance.
func NewService(store repository.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// ListAreas returns the sorted distinct area names of the aggregate store.
func (s *Service) ListAreas(ctx context.Context) ([]string, error) {
	areas, err := s.store.Usage.ListAreas(ctx)
	if err != nil {
		return nil, fmt.Errorf("list areas: %w", err)
	}
	return areas, nil
}

// AmuByCity sums usage per area, largest first.
func (s *Service) AmuByCity(ctx context.Context) (models.CityUsage, error) {
	totals, err := s.store.Usage.TotalsByArea(ctx)
	if err != nil {
		return models.CityUsage{}, fmt.Errorf("sum usage by area: %w", err)
	}
	out := models.CityUsage{
		Cities:     make([]string, 0, len(totals)),
		Quantities: make([]int64, 0, len(totals)),
	}
	for _, t := range totals {
		out.Cities = append(out.Cities, t.Area)
		out.Quantities = append(out.Quantities, t.Quantity)
	}
	return out, nil
}

// AreaReport computes the statistics view of one area. The name is matched
// after normalization so "Saint Louis" and "saintlouis" are the same area.
func (s *Service) AreaReport(ctx context.Context, area string) (models.AreaReport, error) {
	normalized := models.NormalizeArea(area)
	if normalized == "" {
		return models.AreaReport{}, models.Required("area")
	}

	records, err := s.store.Usage.ListByArea(ctx, normalized)
	if err != nil {
		return models.AreaReport{}, fmt.Errorf("load area usage: %w", err)
	}

	report, err := BuildAreaReport(normalized, records)
	if err != nil {
		if errors.Is(err, models.ErrAreaNotFound) {
			return models.AreaReport{}, fmt.Errorf("no usage data for %s: %w", normalized, models.ErrAreaNotFound)
		}
		return models.AreaReport{}, fmt.Errorf("compute area report: %w", err)
	}
	return report, nil
}

// RefreshSnapshots rebuilds the materialized report of every area and
// returns how many were written. Areas that fail are logged and skipped.
func (s *Service) RefreshSnapshots(ctx context.Context) (int, error) {
	records, err := s.store.Usage.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load usage: %w", err)
	}

	byArea := make(map[string][]models.AreaUsageRecord)
	order := make([]string, 0)
	for _, r := range records {
		if _, ok := byArea[r.Area]; !ok {
			order = append(order, r.Area)
		}
		byArea[r.Area] = append(byArea[r.Area], r)
	}

	refreshedAt := s.now().UTC()
	written := 0
	for _, area := range order {
		report, err := BuildAreaReport(area, byArea[area])
		if err != nil {
			s.logger.Warn("skip area snapshot", zap.String("area", area), zap.Error(err))
			continue
		}
		snapshot := models.AreaUsageSnapshot{AreaReport: report, RefreshedAt: refreshedAt}
		if err := s.store.Usage.SaveSnapshot(ctx, snapshot); err != nil {
			s.logger.Error("failed to save area snapshot", zap.String("area", area), zap.Error(err))
			continue
		}
		written++
	}

	s.logger.Info("area snapshots refreshed", zap.Int("areas", written))
	return written, nil
}

// ListSnapshots reads the materialized area reports.
func (s *Service) ListSnapshots(ctx context.Context) ([]models.AreaUsageSnapshot, error) {
	snapshots, err := s.store.Usage.ListSnapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return snapshots, nil
}

// Overview counts the admin dashboard totals.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	var (
		out Overview
		err error
	)
	if out.TotalFarmers, err = s.store.Users.CountByRole(ctx, models.RoleFarmer); err != nil {
		return Overview{}, fmt.Errorf("count farmers: %w", err)
	}
	if out.TotalVets, err = s.store.Users.CountByRole(ctx, models.RoleVet); err != nil {
		return Overview{}, fmt.Errorf("count vets: %w", err)
	}
	if out.TotalAnimals, err = s.store.Animals.Count(ctx); err != nil {
		return Overview{}, fmt.Errorf("count animals: %w", err)
	}
	if out.TotalPrescriptions, err = s.store.Prescriptions.Count(ctx); err != nil {
		return Overview{}, fmt.Errorf("count prescriptions: %w", err)
	}
	if out.TotalMRLActive, err = s.store.Animals.CountUnderWithdrawal(ctx, s.now()); err != nil {
		return Overview{}, fmt.Errorf("count animals under withdrawal: %w", err)
	}
	return out, nil
}

// PrescriptionsByCity counts prescriptions per vet city, most active first.
func (s *Service) PrescriptionsByCity(ctx context.Context) ([]models.CityCount, error) {
	counts, err := s.store.Prescriptions.CountByLocation(ctx)
	if err != nil {
		return nil, fmt.Errorf("count prescriptions by city: %w", err)
	}
	return counts, nil
}

// MedicineUsage counts how many prescriptions included each medicine.
func (s *Service) MedicineUsage(ctx context.Context) ([]models.MedicineCount, error) {
	usage, err := s.store.Prescriptions.MedicineUsage(ctx)
	if err != nil {
		return nil, fmt.Errorf("count medicine usage: %w", err)
	}
	return usage, nil
}

// ProfessionalsByCity lists the vets and pharmacists registered in city.
func (s *Service) ProfessionalsByCity(ctx context.Context, city string) ([]models.UserSummary, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, models.Required("city")
	}
	users, err := s.store.Users.ListByRoles(ctx, []models.Role{models.RoleVet, models.RolePharmacist}, city)
	if err != nil {
		return nil, fmt.Errorf("list professionals: %w", err)
	}
	out := make([]models.UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, models.UserSummary{ID: u.ID, Name: u.Name, Role: u.Role})
	}
	return out, nil
}
