package reporting

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/mamadbah2/meditrack/internal/domain/models"
)

// anomalyThreshold is the absolute z-score above which a day is flagged.
const anomalyThreshold = 1.0

// BuildAreaReport computes trend statistics over one area's daily records.
// Records may arrive in any order; the trend is sorted by date.
func BuildAreaReport(area string, records []models.AreaUsageRecord) (models.AreaReport, error) {
	if len(records) == 0 {
		return models.AreaReport{}, models.ErrAreaNotFound
	}

	sorted := make([]models.AreaUsageRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })

	report := models.AreaReport{
		Area:         area,
		TotalRecords: len(sorted),
		DailyTrend: models.DailyTrend{
			Dates:      make([]string, 0, len(sorted)),
			Quantities: make([]int64, 0, len(sorted)),
		},
		Anomalies: make([]models.Anomaly, 0),
	}

	data := make(stats.Float64Data, 0, len(sorted))
	maxIdx, minIdx := 0, 0
	for i, r := range sorted {
		report.DailyTrend.Dates = append(report.DailyTrend.Dates, r.Date)
		report.DailyTrend.Quantities = append(report.DailyTrend.Quantities, r.Quantity)
		report.TotalPrescriptions += r.Quantity
		data = append(data, float64(r.Quantity))
		if r.Quantity > sorted[maxIdx].Quantity {
			maxIdx = i
		}
		if r.Quantity < sorted[minIdx].Quantity {
			minIdx = i
		}
	}
	report.MaxUsageDay = sorted[maxIdx].Date
	report.MinUsageDay = sorted[minIdx].Date

	mean, err := data.Mean()
	if err != nil {
		return models.AreaReport{}, err
	}
	std, err := data.StandardDeviationPopulation()
	if err != nil {
		return models.AreaReport{}, err
	}
	report.MeanQuantity = round2(mean)
	report.StdQuantity = round2(std)

	if std == 0 {
		return report, nil
	}
	for _, r := range sorted {
		z := (float64(r.Quantity) - mean) / std
		if math.Abs(z) > anomalyThreshold {
			report.Anomalies = append(report.Anomalies, models.Anomaly{
				Date:     r.Date,
				Quantity: r.Quantity,
				ZScore:   round2(z),
			})
		}
	}
	return report, nil
}

func round2(v float64) float64 {
	r, err := stats.Round(v, 2)
	if err != nil {
		return v
	}
	return r
}
