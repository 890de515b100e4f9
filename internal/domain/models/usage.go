package models

import (
	"strings"
	"time"
	"unicode"
)

// UsageDateLayout is the calendar-day key of the aggregate store.
const UsageDateLayout = "2006-01-02"

// AreaUsageRecord counts prescriptions written in one area on one day.
type AreaUsageRecord struct {
	Area     string `bson:"area" json:"area"`
	Date     string `bson:"date" json:"date"`
	Quantity int64  `bson:"quantity" json:"quantity"`
}

// AreaTotal is the summed quantity for an area.
type AreaTotal struct {
	Area     string `bson:"_id" json:"area"`
	Quantity int64  `bson:"quantity" json:"quantity"`
}

// DailyTrend holds parallel date/quantity series.
type DailyTrend struct {
	Dates      []string `bson:"dates" json:"dates"`
	Quantities []int64  `bson:"quantities" json:"quantities"`
}

// Anomaly is a day whose usage deviates more than one standard deviation.
type Anomaly struct {
	Date     string  `bson:"date" json:"date"`
	Quantity int64   `bson:"quantity" json:"quantity"`
	ZScore   float64 `bson:"zScore" json:"z_score"`
}

// AreaReport is the statistics view of one area.
type AreaReport struct {
	Area               string     `bson:"area" json:"area"`
	DailyTrend         DailyTrend `bson:"dailyTrend" json:"daily_trend"`
	MeanQuantity       float64    `bson:"meanQuantity" json:"mean_quantity"`
	StdQuantity        float64    `bson:"stdQuantity" json:"std_quantity"`
	TotalRecords       int        `bson:"totalRecords" json:"total_records"`
	TotalPrescriptions int64      `bson:"totalPrescriptions" json:"total_prescriptions"`
	MaxUsageDay        string     `bson:"maxUsageDay" json:"max_usage_day"`
	MinUsageDay        string     `bson:"minUsageDay" json:"min_usage_day"`
	Anomalies          []Anomaly  `bson:"anomalies" json:"anomalies"`
}

// AreaUsageSnapshot is the materialized form of an AreaReport.
type AreaUsageSnapshot struct {
	AreaReport  `bson:",inline"`
	RefreshedAt time.Time `bson:"refreshedAt" json:"refreshed_at"`
}

// CityUsage is the chart payload of usage per city.
type CityUsage struct {
	Cities     []string `json:"cities"`
	Quantities []int64  `json:"quantities"`
}

// NormalizeArea lower-cases an area name and strips every whitespace rune.
func NormalizeArea(area string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(area) {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// UsageDay formats t as the aggregate store day key in loc.
func UsageDay(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(UsageDateLayout)
}
