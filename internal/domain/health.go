package domain

import (
	"fmt"
	"time"
)

// Provider identifies a third-party health data source
type Provider string

const (
	ProviderFitbit    Provider = "fitbit"
	ProviderGoogleFit Provider = "google_fit"
)

// SourceManual marks metric entries typed in by the user
const SourceManual = "manual"

// Providers lists every provider the service can sync
var Providers = []Provider{ProviderFitbit, ProviderGoogleFit}

// ParseProvider validates a provider name coming from a request
func ParseProvider(name string) (Provider, error) {
	switch Provider(name) {
	case ProviderFitbit, ProviderGoogleFit:
		return Provider(name), nil
	case "googlefit", "google-fit":
		return ProviderGoogleFit, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, name)
	}
}

// Source returns the metric entry source value written by syncs of this provider
func (p Provider) Source() string {
	return string(p)
}

func (p Provider) String() string {
	return string(p)
}

// MetricValues holds the nullable daily measurements shared by every source.
// A nil field means the provider reported nothing for it.
type MetricValues struct {
	Steps                   *int     `json:"steps,omitempty"`
	SleepHours              *float64 `json:"sleep_hours,omitempty"`
	SleepLightHours         *float64 `json:"sleep_light_hours,omitempty"`
	SleepDeepHours          *float64 `json:"sleep_deep_hours,omitempty"`
	SleepREMHours           *float64 `json:"sleep_rem_hours,omitempty"`
	SleepAwakeHours         *float64 `json:"sleep_awake_hours,omitempty"`
	WaterML                 *float64 `json:"water_ml,omitempty"`
	WeightKG                *float64 `json:"weight_kg,omitempty"`
	RestingHeartRate        *int     `json:"resting_heart_rate,omitempty"`
	SystolicBP              *int     `json:"systolic_bp,omitempty"`
	DiastolicBP             *int     `json:"diastolic_bp,omitempty"`
	OxygenSaturationPct     *float64 `json:"oxygen_saturation_pct,omitempty"`
	BodyTemperatureC        *float64 `json:"body_temperature_c,omitempty"`
	BloodGlucoseMmolL       *float64 `json:"blood_glucose_mmol_l,omitempty"`
	ReproductiveEventsCount *int     `json:"reproductive_events_count,omitempty"`
	Calories                *int     `json:"calories,omitempty"`
}

// IsEmpty reports whether every measurement is unset
func (v MetricValues) IsEmpty() bool {
	return v.Steps == nil &&
		v.SleepHours == nil &&
		v.SleepLightHours == nil &&
		v.SleepDeepHours == nil &&
		v.SleepREMHours == nil &&
		v.SleepAwakeHours == nil &&
		v.WaterML == nil &&
		v.WeightKG == nil &&
		v.RestingHeartRate == nil &&
		v.SystolicBP == nil &&
		v.DiastolicBP == nil &&
		v.OxygenSaturationPct == nil &&
		v.BodyTemperatureC == nil &&
		v.BloodGlucoseMmolL == nil &&
		v.ReproductiveEventsCount == nil &&
		v.Calories == nil
}

// HealthMetricEntry is the canonical per-day snapshot stored in health_metric_entries.
// Entries are unique on (UserID, RecordedFor, Source).
type HealthMetricEntry struct {
	ID          string    `json:"id,omitempty"`
	UserID      string    `json:"user_id"`
	RecordedFor time.Time `json:"recorded_for"`
	Source      string    `json:"source"`
	MetricValues
	MoodScore *int                   `json:"mood_score,omitempty"`
	Note      *string                `json:"note,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at,omitempty"`
	UpdatedAt time.Time              `json:"updated_at,omitempty"`
}

// NewSyncedEntry builds an entry for values imported from a provider
func NewSyncedEntry(userID string, provider Provider, day time.Time, values MetricValues, importedAt time.Time) HealthMetricEntry {
	return HealthMetricEntry{
		UserID:       userID,
		RecordedFor:  DateOnly(day),
		Source:       provider.Source(),
		MetricValues: values,
		Metadata: map[string]interface{}{
			"provider":    string(provider),
			"imported_at": importedAt.UTC().Format(time.RFC3339),
		},
	}
}

// DateOnly truncates t to midnight in its own location
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}
