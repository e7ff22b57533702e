package fitbit

import (
	"math"

	"github.com/ridwanfathin/assistant-health-sync/internal/domain"
)

// Normalize maps a Fitbit day payload onto the canonical metric fields.
// Units are metric because requests carry no Accept-Language header.
func Normalize(p *DayPayload) domain.MetricValues {
	var v domain.MetricValues
	if p == nil {
		return v
	}

	if a := p.Activity; a != nil && recordedActivity(a) {
		v.Steps = a.Summary.Steps
		if a.Summary.CaloriesOut != nil {
			v.Calories = domain.Ptr(int(math.Round(*a.Summary.CaloriesOut)))
		}
	}
	if a := p.Activity; a != nil {
		v.RestingHeartRate = a.Summary.RestingHeartRate
	}

	if s := p.Sleep; s != nil {
		if s.Summary.TotalMinutesAsleep != nil && *s.Summary.TotalMinutesAsleep > 0 {
			v.SleepHours = minutesToHours(*s.Summary.TotalMinutesAsleep)
		}
		if st := s.Summary.Stages; st != nil {
			v.SleepLightHours = minutesToHours(st.Light)
			v.SleepDeepHours = minutesToHours(st.Deep)
			v.SleepREMHours = minutesToHours(st.REM)
			v.SleepAwakeHours = minutesToHours(st.Wake)
		}
	}

	// Intraday samples win; the resting value only fills days without them
	if h := p.Heart; h != nil {
		if avg := averageIntraday(h); avg != nil {
			v.RestingHeartRate = avg
		} else if rhr := restingFromSummary(h); rhr != nil {
			v.RestingHeartRate = rhr
		}
	}

	if w := p.Weight; w != nil && len(w.Weight) > 0 {
		latest := w.Weight[len(w.Weight)-1]
		if latest.Weight > 0 {
			v.WeightKG = domain.Ptr(round2(latest.Weight))
		}
	}

	if w := p.Water; w != nil && w.Summary.Water != nil && *w.Summary.Water > 0 {
		v.WaterML = domain.Ptr(round2(*w.Summary.Water))
	}

	return v
}

// recordedActivity reports whether the summary holds device data. Fitbit
// zero-fills days without any: no steps and calories burned equal to BMR.
func recordedActivity(a *activityResponse) bool {
	steps := a.Summary.Steps
	if steps != nil && *steps > 0 {
		return true
	}
	out, bmr := a.Summary.CaloriesOut, a.Summary.CaloriesBMR
	if out == nil || *out <= 0 {
		return false
	}
	if bmr == nil {
		return steps == nil
	}
	return *out > *bmr
}

func restingFromSummary(h *heartResponse) *int {
	for _, a := range h.Activities {
		if a.Value.RestingHeartRate != nil {
			return a.Value.RestingHeartRate
		}
	}
	return nil
}

func averageIntraday(h *heartResponse) *int {
	if len(h.Intraday.Dataset) == 0 {
		return nil
	}
	var sum float64
	for _, s := range h.Intraday.Dataset {
		sum += s.Value
	}
	return domain.Ptr(int(math.Round(sum / float64(len(h.Intraday.Dataset)))))
}

func minutesToHours(minutes float64) *float64 {
	if minutes <= 0 {
		return nil
	}
	return domain.Ptr(round2(math.Min(minutes/60, 24)))
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
