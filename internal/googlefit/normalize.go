package googlefit

import (
	"math"
	"time"

	"github.com/ridwanfathin/assistant-health-sync/internal/domain"
	"google.golang.org/api/fitness/v1"
)

// DayPayload is the raw Fitness API data for one calendar day
type DayPayload struct {
	Start         time.Time
	End           time.Time
	Streams       map[string][]*fitness.DataPoint
	SleepSessions []*fitness.Session
}

// Normalize maps a Google Fit day payload onto the canonical metric fields
func Normalize(p *DayPayload) domain.MetricValues {
	var v domain.MetricValues
	if p == nil {
		return v
	}

	if pts := p.Streams[DataTypeSteps]; len(pts) > 0 {
		var total float64
		for _, pt := range pts {
			total += firstValue(pt)
		}
		v.Steps = domain.Ptr(int(math.Round(total)))
	}

	if pts := p.Streams[DataTypeCalories]; len(pts) > 0 {
		var total float64
		for _, pt := range pts {
			total += firstValue(pt)
		}
		v.Calories = domain.Ptr(int(math.Round(total)))
	}

	normalizeSleep(&v, p.Streams[DataTypeSleepSegment], p.SleepSessions)

	if pts := p.Streams[DataTypeHeartRate]; len(pts) > 0 {
		var sum float64
		var n int
		for _, pt := range pts {
			if bpm := firstValue(pt); bpm > 0 {
				sum += bpm
				n++
			}
		}
		if n > 0 {
			v.RestingHeartRate = domain.Ptr(int(math.Round(sum / float64(n))))
		}
	}

	if pt := lastPoint(p.Streams[DataTypeWeight]); pt != nil {
		if kg := firstValue(pt); kg > 0 {
			v.WeightKG = domain.Ptr(round2(kg))
		}
	}

	if pts := p.Streams[DataTypeHydration]; len(pts) > 0 {
		var liters float64
		for _, pt := range pts {
			liters += firstValue(pt)
		}
		if liters > 0 {
			v.WaterML = domain.Ptr(LitersToML(liters))
		}
	}

	if pt := lastPoint(p.Streams[DataTypeBloodPressure]); pt != nil {
		systolic, diastolic := bloodPressure(pt)
		if systolic > 0 {
			v.SystolicBP = domain.Ptr(int(math.Round(systolic)))
		}
		if diastolic > 0 {
			v.DiastolicBP = domain.Ptr(int(math.Round(diastolic)))
		}
	}

	if pt := lastPoint(p.Streams[DataTypeOxygenSaturation]); pt != nil {
		if pct := firstValue(pt); pct > 0 {
			v.OxygenSaturationPct = domain.Ptr(OxygenSaturationPercent(pct))
		}
	}

	if pt := lastPoint(p.Streams[DataTypeBodyTemperature]); pt != nil {
		if c := firstValue(pt); c > 0 {
			v.BodyTemperatureC = domain.Ptr(round2(c))
		}
	}

	if pt := lastPoint(p.Streams[DataTypeBloodGlucose]); pt != nil {
		if g := firstValue(pt); g > 0 {
			v.BloodGlucoseMmolL = domain.Ptr(BloodGlucoseMmolL(g))
		}
	}

	if pts := p.Streams[DataTypeMenstruation]; len(pts) > 0 {
		v.ReproductiveEventsCount = domain.Ptr(len(pts))
	}

	return v
}

// LitersToML converts a hydration volume in liters to milliliters
func LitersToML(liters float64) float64 {
	return round2(liters * 1000)
}

// OxygenSaturationPercent accepts a fraction (0.97) or a percentage (97)
func OxygenSaturationPercent(v float64) float64 {
	if v <= 1 {
		v *= 100
	}
	return round2(v)
}

// BloodGlucoseMmolL converts readings that look like mg/dL to mmol/L
func BloodGlucoseMmolL(v float64) float64 {
	if v > 40 {
		v /= 18
	}
	return round2(v)
}

func normalizeSleep(v *domain.MetricValues, segments []*fitness.DataPoint, sessions []*fitness.Session) {
	var light, deep, rem, awake float64
	for _, pt := range segments {
		hours := spanHours(pt.StartTimeNanos, pt.EndTimeNanos)
		if hours <= 0 || len(pt.Value) == 0 {
			continue
		}
		switch pt.Value[0].IntVal {
		case sleepStageDeep:
			deep += hours
		case sleepStageREM:
			rem += hours
		case sleepStageAwake, sleepStageOutOfBed:
			awake += hours
		default:
			light += hours
		}
	}

	if light+deep+rem+awake > 0 {
		light, deep, rem, awake = clampHours(light), clampHours(deep), clampHours(rem), clampHours(awake)
		v.SleepLightHours = nonZero(light)
		v.SleepDeepHours = nonZero(deep)
		v.SleepREMHours = nonZero(rem)
		v.SleepAwakeHours = nonZero(awake)
		v.SleepHours = nonZero(clampHours(light + deep + rem))
		return
	}

	var total float64
	for _, s := range sessions {
		total += spanHours(s.StartTimeMillis, s.EndTimeMillis)
	}
	if total > 0 {
		v.SleepHours = domain.Ptr(clampHours(total))
	}
}

// spanHours measures start..end given either in nanoseconds or milliseconds
func spanHours(start, end int64) float64 {
	if end <= start {
		return 0
	}
	d := end - start
	if start > 1e15 {
		return float64(d) / float64(time.Hour)
	}
	return float64(d) / float64(time.Hour/time.Millisecond)
}

func bloodPressure(pt *fitness.DataPoint) (float64, float64) {
	// Summary points carry systolic avg/max/min followed by diastolic avg/max/min
	if len(pt.Value) >= 6 {
		return numeric(pt.Value[0]), numeric(pt.Value[3])
	}
	if len(pt.Value) >= 2 {
		return numeric(pt.Value[0]), numeric(pt.Value[1])
	}
	return firstValue(pt), 0
}

func firstValue(pt *fitness.DataPoint) float64 {
	if pt == nil || len(pt.Value) == 0 {
		return 0
	}
	return numeric(pt.Value[0])
}

func numeric(v *fitness.Value) float64 {
	if v == nil {
		return 0
	}
	if v.FpVal != 0 {
		return v.FpVal
	}
	return float64(v.IntVal)
}

func lastPoint(pts []*fitness.DataPoint) *fitness.DataPoint {
	var latest *fitness.DataPoint
	for _, pt := range pts {
		if latest == nil || pt.EndTimeNanos >= latest.EndTimeNanos {
			latest = pt
		}
	}
	return latest
}

func clampHours(h float64) float64 {
	return round2(math.Max(0, math.Min(h, 24)))
}

func nonZero(h float64) *float64 {
	if h <= 0 {
		return nil
	}
	return &h
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
