package googlefit

// Aggregated data type streams requested per day
const (
	DataTypeSteps            = "com.google.step_count.delta"
	DataTypeCalories         = "com.google.calories.expended"
	DataTypeSleepSegment     = "com.google.sleep.segment"
	DataTypeHeartRate        = "com.google.heart_rate.bpm"
	DataTypeWeight           = "com.google.weight"
	DataTypeHydration        = "com.google.hydration"
	DataTypeBloodPressure    = "com.google.blood_pressure"
	DataTypeOxygenSaturation = "com.google.oxygen_saturation"
	DataTypeBodyTemperature  = "com.google.body.temperature"
	DataTypeBloodGlucose     = "com.google.blood_glucose"
	DataTypeMenstruation     = "com.google.menstruation"
)

// DataTypes is the request order of the aggregate call
var DataTypes = []string{
	DataTypeSteps,
	DataTypeCalories,
	DataTypeSleepSegment,
	DataTypeHeartRate,
	DataTypeWeight,
	DataTypeHydration,
	DataTypeBloodPressure,
	DataTypeOxygenSaturation,
	DataTypeBodyTemperature,
	DataTypeBloodGlucose,
	DataTypeMenstruation,
}

// sleepActivityType is the Google Fit activity type of a sleep session
const sleepActivityType = 72

// Sleep stage codes of com.google.sleep.segment
const (
	sleepStageAwake    = 1
	sleepStageGeneric  = 2
	sleepStageOutOfBed = 3
	sleepStageLight    = 4
	sleepStageDeep     = 5
	sleepStageREM      = 6
)

func allowedDataTypes(denied []string) []string {
	skip := make(map[string]bool, len(denied))
	for _, d := range denied {
		skip[d] = true
	}
	out := make([]string, 0, len(DataTypes))
	for _, t := range DataTypes {
		if !skip[t] {
			out = append(out, t)
		}
	}
	return out
}
