package fitbit

// DayPayload collects the raw responses for one date. A nil part means the
// endpoint had no data or was skipped.
type DayPayload struct {
	Date     string
	Activity *activityResponse
	Sleep    *sleepResponse
	Heart    *heartResponse
	Weight   *weightResponse
	Water    *waterResponse
}

type activityResponse struct {
	Summary struct {
		Steps            *int     `json:"steps"`
		CaloriesOut      *float64 `json:"caloriesOut"`
		CaloriesBMR      *float64 `json:"caloriesBMR"`
		RestingHeartRate *int     `json:"restingHeartRate"`
	} `json:"summary"`
}

type sleepResponse struct {
	Summary struct {
		TotalMinutesAsleep *float64 `json:"totalMinutesAsleep"`
		Stages             *struct {
			Deep  float64 `json:"deep"`
			Light float64 `json:"light"`
			REM   float64 `json:"rem"`
			Wake  float64 `json:"wake"`
		} `json:"stages"`
	} `json:"summary"`
}

type heartResponse struct {
	Activities []struct {
		Value struct {
			RestingHeartRate *int `json:"restingHeartRate"`
		} `json:"value"`
	} `json:"activities-heart"`
	Intraday struct {
		Dataset []struct {
			Time  string  `json:"time"`
			Value float64 `json:"value"`
		} `json:"dataset"`
	} `json:"activities-heart-intraday"`
}

type weightResponse struct {
	Weight []struct {
		Weight float64 `json:"weight"`
		Date   string  `json:"date"`
		Time   string  `json:"time"`
	} `json:"weight"`
}

type waterResponse struct {
	Summary struct {
		Water *float64 `json:"water"`
	} `json:"summary"`
}

type errorResponse struct {
	Errors []struct {
		ErrorType string `json:"errorType"`
		Message   string `json:"message"`
	} `json:"errors"`
}
