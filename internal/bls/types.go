package bls

// StatusSucceeded is the only status accepted from the timeseries endpoint.
const StatusSucceeded = "REQUEST_SUCCEEDED"

type timeseriesRequest struct {
	SeriesID        []string `json:"seriesid"`
	StartYear       string   `json:"startyear"`
	EndYear         string   `json:"endyear"`
	RegistrationKey string   `json:"registrationkey,omitempty"`
}

type timeseriesResponse struct {
	Status       string   `json:"status" validate:"required"`
	ResponseTime int      `json:"responseTime" validate:"gte=0"`
	Message      []string `json:"message"`
	Results      results  `json:"Results"`
}

type results struct {
	Series []series `json:"series" validate:"dive"`
}

type series struct {
	SeriesID string      `json:"seriesID" validate:"required"`
	Data     []dataPoint `json:"data" validate:"dive"`
}

type dataPoint struct {
	Year       string     `json:"year" validate:"required,len=4,numeric"`
	Period     string     `json:"period" validate:"required"`
	PeriodName string     `json:"periodName"`
	Value      string     `json:"value" validate:"required"`
	Footnotes  []footnote `json:"footnotes"`
}

type footnote struct {
	Code string `json:"code"`
	Text string `json:"text"`
}

type industriesResponse struct {
	Industries []industry `json:"industries" validate:"required,dive"`
}

type industry struct {
	Code string `json:"code" validate:"required"`
	Text string `json:"text" validate:"required"`
}
