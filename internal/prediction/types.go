package prediction

import "strconv"

// Hotspot is a predicted high-risk area
type Hotspot struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	District  string  `json:"district,omitempty"`
	RiskScore float64 `json:"risk_score"`
	CrimeType string  `json:"crime_type,omitempty"`
}

type hotspotsResponse struct {
	City     string    `json:"city"`
	Hotspots []Hotspot `json:"hotspots"`
}

// Forecast is a predicted crime count for a district and window
type Forecast struct {
	District   string  `json:"district"`
	CrimeType  string  `json:"crime_type,omitempty"`
	Window     string  `json:"window"`
	Predicted  float64 `json:"predicted"`
	Confidence float64 `json:"confidence,omitempty"`
}

type forecastResponse struct {
	City        string     `json:"city"`
	Predictions []Forecast `json:"predictions"`
}

// Statistics is the model's aggregate view of a city
type Statistics struct {
	City          string         `json:"city"`
	TotalCrimes   int64          `json:"total_crimes"`
	ByType        map[string]int `json:"by_type,omitempty"`
	ByDistrict    map[string]int `json:"by_district,omitempty"`
	ModelAccuracy float64        `json:"model_accuracy,omitempty"`
	LastTrainedAt string         `json:"last_trained_at,omitempty"`
}

// TrainRequest kicks off a model training run
type TrainRequest struct {
	City string `json:"city,omitempty"`
}

// TrainResult reports the outcome of a training run
type TrainResult struct {
	Status   string  `json:"status"`
	City     string  `json:"city,omitempty"`
	Accuracy float64 `json:"accuracy,omitempty"`
	Message  string  `json:"message,omitempty"`
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
