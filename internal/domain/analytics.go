package domain

// CityAnalytics aggregates completed rides for one pickup city.
type CityAnalytics struct {
	City                   string
	TotalRides             int64
	AverageFare            float64
	AverageDistanceKm      float64
	AverageDurationMinutes float64
	AnomalyCount           int64
	AnomalyRate            float64
}

// CaptainStats summarizes the rides of one captain.
type CaptainStats struct {
	CaptainID         string
	TotalRides        int64
	CompletedRides    int64
	CancelledRides    int64
	TotalEarnings     float64
	AnomaliesDetected int64
}
