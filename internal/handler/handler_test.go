package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rideintel/internal/anomaly"
	"rideintel/internal/repository"
	"rideintel/internal/service"
	"rideintel/internal/tests"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	rides := tests.NewMockRideRepository()
	flags := tests.NewMockAnomalyFlagRepository(rides)
	uow := tests.NewMockUnitOfWork(rides, flags)
	detector := anomaly.NewDetector(anomaly.DefaultThresholds())

	rideService := service.NewRideService(rides, flags, uow, detector, tests.NewMockLockStore(), nil, nil)
	analyticsService := service.NewAnalyticsService(rides, flags, nil)

	rideHandler := NewRideHandler(rideService)
	analyticsHandler := NewAnalyticsHandler(analyticsService)

	router := gin.New()
	v1 := router.Group("/api/v1")
	v1.POST("/rides", rideHandler.CreateRide)
	v1.GET("/rides/:id", rideHandler.GetRide)
	v1.PATCH("/rides/:id/start", rideHandler.StartRide)
	v1.PATCH("/rides/:id/complete", rideHandler.CompleteRide)
	v1.PATCH("/rides/:id/cancel", rideHandler.CancelRide)
	v1.GET("/rides/captain/:captainId", rideHandler.ListByCaptain)
	v1.GET("/rides/customer/:customerId", rideHandler.ListByCustomer)
	v1.GET("/analytics/cities", analyticsHandler.CityAnalytics)
	v1.GET("/analytics/captains/:captainId", analyticsHandler.CaptainStats)
	v1.GET("/anomalies", analyticsHandler.ListAnomalies)
	v1.GET("/anomalies/ride/:rideId", analyticsHandler.GetRideAnomaly)
	return router
}

func perform(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode %q: %v", w.Body.String(), err)
	}
	return v
}

func createRide(t *testing.T, router *gin.Engine, fare float64) RideResponse {
	t.Helper()
	w := perform(router, http.MethodPost, "/api/v1/rides", CreateRideRequest{
		CaptainID:       "CAP-007",
		CustomerID:      "CUST-202",
		PickupCity:      "Lahore",
		DropoffCity:     "Lahore",
		DistanceKm:      10.0,
		FareAmount:      fare,
		DurationMinutes: 20,
		VehicleType:     "economy",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	return decode[RideResponse](t, w)
}

func TestRideHandler_CreateRide(t *testing.T) {
	router := newTestRouter()

	ride := createRide(t, router, 300.0)

	if ride.Status != "REQUESTED" || ride.VehicleType != "ECONOMY" {
		t.Errorf("unexpected ride: %+v", ride)
	}
	if ride.AnomalyDetected {
		t.Error("expected new ride to carry no anomaly")
	}
}

func TestRideHandler_CreateRide_BadRequest(t *testing.T) {
	router := newTestRouter()

	w := perform(router, http.MethodPost, "/api/v1/rides", CreateRideRequest{CaptainID: "CAP-1"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid ride, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rides", bytes.NewBufferString("{not json"))
	malformed := httptest.NewRecorder()
	router.ServeHTTP(malformed, req)
	if malformed.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", malformed.Code)
	}
}

func TestRideHandler_CompleteFlagsAnomaly(t *testing.T) {
	router := newTestRouter()
	ride := createRide(t, router, 2500.0)

	w := perform(router, http.MethodPatch, "/api/v1/rides/"+ride.ID+"/complete", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	completed := decode[RideResponse](t, w)
	if completed.Status != "COMPLETED" || completed.CompletedAt == "" {
		t.Errorf("expected completed ride, got %+v", completed)
	}
	if !completed.AnomalyDetected || completed.AnomalyType != "FARE_SPIKE" {
		t.Errorf("expected FARE_SPIKE anomaly, got %+v", completed)
	}
	if completed.AnomalyReason != "Fare/km ratio 250.0 PKR/km exceeds threshold of 150.0 PKR/km" {
		t.Errorf("unexpected reason %q", completed.AnomalyReason)
	}

	again := perform(router, http.MethodPatch, "/api/v1/rides/"+ride.ID+"/complete", nil)
	if again.Code != http.StatusConflict {
		t.Errorf("expected 409 on second completion, got %d", again.Code)
	}

	anomaly := perform(router, http.MethodGet, "/api/v1/anomalies/ride/"+ride.ID, nil)
	if anomaly.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", anomaly.Code)
	}
	if flag := decode[AnomalyResponse](t, anomaly); flag.RideID != ride.ID || flag.Type != "FARE_SPIKE" {
		t.Errorf("unexpected anomaly response %+v", flag)
	}

	fetched := decode[RideResponse](t, perform(router, http.MethodGet, "/api/v1/rides/"+ride.ID, nil))
	if !fetched.AnomalyDetected {
		t.Error("expected fetched ride to report the anomaly")
	}
}

func TestRideHandler_StartAndCancel(t *testing.T) {
	router := newTestRouter()
	ride := createRide(t, router, 300.0)

	if w := perform(router, http.MethodPatch, "/api/v1/rides/"+ride.ID+"/start", nil); w.Code != http.StatusOK {
		t.Errorf("expected 200 on start, got %d", w.Code)
	}
	if w := perform(router, http.MethodPatch, "/api/v1/rides/"+ride.ID+"/start", nil); w.Code != http.StatusConflict {
		t.Errorf("expected 409 on second start, got %d", w.Code)
	}
	if w := perform(router, http.MethodPatch, "/api/v1/rides/"+ride.ID+"/cancel", nil); w.Code != http.StatusOK {
		t.Errorf("expected 200 on cancel, got %d", w.Code)
	}
	if w := perform(router, http.MethodPatch, "/api/v1/rides/"+ride.ID+"/complete", nil); w.Code != http.StatusConflict {
		t.Errorf("expected 409 completing a cancelled ride, got %d", w.Code)
	}
}

func TestRideHandler_NotFound(t *testing.T) {
	router := newTestRouter()

	for _, path := range []string{"/api/v1/rides/missing", "/api/v1/rides/abc", "/api/v1/anomalies/ride/abc"} {
		if w := perform(router, http.MethodGet, path, nil); w.Code != http.StatusNotFound {
			t.Errorf("expected 404 for %s, got %d", path, w.Code)
		}
	}
	if w := perform(router, http.MethodPatch, "/api/v1/rides/"+uuid.NewString()+"/complete", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 completing unknown ride, got %d", w.Code)
	}
	if w := perform(router, http.MethodPatch, "/api/v1/rides/missing/complete", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 completing unknown ride, got %d", w.Code)
	}
}

func TestRideHandler_Lists(t *testing.T) {
	router := newTestRouter()
	flagged := createRide(t, router, 2500.0)
	createRide(t, router, 300.0)
	perform(router, http.MethodPatch, "/api/v1/rides/"+flagged.ID+"/complete", nil)

	byCaptain := decode[[]RideResponse](t, perform(router, http.MethodGet, "/api/v1/rides/captain/CAP-007", nil))
	if len(byCaptain) != 2 {
		t.Fatalf("expected 2 rides, got %d", len(byCaptain))
	}
	detected := 0
	for _, r := range byCaptain {
		if r.AnomalyDetected {
			detected++
		}
	}
	if detected != 1 {
		t.Errorf("expected 1 flagged ride in list, got %d", detected)
	}

	byCustomer := decode[[]RideResponse](t, perform(router, http.MethodGet, "/api/v1/rides/customer/CUST-202", nil))
	if len(byCustomer) != 2 {
		t.Errorf("expected 2 customer rides, got %d", len(byCustomer))
	}

	empty := decode[[]RideResponse](t, perform(router, http.MethodGet, "/api/v1/rides/captain/nobody", nil))
	if len(empty) != 0 {
		t.Errorf("expected empty list, got %d", len(empty))
	}
}

func TestAnalyticsHandler(t *testing.T) {
	router := newTestRouter()
	flagged := createRide(t, router, 2500.0)
	clean := createRide(t, router, 300.0)
	perform(router, http.MethodPatch, "/api/v1/rides/"+flagged.ID+"/complete", nil)
	perform(router, http.MethodPatch, "/api/v1/rides/"+clean.ID+"/complete", nil)

	cities := decode[[]CityAnalyticsResponse](t, perform(router, http.MethodGet, "/api/v1/analytics/cities", nil))
	if len(cities) != 1 || cities[0].City != "Lahore" || cities[0].TotalRides != 2 || cities[0].AnomalyRate != 0.5 {
		t.Errorf("unexpected city analytics %+v", cities)
	}

	stats := decode[CaptainStatsResponse](t, perform(router, http.MethodGet, "/api/v1/analytics/captains/CAP-007", nil))
	if stats.CompletedRides != 2 || stats.TotalEarnings != 2800.0 || stats.AnomaliesDetected != 1 {
		t.Errorf("unexpected captain stats %+v", stats)
	}
}

func TestAnalyticsHandler_ListAnomalies(t *testing.T) {
	router := newTestRouter()
	ride := createRide(t, router, 2500.0)
	perform(router, http.MethodPatch, "/api/v1/rides/"+ride.ID+"/complete", nil)

	testCases := []struct {
		query    string
		wantCode int
		wantLen  int
	}{
		{"", http.StatusOK, 1},
		{"?type=fare_spike", http.StatusOK, 1},
		{"?type=GHOST_RIDE", http.StatusOK, 0},
		{"?type=ROUTE_DEVIATION", http.StatusBadRequest, 0},
		{"?min_score=0.5", http.StatusOK, 1},
		{"?min_score=0.9", http.StatusOK, 0},
		{"?min_score=2", http.StatusBadRequest, 0},
		{"?min_score=high", http.StatusBadRequest, 0},
		{"?min_score=NaN", http.StatusBadRequest, 0},
		{"?min_score=nan", http.StatusBadRequest, 0},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("query %q", tc.query), func(t *testing.T) {
			w := perform(router, http.MethodGet, "/api/v1/anomalies"+tc.query, nil)
			if w.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d: %s", tc.wantCode, w.Code, w.Body.String())
			}
			if tc.wantCode != http.StatusOK {
				return
			}
			if flags := decode[[]AnomalyResponse](t, w); len(flags) != tc.wantLen {
				t.Errorf("expected %d anomalies, got %d", tc.wantLen, len(flags))
			}
		})
	}
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	testCases := []struct {
		err  error
		want int
	}{
		{repository.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("get ride: %w", repository.ErrNotFound), http.StatusNotFound},
		{service.ErrInvalidDistance, http.StatusBadRequest},
		{service.ErrInvalidMinScore, http.StatusBadRequest},
		{service.ErrRideLocked, http.StatusConflict},
		{service.ErrRideAlreadyCompleted, http.StatusConflict},
		{repository.ErrAlreadyExists, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		if got := mapErrorToHTTPStatus(tc.err); got != tc.want {
			t.Errorf("mapErrorToHTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
