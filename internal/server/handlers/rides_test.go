package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridelinkhq/ridelink/internal/middleware"
	"github.com/ridelinkhq/ridelink/internal/models"
	"github.com/ridelinkhq/ridelink/internal/repository"
)

// memRideRepo is an in-memory repository.RideRepository.
type memRideRepo struct {
	rides map[string]*models.Ride
	err   error

	lastSearch repository.RideSearch
}

func newMemRideRepo() *memRideRepo {
	return &memRideRepo{rides: map[string]*models.Ride{}}
}

func (r *memRideRepo) Create(ctx context.Context, ride *models.Ride) error {
	if r.err != nil {
		return r.err
	}
	r.rides[ride.ID] = ride
	return nil
}

func (r *memRideRepo) GetByID(ctx context.Context, id string) (*models.Ride, error) {
	ride, ok := r.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return ride, nil
}

func (r *memRideRepo) Search(ctx context.Context, filter repository.RideSearch) ([]models.Ride, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.lastSearch = filter
	var out []models.Ride
	for _, ride := range r.rides {
		if filter.Status != "" && ride.Status != filter.Status {
			continue
		}
		out = append(out, *ride)
	}
	return out, nil
}

func (r *memRideRepo) ListByRider(ctx context.Context, riderID string) ([]models.Ride, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []models.Ride
	for _, ride := range r.rides {
		if ride.RiderID == riderID {
			out = append(out, *ride)
		}
	}
	return out, nil
}

func (r *memRideRepo) Book(ctx context.Context, rideID, passengerID string) (*models.Ride, error) {
	ride, ok := r.rides[rideID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if ride.RiderID == passengerID {
		return nil, repository.ErrOwnRide
	}
	if ride.HasPassenger(passengerID) {
		return nil, repository.ErrAlreadyBooked
	}
	if ride.Status != models.RideStatusActive || ride.AvailableSeats < 1 {
		return nil, repository.ErrRideUnavailable
	}
	ride.AvailableSeats--
	ride.PassengerIDs = append(ride.PassengerIDs, passengerID)
	if ride.AvailableSeats == 0 {
		ride.Status = models.RideStatusFull
	}
	return ride, nil
}

func testRide(id, riderID string) *models.Ride {
	return &models.Ride{
		ID:             id,
		RiderID:        riderID,
		RiderName:      "John Doe",
		Origin:         models.Location{Name: "Berlin", Lat: 52.52, Lng: 13.405},
		Destination:    models.Location{Name: "Hamburg", Lat: 53.55, Lng: 9.993},
		DepartureTime:  time.Date(2026, 9, 15, 8, 0, 0, 0, time.UTC),
		AvailableSeats: 2,
		PricePerSeat:   25,
		Status:         models.RideStatusActive,
		PassengerIDs:   []string{},
	}
}

func authedRequest(method, target, body string, user *models.User) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(middleware.ContextWithUser(req.Context(), user))
}

func decodeRides(t *testing.T, rec *httptest.ResponseRecorder) []models.Ride {
	t.Helper()
	var resp struct {
		Success bool          `json:"success"`
		Rides   []models.Ride `json:"rides"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	return resp.Rides
}

func TestRideSearch_FiltersAndAlwaysActive(t *testing.T) {
	repo := newMemRideRepo()
	repo.rides["r-1"] = testRide("r-1", "u-1")
	full := testRide("r-2", "u-2")
	full.Status = models.RideStatusFull
	repo.rides["r-2"] = full
	h := NewRideHandler(repo)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/rides?origin=Berlin&destination=Hamburg&date=2026-09-15", nil)
	h.Search(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	rides := decodeRides(t, rec)
	require.Len(t, rides, 1)
	assert.Equal(t, "r-1", rides[0].ID)

	assert.Equal(t, "Berlin", repo.lastSearch.Origin)
	assert.Equal(t, "Hamburg", repo.lastSearch.Destination)
	assert.Equal(t, models.RideStatusActive, repo.lastSearch.Status)
	require.NotNil(t, repo.lastSearch.Date)
	assert.Equal(t, time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC), *repo.lastSearch.Date)
}

func TestRideSearch_BadDate(t *testing.T) {
	h := NewRideHandler(newMemRideRepo())
	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, "/api/rides?date=15-09-2026", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRideSearch_EmptyResultIsEmptyArray(t *testing.T) {
	h := NewRideHandler(newMemRideRepo())
	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, "/api/rides", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rides":[]`)
}

func TestRidePublish_Success(t *testing.T) {
	repo := newMemRideRepo()
	h := NewRideHandler(repo)
	user := &models.User{ID: "u-1", Name: "John Doe"}

	body := `{
		"origin": {"name":"Berlin","lat":52.52,"lng":13.405},
		"destination": {"name":"Hamburg","lat":53.55,"lng":9.993},
		"departure_time": "2026-09-15T08:00:00Z",
		"available_seats": 3,
		"price_per_seat": 25,
		"description": "No smoking"
	}`
	rec := httptest.NewRecorder()
	h.Publish(rec, authedRequest(http.MethodPost, "/api/rides", body, user))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, repo.rides, 1)
	for _, ride := range repo.rides {
		assert.Equal(t, "u-1", ride.RiderID)
		assert.Equal(t, "John Doe", ride.RiderName)
		assert.Equal(t, models.RideStatusActive, ride.Status)
		assert.NotEmpty(t, ride.ID)
		assert.NotNil(t, ride.PassengerIDs)
	}
}

func TestRidePublish_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing origin", `{"destination":{"name":"Hamburg"},"departure_time":"2026-09-15T08:00:00Z","available_seats":1}`, "origin is required"},
		{"missing destination", `{"origin":{"name":"Berlin"},"departure_time":"2026-09-15T08:00:00Z","available_seats":1}`, "destination is required"},
		{"missing departure", `{"origin":{"name":"Berlin"},"destination":{"name":"Hamburg"},"available_seats":1}`, "departure_time is required"},
		{"zero seats", `{"origin":{"name":"Berlin"},"destination":{"name":"Hamburg"},"departure_time":"2026-09-15T08:00:00Z","available_seats":0}`, "available_seats must be at least 1"},
		{"negative price", `{"origin":{"name":"Berlin"},"destination":{"name":"Hamburg"},"departure_time":"2026-09-15T08:00:00Z","available_seats":1,"price_per_seat":-5}`, "price_per_seat must not be negative"},
	}

	h := NewRideHandler(newMemRideRepo())
	user := &models.User{ID: "u-1"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Publish(rec, authedRequest(http.MethodPost, "/api/rides", tt.body, user))
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestRideMine_ListsOnlyCallersRides(t *testing.T) {
	repo := newMemRideRepo()
	repo.rides["r-1"] = testRide("r-1", "u-1")
	repo.rides["r-2"] = testRide("r-2", "u-2")
	h := NewRideHandler(repo)

	rec := httptest.NewRecorder()
	h.Mine(rec, authedRequest(http.MethodGet, "/api/rides/mine", "", &models.User{ID: "u-1"}))

	require.Equal(t, http.StatusOK, rec.Code)
	rides := decodeRides(t, rec)
	require.Len(t, rides, 1)
	assert.Equal(t, "r-1", rides[0].ID)
}

func detailRequest(rideID string, user *models.User) *http.Request {
	req := authedRequest(http.MethodGet, "/api/rides/"+rideID, "", user)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", rideID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestRideGet_ReturnsRide(t *testing.T) {
	repo := newMemRideRepo()
	repo.rides["r-1"] = testRide("r-1", "u-1")
	h := NewRideHandler(repo)

	rec := httptest.NewRecorder()
	h.Get(rec, detailRequest("r-1", &models.User{ID: "u-2"}))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success bool         `json:"success"`
		Ride    *models.Ride `json:"ride"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Ride)
	assert.Equal(t, "r-1", resp.Ride.ID)
	assert.Equal(t, "Berlin", resp.Ride.Origin.Name)
}

func TestRideGet_NotFound(t *testing.T) {
	h := NewRideHandler(newMemRideRepo())

	rec := httptest.NewRecorder()
	h.Get(rec, detailRequest("missing", &models.User{ID: "u-2"}))

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ride not found")
}

func bookRequest(rideID string, user *models.User) *http.Request {
	req := authedRequest(http.MethodPost, "/api/rides/"+rideID+"/book", "", user)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", rideID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestRideBook_Success(t *testing.T) {
	repo := newMemRideRepo()
	repo.rides["r-1"] = testRide("r-1", "u-1")
	h := NewRideHandler(repo)

	rec := httptest.NewRecorder()
	h.Book(rec, bookRequest("r-1", &models.User{ID: "u-2"}))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success bool         `json:"success"`
		Ride    *models.Ride `json:"ride"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Ride)
	assert.Equal(t, 1, resp.Ride.AvailableSeats)
	assert.Contains(t, resp.Ride.PassengerIDs, "u-2")
}

func TestRideBook_ErrorMapping(t *testing.T) {
	repo := newMemRideRepo()
	ride := testRide("r-1", "u-1")
	ride.PassengerIDs = []string{"u-3"}
	repo.rides["r-1"] = ride
	cancelled := testRide("r-2", "u-1")
	cancelled.Status = models.RideStatusCancelled
	repo.rides["r-2"] = cancelled
	h := NewRideHandler(repo)

	tests := []struct {
		name     string
		rideID   string
		userID   string
		wantCode int
	}{
		{"not found", "missing", "u-2", http.StatusNotFound},
		{"own ride", "r-1", "u-1", http.StatusBadRequest},
		{"already booked", "r-1", "u-3", http.StatusConflict},
		{"unavailable", "r-2", "u-2", http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Book(rec, bookRequest(tt.rideID, &models.User{ID: tt.userID}))
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), `"success":false`)
		})
	}
}

func TestMe_ReturnsAuthenticatedUser(t *testing.T) {
	h := NewUserHandler()
	user := &models.User{ID: "u-1", Name: "John Doe", Email: "john@example.com"}

	rec := httptest.NewRecorder()
	h.Me(rec, authedRequest(http.MethodGet, "/api/me", "", user))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success bool         `json:"success"`
		User    *models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.User)
	assert.Equal(t, "John Doe", resp.User.Name)
}

func TestMe_WithoutUserInContext(t *testing.T) {
	h := NewUserHandler()
	rec := httptest.NewRecorder()
	h.Me(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
