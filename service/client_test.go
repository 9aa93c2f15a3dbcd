package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"bookkar-cli/errs"
	"bookkar-cli/model"
)

func newTestClient(server *httptest.Server) *Client {
	client := NewClient(server.Client(), WithBaseURL(server.URL))
	client.retryBase = time.Millisecond
	client.retryCap = 2 * time.Millisecond
	return client
}

func TestGetJSON_Non2xxReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer server.Close()

	client := newTestClient(server)
	client.maxAttempts = 1

	var out map[string]any
	err := client.getJSON(context.Background(), server.URL+"/fail", &out)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "500") || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("unexpected error: %v", err)
	}
	if errs.KindOf(err) != errs.KindNetwork {
		t.Fatalf("expected network kind, got %v", errs.KindOf(err))
	}
}

func TestGetJSON_RetriesTransientServerErrors(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current := atomic.AddInt32(&attempts, 1)
		if current < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("retry later"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	client.maxAttempts = 3

	var out map[string]any
	if err := client.getJSON(context.Background(), server.URL+"/retry", &out); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if ok, _ := out["ok"].(bool); !ok {
		t.Errorf("unexpected payload: %+v", out)
	}
}

func TestGetJSON_DoesNotRetryOnClientErrors(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"bad venue"}`))
	}))
	defer server.Close()

	client := newTestClient(server)

	var out map[string]any
	err := client.getJSON(context.Background(), server.URL+"/bad-request", &out)
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
	if got := errs.UserMessage(err); got != "bad venue" {
		t.Fatalf("expected server message, got %q", got)
	}
}

func TestSendJSON_IsNotRetried(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server)

	err := client.sendJSON(context.Background(), http.MethodPost, server.URL+"/bookings", map[string]string{}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
	if got := errs.UserMessage(err); got != "Error: 502 Bad Gateway" {
		t.Fatalf("unexpected user message: %q", got)
	}
}

func TestClient_TimeoutIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(server.Client(), WithBaseURL(server.URL), WithTimeout(20*time.Millisecond))

	_, err := client.GetVenues(context.Background())
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if errs.KindOf(err) != errs.KindNetwork {
		t.Fatalf("expected network kind, got %v (%v)", errs.KindOf(err), err)
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected timeout message, got %v", err)
	}
}

func TestClient_SendsBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
			t.Errorf("unexpected authorization header: %q", got)
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(server.Client(), WithBaseURL(server.URL), WithTokenSource(func() string { return "token-1" }))

	if _, err := client.GetVenues(context.Background()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestGetVenues_Envelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/venues" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "data": {
    "venues": [
      {"venue_id": "v1", "name": "Arena", "capacity": "50", "available_time_slots": [
        {"start_time": "2024-06-01T09:00:00Z", "end_time": "2024-06-01T10:00:00Z"}
      ]},
      {"venue_id": "v2", "name": "Court"}
    ]
  }
}`))
	}))
	defer server.Close()

	client := newTestClient(server)

	venues, err := client.GetVenues(context.Background())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(venues) != 2 {
		t.Fatalf("expected 2 venues, got %d", len(venues))
	}
	if venues[0].Capacity != 50 || len(venues[0].TimeSlots) != 1 {
		t.Fatalf("unexpected first venue: %+v", venues[0])
	}
	if venues[1].TimeSlots == nil || len(venues[1].TimeSlots) != 0 {
		t.Fatalf("expected empty slots for second venue, got %+v", venues[1].TimeSlots)
	}
}

func TestGetOwnerVenues_FiltersByOwner(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("owner_id"); got != "o1" {
			t.Errorf("unexpected owner query: %q", got)
		}
		_, _ = w.Write([]byte(`{"venues": [
  {"venue_id": "v1", "name": "Mine", "owner_id": "o1"},
  {"venue_id": "v2", "name": "Theirs", "owner_id": "o2"},
  {"venue_id": "v3", "name": "Unowned"}
]}`))
	}))
	defer server.Close()

	venues, err := newTestClient(server).GetOwnerVenues(context.Background(), "o1")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(venues) != 1 || venues[0].Id != "v1" {
		t.Fatalf("unexpected venues: %+v", venues)
	}

	if _, err := newTestClient(server).GetOwnerVenues(context.Background(), " "); errs.KindOf(err) != errs.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetVenues_MalformedBodyIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"venues": [`))
	}))
	defer server.Close()

	_, err := newTestClient(server).GetVenues(context.Background())
	if errs.KindOf(err) != errs.KindNetwork {
		t.Fatalf("expected network error, got %v", err)
	}
	if got := errs.UserMessage(err); got != "Network error occurred. Please try again later." {
		t.Fatalf("unexpected user message: %q", got)
	}
}

func TestCreateUser_MalformedBodyIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer server.Close()

	_, err := newTestClient(server).CreateUser(context.Background(), NewUser{UserId: "u1", UserType: model.UserTypeCustomer})
	if errs.KindOf(err) != errs.KindNetwork {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestCreateVenue_PostsSnakeCasePayload(t *testing.T) {
	start := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/venues" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if payload["venue_type"] != "Outdoor" || payload["owner_id"] != "o1" {
			t.Errorf("unexpected payload: %s", body)
		}
		slots, _ := payload["available_time_slots"].([]any)
		if len(slots) != 1 {
			t.Errorf("expected 1 slot, got %s", body)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data": {"venue": {"venue_id": "new-1", "name": "Soccer Field", "capacity": 50}}}`))
	}))
	defer server.Close()

	venue, err := newTestClient(server).CreateVenue(context.Background(), VenueInput{
		Name:      "Soccer Field",
		Capacity:  50,
		VenueType: "Outdoor",
		OwnerId:   "o1",
		TimeSlots: []model.TimeSlot{{Start: start, End: start.Add(time.Hour)}},
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if venue.Id != "new-1" || venue.Capacity != 50 {
		t.Fatalf("unexpected venue: %+v", venue)
	}
}

func TestCreateVenue_EchoesInputWithoutBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	venue, err := newTestClient(server).CreateVenue(context.Background(), VenueInput{
		Name:       "Hall",
		Facilities: []string{"Lights", " lights ", "Restrooms"},
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if venue.Name != "Hall" || len(venue.Facilities) != 2 {
		t.Fatalf("unexpected venue: %+v", venue)
	}
}

func TestCreateVenue_Validation(t *testing.T) {
	client := NewClient(nil)
	if _, err := client.CreateVenue(context.Background(), VenueInput{}); errs.KindOf(err) != errs.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := client.CreateVenue(context.Background(), VenueInput{Name: "x", Capacity: -1}); errs.KindOf(err) != errs.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBookVenue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bookings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var payload bookingPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if payload.VenueId != "v1" || payload.TimeSlot != "09:00-10:00" || payload.Status != model.BookingStatusConfirmed {
			t.Errorf("unexpected payload: %+v", payload)
		}
		_, _ = w.Write([]byte(`{"data": {"booking_id": "srv-9"}, "message": "Booked"}`))
	}))
	defer server.Close()

	confirmation, err := newTestClient(server).BookVenue(context.Background(), model.Booking{
		Id:       "local-1",
		VenueId:  "v1",
		Date:     "2024-06-01",
		TimeSlot: "09:00-10:00",
		Status:   model.BookingStatusConfirmed,
		UserId:   "u1",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if confirmation.ConfirmationId != "srv-9" || confirmation.Message != "Booked" {
		t.Fatalf("unexpected confirmation: %+v", confirmation)
	}
}

func TestBookVenue_FallsBackToLocalID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	confirmation, err := newTestClient(server).BookVenue(context.Background(), model.Booking{Id: "local-1", VenueId: "v1", TimeSlot: "09:00-10:00"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if confirmation.ConfirmationId != "local-1" {
		t.Fatalf("unexpected confirmation: %+v", confirmation)
	}
}

func TestCreateUserAndGetUserDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users":
			var payload NewUser
			_ = json.NewDecoder(r.Body).Decode(&payload)
			if payload.UserType != model.UserTypeOwner || payload.FullName != "Ada" {
				t.Errorf("unexpected payload: %+v", payload)
			}
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"message": "created"}`))
		case "/get-user-details":
			_, _ = w.Write([]byte(`{"user_type": "owner", "full_name": "Ada"}`))
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(server)
	created, err := client.CreateUser(context.Background(), NewUser{UserId: "u1", FullName: "Ada", Email: "ada@example.com", UserType: model.UserTypeOwner})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if created.UserId != "u1" || created.UserType != model.UserTypeOwner {
		t.Fatalf("unexpected created user: %+v", created)
	}

	details, err := client.GetUserDetails(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if details.UserType != model.UserTypeOwner || details.UserId != "u1" {
		t.Fatalf("unexpected details: %+v", details)
	}

	if _, err := client.CreateUser(context.Background(), NewUser{UserId: "u2", UserType: "admin"}); errs.KindOf(err) != errs.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestIsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(server).GetVenues(context.Background())
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRetryDelay(t *testing.T) {
	client := NewClient(nil)
	client.retryBase = 100 * time.Millisecond
	client.retryCap = 500 * time.Millisecond

	cases := map[int]time.Duration{
		0: 100 * time.Millisecond,
		1: 100 * time.Millisecond,
		2: 200 * time.Millisecond,
		3: 400 * time.Millisecond,
		4: 500 * time.Millisecond,
	}
	for attempt, want := range cases {
		if got := client.retryDelay(attempt); got != want {
			t.Fatalf("retryDelay(%d) = %v, want %v", attempt, got, want)
		}
	}
}
