package tui

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookkar-cli/auth"
	"bookkar-cli/config"
	"bookkar-cli/errs"
	"bookkar-cli/model"
	"bookkar-cli/notify"
	"bookkar-cli/service"
)

type testItem struct {
	value string
}

func (t testItem) Title() string       { return t.value }
func (t testItem) Description() string { return "" }
func (t testItem) FilterValue() string { return strings.ToLower(t.value) }

var (
	enterKey = tea.KeyMsg{Type: tea.KeyEnter}
	escKey   = tea.KeyMsg{Type: tea.KeyEsc}
	cancelX  = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")}
)

func setTestConfigDir(t *testing.T) {
	t.Helper()
	root := t.TempDir()
	t.Setenv("HOME", root)
	t.Setenv("XDG_CONFIG_HOME", root)
	t.Setenv("XDG_CACHE_HOME", root)
}

func newTestModel(t *testing.T) appModel {
	t.Helper()
	setTestConfigDir(t)
	m := New(Deps{Config: config.NewTestConfig()}).(appModel)
	m.now = func() time.Time { return time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC) }
	return m
}

func withUser(m appModel, userType model.UserType) appModel {
	m.user = &model.User{Uid: "u1", Email: "u1@example.com", FullName: "Ada", Type: userType}
	return m
}

func update(t *testing.T, m appModel, msg tea.Msg) (appModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(appModel)
	require.True(t, ok, "Update must return appModel")
	return out, cmd
}

func slotAt(day int, hour int) model.TimeSlot {
	start := time.Date(2024, 6, day, hour, 0, 0, 0, time.UTC)
	return model.TimeSlot{Start: start, End: start.Add(time.Hour)}
}

func arena() model.Venue {
	return model.Venue{
		Id:       "v1",
		Name:     "Arena",
		Location: "Lahore",
		Capacity: 50,
		TimeSlots: []model.TimeSlot{
			slotAt(1, 9),
			slotAt(1, 10),
			slotAt(2, 9),
		},
	}
}

func newFilterModel(t *testing.T, items []list.Item) *appModel {
	m := newTestModel(t)
	m.state = stateCustomerHome
	m.venueList = newList("Venues")
	m.venueList.SetItems(items)
	return &m
}

func TestHandleFilterInput_AppendsRunes(t *testing.T) {
	m := newFilterModel(t, []list.Item{
		testItem{value: "Arena"},
		testItem{value: "Ballroom"},
	})

	if !m.handleFilterInput(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")}) {
		t.Fatal("expected filter input to be handled")
	}
	if got := m.venueList.FilterValue(); got != "a" {
		t.Fatalf("expected filter value to be %q, got %q", "a", got)
	}

	if !m.handleFilterInput(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")}) {
		t.Fatal("expected filter input to be handled")
	}
	if got := m.venueList.FilterValue(); got != "ar" {
		t.Fatalf("expected filter value to be %q, got %q", "ar", got)
	}
}

func TestHandleFilterInput_Backspace(t *testing.T) {
	m := newFilterModel(t, []list.Item{
		testItem{value: "Arena"},
	})

	_ = m.handleFilterInput(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	_ = m.handleFilterInput(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})

	if !m.handleFilterInput(tea.KeyMsg{Type: tea.KeyBackspace}) {
		t.Fatal("expected backspace to be handled")
	}
	if got := m.venueList.FilterValue(); got != "a" {
		t.Fatalf("expected filter value to be %q, got %q", "a", got)
	}

	_ = m.handleFilterInput(tea.KeyMsg{Type: tea.KeyBackspace})
	if got := m.venueList.FilterValue(); got != "" {
		t.Fatalf("expected empty filter, got %q", got)
	}
	if m.handleFilterInput(tea.KeyMsg{Type: tea.KeyBackspace}) {
		t.Fatal("expected backspace on empty filter to be ignored")
	}
}

func TestHandleFilterInput_Space(t *testing.T) {
	m := newFilterModel(t, []list.Item{
		testItem{value: "Grand Hall"},
	})

	_ = m.handleFilterInput(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("grand")})
	if !m.handleFilterInput(tea.KeyMsg{Type: tea.KeySpace}) {
		t.Fatal("expected space to be handled")
	}
	if got := m.venueList.FilterValue(); got != "grand " {
		t.Fatalf("expected filter value to be %q, got %q", "grand ", got)
	}
}

func TestHandleFilterInput_DisabledListPassesKeysThrough(t *testing.T) {
	m := newTestModel(t)
	m.state = stateMyBookings

	if m.handleFilterInput(cancelX) {
		t.Fatal("expected bookings list to leave x to the key handler")
	}
}

func TestBookingFlow_SlotsByDate(t *testing.T) {
	m := withUser(newTestModel(t), model.UserTypeCustomer)

	m, _ = update(t, m, venuesMsg{venues: []model.Venue{arena()}})
	require.Equal(t, stateCustomerHome, m.state)
	require.Len(t, m.venueList.Items(), 1)

	m, _ = update(t, m, enterKey)
	require.Equal(t, stateVenueDetail, m.state)
	assert.Equal(t, "v1", m.venue.Id)
	assert.Contains(t, m.View(), "Arena")

	m, _ = update(t, m, enterKey)
	require.Equal(t, stateSelectDate, m.state)
	dates := m.dateList.Items()
	require.Len(t, dates, datePickerDays)
	assert.Equal(t, dateItem{date: "2024-06-01", slots: 2}, dates[0])
	assert.Equal(t, dateItem{date: "2024-06-02", slots: 1}, dates[1])
	assert.Equal(t, dateItem{date: "2024-06-03", slots: 0}, dates[2])

	m.dateList.Select(0)
	m, _ = update(t, m, enterKey)
	require.Equal(t, stateSelectSlot, m.state)
	require.Len(t, m.slotList.Items(), 2)
	assert.Equal(t, "09:00-10:00", m.slotList.Items()[0].(slotItem).Title())
	assert.Equal(t, "10:00-11:00", m.slotList.Items()[1].(slotItem).Title())

	m, _ = update(t, m, escKey)
	require.Equal(t, stateSelectDate, m.state)
	m.dateList.Select(1)
	m, _ = update(t, m, enterKey)
	require.Len(t, m.slotList.Items(), 1)

	m, _ = update(t, m, escKey)
	m.dateList.Select(2)
	m, _ = update(t, m, enterKey)
	require.Equal(t, stateSelectSlot, m.state)
	assert.Empty(t, m.slotList.Items())
	assert.Contains(t, m.View(), "No slots available on 2024-06-03")
}

func TestBookingFlow_VenueWithoutSlots(t *testing.T) {
	m := withUser(newTestModel(t), model.UserTypeCustomer)
	venue := arena()
	venue.TimeSlots = []model.TimeSlot{}

	m, _ = update(t, m, venuesMsg{venues: []model.Venue{venue}})
	m, _ = update(t, m, enterKey)
	assert.Contains(t, m.View(), "No slots available")
}

func chooseFirstSlot(t *testing.T, m appModel) appModel {
	t.Helper()
	m, _ = update(t, m, venuesMsg{venues: []model.Venue{arena()}})
	m, _ = update(t, m, enterKey)
	m, _ = update(t, m, enterKey)
	m.dateList.Select(0)
	m, _ = update(t, m, enterKey)
	require.Equal(t, stateSelectSlot, m.state)
	return m
}

func TestBookingFlow_ConfirmAndSync(t *testing.T) {
	m := chooseFirstSlot(t, withUser(newTestModel(t), model.UserTypeCustomer))

	m, cmd := update(t, m, enterKey)
	require.NotNil(t, cmd)
	require.Equal(t, stateMyBookings, m.state)
	require.Equal(t, 1, m.bookings.Len())
	assert.True(t, m.submitting)
	assert.True(t, m.notice.Visible())
	assert.Equal(t, notify.KindSuccess, m.notice.Kind())
	assert.Equal(t, "Booked Arena on 2024-06-01 at 09:00-10:00", m.notice.Message())

	created := m.bookings.List()[0]
	assert.Equal(t, model.BookingStatusConfirmed, created.Status)
	assert.Equal(t, "u1", created.UserId)
	assert.Equal(t, "", m.selector.Date(), "selection is cleared after booking")
	require.Len(t, m.bookingList.Items(), 1)

	m, _ = update(t, m, bookingSyncedMsg{
		bookingID:    created.Id,
		confirmation: service.BookingConfirmation{ConfirmationId: "srv-1"},
	})
	assert.False(t, m.submitting)
	synced, ok := m.bookings.Get(created.Id)
	require.True(t, ok)
	assert.Equal(t, "srv-1", synced.ConfirmationId)
	assert.Equal(t, model.BookingStatusConfirmed, synced.Status)
}

func TestBookingFlow_FailedSyncCancelsLocalBooking(t *testing.T) {
	m := chooseFirstSlot(t, withUser(newTestModel(t), model.UserTypeCustomer))

	m, _ = update(t, m, enterKey)
	created := m.bookings.List()[0]

	apiErr := errs.Mark(&service.APIError{StatusCode: 409, Status: "409 Conflict", Message: "Slot already booked"}, errs.ErrNetwork)
	m, _ = update(t, m, bookingSyncedMsg{bookingID: created.Id, err: apiErr})

	got, ok := m.bookings.Get(created.Id)
	require.True(t, ok)
	assert.Equal(t, model.BookingStatusCancelled, got.Status)
	assert.Equal(t, 1, m.bookings.Len())
	assert.Equal(t, notify.KindError, m.notice.Kind())
	assert.Equal(t, "Booking failed: Slot already booked", m.notice.Message())
}

func TestBookingFlow_IgnoresSubmitWhileSyncing(t *testing.T) {
	m := chooseFirstSlot(t, withUser(newTestModel(t), model.UserTypeCustomer))
	m.submitting = true

	m, cmd := update(t, m, enterKey)
	assert.Nil(t, cmd)
	assert.Equal(t, 0, m.bookings.Len())
	assert.Equal(t, stateSelectSlot, m.state)
}

func TestMyBookings_CancelWithX(t *testing.T) {
	m := chooseFirstSlot(t, withUser(newTestModel(t), model.UserTypeCustomer))
	m, _ = update(t, m, enterKey)
	m.submitting = false
	first := m.bookings.List()[0]

	m, cmd := update(t, m, cancelX)
	require.NotNil(t, cmd)
	got, _ := m.bookings.Get(first.Id)
	assert.Equal(t, model.BookingStatusCancelled, got.Status)
	assert.Equal(t, "Booking cancelled", m.notice.Message())
	assert.Equal(t, "Cancelled", m.bookingList.Items()[0].(bookingItem).Description())

	// the notification hides itself once its timer fires
	m, _ = update(t, m, cmd())
	assert.False(t, m.notice.Visible())

	m, _ = update(t, m, cancelX)
	assert.Equal(t, "Booking already cancelled", m.notice.Message())
	assert.Equal(t, notify.KindError, m.notice.Kind())
	assert.Equal(t, 1, m.bookings.Len())
}

func TestLogin_RoutesByUserType(t *testing.T) {
	m := newTestModel(t)
	m.state = stateLogin

	customer, _ := update(t, m, userResolvedMsg{user: model.User{Uid: "c1", Type: model.UserTypeCustomer}, fromLogin: true})
	assert.Equal(t, stateLoading, customer.state)
	assert.Equal(t, "Loading venues", customer.loadingTitle)
	require.NotNil(t, customer.user)

	owner, _ := update(t, m, userResolvedMsg{user: model.User{Uid: "o1", Type: model.UserTypeOwner}, fromLogin: true})
	assert.Equal(t, stateLoading, owner.state)
	assert.Equal(t, "Loading your venues", owner.loadingTitle)

	failed, _ := update(t, m, userResolvedMsg{err: errs.Auth(nil, "Invalid user type received."), fromLogin: true})
	assert.Equal(t, stateLogin, failed.state)
	assert.Nil(t, failed.user)
	assert.Equal(t, "Invalid user type received.", failed.loginForm.err)
}

func TestLogin_RequiresBothFieldsAndIgnoresDuplicateSubmit(t *testing.T) {
	m := newTestModel(t)
	m.state = stateLogin
	m.loginForm.setFocus(loginPassword)

	m, cmd := update(t, m, enterKey)
	assert.Nil(t, cmd)
	assert.Equal(t, "Please fill in both fields", m.loginForm.err)

	m.loginForm.setValue(loginEmail, "ada@example.com")
	m.loginForm.setValue(loginPassword, "secret1")
	m, cmd = update(t, m, enterKey)
	assert.NotNil(t, cmd)
	assert.True(t, m.submitting)
	assert.Empty(t, m.loginForm.err)

	_, cmd = update(t, m, enterKey)
	assert.Nil(t, cmd)
}

func TestSignup_RoleSelector(t *testing.T) {
	m := newTestModel(t)
	m.state = stateLogin

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	require.Equal(t, stateSignup, m.state)

	for i := 0; i < 3; i++ {
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	}
	require.True(t, m.signupForm.onChoice())
	assert.Equal(t, "customer", m.signupForm.selectedChoice())
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, "owner", m.signupForm.selectedChoice())

	m, cmd := update(t, m, enterKey)
	assert.Nil(t, cmd)
	assert.Equal(t, "Please fill in both fields", m.signupForm.err)

	m, _ = update(t, m, signupMsg{user: model.User{Uid: "n1", Email: "new@example.com"}})
	assert.Equal(t, stateLogin, m.state)
	assert.Equal(t, "new@example.com", m.loginForm.value(loginEmail))
	assert.Equal(t, "Account created. Please log in.", m.notice.Message())
}

func TestSignup_ProfileFailureStillRoutesToLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	setTestConfigDir(t)
	authn := auth.NewLocal()
	m := New(Deps{
		Client: service.NewClient(server.Client(), service.WithBaseURL(server.URL)),
		Auth:   authn,
		Config: config.NewTestConfig(),
	}).(appModel)
	m.state = stateSignup

	msg := m.signupCmd(auth.SignUpRequest{FullName: "Ada", Email: "ada@example.com", Password: "secret1", UserType: model.UserTypeOwner})()
	m, _ = update(t, m, msg)

	assert.Equal(t, stateLogin, m.state)
	assert.Empty(t, m.signupForm.err)
	assert.Equal(t, "ada@example.com", m.loginForm.value(loginEmail))
	assert.Equal(t, notify.KindError, m.notice.Kind())
	assert.True(t, strings.HasPrefix(m.notice.Message(), "Account created, but saving your profile failed"), m.notice.Message())

	user, err := authn.SignIn(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, model.UserTypeOwner, user.Type)
}

func TestAuthChange_SignOutResetsSession(t *testing.T) {
	m := chooseFirstSlot(t, withUser(newTestModel(t), model.UserTypeCustomer))
	m, _ = update(t, m, enterKey)
	require.Equal(t, 1, m.bookings.Len())

	m, cmd := update(t, m, authChangedMsg{user: nil})
	require.NotNil(t, cmd)
	assert.Equal(t, stateLogin, m.state)
	assert.Nil(t, m.user)
	assert.Equal(t, 0, m.bookings.Len())
	assert.Empty(t, m.venueList.Items())

	// a second notification of the same sign-out changes nothing
	m, _ = update(t, m, signedOutMsg{})
	assert.Equal(t, stateLogin, m.state)
}

func TestVenuesMsg_ErrorShowsNotification(t *testing.T) {
	m := withUser(newTestModel(t), model.UserTypeCustomer)
	m.state = stateLoading

	m, cmd := update(t, m, venuesMsg{err: errs.Network(errors.New("dial tcp"), "request failed")})
	require.NotNil(t, cmd)
	assert.Equal(t, stateError, m.state)
	assert.Equal(t, notify.KindError, m.notice.Kind())
	assert.Equal(t, "Network error occurred. Please try again later.", m.notice.Message())

	m, _ = update(t, m, escKey)
	assert.Equal(t, stateCustomerHome, m.state)
}

func TestVenuesMsg_StaleCache(t *testing.T) {
	m := withUser(newTestModel(t), model.UserTypeCustomer)

	m, _ = update(t, m, venuesMsg{venues: []model.Venue{arena()}, err: errs.Network(errors.New("dial tcp"), "request failed"), stale: true})
	assert.Equal(t, stateCustomerHome, m.state)
	assert.Len(t, m.venueList.Items(), 1)
	assert.Equal(t, notify.KindError, m.notice.Kind())
}

func TestOwner_CreateVenue(t *testing.T) {
	m := withUser(newTestModel(t), model.UserTypeOwner)
	m, _ = update(t, m, ownerVenuesMsg{venues: nil})
	require.Equal(t, stateOwnerHome, m.state)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	require.Equal(t, stateCreateVenue, m.state)

	m.venueForm.setValue(venueName, "Soccer Field")
	m.venueForm.setValue(venueCapacity, "abc")
	m.venueForm.setFocus(venueDescription)
	m, cmd := update(t, m, enterKey)
	assert.Nil(t, cmd)
	assert.Equal(t, "Capacity must be a non-negative whole number", m.venueForm.err)

	m.venueForm.setValue(venueCapacity, "50")
	m, cmd = update(t, m, enterKey)
	require.NotNil(t, cmd)
	assert.True(t, m.submitting)

	m, _ = update(t, m, venueCreatedMsg{venue: model.Venue{Id: "new-1", Name: "Soccer Field", Capacity: 50}})
	assert.False(t, m.submitting)
	assert.Equal(t, stateOwnerHome, m.state)
	require.Len(t, m.ownerList.Items(), 1)
	assert.Equal(t, "Venue created: Soccer Field", m.notice.Message())
}

func TestVenueInputFromForm(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	f := newVenueForm()
	_, err := venueInputFromForm(f, "o1", now)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	f.setValue(venueName, "Hall")
	for _, capacity := range []string{"", "-1", "ten"} {
		f.setValue(venueCapacity, capacity)
		_, err := venueInputFromForm(f, "o1", now)
		assert.Equal(t, errs.KindValidation, errs.KindOf(err), "capacity %q", capacity)
	}

	f.setValue(venueCapacity, "120")
	f.setValue(venueFacilities, "Parking, , Lights ")
	in, err := venueInputFromForm(f, "o1", now)
	require.NoError(t, err)
	assert.Equal(t, 120, in.Capacity)
	assert.Equal(t, []string{"Parking", "Lights"}, in.Facilities)
	assert.Equal(t, "o1", in.OwnerId)
	assert.Equal(t, "Available", in.BookingStatus)
	require.Len(t, in.TimeSlots, 30*13)
	assert.True(t, in.TimeSlots[0].Start.Equal(time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)), "first slot starts %s", in.TimeSlots[0].Start)
}

func TestBuildVenueItems_RecentFirst(t *testing.T) {
	venues := []model.Venue{{Id: "a", Name: "A"}, {Id: "b", Name: "B"}, {Id: "c", Name: "C"}}

	items := buildVenueItems(venues, []string{"c", "b"})
	got := make([]string, 0, len(items))
	for _, item := range items {
		got = append(got, item.(venueItem).venue.Id)
	}
	assert.Equal(t, []string{"c", "b", "a"}, got)
	assert.True(t, items[0].(venueItem).recent)
	assert.False(t, items[2].(venueItem).recent)
}
