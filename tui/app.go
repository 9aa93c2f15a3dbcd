package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"bookkar-cli/auth"
	"bookkar-cli/booking"
	"bookkar-cli/config"
	"bookkar-cli/errs"
	"bookkar-cli/model"
	"bookkar-cli/notify"
	"bookkar-cli/service"
)

type appState int

const (
	stateLogin appState = iota
	stateSignup
	stateLoading
	stateCustomerHome
	stateVenueDetail
	stateSelectDate
	stateSelectSlot
	stateMyBookings
	stateOwnerHome
	stateCreateVenue
	stateError
)

// Deps are the collaborators of the TUI. Zero values fall back to an offline
// setup: a default API client and the in-memory auth provider.
type Deps struct {
	Client *service.Client
	Auth   auth.Authenticator
	Logger *zap.Logger
	Config config.Config
}

type appModel struct {
	client *service.Client
	auth   auth.Authenticator
	logger *zap.Logger
	cfg    config.Config
	now    func() time.Time

	state     appState
	lastState appState
	err       error

	width  int
	height int

	user *model.User

	venues      []model.Venue
	ownerVenues []model.Venue
	venue       model.Venue

	// Session scoped; views read them and only Update mutates them.
	bookings *booking.Store
	selector *booking.Selector
	notice   notify.Emitter

	venueList   list.Model
	ownerList   list.Model
	dateList    list.Model
	slotList    list.Model
	bookingList list.Model

	loginForm  form
	signupForm form
	venueForm  form

	loadingTitle string
	spinner      spinner.Model

	// submitting is set while a form or booking request is in flight;
	// further submits are ignored until its result arrives.
	submitting bool

	authEvents chan *model.User
}

type authChangedMsg struct {
	user *model.User
}

func New(deps Deps) tea.Model {
	if deps.Client == nil {
		deps.Client = service.NewClient(nil)
	}
	if deps.Auth == nil {
		deps.Auth = auth.NewLocal()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	m := appModel{
		client:     deps.Client,
		auth:       deps.Auth,
		logger:     deps.Logger,
		cfg:        deps.Config,
		now:        time.Now,
		state:      stateLoading,
		bookings:   booking.NewStore(),
		selector:   booking.NewSelector(nil),
		notice:     notify.New(deps.Config.NotifyDuration),
		authEvents: make(chan *model.User, 4),
	}
	m.loadingTitle = "Restoring session"

	logger := m.logger
	m.notice.OnHide = func() { logger.Debug("notification dismissed") }

	m.venueList = newList("Venues")
	m.ownerList = newList("My Venues")
	m.dateList = newList("Select Date")
	m.dateList.SetFilteringEnabled(false)
	m.slotList = newList("Select Time Slot")
	m.slotList.SetFilteringEnabled(false)
	m.bookingList = newList("My Bookings")
	m.bookingList.SetFilteringEnabled(false)

	m.loginForm = newLoginForm()
	m.signupForm = newSignupForm()
	m.venueForm = newVenueForm()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	m.spinner = sp

	events := m.authEvents
	m.auth.Subscribe(func(u *model.User) {
		select {
		case events <- u:
		default:
		}
	})

	return m
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(m.restoreSessionCmd(), m.waitForAuthCmd(), m.spinner.Tick)
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeLists()
		return m, nil

	case tea.KeyMsg:
		if m.isFormState() {
			return m.handleFormKey(msg)
		}
		if m.handleFilterInput(msg) {
			return m, nil
		}
		m, cmd, handled := m.handleKey(msg)
		if handled {
			return m, cmd
		}
		// fallthrough to component update

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.state == stateLoading || m.submitting {
			return m, cmd
		}
		return m, nil

	case notify.HideMsg:
		cmd := m.notice.Update(msg)
		return m, cmd

	case notify.HiddenMsg:
		return m, nil

	case authChangedMsg:
		if msg.user == nil && m.signedInState() {
			m.signOutReset()
			cmd := m.notice.Show("Signed out", notify.KindSuccess)
			return m, tea.Batch(m.waitForAuthCmd(), cmd)
		}
		return m, m.waitForAuthCmd()

	case sessionRestoredMsg, userResolvedMsg, signupMsg, signedOutMsg:
		return m.updateAuth(msg)

	case venuesMsg, ownerVenuesMsg, venueCreatedMsg, bookingSyncedMsg:
		return m.updateVenues(msg)
	}

	var cmd tea.Cmd
	if m.isFormState() {
		cmd = m.activeForm().update(msg)
		return m, cmd
	}
	if listPtr := m.activeList(); listPtr != nil {
		*listPtr, cmd = listPtr.Update(msg)
	}
	return m, cmd
}

func (m appModel) View() string {
	header := m.headerView()
	var body string
	switch m.state {
	case stateLoading:
		body = m.loadingView()
	case stateLogin:
		body = m.loginForm.view("Login", "log in")
	case stateSignup:
		body = m.signupForm.view("Sign Up", "create the account")
	case stateCustomerHome:
		body = m.venueList.View()
	case stateOwnerHome:
		body = m.ownerList.View()
	case stateVenueDetail:
		body = m.venueDetailView()
	case stateSelectDate:
		body = m.dateList.View()
	case stateSelectSlot:
		if len(m.slotList.Items()) == 0 {
			body = m.noSlotsView()
		} else {
			body = m.slotList.View()
		}
	case stateMyBookings:
		if len(m.bookingList.Items()) == 0 {
			body = hint("No bookings yet. Pick a venue and a time slot to book one.")
		} else {
			body = m.bookingList.View()
		}
	case stateCreateVenue:
		body = m.venueForm.view("Create Venue", "create the venue")
	case stateError:
		body = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Render(errs.UserMessage(m.err)) + "\n\n" + hint("Press esc to go back or ctrl+c to quit.")
	}
	if m.submitting && m.isFormState() {
		body += "\n\n" + m.spinner.View() + " Submitting..."
	}
	if notice := m.notice.View(); notice != "" {
		header += "\n\n" + notice
	}
	return header + "\n\n" + body
}

func (m appModel) headerView() string {
	title := lipgloss.NewStyle().Bold(true).Render("BookKar")
	sub := []string{}
	if m.user != nil {
		name := m.user.FullName
		if name == "" {
			name = m.user.Email
		}
		sub = append(sub, fmt.Sprintf("User: %s (%s)", name, m.user.Type))
	}
	if m.venue.Name != "" && (m.state == stateVenueDetail || m.state == stateSelectDate || m.state == stateSelectSlot) {
		sub = append(sub, fmt.Sprintf("Venue: %s", m.venue.Name))
	}
	if date := m.selector.Date(); date != "" && m.state == stateSelectSlot {
		sub = append(sub, fmt.Sprintf("Date: %s", date))
	}
	if m.state == stateMyBookings {
		sub = append(sub, fmt.Sprintf("Bookings: %d", m.bookings.Len()))
	}
	meta := strings.Join(sub, " • ")
	if meta != "" {
		meta = "\n" + lipgloss.NewStyle().Faint(true).Render(meta)
	}

	hints := "ctrl+c quit • esc back"
	switch m.state {
	case stateLogin:
		hints = "ctrl+c quit • tab next field • enter log in • ctrl+n sign up"
	case stateSignup:
		hints = "ctrl+c quit • esc back to login • tab next field • ←/→ choose role • enter sign up"
	case stateCustomerHome:
		hints = "ctrl+c quit • type to filter • enter open venue • ctrl+b my bookings • ctrl+r refresh • ctrl+o log out"
	case stateOwnerHome:
		hints = "ctrl+c quit • type to filter • enter open venue • ctrl+n new venue • ctrl+r refresh • ctrl+o log out"
	case stateVenueDetail:
		if m.isCustomer() {
			hints = "ctrl+c quit • esc back • enter pick a date"
		}
	case stateSelectDate:
		hints = "ctrl+c quit • esc back • enter select date"
	case stateSelectSlot:
		hints = "ctrl+c quit • esc back • enter book slot"
	case stateMyBookings:
		hints = "ctrl+c quit • esc back • x cancel booking"
	case stateCreateVenue:
		hints = "ctrl+c quit • esc cancel • tab next field • enter on last field to create"
	}
	filterLine := ""
	if listPtr := m.activeList(); listPtr != nil {
		if filter := listPtr.FilterValue(); filter != "" {
			filterLine = "\n" + hint(fmt.Sprintf("Filter: %s", filter))
		}
	}
	return title + meta + filterLine + "\n" + hint(hints)
}

func (m appModel) handleKey(msg tea.KeyMsg) (appModel, tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit, true
	case "esc":
		if listPtr := m.activeList(); listPtr != nil {
			if listPtr.SettingFilter() || listPtr.IsFiltered() {
				listPtr.ResetFilter()
				return m, nil, true
			}
		}
		return m.goBack(), nil, true
	case "ctrl+o":
		if m.signedInState() {
			return m, m.signOutCmd(), true
		}
	case "ctrl+r":
		switch m.state {
		case stateCustomerHome:
			return m.startLoading("Loading venues", m.fetchVenuesCmd(true))
		case stateOwnerHome:
			return m.startLoading("Loading your venues", m.fetchOwnerVenuesCmd(true))
		}
	case "ctrl+b":
		if m.state == stateCustomerHome {
			m.refreshBookingList()
			m.state = stateMyBookings
			return m, nil, true
		}
	case "ctrl+n":
		if m.state == stateOwnerHome {
			m.venueForm.reset()
			m.state = stateCreateVenue
			cmd := m.venueForm.setFocus(0)
			return m, cmd, true
		}
	case "x":
		if m.state == stateMyBookings {
			return m.cancelSelectedBooking()
		}
	}

	if msg.Type == tea.KeyEnter {
		switch m.state {
		case stateCustomerHome:
			return m.openVenue(m.venueList)
		case stateOwnerHome:
			return m.openVenue(m.ownerList)
		case stateVenueDetail:
			return m.openDatePicker()
		case stateSelectDate:
			return m.selectDate()
		case stateSelectSlot:
			return m.bookSelectedSlot()
		}
	}
	return m, nil, false
}

func (m appModel) goBack() appModel {
	switch m.state {
	case stateVenueDetail:
		m.selector.Clear()
		m.state = m.homeState()
	case stateSelectDate:
		m.state = stateVenueDetail
	case stateSelectSlot:
		if len(m.dateList.Items()) == 0 {
			m.state = stateVenueDetail
		} else {
			m.state = stateSelectDate
		}
	case stateMyBookings:
		m.state = stateCustomerHome
	case stateError:
		m.state = m.lastState
	}
	return m
}

func (m *appModel) handleFilterInput(msg tea.KeyMsg) bool {
	listPtr := m.activeList()
	if listPtr == nil {
		return false
	}
	if !listPtr.FilteringEnabled() {
		return false
	}
	switch msg.Type {
	case tea.KeyRunes:
		if len(msg.Runes) == 0 {
			return false
		}
		m.appendFilter(listPtr, string(msg.Runes))
		return true
	case tea.KeySpace:
		m.appendFilter(listPtr, " ")
		return true
	case tea.KeyBackspace, tea.KeyDelete:
		if listPtr.FilterValue() == "" {
			return false
		}
		m.popFilter(listPtr)
		return true
	default:
		return false
	}
}

func (m *appModel) appendFilter(listPtr *list.Model, value string) {
	if value == "" {
		return
	}
	current := listPtr.FilterValue()
	listPtr.SetFilterText(current + value)
}

func (m *appModel) popFilter(listPtr *list.Model) {
	value := listPtr.FilterValue()
	if value == "" {
		return
	}
	value = trimLastRune(value)
	if value == "" {
		listPtr.ResetFilter()
		return
	}
	listPtr.SetFilterText(value)
}

func trimLastRune(value string) string {
	runes := []rune(value)
	if len(runes) <= 1 {
		return ""
	}
	return string(runes[:len(runes)-1])
}

func (m *appModel) activeList() *list.Model {
	switch m.state {
	case stateCustomerHome:
		return &m.venueList
	case stateOwnerHome:
		return &m.ownerList
	case stateSelectDate:
		return &m.dateList
	case stateSelectSlot:
		return &m.slotList
	case stateMyBookings:
		return &m.bookingList
	default:
		return nil
	}
}

func (m *appModel) activeForm() *form {
	switch m.state {
	case stateLogin:
		return &m.loginForm
	case stateSignup:
		return &m.signupForm
	case stateCreateVenue:
		return &m.venueForm
	default:
		return nil
	}
}

func (m appModel) isFormState() bool {
	return m.state == stateLogin || m.state == stateSignup || m.state == stateCreateVenue
}

func (m appModel) signedInState() bool {
	switch m.state {
	case stateLogin, stateSignup:
		return false
	case stateLoading, stateError:
		return m.user != nil
	default:
		return true
	}
}

func (m appModel) isCustomer() bool {
	return m.user != nil && m.user.Type == model.UserTypeCustomer
}

func (m appModel) homeState() appState {
	if m.user != nil && m.user.Type == model.UserTypeOwner {
		return stateOwnerHome
	}
	return stateCustomerHome
}

func (m appModel) startLoading(title string, cmd tea.Cmd) (appModel, tea.Cmd, bool) {
	m.loadingTitle = title
	m.state = stateLoading
	return m, tea.Batch(cmd, m.spinner.Tick), true
}

func (m appModel) loadingView() string {
	title := m.loadingTitle
	if title == "" {
		title = "Loading"
	}
	return fmt.Sprintf("%s %s\n\n%s", m.spinner.View(), title, hint("Fetching data..."))
}

func (m *appModel) resizeLists() {
	if m.width == 0 || m.height == 0 {
		return
	}
	h := m.height - 8
	if h < 6 {
		h = 6
	}
	m.venueList.SetSize(m.width, h)
	m.ownerList.SetSize(m.width, h)
	m.dateList.SetSize(m.width, h)
	m.slotList.SetSize(m.width, h)
	m.bookingList.SetSize(m.width, h)
	for _, f := range []*form{&m.loginForm, &m.signupForm, &m.venueForm} {
		for i := range f.inputs {
			f.inputs[i].Width = m.width - 6
		}
	}
}

func newList(title string) list.Model {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = title
	l.Filter = caseInsensitiveFilter
	l.SetFilteringEnabled(true)
	l.SetShowFilter(true)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	return l
}

func hint(text string) string {
	return lipgloss.NewStyle().Faint(true).Render(text)
}

// showError switches to the error screen; esc returns to returnState.
func (m appModel) showError(what string, err error, returnState appState) (appModel, tea.Cmd) {
	m.err = err
	m.lastState = returnState
	m.state = stateError
	m.logger.Warn(what,
		zap.Error(err),
		zap.String("kind", errs.KindOf(err).String()),
		zap.Strings("stack", errs.ExtractStackLines(err, 8)),
	)
	cmd := m.notice.Show(errs.UserMessage(err), notify.KindError)
	return m, cmd
}

func caseInsensitiveFilter(term string, targets []string) []list.Rank {
	term = strings.ToLower(term)
	lower := make([]string, len(targets))
	for i, t := range targets {
		lower[i] = strings.ToLower(t)
	}
	return list.DefaultFilter(term, lower)
}
