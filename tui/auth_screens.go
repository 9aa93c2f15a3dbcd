package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"bookkar-cli/auth"
	"bookkar-cli/booking"
	"bookkar-cli/errs"
	"bookkar-cli/model"
	"bookkar-cli/notify"
	"bookkar-cli/service"
)

const (
	loginEmail = iota
	loginPassword
)

const (
	signupFullName = iota
	signupEmail
	signupPassword
)

type sessionRestoredMsg struct {
	user model.User
	ok   bool
}

type userResolvedMsg struct {
	user      model.User
	err       error
	fromLogin bool
}

type signupMsg struct {
	user model.User
	err  error
	// profileErr is set when the account exists but its profile was not saved.
	profileErr error
}

type signedOutMsg struct {
	err error
}

func newLoginForm() form {
	return newForm(
		formField{label: "Email", placeholder: "you@example.com"},
		formField{label: "Password", placeholder: "password", secret: true},
	)
}

func newSignupForm() form {
	return newForm(
		formField{label: "Full name", placeholder: "Jane Doe"},
		formField{label: "Email", placeholder: "you@example.com"},
		formField{label: "Password", placeholder: "at least 6 characters", secret: true},
	).withChoice("I am a", string(model.UserTypeCustomer), string(model.UserTypeOwner))
}

func (m appModel) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.activeForm()
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		switch m.state {
		case stateSignup:
			m.state = stateLogin
		case stateCreateVenue:
			m.state = stateOwnerHome
		}
		return m, nil
	case "ctrl+n":
		if m.state == stateLogin {
			m.signupForm.reset()
			m.state = stateSignup
			cmd := m.signupForm.setFocus(0)
			return m, cmd
		}
	case "tab", "down":
		cmd := f.next()
		return m, cmd
	case "shift+tab", "up":
		cmd := f.prev()
		return m, cmd
	case "left", "right", " ":
		if f.onChoice() {
			if msg.String() == "left" {
				f.cycleChoice(-1)
			} else {
				f.cycleChoice(1)
			}
			return m, nil
		}
	case "enter":
		if !f.onLast() {
			cmd := f.next()
			return m, cmd
		}
		return m.submitForm()
	}

	cmd := f.update(msg)
	return m, cmd
}

func (m appModel) submitForm() (tea.Model, tea.Cmd) {
	if m.submitting {
		return m, nil
	}
	switch m.state {
	case stateLogin:
		email := strings.TrimSpace(m.loginForm.value(loginEmail))
		password := m.loginForm.value(loginPassword)
		if email == "" || password == "" {
			m.loginForm.err = "Please fill in both fields"
			return m, nil
		}
		m.loginForm.err = ""
		m.submitting = true
		return m, tea.Batch(m.loginCmd(email, password), m.spinner.Tick)

	case stateSignup:
		req := auth.SignUpRequest{
			FullName: strings.TrimSpace(m.signupForm.value(signupFullName)),
			Email:    strings.TrimSpace(m.signupForm.value(signupEmail)),
			Password: m.signupForm.value(signupPassword),
			UserType: model.UserType(m.signupForm.selectedChoice()),
		}
		if err := req.Validate(); err != nil {
			m.signupForm.err = errs.UserMessage(err)
			return m, nil
		}
		m.signupForm.err = ""
		m.submitting = true
		return m, tea.Batch(m.signupCmd(req), m.spinner.Tick)

	case stateCreateVenue:
		return m.submitVenueForm()
	}
	return m, nil
}

func (m appModel) updateAuth(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionRestoredMsg:
		if !msg.ok {
			m.state = stateLogin
			cmd := m.loginForm.setFocus(loginEmail)
			return m, cmd
		}
		m.loadingTitle = "Loading profile"
		return m, tea.Batch(m.resolveUserCmd(msg.user), m.spinner.Tick)

	case userResolvedMsg:
		m.submitting = false
		if msg.err != nil {
			m.logger.Warn("sign in failed", zap.Error(msg.err))
			m.user = nil
			m.state = stateLogin
			m.loginForm.err = errs.UserMessage(msg.err)
			var cmd tea.Cmd
			if _, signedIn := m.auth.Current(); signedIn {
				cmd = m.signOutCmd()
			}
			return m, cmd
		}
		user := msg.user
		m.user = &user
		m.loginForm.reset()
		m.logger.Info("signed in", zap.String("uid", user.Uid), zap.String("user_type", string(user.Type)))
		if user.Type == model.UserTypeOwner {
			next, cmd, _ := m.startLoading("Loading your venues", m.fetchOwnerVenuesCmd(false))
			return next, cmd
		}
		next, cmd, _ := m.startLoading("Loading venues", m.fetchVenuesCmd(false))
		return next, cmd

	case signupMsg:
		m.submitting = false
		if msg.err != nil {
			m.logger.Warn("sign up failed", zap.Error(msg.err))
			m.signupForm.err = errs.UserMessage(msg.err)
			return m, nil
		}
		m.signupForm.reset()
		m.loginForm.reset()
		m.loginForm.setValue(loginEmail, msg.user.Email)
		m.state = stateLogin
		focus := m.loginForm.setFocus(loginPassword)
		if msg.profileErr != nil {
			m.logger.Warn("save profile", zap.String("uid", msg.user.Uid), zap.Error(msg.profileErr))
			cmd := m.notice.Show("Account created, but saving your profile failed: "+errs.UserMessage(msg.profileErr), notify.KindError)
			return m, tea.Batch(focus, cmd)
		}
		cmd := m.notice.Show("Account created. Please log in.", notify.KindSuccess)
		return m, tea.Batch(focus, cmd)

	case signedOutMsg:
		if msg.err != nil {
			m.logger.Warn("sign out failed", zap.Error(msg.err))
		}
		if !m.signedInState() {
			return m, nil
		}
		m.signOutReset()
		cmd := m.notice.Show("Signed out", notify.KindSuccess)
		return m, cmd
	}
	return m, nil
}

// signOutReset discards everything scoped to the signed-in user, bookings included.
func (m *appModel) signOutReset() {
	m.user = nil
	m.submitting = false
	m.venue = model.Venue{}
	m.venues = nil
	m.ownerVenues = nil
	m.bookings = booking.NewStore()
	m.selector = booking.NewSelector(nil)
	for _, l := range []*list.Model{&m.venueList, &m.ownerList, &m.dateList, &m.slotList, &m.bookingList} {
		l.ResetFilter()
		l.SetItems(nil)
	}
	m.loginForm.reset()
	m.state = stateLogin
}

func (m appModel) restoreSessionCmd() tea.Cmd {
	return func() tea.Msg {
		user, ok := m.auth.Restore(context.Background())
		return sessionRestoredMsg{user: user, ok: ok}
	}
}

func (m appModel) waitForAuthCmd() tea.Cmd {
	events := m.authEvents
	return func() tea.Msg {
		return authChangedMsg{user: <-events}
	}
}

func (m appModel) loginCmd(email, password string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		user, err := m.auth.SignIn(ctx, email, password)
		if err != nil {
			return userResolvedMsg{err: err, fromLogin: true}
		}
		user, err = m.resolveUserType(ctx, user)
		return userResolvedMsg{user: user, err: err, fromLogin: true}
	}
}

func (m appModel) resolveUserCmd(user model.User) tea.Cmd {
	return func() tea.Msg {
		user, err := m.resolveUserType(context.Background(), user)
		return userResolvedMsg{user: user, err: err}
	}
}

// resolveUserType asks the backend for the user type when the auth provider
// does not know it.
func (m appModel) resolveUserType(ctx context.Context, user model.User) (model.User, error) {
	if user.Type.Valid() {
		return user, nil
	}
	details, err := m.client.GetUserDetails(ctx, user.Uid)
	if err != nil {
		return user, err
	}
	if details.UserType == "" {
		return user, errs.Auth(nil, "Failed to retrieve user details or user type is missing.")
	}
	if !details.UserType.Valid() {
		return user, errs.Auth(nil, "Invalid user type received.")
	}
	user.Type = details.UserType
	if user.FullName == "" {
		user.FullName = details.FullName
	}
	return user, nil
}

func (m appModel) signupCmd(req auth.SignUpRequest) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		user, err := m.auth.SignUp(ctx, req)
		if err != nil {
			return signupMsg{err: err}
		}
		_, err = m.client.CreateUser(ctx, service.NewUser{
			UserId:   user.Uid,
			FullName: req.FullName,
			Email:    user.Email,
			UserType: req.UserType,
		})
		return signupMsg{user: user, profileErr: err}
	}
}

func (m appModel) signOutCmd() tea.Cmd {
	return func() tea.Msg {
		return signedOutMsg{err: m.auth.SignOut(context.Background())}
	}
}
