// Package auth signs users in and out and broadcasts the signed-in user to
// subscribers. Two providers exist: Firebase (Identity Toolkit REST API) and
// a Local provider for offline use.
package auth

import (
	"context"
	"net/http"
	"strings"
	"sync"

	cr "github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"bookkar-cli/config"
	"bookkar-cli/errs"
	"bookkar-cli/model"
	"bookkar-cli/store"
)

const minPasswordLength = 6

type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (model.User, error)
	// SignUp creates the account. It does not sign the new user in.
	SignUp(ctx context.Context, req SignUpRequest) (model.User, error)
	SignOut(ctx context.Context) error
	// Restore signs in the persisted session when one exists and has not expired.
	Restore(ctx context.Context) (model.User, bool)
	// Subscribe registers fn for every auth state change; nil means signed out.
	Subscribe(fn func(*model.User)) (unsubscribe func())
	Current() (*model.User, bool)
}

type SignUpRequest struct {
	FullName string
	Email    string
	Password string
	UserType model.UserType
}

func (r SignUpRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" || r.Password == "" {
		return errs.Validation("Please fill in both fields")
	}
	if !r.UserType.Valid() {
		return errs.Validation("Please choose customer or owner")
	}
	return nil
}

// Error is a provider failure with a message fit for display.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(code string) error {
	return cr.Mark(&Error{Code: code, Message: codeMessage(code)}, errs.ErrAuth)
}

func codeMessage(code string) string {
	switch code {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS":
		return "Invalid email or password."
	case "EMAIL_EXISTS":
		return "An account with this email already exists."
	case "WEAK_PASSWORD":
		return "Password should be at least 6 characters."
	case "INVALID_EMAIL", "MISSING_EMAIL":
		return "The email address is badly formatted."
	case "MISSING_PASSWORD":
		return "Please fill in both fields"
	case "USER_DISABLED":
		return "This account has been disabled."
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		return "Too many attempts. Please try again later."
	case "TOKEN_EXPIRED", "INVALID_ID_TOKEN":
		return "Your session has expired. Please log in again."
	default:
		return "Authentication failed: " + code
	}
}

// SessionStore persists the signed-in session between runs.
type SessionStore interface {
	Load() (store.Session, bool, error)
	Save(store.Session) error
	Clear() error
}

type fileSessions struct{}

func (fileSessions) Load() (store.Session, bool, error) { return store.LoadSession() }
func (fileSessions) Save(s store.Session) error         { return store.SaveSession(s) }
func (fileSessions) Clear() error                       { return store.ClearSession() }

// FileSessions stores the session under the user config directory.
func FileSessions() SessionStore {
	return fileSessions{}
}

// AccountStore persists local accounts between runs.
type AccountStore interface {
	Load() ([]store.Account, error)
	Save([]store.Account) error
}

type fileAccounts struct{}

func (fileAccounts) Load() ([]store.Account, error)  { return store.LoadAccounts() }
func (fileAccounts) Save(a []store.Account) error     { return store.SaveAccounts(a) }

// FileAccounts stores local accounts under the user config directory.
func FileAccounts() AccountStore {
	return fileAccounts{}
}

// New returns the provider selected by cfg.AuthProvider.
func New(cfg config.Config, httpClient *http.Client, logger *zap.Logger) (Authenticator, error) {
	switch cfg.AuthProvider {
	case config.AuthProviderFirebase:
		return NewFirebase(cfg.FirebaseAPIKey,
			WithFirebaseBaseURL(cfg.FirebaseBaseURL),
			WithHTTPClient(httpClient),
			WithRequestTimeout(cfg.RequestTimeout),
			WithSessions(FileSessions()),
			WithAuthLogger(logger),
		), nil
	case config.AuthProviderLocal, "":
		return NewLocal(WithAccountStore(FileAccounts())), nil
	default:
		return nil, errs.Validation("unknown auth provider %q", cfg.AuthProvider)
	}
}

type hub struct {
	mu      sync.Mutex
	next    int
	subs    map[int]func(*model.User)
	current *model.User
}

func (h *hub) Subscribe(fn func(*model.User)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs == nil {
		h.subs = map[int]func(*model.User){}
	}
	id := h.next
	h.next++
	h.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

func (h *hub) Current() (*model.User, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil {
		return nil, false
	}
	u := *h.current
	return &u, true
}

// set replaces the current user and notifies subscribers outside the lock.
func (h *hub) set(u *model.User) {
	h.mu.Lock()
	if u != nil {
		copied := *u
		u = &copied
	}
	h.current = u
	subs := make([]func(*model.User), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	h.mu.Unlock()

	for _, fn := range subs {
		var arg *model.User
		if u != nil {
			copied := *u
			arg = &copied
		}
		fn(arg)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
