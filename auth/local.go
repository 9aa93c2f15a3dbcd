package auth

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"bookkar-cli/errs"
	"bookkar-cli/model"
	"bookkar-cli/store"
)

const localSessionTTL = time.Hour

// Local keeps accounts with bcrypt-hashed passwords, in memory and, when an
// AccountStore is set, on disk.
type Local struct {
	hub

	mu       sync.Mutex
	accounts map[string]localAccount
	store    AccountStore
	loaded   bool
	cost     int
	now      func() time.Time
}

type localAccount struct {
	user model.User
	hash []byte
}

type LocalOption func(*Local)

func WithAccountStore(accounts AccountStore) LocalOption {
	return func(l *Local) {
		l.store = accounts
	}
}

func NewLocal(opts ...LocalOption) *Local {
	l := &Local{
		accounts: map[string]localAccount{},
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Local) SignUp(ctx context.Context, req SignUpRequest) (model.User, error) {
	if err := req.Validate(); err != nil {
		return model.User{}, err
	}
	if len(req.Password) < minPasswordLength {
		return model.User{}, newError("WEAK_PASSWORD")
	}
	email := normalizeEmail(req.Email)
	if !strings.Contains(email, "@") {
		return model.User{}, newError("INVALID_EMAIL")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), l.cost)
	if err != nil {
		return model.User{}, errs.Wrap(err, "hash password")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.loadLocked(); err != nil {
		return model.User{}, err
	}
	if _, exists := l.accounts[email]; exists {
		return model.User{}, newError("EMAIL_EXISTS")
	}
	user := model.User{
		Uid:      uuid.NewString(),
		Email:    email,
		FullName: strings.TrimSpace(req.FullName),
		Type:     req.UserType,
	}
	l.accounts[email] = localAccount{user: user, hash: hash}
	if err := l.saveLocked(); err != nil {
		delete(l.accounts, email)
		return model.User{}, err
	}
	return user, nil
}

// loadLocked reads the stored accounts once. l.mu must be held.
func (l *Local) loadLocked() error {
	if l.loaded || l.store == nil {
		return nil
	}
	stored, err := l.store.Load()
	if err != nil {
		return errs.Wrap(err, "load accounts")
	}
	for _, a := range stored {
		l.accounts[normalizeEmail(a.Email)] = localAccount{
			user: model.User{Uid: a.Uid, Email: a.Email, FullName: a.FullName, Type: a.Type},
			hash: []byte(a.PasswordHash),
		}
	}
	l.loaded = true
	return nil
}

func (l *Local) saveLocked() error {
	if l.store == nil {
		return nil
	}
	out := make([]store.Account, 0, len(l.accounts))
	for _, a := range l.accounts {
		out = append(out, store.Account{
			Uid:          a.user.Uid,
			Email:        a.user.Email,
			FullName:     a.user.FullName,
			Type:         a.user.Type,
			PasswordHash: string(a.hash),
		})
	}
	slices.SortFunc(out, func(a, b store.Account) int { return strings.Compare(a.Email, b.Email) })
	if err := l.store.Save(out); err != nil {
		return errs.Wrap(err, "save accounts")
	}
	return nil
}

func (l *Local) SignIn(ctx context.Context, email, password string) (model.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return model.User{}, errs.Validation("Please fill in both fields")
	}

	l.mu.Lock()
	err := l.loadLocked()
	account, ok := l.accounts[normalizeEmail(email)]
	l.mu.Unlock()
	if err != nil {
		return model.User{}, err
	}
	if !ok {
		return model.User{}, newError("EMAIL_NOT_FOUND")
	}
	if err := bcrypt.CompareHashAndPassword(account.hash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return model.User{}, newError("INVALID_PASSWORD")
		}
		return model.User{}, errs.Wrap(err, "compare password")
	}

	user := account.user
	user.IdToken = "local-" + uuid.NewString()
	user.ExpiresAt = l.now().Add(localSessionTTL)
	l.set(&user)
	return user, nil
}

func (l *Local) SignOut(ctx context.Context) error {
	l.set(nil)
	return nil
}

// Restore always reports false: local sign-ins do not outlive the process.
func (l *Local) Restore(ctx context.Context) (model.User, bool) {
	return model.User{}, false
}
