package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bookkar-cli/model"
)

const (
	appDir          = "bookkar"
	maxRecentVenues = 8
)

type cacheEnvelope[T any] struct {
	UpdatedAt time.Time `json:"updated_at"`
	Data      T         `json:"data"`
}

// Session is the persisted sign-in state of the last user.
type Session struct {
	Uid          string         `json:"uid"`
	Email        string         `json:"email"`
	FullName     string         `json:"full_name"`
	Type         model.UserType `json:"user_type"`
	IdToken      string         `json:"id_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresAt    time.Time      `json:"expires_at"`
}

func SessionFromUser(u model.User) Session {
	return Session{
		Uid:          u.Uid,
		Email:        u.Email,
		FullName:     u.FullName,
		Type:         u.Type,
		IdToken:      u.IdToken,
		RefreshToken: u.RefreshToken,
		ExpiresAt:    u.ExpiresAt,
	}
}

func (s Session) User() model.User {
	return model.User{
		Uid:          s.Uid,
		Email:        s.Email,
		FullName:     s.FullName,
		Type:         s.Type,
		IdToken:      s.IdToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt,
	}
}

type RecentVenue struct {
	VenueID string `json:"venue_id"`
	Name    string `json:"name"`
}

type venueHistory struct {
	Venues []RecentVenue `json:"venues"`
}

// LoadVenueCache returns the cached catalog and whether it is younger than ttl.
func LoadVenueCache(ttl time.Duration) ([]model.Venue, bool, error) {
	path, err := cachePath("venues.json")
	if err != nil {
		return nil, false, err
	}
	cache, err := loadCache[[]model.Venue](path)
	if err != nil {
		return nil, false, err
	}
	return cache.Data, freshCache(cache.UpdatedAt, ttl), nil
}

func SaveVenueCache(venues []model.Venue) error {
	path, err := cachePath("venues.json")
	if err != nil {
		return err
	}
	return saveCache(path, venues)
}

func LoadOwnerVenueCache(ownerID string, ttl time.Duration) ([]model.Venue, bool, error) {
	path, err := cachePath(fmt.Sprintf("venues_%s.json", safeName(ownerID)))
	if err != nil {
		return nil, false, err
	}
	cache, err := loadCache[[]model.Venue](path)
	if err != nil {
		return nil, false, err
	}
	return cache.Data, freshCache(cache.UpdatedAt, ttl), nil
}

func SaveOwnerVenueCache(ownerID string, venues []model.Venue) error {
	path, err := cachePath(fmt.Sprintf("venues_%s.json", safeName(ownerID)))
	if err != nil {
		return err
	}
	return saveCache(path, venues)
}

// ClearVenueCache drops the catalog cache so the next load hits the API.
func ClearVenueCache() error {
	path, err := cachePath("venues.json")
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// LoadSession returns the persisted session, if any.
func LoadSession() (Session, bool, error) {
	path, err := configPath("session.json")
	if err != nil {
		return Session{}, false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Session{}, false, nil
		}
		return Session{}, false, err
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return Session{}, false, errors.New("invalid session format")
	}
	if session.Uid == "" {
		return Session{}, false, nil
	}
	return session, true, nil
}

func SaveSession(session Session) error {
	if strings.TrimSpace(session.Uid) == "" {
		return errors.New("session uid is required")
	}
	path, err := configPath("session.json")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func ClearSession() error {
	path, err := configPath("session.json")
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Account is a locally registered user. PasswordHash is a bcrypt hash.
type Account struct {
	Uid          string         `json:"uid"`
	Email        string         `json:"email"`
	FullName     string         `json:"full_name"`
	Type         model.UserType `json:"user_type"`
	PasswordHash string         `json:"password_hash"`
}

type accountBook struct {
	Accounts []Account `json:"accounts"`
}

func LoadAccounts() ([]Account, error) {
	path, err := configPath("accounts.json")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var book accountBook
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, errors.New("invalid accounts format")
	}
	return book.Accounts, nil
}

// SaveAccounts replaces the stored accounts. The file is readable by the user only.
func SaveAccounts(accounts []Account) error {
	path, err := configPath("accounts.json")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(accountBook{Accounts: accounts}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func LoadRecentVenues() ([]RecentVenue, error) {
	path, err := configPath("recent_venues.json")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var history venueHistory
	if err := json.Unmarshal(data, &history); err == nil {
		return history.Venues, nil
	}
	return nil, errors.New("invalid venue history format")
}

// RememberVenue moves venue to the front of the recently viewed list.
func RememberVenue(venue model.Venue) error {
	if strings.TrimSpace(venue.Id) == "" {
		return errors.New("venue id is required")
	}
	history, _ := LoadRecentVenues()
	next := []RecentVenue{{VenueID: venue.Id, Name: venue.Name}}

	for _, existing := range history {
		if existing.VenueID == venue.Id {
			continue
		}
		next = append(next, existing)
		if len(next) >= maxRecentVenues {
			break
		}
	}

	return saveRecentVenues(next)
}

func loadCache[T any](path string) (cacheEnvelope[T], error) {
	var cache cacheEnvelope[T]
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cache, nil
		}
		return cache, err
	}
	if err := json.Unmarshal(data, &cache); err != nil {
		return cache, err
	}
	return cache, nil
}

func saveCache[T any](path string, data T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	cache := cacheEnvelope[T]{
		UpdatedAt: time.Now(),
		Data:      data,
	}
	payload, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

func freshCache(updatedAt time.Time, ttl time.Duration) bool {
	if updatedAt.IsZero() || ttl <= 0 {
		return false
	}
	return time.Since(updatedAt) <= ttl
}

func saveRecentVenues(venues []RecentVenue) error {
	path, err := configPath("recent_venues.json")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	history := venueHistory{Venues: venues}
	payload, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

func configPath(name string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appDir, name), nil
}

func cachePath(name string) (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appDir, name), nil
}

func safeName(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}
