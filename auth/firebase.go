package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"bookkar-cli/errs"
	"bookkar-cli/model"
	"bookkar-cli/store"
)

const (
	defaultFirebaseBaseURL = "https://identitytoolkit.googleapis.com/v1"
	defaultSecureTokenURL  = "https://securetoken.googleapis.com/v1/token"
	defaultAuthTimeout     = 12 * time.Second
)

// Firebase authenticates against the Firebase Identity Toolkit REST API.
type Firebase struct {
	hub

	apiKey     string
	baseURL    string
	tokenURL   string
	httpClient *http.Client
	timeout    time.Duration
	sessions   SessionStore
	logger     *zap.Logger
	now        func() time.Time
}

type FirebaseOption func(*Firebase)

func WithFirebaseBaseURL(baseURL string) FirebaseOption {
	return func(f *Firebase) {
		if u := strings.TrimRight(strings.TrimSpace(baseURL), "/"); u != "" {
			f.baseURL = u
		}
	}
}

// WithSecureTokenURL overrides the endpoint refresh tokens are exchanged at.
func WithSecureTokenURL(tokenURL string) FirebaseOption {
	return func(f *Firebase) {
		if u := strings.TrimSpace(tokenURL); u != "" {
			f.tokenURL = u
		}
	}
}

func WithHTTPClient(client *http.Client) FirebaseOption {
	return func(f *Firebase) {
		if client != nil {
			f.httpClient = client
		}
	}
}

func WithRequestTimeout(d time.Duration) FirebaseOption {
	return func(f *Firebase) {
		if d > 0 {
			f.timeout = d
		}
	}
}

func WithSessions(sessions SessionStore) FirebaseOption {
	return func(f *Firebase) {
		f.sessions = sessions
	}
}

func WithAuthLogger(logger *zap.Logger) FirebaseOption {
	return func(f *Firebase) {
		if logger != nil {
			f.logger = logger
		}
	}
}

func NewFirebase(apiKey string, opts ...FirebaseOption) *Firebase {
	f := &Firebase{
		apiKey:     apiKey,
		baseURL:    defaultFirebaseBaseURL,
		tokenURL:   defaultSecureTokenURL,
		httpClient: &http.Client{},
		timeout:    defaultAuthTimeout,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type tokenResponse struct {
	LocalId      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	IdToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type refreshResponse struct {
	IdToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserId       string `json:"user_id"`
}

// idTokenClaims are the Firebase ID token claims read by the client.
type idTokenClaims struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

func (f *Firebase) SignIn(ctx context.Context, email, password string) (model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return model.User{}, errs.Validation("Please fill in both fields")
	}

	var resp tokenResponse
	body := map[string]any{"email": email, "password": password, "returnSecureToken": true}
	if err := f.call(ctx, "accounts:signInWithPassword", body, &resp); err != nil {
		return model.User{}, err
	}

	user := f.userFromToken(resp)
	f.persist(user)
	f.set(&user)
	f.logger.Info("signed in", zap.String("uid", user.Uid))
	return user, nil
}

func (f *Firebase) SignUp(ctx context.Context, req SignUpRequest) (model.User, error) {
	if err := req.Validate(); err != nil {
		return model.User{}, err
	}

	var resp tokenResponse
	body := map[string]any{"email": strings.TrimSpace(req.Email), "password": req.Password, "returnSecureToken": true}
	if err := f.call(ctx, "accounts:signUp", body, &resp); err != nil {
		return model.User{}, err
	}

	if name := strings.TrimSpace(req.FullName); name != "" {
		update := map[string]any{"idToken": resp.IdToken, "displayName": name, "returnSecureToken": true}
		var updated tokenResponse
		if err := f.call(ctx, "accounts:update", update, &updated); err != nil {
			f.logger.Warn("set display name", zap.Error(err))
		} else if updated.IdToken != "" {
			resp.IdToken = updated.IdToken
			resp.RefreshToken = updated.RefreshToken
			resp.ExpiresIn = updated.ExpiresIn
		}
		resp.DisplayName = name
	}

	user := f.userFromToken(resp)
	user.Type = req.UserType
	f.logger.Info("signed up", zap.String("uid", user.Uid), zap.String("user_type", string(user.Type)))
	return user, nil
}

func (f *Firebase) SignOut(ctx context.Context) error {
	if f.sessions != nil {
		if err := f.sessions.Clear(); err != nil {
			f.logger.Warn("clear session", zap.Error(err))
		}
	}
	f.set(nil)
	return nil
}

func (f *Firebase) Restore(ctx context.Context) (model.User, bool) {
	if f.sessions == nil {
		return model.User{}, false
	}
	session, ok, err := f.sessions.Load()
	if err != nil {
		f.logger.Warn("load session", zap.Error(err))
		return model.User{}, false
	}
	if !ok {
		return model.User{}, false
	}
	user := session.User()
	if user.IdToken == "" || user.Expired(f.now()) {
		refreshed, err := f.refresh(ctx, user)
		if err != nil {
			f.logger.Info("session expired", zap.String("uid", user.Uid), zap.Error(err))
			_ = f.sessions.Clear()
			return model.User{}, false
		}
		user = refreshed
		f.persist(user)
	}
	f.set(&user)
	return user, true
}

// refresh exchanges the stored refresh token for a new ID token.
func (f *Firebase) refresh(ctx context.Context, user model.User) (model.User, error) {
	if user.RefreshToken == "" {
		return model.User{}, newError("TOKEN_EXPIRED")
	}
	var resp refreshResponse
	form := url.Values{"grant_type": {"refresh_token"}, "refresh_token": {user.RefreshToken}}
	endpoint := fmt.Sprintf("%s?key=%s", f.tokenURL, url.QueryEscape(f.apiKey))
	if err := f.post(ctx, endpoint, "token", "application/x-www-form-urlencoded", []byte(form.Encode()), &resp); err != nil {
		return model.User{}, err
	}
	if resp.IdToken == "" {
		return model.User{}, newError("INVALID_ID_TOKEN")
	}

	next := f.userFromToken(tokenResponse{
		LocalId:      resp.UserId,
		Email:        user.Email,
		DisplayName:  user.FullName,
		IdToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
	})
	if next.Uid == "" {
		next.Uid = user.Uid
	}
	if next.RefreshToken == "" {
		next.RefreshToken = user.RefreshToken
	}
	next.Type = user.Type
	return next, nil
}

func (f *Firebase) persist(user model.User) {
	if f.sessions == nil {
		return
	}
	if err := f.sessions.Save(store.SessionFromUser(user)); err != nil {
		f.logger.Warn("save session", zap.Error(err))
	}
}

// userFromToken prefers the ID token claims and falls back to the response fields.
func (f *Firebase) userFromToken(resp tokenResponse) model.User {
	user := model.User{
		Uid:          resp.LocalId,
		Email:        resp.Email,
		FullName:     resp.DisplayName,
		IdToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
	}
	if seconds := cast.ToInt(resp.ExpiresIn); seconds > 0 {
		user.ExpiresAt = f.now().Add(time.Duration(seconds) * time.Second)
	}

	claims := &idTokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(resp.IdToken, claims); err != nil {
		f.logger.Debug("id token claims unavailable", zap.Error(err))
		return user
	}
	if claims.Subject != "" {
		user.Uid = claims.Subject
	} else if claims.UserID != "" {
		user.Uid = claims.UserID
	}
	if user.Email == "" {
		user.Email = claims.Email
	}
	if user.FullName == "" {
		user.FullName = claims.Name
	}
	if claims.ExpiresAt != nil {
		user.ExpiresAt = claims.ExpiresAt.Time
	}
	return user
}

type firebaseErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (f *Firebase) call(ctx context.Context, method string, in any, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/%s?key=%s", f.baseURL, method, url.QueryEscape(f.apiKey))
	return f.post(ctx, endpoint, method, "application/json", payload, out)
}

func (f *Firebase) post(ctx context.Context, endpoint, method, contentType string, payload []byte, out any) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	res, err := f.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return errs.Network(err, "request timed out")
		}
		return errs.Network(err, "request failed")
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return errs.Network(err, "read response")
	}

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		var fbErr firebaseErrorBody
		if err := json.Unmarshal(body, &fbErr); err == nil && fbErr.Error.Message != "" {
			return newError(errorCode(fbErr.Error.Message))
		}
		return errs.Network(fmt.Errorf("identity toolkit: %s", res.Status), "request failed")
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errs.Network(fmt.Errorf("decode %s response: %w", method, err), "unexpected response")
	}
	return nil
}

// errorCode strips the detail Firebase appends after the code, as in
// "WEAK_PASSWORD : Password should be at least 6 characters".
func errorCode(message string) string {
	code, _, _ := strings.Cut(message, ":")
	return strings.TrimSpace(code)
}
