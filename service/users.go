package service

import (
	"context"
	"net/http"
	"strings"

	"bookkar-cli/errs"
	"bookkar-cli/model"
)

// NewUser is the payload of POST /users, sent after a successful sign-up.
type NewUser struct {
	UserId   string         `json:"user_id"`
	FullName string         `json:"full_name"`
	Email    string         `json:"email"`
	UserType model.UserType `json:"user_type"`
}

type UserDetails struct {
	UserId   string         `json:"user_id"`
	FullName string         `json:"full_name"`
	Email    string         `json:"email"`
	UserType model.UserType `json:"user_type"`
}

// CreateUser registers the profile of a freshly signed-up account.
func (c *Client) CreateUser(ctx context.Context, user NewUser) (UserDetails, error) {
	if strings.TrimSpace(user.UserId) == "" {
		return UserDetails{}, errs.Validation("user id is required")
	}
	if !user.UserType.Valid() {
		return UserDetails{}, errs.Validation("user type must be customer or owner")
	}

	var resp struct {
		UserDetails
		Data *UserDetails `json:"data"`
	}
	if err := c.sendJSON(ctx, http.MethodPost, c.endpoint("/users"), user, &resp); err != nil {
		return UserDetails{}, err
	}
	details := resp.UserDetails
	if resp.Data != nil {
		details = *resp.Data
	}
	if details.UserId == "" {
		details = UserDetails(user)
	}
	return details, nil
}

// GetUserDetails resolves the profile, and with it the user type, of a signed-in account.
func (c *Client) GetUserDetails(ctx context.Context, userID string) (UserDetails, error) {
	if strings.TrimSpace(userID) == "" {
		return UserDetails{}, errs.Validation("user id is required")
	}

	var resp struct {
		UserDetails
		Data *UserDetails `json:"data"`
	}
	body := map[string]string{"user_id": userID}
	if err := c.sendJSON(ctx, http.MethodPost, c.endpoint("/get-user-details"), body, &resp); err != nil {
		return UserDetails{}, err
	}
	details := resp.UserDetails
	if resp.Data != nil {
		details = *resp.Data
	}
	if details.UserId == "" {
		details.UserId = userID
	}
	return details, nil
}
