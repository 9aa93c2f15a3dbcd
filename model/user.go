package model

import "time"

type UserType string

const (
	UserTypeCustomer UserType = "customer"
	UserTypeOwner    UserType = "owner"
)

func (t UserType) Valid() bool {
	return t == UserTypeCustomer || t == UserTypeOwner
}

type User struct {
	Uid          string    `json:"uid"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	Type         UserType  `json:"type"`
	IdToken      string    `json:"-"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

func (u User) Expired(now time.Time) bool {
	return !u.ExpiresAt.IsZero() && !now.Before(u.ExpiresAt)
}
