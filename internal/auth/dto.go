package auth

import "github.com/motoyard/motoyard-backend/internal/users"

// LoginRequest carries the credential pair submitted to the login endpoint.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest rotates a session. Clients must send back the access token
// issued alongside the refresh token, expired or not: its jti locates the
// server-side session the refresh token is checked against.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenPair is the response shape for login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// LoginResponse bundles the issued tokens with the authenticated account.
type LoginResponse struct {
	TokenPair
	User *users.UserDTO `json:"user"`
}
