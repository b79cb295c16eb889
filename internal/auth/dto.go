// AngelaMos | 2026
// dto.go

package auth

import (
	"time"
)

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type RegisterRequest struct {
	Email            string `json:"email"                       validate:"required,email,max=255"`
	Password         string `json:"password"                    validate:"required,min=8,max=128"`
	Name             string `json:"name"                        validate:"required,min=1,max=100"`
	Phone            string `json:"phone,omitempty"             validate:"omitempty,max=32"`
	RegistrationCode string `json:"registration_code,omitempty" validate:"omitempty,min=6,max=32"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type UserResponse struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	Phone            string    `json:"phone"`
	Role             string    `json:"role"`
	TwoFactorEnabled bool      `json:"two_factor_enabled"`
	CreatedAt        time.Time `json:"created_at"`
}

type AuthResponse struct {
	User   UserResponse  `json:"user"`
	Tokens TokenResponse `json:"tokens"`
}

// LoginResponse carries either a session or a pending 2FA challenge.
type LoginResponse struct {
	RequiresTwoFactor bool           `json:"requires_two_factor"`
	TempToken         string         `json:"temp_token,omitempty"`
	ExpiresIn         int            `json:"expires_in,omitempty"`
	User              *UserResponse  `json:"user,omitempty"`
	Tokens            *TokenResponse `json:"tokens,omitempty"`
}

type TwoFactorVerifyRequest struct {
	TempToken string `json:"temp_token" validate:"required"`
	Code      string `json:"code"       validate:"required,min=6,max=16"`
}

type TwoFactorCodeRequest struct {
	Code string `json:"code" validate:"required,min=6,max=16"`
}

type TwoFactorDisableRequest struct {
	Password string `json:"password" validate:"required"`
	Code     string `json:"code"     validate:"required,min=6,max=16"`
}

type TwoFactorStatusResponse struct {
	Enabled              bool `json:"enabled"`
	Pending              bool `json:"pending"`
	BackupCodesRemaining int  `json:"backup_codes_remaining"`
}

type TwoFactorSetupResponse struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauth_url"`
}

type BackupCodesResponse struct {
	BackupCodes []string `json:"backup_codes"`
}

type SessionInfo struct {
	ID        string    `json:"id"`
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type SessionsResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=8,max=128"`
}
