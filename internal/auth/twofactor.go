// AngelaMos | 2026
// twofactor.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pquerna/otp/totp"

	"github.com/repuestospro/backend/internal/core"
)

const tempTokenBytes = 32

var (
	errTwoFactorExpired = core.NewAppError(
		core.ErrUnauthorized,
		"two-factor session expired, please log in again",
		http.StatusUnauthorized,
		"TWO_FACTOR_EXPIRED",
	)
	errInvalidTwoFactorCode = core.NewAppError(
		core.ErrUnauthorized,
		"invalid two-factor code",
		http.StatusUnauthorized,
		"INVALID_TWO_FACTOR_CODE",
	)
)

func (s *Service) startTwoFactorChallenge(
	ctx context.Context,
	userID string,
) (*LoginResponse, error) {
	tempToken, err := core.GenerateSecureToken(tempTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate temp token: %w", err)
	}

	if err := s.tokens.SaveChallenge(ctx, tempToken, userID, s.twoFactor.ChallengeTTL); err != nil {
		return nil, err
	}

	return &LoginResponse{
		RequiresTwoFactor: true,
		TempToken:         tempToken,
		ExpiresIn:         int(s.twoFactor.ChallengeTTL / time.Second),
	}, nil
}

// VerifyTwoFactorLogin completes a login started with a 2FA challenge. Each
// call reserves an attempt before any code is checked, so concurrent guesses
// share the MaxAttempts budget. The challenge is destroyed on success or once
// the budget is spent.
func (s *Service) VerifyTwoFactorLogin(
	ctx context.Context,
	req TwoFactorVerifyRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	challenge, err := s.tokens.ReserveChallengeAttempt(ctx, req.TempToken)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, errTwoFactorExpired
		}
		return nil, err
	}

	if challenge.Attempts > s.twoFactor.MaxAttempts {
		//nolint:errcheck // challenge is unusable either way
		_ = s.tokens.DeleteChallenge(ctx, req.TempToken)
		return nil, errTwoFactorExpired
	}

	user, err := s.userProvider.GetByID(ctx, challenge.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, errTwoFactorExpired
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	ok, err := s.verifySecondFactor(ctx, user, req.Code)
	if err != nil {
		return nil, err
	}

	if !ok {
		if challenge.Attempts >= s.twoFactor.MaxAttempts {
			//nolint:errcheck // best-effort cleanup, attempts already exhausted
			_ = s.tokens.DeleteChallenge(ctx, req.TempToken)
		}
		return nil, errInvalidTwoFactorCode
	}

	if err := s.tokens.DeleteChallenge(ctx, req.TempToken); err != nil {
		return nil, err
	}

	return s.createAuthResponse(ctx, user, userAgent, ipAddress, "", nil)
}

func (s *Service) TwoFactorStatus(
	ctx context.Context,
	userID string,
) (*TwoFactorStatusResponse, error) {
	user, err := s.userProvider.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := &TwoFactorStatusResponse{
		Enabled: user.TwoFactorEnabled,
		Pending: !user.TwoFactorEnabled && user.TwoFactorSecret != "",
	}

	if user.TwoFactorEnabled {
		remaining, err := s.repo.CountUnusedBackupCodes(ctx, userID)
		if err != nil {
			return nil, err
		}
		resp.BackupCodesRemaining = remaining
	}

	return resp, nil
}

// SetupTwoFactor stores a fresh secret that only becomes active after
// EnableTwoFactor confirms a code generated from it.
func (s *Service) SetupTwoFactor(
	ctx context.Context,
	userID string,
) (*TwoFactorSetupResponse, error) {
	user, err := s.userProvider.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.TwoFactorEnabled {
		return nil, core.ConflictError("two-factor authentication is already enabled")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.twoFactor.Issuer,
		AccountName: user.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp secret: %w", err)
	}

	if err := s.userProvider.SetTwoFactor(ctx, userID, false, key.Secret()); err != nil {
		return nil, err
	}

	return &TwoFactorSetupResponse{
		Secret:     key.Secret(),
		OTPAuthURL: key.URL(),
	}, nil
}

func (s *Service) EnableTwoFactor(
	ctx context.Context,
	userID, code string,
) (*BackupCodesResponse, error) {
	user, err := s.userProvider.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.TwoFactorEnabled {
		return nil, core.ConflictError("two-factor authentication is already enabled")
	}

	if user.TwoFactorSecret == "" {
		return nil, core.ValidationError("two-factor setup has not been started")
	}

	if !isTOTPCode(code) || !totp.Validate(code, user.TwoFactorSecret) {
		return nil, core.ValidationError("invalid verification code")
	}

	if err := s.userProvider.SetTwoFactor(ctx, userID, true, user.TwoFactorSecret); err != nil {
		return nil, err
	}

	return s.issueBackupCodes(ctx, userID)
}

func (s *Service) DisableTwoFactor(
	ctx context.Context,
	userID, password, code string,
) error {
	user, err := s.userProvider.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if !user.TwoFactorEnabled {
		return core.ValidationError("two-factor authentication is not enabled")
	}

	valid, err := core.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return ErrInvalidCredentials
	}

	ok, err := s.verifySecondFactor(ctx, user, code)
	if err != nil {
		return err
	}
	if !ok {
		return errInvalidTwoFactorCode
	}

	if err := s.userProvider.SetTwoFactor(ctx, userID, false, ""); err != nil {
		return err
	}

	return s.repo.DeleteBackupCodes(ctx, userID)
}

func (s *Service) RegenerateBackupCodes(
	ctx context.Context,
	userID, code string,
) (*BackupCodesResponse, error) {
	user, err := s.userProvider.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !user.TwoFactorEnabled {
		return nil, core.ValidationError("two-factor authentication is not enabled")
	}

	if !isTOTPCode(code) || !totp.Validate(code, user.TwoFactorSecret) {
		return nil, core.ValidationError("invalid verification code")
	}

	return s.issueBackupCodes(ctx, userID)
}

func (s *Service) issueBackupCodes(
	ctx context.Context,
	userID string,
) (*BackupCodesResponse, error) {
	count := s.twoFactor.BackupCodeCount
	codes := make([]string, 0, count)
	hashes := make([]string, 0, count)

	for range count {
		code, err := core.GenerateBackupCode()
		if err != nil {
			return nil, fmt.Errorf("generate backup code: %w", err)
		}
		hash, err := core.HashBackupCode(code)
		if err != nil {
			return nil, fmt.Errorf("hash backup code: %w", err)
		}
		codes = append(codes, code)
		hashes = append(hashes, hash)
	}

	if err := s.repo.ReplaceBackupCodes(ctx, userID, hashes); err != nil {
		return nil, err
	}

	return &BackupCodesResponse{BackupCodes: codes}, nil
}

// verifySecondFactor accepts a current TOTP code or an unused backup code.
// A matching backup code is consumed.
func (s *Service) verifySecondFactor(
	ctx context.Context,
	user *UserInfo,
	code string,
) (bool, error) {
	if isTOTPCode(code) {
		return totp.Validate(code, user.TwoFactorSecret), nil
	}

	backupCodes, err := s.repo.ListUnusedBackupCodes(ctx, user.ID)
	if err != nil {
		return false, err
	}

	for _, bc := range backupCodes {
		if !core.VerifyBackupCode(code, bc.CodeHash) {
			continue
		}

		err := s.repo.MarkBackupCodeUsed(ctx, bc.ID)
		if errors.Is(err, core.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return true, nil
	}

	return false, nil
}

func isTOTPCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
