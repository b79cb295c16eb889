// AngelaMos | 2026
// service.go

package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/repuestospro/backend/internal/auth"
	"github.com/repuestospro/backend/internal/core"
)

const createAttempts = 3

var errCodeUnusable = core.ValidationError("registration code is invalid, expired or already used")

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Create issues a new code. createdBy is empty for codes minted from the
// ops CLI.
func (s *Service) Create(
	ctx context.Context,
	createdBy string,
	req CreateCodeRequest,
) (*Code, error) {
	hours := req.ExpiresInHours
	if hours == 0 {
		hours = defaultExpiresHours
	}
	if hours < 1 || hours > maxExpiresHours {
		return nil, core.ValidationError(
			fmt.Sprintf("expires_in_hours must be between 1 and %d", maxExpiresHours))
	}

	code := &Code{
		ID:        uuid.New().String(),
		Role:      req.Role,
		Email:     normalizeEmail(req.Email),
		ExpiresAt: s.now().Add(time.Duration(hours) * time.Hour),
	}
	if createdBy != "" {
		code.CreatedBy = &createdBy
	}

	for range createAttempts {
		value, err := core.GenerateCode(codeLength)
		if err != nil {
			return nil, err
		}
		code.Code = value

		err = s.repo.Create(ctx, code)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, core.ErrDuplicateKey) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("create registration code: %w", core.ErrConflict)
}

func (s *Service) List(ctx context.Context, params ListParams) ([]Code, int, error) {
	if params.Status != "" && !IsValidStatus(params.Status) {
		return nil, 0, core.ValidationError("invalid status filter")
	}
	return s.repo.List(ctx, params)
}

// Revoke cancels a pending code. Used, expired or revoked codes are left
// untouched and reported as a conflict.
func (s *Service) Revoke(ctx context.Context, id string) error {
	err := s.repo.Revoke(ctx, id)
	if !errors.Is(err, core.ErrNotFound) {
		return err
	}

	if _, getErr := s.repo.GetByID(ctx, id); getErr != nil {
		return getErr
	}
	return core.ConflictError("only pending registration codes can be revoked")
}

// Check tells an anonymous caller whether a code can still be used.
func (s *Service) Check(ctx context.Context, value string) (*CheckResponse, error) {
	code, err := s.repo.GetByCode(ctx, normalizeCode(value))
	if errors.Is(err, core.ErrNotFound) {
		return &CheckResponse{Valid: false}, nil
	}
	if err != nil {
		return nil, err
	}

	if !code.IsUsable(s.now()) {
		return &CheckResponse{Valid: false}, nil
	}

	return &CheckResponse{
		Valid:     true,
		Role:      code.Role,
		ExpiresAt: &code.ExpiresAt,
	}, nil
}

// Redeem claims the code for a signup in progress.
func (s *Service) Redeem(
	ctx context.Context,
	value, email string,
) (*auth.RedeemedCode, error) {
	code, err := s.repo.Consume(ctx, normalizeCode(value), normalizeEmail(email))
	if errors.Is(err, core.ErrNotFound) {
		return nil, errCodeUnusable
	}
	if err != nil {
		return nil, err
	}

	return &auth.RedeemedCode{ID: code.ID, Role: code.Role}, nil
}

func (s *Service) AttachUser(ctx context.Context, codeID, userID string) error {
	return s.repo.AttachUser(ctx, codeID, userID)
}

func (s *Service) Release(ctx context.Context, codeID string) error {
	return s.repo.Release(ctx, codeID)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
