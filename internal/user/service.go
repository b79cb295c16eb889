// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/repuestospro/backend/internal/auth"
	"github.com/repuestospro/backend/internal/core"
)

const recentPointTransactions = 20

type Service struct {
	repo       Repository
	pointValue decimal.Decimal
}

func NewService(repo Repository, pointValue decimal.Decimal) *Service {
	return &Service{repo: repo, pointValue: pointValue}
}

func (s *Service) GetByID(
	ctx context.Context,
	id string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) Create(
	ctx context.Context,
	params auth.NewUser,
) (*auth.UserInfo, error) {
	role := params.Role
	if role == "" {
		role = RoleClient
	}
	if !IsValidRole(role) {
		return nil, core.ValidationError("invalid role")
	}

	user := &User{
		ID:           uuid.New().String(),
		Email:        normalizeEmail(params.Email),
		PasswordHash: params.PasswordHash,
		Name:         strings.TrimSpace(params.Name),
		Phone:        strings.TrimSpace(params.Phone),
		Role:         role,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) IncrementTokenVersion(
	ctx context.Context,
	userID string,
) error {
	return s.repo.IncrementTokenVersion(ctx, userID)
}

func (s *Service) UpdatePassword(
	ctx context.Context,
	userID, passwordHash string,
) error {
	return s.repo.UpdatePassword(ctx, userID, passwordHash)
}

// SetTwoFactor stores the TOTP state. An empty secret clears it.
func (s *Service) SetTwoFactor(
	ctx context.Context,
	userID string,
	enabled bool,
	secret string,
) error {
	var secretPtr *string
	if secret != "" {
		secretPtr = &secret
	}
	return s.repo.SetTwoFactor(ctx, userID, enabled, secretPtr)
}

// GetRole reports the role of an active user. Other modules use it to
// check assignment targets.
func (s *Service) GetRole(ctx context.Context, id string) (string, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return user.Role, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateUser(
	ctx context.Context,
	id string,
	req UpdateUserRequest,
) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		user.Phone = strings.TrimSpace(*req.Phone)
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *Service) UpdateUserRole(
	ctx context.Context,
	requesterID, id, role string,
) (*User, error) {
	if !IsValidRole(role) {
		return nil, core.ValidationError(fmt.Sprintf("invalid role %q", role))
	}

	if requesterID == id {
		return nil, core.ValidationError("cannot change your own role")
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if user.Role == role {
		return user, nil
	}

	user.Role = role

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	// Existing access tokens carry the old role.
	if err := s.repo.IncrementTokenVersion(ctx, id); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *Service) AdjustPoints(
	ctx context.Context,
	id string,
	req AdjustPointsRequest,
) (int, error) {
	reason := req.Reason
	if reason == "" {
		reason = PointsReasonAdjustment
	}

	return s.repo.AdjustPoints(ctx, id, req.Delta, reason)
}

func (s *Service) GetPoints(
	ctx context.Context,
	userID string,
) (*PointsResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	txs, err := s.repo.ListPointTransactions(ctx, userID, recentPointTransactions)
	if err != nil {
		return nil, err
	}

	value := decimal.NewFromInt(int64(user.LoyaltyPoints)).Mul(s.pointValue)

	return &PointsResponse{
		Balance:      user.LoyaltyPoints,
		Value:        value.StringFixed(2),
		PointValue:   s.pointValue.String(),
		Transactions: txs,
	}, nil
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	return s.repo.SoftDelete(ctx, id)
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	if params.Role != "" && !IsValidRole(params.Role) {
		return nil, 0, core.ValidationError("invalid role filter")
	}
	return s.repo.List(ctx, params)
}

func (s *Service) GetMe(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	return s.repo.GetByID(ctx, userID)
}

func (s *Service) UpdateMe(
	ctx context.Context,
	userID string,
	req UpdateUserRequest,
) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("update me: %w", core.ErrUnauthorized)
	}

	return s.UpdateUser(ctx, userID, req)
}

func (s *Service) DeleteMe(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("delete me: %w", core.ErrUnauthorized)
	}

	return s.repo.SoftDelete(ctx, userID)
}

func (s *Service) EmailExists(
	ctx context.Context,
	email string,
) (bool, error) {
	return s.repo.ExistsByEmail(ctx, normalizeEmail(email))
}

// CanDeleteUser lets users delete themselves and admins delete anyone
// except other admins.
func (s *Service) CanDeleteUser(
	ctx context.Context,
	requesterID, targetID string,
) error {
	if requesterID == targetID {
		return nil
	}

	requester, err := s.repo.GetByID(ctx, requesterID)
	if err != nil {
		return err
	}

	if !requester.IsAdmin() {
		return fmt.Errorf("delete user: %w", core.ErrForbidden)
	}

	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return err
	}

	if target.IsAdmin() {
		return fmt.Errorf("cannot delete admin users: %w", core.ErrForbidden)
	}

	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toUserInfo(u *User) *auth.UserInfo {
	info := &auth.UserInfo{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.Name,
		Phone:            u.Phone,
		PasswordHash:     u.PasswordHash,
		Role:             u.Role,
		TokenVersion:     u.TokenVersion,
		TwoFactorEnabled: u.TwoFactorEnabled,
		CreatedAt:        u.CreatedAt,
	}
	if u.TwoFactorSecret != nil {
		info.TwoFactorSecret = *u.TwoFactorSecret
	}
	return info
}

var _ auth.UserProvider = (*Service)(nil)
