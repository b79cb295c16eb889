// AngelaMos | 2026
// dto.go

package registration

import (
	"time"

	"github.com/repuestospro/backend/internal/core"
)

type CreateCodeRequest struct {
	Role           string `json:"role"             validate:"required,oneof=store_manager delivery admin"`
	Email          string `json:"email,omitempty"  validate:"omitempty,email,max=255"`
	ExpiresInHours int    `json:"expires_in_hours" validate:"omitempty,min=1,max=720"`
}

type CodeResponse struct {
	ID        string     `json:"id"`
	Code      string     `json:"code"`
	Role      string     `json:"role"`
	Email     string     `json:"email,omitempty"`
	Status    string     `json:"status"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedBy *string    `json:"created_by,omitempty"`
	UsedBy    *string    `json:"used_by,omitempty"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// CheckResponse is what anonymous callers learn about a code before
// registering with it.
type CheckResponse struct {
	Valid     bool       `json:"valid"`
	Role      string     `json:"role,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type ListParams struct {
	core.PageParams
	Status string
}

func ToCodeResponse(c *Code) CodeResponse {
	return CodeResponse{
		ID:        c.ID,
		Code:      c.Code,
		Role:      c.Role,
		Email:     c.Email,
		Status:    c.Status,
		ExpiresAt: c.ExpiresAt,
		CreatedBy: c.CreatedBy,
		UsedBy:    c.UsedBy,
		UsedAt:    c.UsedAt,
		CreatedAt: c.CreatedAt,
	}
}

func ToCodeResponseList(codes []Code) []CodeResponse {
	out := make([]CodeResponse, 0, len(codes))
	for i := range codes {
		out = append(out, ToCodeResponse(&codes[i]))
	}
	return out
}
