package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/narrinai/companion/memory"
	"github.com/narrinai/companion/store"
)

type referralResponse struct {
	Code       string `json:"code"`
	Redeemed   bool   `json:"redeemed"`
	RedeemedBy string `json:"redeemed_by,omitempty"`
	CreatedTs  int64  `json:"created_ts"`
}

func toReferralResponse(r *store.Referral) referralResponse {
	return referralResponse{
		Code:       r.Code,
		Redeemed:   r.Redeemed(),
		RedeemedBy: r.RedeemedBy,
		CreatedTs:  r.CreatedTs,
	}
}

type issueReferralRequest struct {
	UID   string `json:"uid"`
	Email string `json:"email,omitempty"`
}

// IssueReferral creates a new invite code for the calling user.
func (s *APIV1Service) IssueReferral(c echo.Context) error {
	var req issueReferralRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "uid is required")
	}

	ctx := c.Request().Context()
	ids, err := s.MemoryService.ResolveIdentity(ctx, req.UID, req.Email)
	if err != nil {
		if errors.Is(err, memory.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "unknown user")
		}
		return err
	}

	referral, err := s.ReferralService.IssueCode(ctx, ids.Refs[0])
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReferralResponse(referral))
}

type redeemReferralRequest struct {
	UID   string `json:"uid"`
	Email string `json:"email,omitempty"`
	Code  string `json:"code"`
}

// RedeemReferral redeems an invite code for the calling user.
func (s *APIV1Service) RedeemReferral(c echo.Context) error {
	var req redeemReferralRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UID == "" || req.Code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "uid and code are required")
	}

	ctx := c.Request().Context()
	ids, err := s.MemoryService.ResolveIdentity(ctx, req.UID, req.Email)
	if err != nil {
		if errors.Is(err, memory.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "unknown user")
		}
		return err
	}

	referral, err := s.ReferralService.Redeem(ctx, req.Code, ids.Refs[0])
	if err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.JSON(http.StatusOK, toReferralResponse(referral))
}
