package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"contractorvet/internal/apperr"
	"contractorvet/internal/model"
	"contractorvet/internal/service/referral"
	"contractorvet/pkg/rbac"
)

type ReferralService interface {
	Send(ctx context.Context, referrerID, email string) (*referral.SendResult, error)
	TrackSignup(ctx context.Context, refereeID, email string) (*model.Referral, error)
	TrackConversion(ctx context.Context, referralID, refereeID string) (*referral.ConversionResult, error)
}

type ReferralHandler struct {
	svc    ReferralService
	logger *zap.Logger
}

func NewReferralHandler(svc ReferralService, logger *zap.Logger) *ReferralHandler {
	return &ReferralHandler{svc: svc, logger: logger}
}

type referralRequest struct {
	Action       string `json:"action"`
	RefereeEmail string `json:"refereeEmail"`
	RefereeID    string `json:"refereeId"`
	ReferralID   string `json:"referralId"`
}

// Handle POST /functions/v1/referral-system
func (h *ReferralHandler) Handle(c *gin.Context) {
	id, err := identity(c)
	if err != nil {
		writeError(c, h.logger, "referral", err)
		return
	}

	var req referralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, "referral", bindError(err))
		return
	}

	op := "referral." + req.Action
	ctx := c.Request.Context()

	switch req.Action {
	case "send":
		if err := rbac.CheckPermission(id.UserID, id.Role, rbac.PermissionSendReferral); err != nil {
			writeError(c, h.logger, op, err)
			return
		}
		res, err := h.svc.Send(ctx, id.UserID, req.RefereeEmail)
		if err != nil {
			writeError(c, h.logger, op, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"referralId":   res.ReferralID,
			"inviteCode":   res.InviteCode,
			"expiresAt":    res.ExpiresAt,
			"rewardAmount": res.RewardAmount,
		})

	case "track_signup":
		refereeID, email := req.RefereeID, req.RefereeEmail
		if !rbac.HasPermission(id.Role, rbac.PermissionTrackAnySignup) {
			// 普通用户只能为自己上报注册
			if refereeID == "" {
				refereeID = id.UserID
			}
			if err := rbac.ValidateUserIDInPayload(id.UserID, refereeID); err != nil {
				writeError(c, h.logger, op, err)
				return
			}
			if email == "" {
				email = id.Email
			}
		}
		ref, err := h.svc.TrackSignup(ctx, refereeID, email)
		if err != nil {
			writeError(c, h.logger, op, err)
			return
		}
		resp := gin.H{"success": true, "tracked": ref != nil}
		if ref != nil {
			resp["referralId"] = ref.ID
		}
		c.JSON(http.StatusOK, resp)

	case "track_conversion":
		scope := id.UserID
		if rbac.HasPermission(id.Role, rbac.PermissionConvertAnyReferral) {
			scope = ""
		}
		res, err := h.svc.TrackConversion(ctx, req.ReferralID, scope)
		if err != nil {
			writeError(c, h.logger, op, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"referralId":   res.ReferralID,
			"rewardAmount": res.RewardAmount,
			"rewardType":   res.RewardType,
		})

	default:
		writeError(c, h.logger, "referral", apperr.Validation("unknown action "+req.Action))
	}
}
