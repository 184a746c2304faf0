// Package referral drives a referral through sent, signed_up and completed.
package referral

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"contractorvet/internal/apperr"
	"contractorvet/internal/model"
	"contractorvet/internal/repository"
	"contractorvet/internal/service/activity"
	"contractorvet/pkg/logger"
	"contractorvet/pkg/metrics"
)

type Store interface {
	HasPending(ctx context.Context, referrerID, email string) (bool, error)
	Insert(ctx context.Context, ref *model.Referral) error
	FindPendingByEmail(ctx context.Context, email string, now time.Time) (*model.Referral, error)
	MarkSignedUp(ctx context.Context, id, refereeID string, at time.Time) (*model.Referral, error)
	MarkCompleted(ctx context.Context, id, refereeID string, at time.Time) (*model.Referral, error)
}

type NotificationStore interface {
	Insert(ctx context.Context, n *model.Notification) error
}

type ActivityTracker interface {
	Track(ctx context.Context, in activity.Input) (*model.Activity, error)
}

type Reward struct {
	Amount float64
	Type   string
	Expiry time.Duration
}

type SendResult struct {
	ReferralID   string    `json:"referralId"`
	InviteCode   string    `json:"inviteCode"`
	ExpiresAt    time.Time `json:"expiresAt"`
	RewardAmount float64   `json:"rewardAmount"`
}

type ConversionResult struct {
	ReferralID   string  `json:"referralId"`
	RewardAmount float64 `json:"rewardAmount"`
	RewardType   string  `json:"rewardType"`
}

type Processor struct {
	store         Store
	notifications NotificationStore
	tracker       ActivityTracker
	reward        Reward
	validate      *validator.Validate
	now           func() time.Time
	logger        *zap.Logger
}

func NewProcessor(store Store, notifications NotificationStore, tracker ActivityTracker, reward Reward, logger *zap.Logger) *Processor {
	return &Processor{
		store:         store,
		notifications: notifications,
		tracker:       tracker,
		reward:        reward,
		validate:      validator.New(),
		now:           time.Now,
		logger:        logger,
	}
}

func (p *Processor) normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := p.validate.Var(email, "required,email"); err != nil {
		return "", apperr.Validation("a valid refereeEmail is required")
	}
	return email, nil
}

// Send 创建 sent 状态的推荐。同一 (referrer, email) 已有 sent 记录时返回 DuplicateReferral
func (p *Processor) Send(ctx context.Context, referrerID, email string) (*SendResult, error) {
	if referrerID == "" {
		return nil, apperr.Unauthorized("missing user identity")
	}
	email, err := p.normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	pending, err := p.store.HasPending(ctx, referrerID, email)
	if err != nil {
		return nil, apperr.Store("check pending referral", err)
	}
	if pending {
		return nil, apperr.DuplicateReferral()
	}

	now := p.now()
	ref := &model.Referral{
		ReferrerID:   referrerID,
		RefereeEmail: email,
		Status:       model.ReferralStatusSent,
		RewardAmount: p.reward.Amount,
		RewardType:   p.reward.Type,
		ExpiresAt:    now.Add(p.reward.Expiry),
		Metadata: model.ReferralMetadata{
			InviteCode: newInviteCode(),
			SentAt:     now,
		},
	}
	if err := p.store.Insert(ctx, ref); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.DuplicateReferral()
		}
		return nil, apperr.Store("create referral", err)
	}
	metrics.IncrementReferralTransition(string(model.ReferralStatusSent))

	p.notify(ctx, referrerID, "Referral Sent", fmt.Sprintf("Your invitation to %s is on its way", email))

	if _, err := p.tracker.Track(ctx, activity.Input{
		UserID:       referrerID,
		Action:       model.ActionReferralSent,
		ResourceType: "referral",
		ResourceID:   ref.ID,
	}); err != nil {
		logger.WithTrace(ctx, p.logger).Warn("Failed to track referral_sent",
			zap.String("referral_id", ref.ID),
			zap.Error(err),
		)
	}

	return &SendResult{
		ReferralID:   ref.ID,
		InviteCode:   ref.Metadata.InviteCode,
		ExpiresAt:    ref.ExpiresAt,
		RewardAmount: ref.RewardAmount,
	}, nil
}

// TrackSignup sent -> signed_up。没有匹配的 sent 推荐时静默返回 nil, nil，不阻塞注册
func (p *Processor) TrackSignup(ctx context.Context, refereeID, email string) (*model.Referral, error) {
	if refereeID == "" {
		return nil, apperr.Validation("refereeId is required")
	}
	email, err := p.normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	log := logger.WithTrace(ctx, p.logger).With(zap.String("referee_id", refereeID))

	now := p.now()
	pending, err := p.store.FindPendingByEmail(ctx, email, now)
	if errors.Is(err, repository.ErrNotFound) {
		log.Debug("No pending referral for signup")
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Store("find pending referral", err)
	}

	ref, err := p.store.MarkSignedUp(ctx, pending.ID, refereeID, now)
	if errors.Is(err, repository.ErrNotFound) {
		// 并发注册已经推进了这条记录
		log.Info("Referral already moved past sent", zap.String("referral_id", pending.ID))
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Store("update referral", err)
	}
	metrics.IncrementReferralTransition(string(model.ReferralStatusSignedUp))

	p.notify(ctx, ref.ReferrerID, "Referral Signed Up", fmt.Sprintf("%s just joined using your invite", ref.RefereeEmail))
	p.notify(ctx, refereeID, "Welcome!", "You joined through a friend's referral. Complete your first project to unlock their reward.")

	log.Info("Referral signed up", zap.String("referral_id", ref.ID))
	return ref, nil
}

// TrackConversion signed_up -> completed。不存在和状态不对都返回 ReferralNotFound。
// refereeID 非空时只允许该被推荐人转化自己的推荐。
func (p *Processor) TrackConversion(ctx context.Context, referralID, refereeID string) (*ConversionResult, error) {
	if _, err := uuid.Parse(referralID); err != nil {
		return nil, apperr.Validation("referralId must be a UUID")
	}

	ref, err := p.store.MarkCompleted(ctx, referralID, refereeID, p.now())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.ReferralNotFound()
	}
	if err != nil {
		return nil, apperr.Store("complete referral", err)
	}
	metrics.IncrementReferralTransition(string(model.ReferralStatusCompleted))

	// 奖励只计算，不入账
	reward := formatReward(ref.RewardAmount, ref.RewardType)
	p.notify(ctx, ref.ReferrerID, "Referral Reward Earned", fmt.Sprintf("You earned %s for referring %s", reward, ref.RefereeEmail))
	if ref.RefereeID != nil {
		p.notify(ctx, *ref.RefereeID, "Referral Complete", "Thanks for finishing your first project with us!")
	}

	logger.WithTrace(ctx, p.logger).Info("Referral converted",
		zap.String("referral_id", ref.ID),
		zap.Float64("reward_amount", ref.RewardAmount),
	)
	return &ConversionResult{
		ReferralID:   ref.ID,
		RewardAmount: ref.RewardAmount,
		RewardType:   ref.RewardType,
	}, nil
}

// notify 失败只记日志，不回滚状态变更
func (p *Processor) notify(ctx context.Context, userID, title, message string) {
	n := &model.Notification{
		UserID:   userID,
		Type:     model.NotificationTypeReferral,
		Title:    title,
		Message:  message,
		Priority: model.PriorityNormal,
	}
	if err := p.notifications.Insert(ctx, n); err != nil {
		logger.WithTrace(ctx, p.logger).Error("Failed to create referral notification",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}

func newInviteCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func formatReward(amount float64, rewardType string) string {
	if rewardType == "credit" {
		return fmt.Sprintf("$%.0f credit", amount)
	}
	return fmt.Sprintf("%.2f %s", amount, rewardType)
}
