package model

import "time"

type ReferralStatus string

const (
	ReferralStatusSent      ReferralStatus = "sent"
	ReferralStatusSignedUp  ReferralStatus = "signed_up"
	ReferralStatusCompleted ReferralStatus = "completed"
)

type ReferralMetadata struct {
	InviteCode  string     `json:"invite_code"`
	SentAt      time.Time  `json:"sent_at"`
	SignedUpAt  *time.Time `json:"signed_up_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type Referral struct {
	ID             string           `json:"id"`
	ReferrerID     string           `json:"referrer_id"`
	RefereeEmail   string           `json:"referee_email"`
	RefereeID      *string          `json:"referee_id"`
	Status         ReferralStatus   `json:"status"`
	RewardAmount   float64          `json:"reward_amount"`
	RewardType     string           `json:"reward_type"`
	ConversionDate *time.Time       `json:"conversion_date"`
	ExpiresAt      time.Time        `json:"expires_at"`
	Metadata       ReferralMetadata `json:"metadata"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}
