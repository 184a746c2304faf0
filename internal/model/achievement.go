package model

import "time"

// 成就目录中的名称，由迁移写入
const (
	AchievementFirstProject     = "First Project"
	AchievementFirstReview      = "First Review"
	AchievementProjectFinisher  = "Project Finisher"
	AchievementReferralChampion = "Referral Champion"
)

type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Points      int    `json:"points"`
	Icon        string `json:"icon"`
}

type UserAchievement struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	AchievementID string    `json:"achievement_id"`
	EarnedAt      time.Time `json:"earned_at"`
}

// EarnedAchievement 是 user_achievements 与目录 join 后的结果
type EarnedAchievement struct {
	UserAchievement
	Achievement Achievement `json:"achievement"`
}
