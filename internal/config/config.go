package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"contractorvet/pkg/config"
)

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigin string `yaml:"allow_origin"`
}

// DashboardConfig dashboard 聚合参数
type DashboardConfig struct {
	MetricsWindowDays int `yaml:"metrics_window_days"`
	ActivityLimit     int `yaml:"activity_limit"`
}

// ReferralConfig 推荐奖励参数
type ReferralConfig struct {
	RewardAmount float64 `yaml:"reward_amount"`
	RewardType   string  `yaml:"reward_type"`
	ExpiryDays   int     `yaml:"expiry_days"`
}

func (c ReferralConfig) Expiry() time.Duration {
	return time.Duration(c.ExpiryDays) * 24 * time.Hour
}

// WorkerConfig 副作用消费者参数
type WorkerConfig struct {
	Queue    string `yaml:"queue"`
	DedupTTL string `yaml:"dedup_ttl"`
	// Inline 为 true 时不走 MQ，副作用直接在 API 进程内异步执行
	Inline bool `yaml:"inline"`
}

func (c WorkerConfig) DedupTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.DedupTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

type Config struct {
	Server    config.ServerConfig `yaml:"server"`
	DB        config.DBConfig     `yaml:"db"`
	Redis     config.RedisConfig  `yaml:"redis"`
	MQ        config.MQConfig     `yaml:"mq"`
	JWT       config.JWTConfig    `yaml:"jwt"`
	Log       config.LogConfig    `yaml:"log"`
	Otel      config.OtelConfig   `yaml:"otel"`
	CORS      CORSConfig          `yaml:"cors"`
	Dashboard DashboardConfig     `yaml:"dashboard"`
	Referral  ReferralConfig      `yaml:"referral"`
	Worker    WorkerConfig        `yaml:"worker"`
}

// Load 读取 config 目录下的 base.yaml / <env>.yaml / secrets.env，再用环境变量覆盖
func Load(env, dir string) (*Config, error) {
	raw, err := config.LoadConfig(env, dir)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := config.Decode(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// 环境变量覆盖
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideLogFromEnv(&cfg.Log)
	if origin := os.Getenv("CORS_ALLOW_ORIGIN"); origin != "" {
		cfg.CORS.AllowOrigin = origin
	}

	cfg.applyDefaults()
	return &cfg, cfg.validate()
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.CORS.AllowOrigin == "" {
		c.CORS.AllowOrigin = "*"
	}
	if c.Dashboard.MetricsWindowDays <= 0 {
		c.Dashboard.MetricsWindowDays = 30
	}
	if c.Dashboard.ActivityLimit <= 0 {
		c.Dashboard.ActivityLimit = 20
	}
	if c.Referral.RewardAmount <= 0 {
		c.Referral.RewardAmount = 25
	}
	if c.Referral.RewardType == "" {
		c.Referral.RewardType = "credit"
	}
	if c.Referral.ExpiryDays <= 0 {
		c.Referral.ExpiryDays = 30
	}
	if c.Worker.Queue == "" {
		c.Worker.Queue = "activity.recorded.q"
	}
}

func (c *Config) validate() error {
	var missing []string
	if c.JWT.Secret == "" {
		missing = append(missing, "jwt.secret")
	}
	if c.DB.Host == "" {
		missing = append(missing, "db.host")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	return nil
}
