// Package app holds the startup plumbing shared by the binaries under cmd/.
package app

import (
	"fmt"

	"contractorvet/internal/config"
	pkgconfig "contractorvet/pkg/config"
)

// Version 由 -ldflags "-X contractorvet/internal/app.Version=..." 注入
var Version = "dev"

// LoadConfig 读取 CONFIG_ENV 指定环境的配置；目录默认 ./config，可用 CONFIG_DIR 覆盖
func LoadConfig() (*config.Config, error) {
	env := pkgconfig.GetConfigEnv()
	dir := pkgconfig.GetEnv("CONFIG_DIR", "config")

	cfg, err := config.Load(env, dir)
	if err != nil {
		return nil, fmt.Errorf("load config (env=%s): %w", env, err)
	}
	return cfg, nil
}
