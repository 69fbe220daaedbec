package config

import (
	"fmt"

	pkgconfig "nesto/pkg/config"
)

// Config is the configuration shared by all nesto processes. Each
// process reads the sections it needs.
type Config struct {
	LogLevel  string                 `yaml:"log_level"`
	LogFormat string                 `yaml:"log_format"` // json (default) or console
	DB        pkgconfig.DBConfig     `yaml:"db"`
	MQ        pkgconfig.MQConfig     `yaml:"mq"`
	Redis     pkgconfig.RedisConfig  `yaml:"redis"`
	JWT       pkgconfig.JWTConfig    `yaml:"jwt"`
	Server    pkgconfig.ServerConfig `yaml:"server"`
	SMTP      pkgconfig.SMTPConfig   `yaml:"smtp"`
	Digest    pkgconfig.DigestConfig `yaml:"digest"`
}

// Load reads CONFIG_DIR (default "config") for CONFIG_ENV, applies the
// environment overrides and validates the digest section.
func Load() (*Config, error) {
	env := pkgconfig.GetConfigEnv()
	dir := pkgconfig.GetEnv("CONFIG_DIR", "config")

	cfgMap, err := pkgconfig.LoadConfig(env, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg := Config{Digest: pkgconfig.DefaultDigestConfig()}
	if err := pkgconfig.Decode(cfgMap, &cfg); err != nil {
		return nil, err
	}

	pkgconfig.OverrideDBFromEnv(&cfg.DB)
	pkgconfig.OverrideMQFromEnv(&cfg.MQ)
	pkgconfig.OverrideRedisFromEnv(&cfg.Redis)
	pkgconfig.OverrideJWTFromEnv(&cfg.JWT)
	pkgconfig.OverrideServerFromEnv(&cfg.Server)
	pkgconfig.OverrideSMTPFromEnv(&cfg.SMTP)
	pkgconfig.OverrideDigestFromEnv(&cfg.Digest)
	if lvl := pkgconfig.GetEnv("LOG_LEVEL", ""); lvl != "" {
		cfg.LogLevel = lvl
	}
	if format := pkgconfig.GetEnv("LOG_FORMAT", ""); format != "" {
		cfg.LogFormat = format
	}

	if err := cfg.Digest.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
