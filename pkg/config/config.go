package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// DBConfig 数据库配置
type DBConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	SSLMode            string        `yaml:"sslmode"`
	MaxConns           int32         `yaml:"max_conns"`
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold"`
}

// DSN 生成 pgx 连接串；用户名和密码经过 URL 转义
func (c DBConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLModeOrDefault()}}.Encode(),
	}
	return u.String()
}

func (c DBConfig) MaxConnsOrDefault() int32 {
	if c.MaxConns <= 0 {
		return 10
	}
	return c.MaxConns
}

func (c DBConfig) SSLModeOrDefault() string {
	if c.SSLMode == "" {
		return "disable"
	}
	return c.SSLMode
}

// MQConfig 消息队列配置
type MQConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// JWTConfig JWT配置；身份由外部 OIDC 提供，这里只校验签名
type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port string `yaml:"port"`
}

// SMTPConfig 邮件发送配置；Host 为空表示未启用邮件
type SMTPConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	From     string        `yaml:"from"`
	UseTLS   bool          `yaml:"use_tls"` // true: 隐式 TLS（465）；false: STARTTLS
	Timeout  time.Duration `yaml:"timeout"`
}

func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

// DigestConfig 摘要邮件调度配置
type DigestConfig struct {
	DailyHour       int           `yaml:"daily_hour"`
	WeeklyHour      int           `yaml:"weekly_hour"`
	WeeklyWeekday   string        `yaml:"weekly_weekday"`
	Timezone        string        `yaml:"timezone"`
	TickInterval    time.Duration `yaml:"tick_interval"`
	PersistBoundary bool          `yaml:"persist_boundary"`
}

// DefaultDigestConfig 与历史行为一致：每天 06:00，周日 18:00
func DefaultDigestConfig() DigestConfig {
	return DigestConfig{
		DailyHour:     6,
		WeeklyHour:    18,
		WeeklyWeekday: "sunday",
		Timezone:      "Local",
		TickInterval:  60 * time.Second,
	}
}

// Validate 检查取值范围
func (c DigestConfig) Validate() error {
	if c.DailyHour < 0 || c.DailyHour > 23 {
		return fmt.Errorf("digest.daily_hour out of range: %d", c.DailyHour)
	}
	if c.WeeklyHour < 0 || c.WeeklyHour > 23 {
		return fmt.Errorf("digest.weekly_hour out of range: %d", c.WeeklyHour)
	}
	if _, err := c.Weekday(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("digest.tick_interval must be positive")
	}
	return nil
}

func (c DigestConfig) Weekday() (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), c.WeeklyWeekday) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("digest.weekly_weekday invalid: %q", c.WeeklyWeekday)
}

func (c DigestConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("digest.timezone invalid: %w", err)
	}
	return loc, nil
}

// OverrideDBFromEnv 从环境变量覆盖数据库配置
func OverrideDBFromEnv(cfg *DBConfig) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Name = name
	}
	if mode := os.Getenv("DB_SSLMODE"); mode != "" {
		cfg.SSLMode = mode
	}
}

// OverrideMQFromEnv 从环境变量覆盖MQ配置
func OverrideMQFromEnv(cfg *MQConfig) {
	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.URL = url
	}
}

// OverrideRedisFromEnv 从环境变量覆盖Redis配置
func OverrideRedisFromEnv(cfg *RedisConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}
}

// OverrideJWTFromEnv 从环境变量覆盖JWT配置
func OverrideJWTFromEnv(cfg *JWTConfig) {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Secret = secret
	}
}

// OverrideServerFromEnv 从环境变量覆盖服务器配置
func OverrideServerFromEnv(cfg *ServerConfig) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
}

// OverrideSMTPFromEnv 从环境变量覆盖SMTP配置
func OverrideSMTPFromEnv(cfg *SMTPConfig) {
	if host, ok := os.LookupEnv("SMTP_HOST"); ok {
		cfg.Host = host
	}
	if port := os.Getenv("SMTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if user := os.Getenv("SMTP_USER"); user != "" {
		cfg.Username = user
	}
	if password := os.Getenv("SMTP_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if from := os.Getenv("SMTP_FROM"); from != "" {
		cfg.From = from
	}
	if useTLS := os.Getenv("SMTP_USE_TLS"); useTLS != "" {
		if b, err := strconv.ParseBool(useTLS); err == nil {
			cfg.UseTLS = b
		}
	}
}

// OverrideDigestFromEnv 从环境变量覆盖摘要调度配置
func OverrideDigestFromEnv(cfg *DigestConfig) {
	if h := os.Getenv("DIGEST_DAILY_HOUR"); h != "" {
		if v, err := strconv.Atoi(h); err == nil {
			cfg.DailyHour = v
		}
	}
	if h := os.Getenv("DIGEST_WEEKLY_HOUR"); h != "" {
		if v, err := strconv.Atoi(h); err == nil {
			cfg.WeeklyHour = v
		}
	}
	if d := os.Getenv("DIGEST_WEEKLY_WEEKDAY"); d != "" {
		cfg.WeeklyWeekday = d
	}
	if tz := os.Getenv("TZ"); tz != "" {
		cfg.Timezone = tz
	}
	if p := os.Getenv("DIGEST_PERSIST_BOUNDARY"); p != "" {
		if b, err := strconv.ParseBool(p); err == nil {
			cfg.PersistBoundary = b
		}
	}
}
