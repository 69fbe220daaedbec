package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"nesto/pkg/circuitbreaker"
	"nesto/pkg/config"
	"nesto/pkg/logger"
)

var ErrDisabled = errors.New("mail is not configured")

// Message 是一封 HTML + 纯文本的邮件
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// smtpClient 是 Mailer 需要的投递能力，*mail.Client 满足该接口
type smtpClient interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Mailer 通过 SMTP 发送邮件，连续失败时由熔断器快速失败
type Mailer struct {
	cfg       config.SMTPConfig
	client    smtpClient
	clientErr error
	breaker   *circuitbreaker.CircuitBreaker
	logger    *zap.Logger
	now       func() time.Time
}

func New(cfg config.SMTPConfig, logger *zap.Logger) *Mailer {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	cbCfg := circuitbreaker.DefaultConfig()
	cbCfg.OnStateChange = func(from, to circuitbreaker.State) {
		logger.Warn("SMTP circuit breaker state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}
	m := &Mailer{
		cfg:     cfg,
		breaker: circuitbreaker.NewCircuitBreaker(cbCfg),
		logger:  logger,
		now:     time.Now,
	}
	if cfg.Enabled() {
		m.client, m.clientErr = newClient(cfg)
		if m.clientErr != nil {
			logger.Error("Invalid SMTP configuration", zap.String("host", cfg.Host), zap.Error(m.clientErr))
		}
	}
	return m
}

// newClient 按配置选择隐式 TLS（use_tls）或机会性 STARTTLS；
// 配置了用户名时使用 PLAIN 认证
func newClient(cfg config.SMTPConfig) (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
	}
	if cfg.UseTLS {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	return mail.NewClient(cfg.Host, opts...)
}

func (m *Mailer) Enabled() bool {
	return m.cfg.Enabled()
}

// Send 发送一封邮件；SMTP 未配置时返回 ErrDisabled
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if !m.Enabled() {
		return ErrDisabled
	}
	if m.clientErr != nil {
		return fmt.Errorf("smtp client: %w", m.clientErr)
	}
	built, err := buildMessage(m.cfg.From, msg, m.now())
	if err != nil {
		return fmt.Errorf("failed to build message: %w", err)
	}

	err = m.breaker.Execute(func() error {
		sendCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
		defer cancel()
		return m.client.DialAndSendWithContext(sendCtx, built)
	})
	if err != nil {
		logger.WithTrace(ctx, m.logger).Error("Failed to send mail",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
		return err
	}
	return nil
}
