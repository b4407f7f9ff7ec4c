package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

var (
	// ErrMissingCredentials is returned when SMTP auth is configured without a password
	ErrMissingCredentials = errors.New("missing smtp credentials")
	// ErrNoRecipient is returned when neither a recipient nor a sender address is configured
	ErrNoRecipient = errors.New("no recipient configured")
)

// DeliveryError reports a failure to compose or submit the agenda email.
// It is logged and the run fails; there is no retry.
type DeliveryError struct {
	Op  string // "compose", "auth", "send"
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery %s: %v", e.Op, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Sender submits a rendered message
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// Security selects how the SMTP connection is protected
type Security string

const (
	SecuritySSL      Security = "ssl"      // implicit TLS, usually port 465
	SecurityStartTLS Security = "starttls" // STARTTLS upgrade, usually port 587
	SecurityNone     Security = "none"     // plain text, local relays only
)

// SMTPConfig describes the mail submission endpoint and envelope
type SMTPConfig struct {
	Host     string        `json:"host"`
	Port     int           `json:"port"`
	Security Security      `json:"security"`
	Username string        `json:"username"`
	Password string        `json:"password"`
	From     string        `json:"from"`
	To       []string      `json:"to"`
	Timeout  time.Duration `json:"timeout"`
}

// SetDefaults applies Gmail-style implicit TLS defaults
func (c *SMTPConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "smtp.gmail.com"
	}
	if c.Security == "" {
		c.Security = SecuritySSL
	}
	if c.Port == 0 {
		switch c.Security {
		case SecurityStartTLS:
			c.Port = 587
		case SecurityNone:
			c.Port = 25
		default:
			c.Port = 465
		}
	}
	if c.From == "" {
		c.From = c.Username
	}
	if len(c.To) == 0 && c.From != "" {
		c.To = []string{c.From}
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

// Validate checks the static parts of the configuration
func (c SMTPConfig) Validate() error {
	switch c.Security {
	case SecuritySSL, SecurityStartTLS, SecurityNone:
	default:
		return fmt.Errorf("unknown smtp security %q", c.Security)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid smtp port %d", c.Port)
	}
	return nil
}

// SMTPSender submits messages over SMTP
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender creates a sender for cfg. Credentials are checked at send time.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send composes and submits msg
func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	if s.cfg.Username != "" && s.cfg.Password == "" {
		return &DeliveryError{Op: "auth", Err: fmt.Errorf("%w: password for %s is empty", ErrMissingCredentials, s.cfg.Username)}
	}
	if s.cfg.Security != SecurityNone && s.cfg.Username == "" {
		return &DeliveryError{Op: "auth", Err: fmt.Errorf("%w: username is empty", ErrMissingCredentials)}
	}

	m, err := compose(s.cfg, msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return &DeliveryError{Op: "send", Err: err}
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return &DeliveryError{Op: "send", Err: err}
	}
	return nil
}

func (s *SMTPSender) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTimeout(s.cfg.Timeout),
	}

	switch s.cfg.Security {
	case SecuritySSL:
		opts = append(opts, mail.WithSSL())
	case SecurityStartTLS:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	return opts
}

// WriterSender writes the full MIME message to w instead of submitting it
type WriterSender struct {
	cfg SMTPConfig
	w   io.Writer
}

// NewWriterSender creates a sender for dry runs
func NewWriterSender(cfg SMTPConfig, w io.Writer) *WriterSender {
	return &WriterSender{cfg: cfg, w: w}
}

// Send writes msg to the underlying writer
func (s *WriterSender) Send(_ context.Context, msg *Message) error {
	m, err := compose(s.cfg, msg)
	if err != nil {
		return err
	}
	if _, err := m.WriteTo(s.w); err != nil {
		return &DeliveryError{Op: "send", Err: err}
	}
	return nil
}

func compose(cfg SMTPConfig, msg *Message) (*mail.Msg, error) {
	if len(cfg.To) == 0 {
		return nil, &DeliveryError{Op: "compose", Err: ErrNoRecipient}
	}

	m := mail.NewMsg()
	if err := m.From(cfg.From); err != nil {
		return nil, &DeliveryError{Op: "compose", Err: fmt.Errorf("invalid sender %q: %w", cfg.From, err)}
	}
	if err := m.To(cfg.To...); err != nil {
		return nil, &DeliveryError{Op: "compose", Err: fmt.Errorf("invalid recipient %q: %w", strings.Join(cfg.To, ","), err)}
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetMessageID()
	if msg.RunID != "" {
		m.SetGenHeader(mail.Header("X-Run-ID"), msg.RunID)
	}
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	return m, nil
}
