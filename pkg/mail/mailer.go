// Package mail delivers operational notices (backup failures and the like)
// over SMTP.
package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrSMTPDisabled is returned by Send when delivery is switched off.
var ErrSMTPDisabled = errors.New("smtp: delivery disabled")

const defaultTimeout = 10 * time.Second

// Message is a plain-text notice.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Settings configures SMTP delivery.
type Settings struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool
	Timeout  time.Duration
}

func (s Settings) address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// session is the subset of *smtp.Client used for one delivery.
type session interface {
	Auth(smtp.Auth) error
	Mail(string) error
	Rcpt(string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

type opener func(ctx context.Context, cfg Settings) (session, error)

type smtpMailer struct {
	cfg  Settings
	open opener
	now  func() time.Time
}

// NewSMTPMailer returns an SMTP mailer. With delivery disabled every Send
// returns ErrSMTPDisabled.
func NewSMTPMailer(cfg Settings) (Mailer, error) {
	if cfg.Enabled {
		switch {
		case strings.TrimSpace(cfg.Host) == "":
			return nil, errors.New("smtp: host is required when enabled")
		case cfg.Port <= 0:
			return nil, errors.New("smtp: port is required when enabled")
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &smtpMailer{cfg: cfg, open: openSession, now: time.Now}, nil
}

func (m *smtpMailer) Send(ctx context.Context, msg Message) error {
	if !m.cfg.Enabled {
		return ErrSMTPDisabled
	}
	env, err := newEnvelope(msg, m.cfg.From)
	if err != nil {
		return err
	}

	s, err := m.open(ctx, m.cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	if m.cfg.Username != "" {
		if err := s.Auth(smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)); err != nil {
			return fmt.Errorf("smtp: auth: %w", err)
		}
	}
	if err := env.deliver(s, m.compose(env, msg)); err != nil {
		return err
	}
	return s.Quit()
}

func (m *smtpMailer) compose(env envelope, msg Message) string {
	now := time.Now
	if m.now != nil {
		now = m.now
	}
	var b strings.Builder
	writeHeader(&b, "From", env.from)
	writeHeader(&b, "To", strings.Join(env.to, ", "))
	writeHeader(&b, "Subject", mime.QEncoding.Encode("utf-8", singleLine(msg.Subject)))
	writeHeader(&b, "Date", now().UTC().Format(time.RFC1123Z))
	writeHeader(&b, "MIME-Version", "1.0")
	writeHeader(&b, "Content-Type", "text/plain; charset=UTF-8")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(msg.Body, "\r\n", "\n"), "\n", "\r\n"))
	return b.String()
}

type envelope struct {
	from string
	to   []string
}

func newEnvelope(msg Message, defaultFrom string) (envelope, error) {
	var env envelope

	seen := make(map[string]bool, len(msg.To))
	for _, raw := range msg.To {
		addr := strings.TrimSpace(raw)
		if addr == "" || seen[addr] {
			continue
		}
		if _, err := mail.ParseAddress(addr); err != nil {
			return envelope{}, fmt.Errorf("smtp: invalid recipient %q: %w", addr, err)
		}
		seen[addr] = true
		env.to = append(env.to, addr)
	}
	if len(env.to) == 0 {
		return envelope{}, errors.New("smtp: no recipients")
	}

	env.from = strings.TrimSpace(msg.From)
	if env.from == "" {
		env.from = strings.TrimSpace(defaultFrom)
	}
	if env.from == "" {
		return envelope{}, errors.New("smtp: sender address is required")
	}
	if _, err := mail.ParseAddress(env.from); err != nil {
		return envelope{}, fmt.Errorf("smtp: invalid sender %q: %w", env.from, err)
	}
	return env, nil
}

func (e envelope) deliver(s session, content string) error {
	if err := s.Mail(e.from); err != nil {
		return fmt.Errorf("smtp: MAIL FROM: %w", err)
	}
	for _, to := range e.to {
		if err := s.Rcpt(to); err != nil {
			return fmt.Errorf("smtp: RCPT TO %s: %w", to, err)
		}
	}
	w, err := s.Data()
	if err != nil {
		return fmt.Errorf("smtp: DATA: %w", err)
	}
	if _, err := io.WriteString(w, content); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp: write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp: end DATA: %w", err)
	}
	return nil
}

func openSession(ctx context.Context, cfg Settings) (session, error) {
	tlsConfig := &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	dialer := &net.Dialer{Timeout: cfg.Timeout}

	var (
		conn net.Conn
		err  error
	)
	if cfg.UseTLS {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", cfg.address())
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", cfg.address())
	}
	if err != nil {
		return nil, fmt.Errorf("smtp: dial %s: %w", cfg.address(), err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(cfg.Timeout))
	}

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("smtp: greeting: %w", err)
	}
	if !cfg.UseTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				_ = client.Close()
				return nil, fmt.Errorf("smtp: STARTTLS: %w", err)
			}
		}
	}
	return client, nil
}

func writeHeader(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\r\n")
}

func singleLine(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// Recorder is an in-memory Mailer for tests and dry runs.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	Err      error
}

// Send records msg and returns r.Err.
func (r *Recorder) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return r.Err
}

// Messages returns the recorded messages in send order.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}
