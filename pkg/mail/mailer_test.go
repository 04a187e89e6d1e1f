package mail

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewSMTPMailerValidatesConfig(t *testing.T) {
	_, err := NewSMTPMailer(Settings{Enabled: true})
	require.ErrorContains(t, err, "host is required")

	_, err = NewSMTPMailer(Settings{Enabled: true, Host: "smtp.example.com"})
	require.ErrorContains(t, err, "port is required")

	mailer, err := NewSMTPMailer(Settings{Enabled: false})
	require.NoError(t, err)
	require.ErrorIs(t, mailer.Send(context.Background(), Message{To: []string{"ops@example.com"}}), ErrSMTPDisabled)
}

type fakeSession struct {
	authed bool
	from   string
	rcpts  []string
	body   bytes.Buffer
	quit   bool
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func (f *fakeSession) Auth(smtp.Auth) error          { f.authed = true; return nil }
func (f *fakeSession) Mail(from string) error        { f.from = from; return nil }
func (f *fakeSession) Rcpt(to string) error          { f.rcpts = append(f.rcpts, to); return nil }
func (f *fakeSession) Data() (io.WriteCloser, error) { return nopWriteCloser{&f.body}, nil }
func (f *fakeSession) Quit() error                   { f.quit = true; return nil }
func (f *fakeSession) Close() error                  { return nil }

func newFakeMailer(cfg Settings, s *fakeSession) *smtpMailer {
	return &smtpMailer{
		cfg:  cfg,
		open: func(context.Context, Settings) (session, error) { return s, nil },
		now:  func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) },
	}
}

func TestSMTPMailerSendDeliversToUniqueRecipients(t *testing.T) {
	s := &fakeSession{}
	m := newFakeMailer(Settings{Enabled: true, Host: "smtp.example.com", Port: 25, From: "catalog@example.com"}, s)

	err := m.Send(context.Background(), Message{
		To:      []string{"ops@example.com", " ops@example.com ", "admin@example.com"},
		Subject: "Backup completed",
		Body:    "catalog-20260101T000000Z.sqlite\n",
	})
	require.NoError(t, err)
	require.False(t, s.authed)
	require.True(t, s.quit)
	require.Equal(t, "catalog@example.com", s.from)
	require.Equal(t, []string{"ops@example.com", "admin@example.com"}, s.rcpts)

	content := s.body.String()
	require.Contains(t, content, "To: ops@example.com, admin@example.com\r\n")
	require.Contains(t, content, "Date: Thu, 01 Jan 2026 00:00:00 +0000\r\n")
	require.True(t, strings.HasSuffix(content, "\r\n\r\ncatalog-20260101T000000Z.sqlite\r\n"))
}

func TestSMTPMailerAuthenticatesWithUsername(t *testing.T) {
	s := &fakeSession{}
	m := newFakeMailer(Settings{Enabled: true, Host: "smtp.example.com", Port: 587, Username: "u", Password: "p"}, s)

	err := m.Send(context.Background(), Message{From: "ops@example.com", To: []string{"admin@example.com"}})
	require.NoError(t, err)
	require.True(t, s.authed)
	require.Equal(t, "ops@example.com", s.from)
}

func TestSMTPMailerRejectsBadEnvelopes(t *testing.T) {
	m := newFakeMailer(Settings{Enabled: true, Host: "smtp.example.com", Port: 25, From: "catalog@example.com"}, &fakeSession{})

	err := m.Send(context.Background(), Message{To: []string{"not an address"}})
	require.ErrorContains(t, err, "invalid recipient")

	err = m.Send(context.Background(), Message{To: []string{" "}})
	require.ErrorContains(t, err, "no recipients")

	m.cfg.From = ""
	err = m.Send(context.Background(), Message{To: []string{"ops@example.com"}})
	require.ErrorContains(t, err, "sender address is required")
}

func TestComposeFoldsSubject(t *testing.T) {
	m := newFakeMailer(Settings{}, nil)
	content := m.compose(envelope{from: "from@example.com", to: []string{"to@example.com"}}, Message{Subject: "Subject\r\nBreak", Body: "Body"})
	require.Contains(t, content, "From: from@example.com\r\n")
	require.Contains(t, content, "Subject: Subject Break\r\n")
	require.True(t, strings.HasSuffix(content, "\r\n\r\nBody"))
}

func TestRecorder(t *testing.T) {
	rec := &Recorder{Err: errors.New("offline")}
	err := rec.Send(context.Background(), Message{Subject: "one"})
	require.EqualError(t, err, "offline")
	require.Len(t, rec.Messages(), 1)
	require.Equal(t, "one", rec.Messages()[0].Subject)
}
