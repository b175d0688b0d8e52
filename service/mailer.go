package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Ceasar-x/sschool/models"
	mail "github.com/go-mail/mail/v2"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	NotifyWelcome        = "welcome"
	NotifyAccountUpdated = "account_updated"
	NotifyAccountDeleted = "account_deleted"
)

// Notification is one outbound account email.
type Notification struct {
	ID      string
	Kind    string
	UserID  primitive.ObjectID
	To      string
	Subject string
	Body    string
}

func newNotification(kind string, u *models.User, subject, body string) Notification {
	return Notification{
		ID:      uuid.NewString(),
		Kind:    kind,
		UserID:  u.ID,
		To:      u.Email,
		Subject: subject,
		Body:    body,
	}
}

func WelcomeNotification(u *models.User) Notification {
	return newNotification(NotifyWelcome, u, "Welcome to SSchool",
		fmt.Sprintf("Hello %s,\n\nYour %s account has been created. Sign in with %s.\n", u.Name, u.Role, u.Email))
}

func AccountUpdatedNotification(u *models.User) Notification {
	return newNotification(NotifyAccountUpdated, u, "Your SSchool account was updated",
		fmt.Sprintf("Hello %s,\n\nYour account details were changed. If this was not you, contact an administrator.\n", u.Name))
}

func AccountDeletedNotification(u *models.User) Notification {
	return newNotification(NotifyAccountDeleted, u, "Your SSchool account was removed",
		fmt.Sprintf("Hello %s,\n\nYour account and its study materials have been deleted.\n", u.Name))
}

// Notifier accepts notifications without blocking the caller.
type Notifier interface {
	Enqueue(n Notification) bool
}

// Sender delivers a single notification.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

type EmailLogWriter interface {
	InsertEmailLog(ctx context.Context, log *models.EmailLog) error
}

type NotificationRecorder interface {
	RecordNotification(kind, status string)
}

type MailerOptions struct {
	QueueSize   int
	Workers     int
	SendTimeout time.Duration
}

// Mailer is a bounded queue drained by worker goroutines. Enqueue never
// blocks: when the queue is full the notification is dropped and counted.
type Mailer struct {
	queue   chan Notification
	sender  Sender
	logs    EmailLogWriter
	metrics NotificationRecorder
	opts    MailerOptions

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewMailer builds a Mailer. logs and metrics may be nil.
func NewMailer(sender Sender, logs EmailLogWriter, metrics NotificationRecorder, opts MailerOptions) *Mailer {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 100
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 30 * time.Second
	}
	return &Mailer{
		queue:   make(chan Notification, opts.QueueSize),
		sender:  sender,
		logs:    logs,
		metrics: metrics,
		opts:    opts,
	}
}

func (m *Mailer) Start() {
	for i := 0; i < m.opts.Workers; i++ {
		m.wg.Add(1)
		go m.worker()
	}
}

func (m *Mailer) Enqueue(n Notification) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		m.record(n.Kind, "dropped")
		return false
	}
	select {
	case m.queue <- n:
		m.record(n.Kind, "queued")
		return true
	default:
		slog.Warn("notification queue full",
			slog.String("notification_id", n.ID),
			slog.String("kind", n.Kind),
		)
		m.record(n.Kind, "dropped")
		return false
	}
}

// Close stops accepting notifications and waits for queued ones to be
// delivered or for ctx to end.
func (m *Mailer) Close(ctx context.Context) error {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.queue)
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Mailer) worker() {
	defer m.wg.Done()
	for n := range m.queue {
		m.deliver(n)
	}
}

func (m *Mailer) deliver(n Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), m.opts.SendTimeout)
	defer cancel()

	entry := &models.EmailLog{
		NotificationID: n.ID,
		Kind:           n.Kind,
		UserID:         n.UserID,
		ToEmail:        n.To,
		Subject:        n.Subject,
		Status:         models.EmailStatusSent,
		SentAt:         time.Now().UTC(),
	}
	if err := m.sender.Send(ctx, n); err != nil {
		slog.Error("notification delivery failed",
			slog.String("notification_id", n.ID),
			slog.String("kind", n.Kind),
			slog.String("error", err.Error()),
		)
		entry.Status = models.EmailStatusFailed
		entry.Error = err.Error()
	}
	m.record(n.Kind, entry.Status)

	if m.logs == nil {
		return
	}
	if err := m.logs.InsertEmailLog(ctx, entry); err != nil {
		slog.Error("insert email log", slog.String("error", err.Error()))
	}
}

func (m *Mailer) record(kind, status string) {
	if m.metrics != nil {
		m.metrics.RecordNotification(kind, status)
	}
}

// SMTPSender delivers notifications through an SMTP relay.
type SMTPSender struct {
	dialer *mail.Dialer
	from   string
}

func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	d := mail.NewDialer(host, port, username, password)
	d.StartTLSPolicy = mail.OpportunisticStartTLS
	d.Timeout = 15 * time.Second
	return &SMTPSender{dialer: d, from: from}
}

func (s *SMTPSender) Send(_ context.Context, n Notification) error {
	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", n.To)
	m.SetHeader("Subject", n.Subject)
	m.SetBody("text/plain", n.Body)
	return s.dialer.DialAndSend(m)
}

// LogSender writes notifications to the log. Used when no SMTP relay is
// configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, n Notification) error {
	slog.Info("notification",
		slog.String("notification_id", n.ID),
		slog.String("kind", n.Kind),
		slog.String("to", n.To),
		slog.String("subject", n.Subject),
	)
	return nil
}
