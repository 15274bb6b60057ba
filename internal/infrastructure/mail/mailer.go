package mail

import (
	"context"
	"fmt"
	"html"
	"os"
	"strconv"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// sendTimeout bounds a single SMTP conversation so one hung relay call
// cannot stall a whole scheduler cycle.
const sendTimeout = 15 * time.Second

type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

type SMTPSender struct {
	client *gomail.Client
	from   string
}

func NewSMTPSender() (*SMTPSender, error) {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return nil, fmt.Errorf("SMTP_HOST is not set")
	}

	port, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	from := os.Getenv("MAIL_FROM")
	if from == "" {
		return nil, fmt.Errorf("MAIL_FROM is not set")
	}

	client, err := gomail.NewClient(host,
		gomail.WithPort(port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(os.Getenv("SMTP_USERNAME")),
		gomail.WithPassword(os.Getenv("SMTP_PASSWORD")),
		gomail.WithTimeout(sendTimeout),
	)
	if err != nil {
		return nil, err
	}

	return &SMTPSender{client: client, from: from}, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	m := gomail.NewMsg()
	if err := m.From(s.from); err != nil {
		return err
	}
	if err := m.To(msg.To); err != nil {
		return err
	}

	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextHTML, msg.HTMLBody)

	return s.client.DialAndSendWithContext(ctx, m)
}

// NoteDelivery builds the mail sent to a recipient when a note comes due.
func NoteDelivery(recipientName, recipientEmail, title, content, shareURL string) *Message {
	body := fmt.Sprintf(
		`<h2>Hello %s,</h2>
<p>A note scheduled for you has arrived:</p>
<h3>%s</h3>
<div>%s</div>`,
		html.EscapeString(recipientName),
		html.EscapeString(title),
		html.EscapeString(content),
	)

	if shareURL != "" {
		body += fmt.Sprintf(`<p>You can also view it online: <a href="%s">%s</a></p>`, shareURL, shareURL)
	}

	return &Message{
		To:       recipientEmail,
		Subject:  "A note has arrived: " + title,
		HTMLBody: body,
	}
}

// Welcome builds the signup greeting mail.
func Welcome(username, email string) *Message {
	return &Message{
		To:      email,
		Subject: "Welcome to LegacyNote",
		HTMLBody: fmt.Sprintf(
			`<h2>Welcome, %s!</h2><p>Your account is ready. Compose a note, pick a date, and we will deliver it when the time comes.</p>`,
			html.EscapeString(username),
		),
	}
}
