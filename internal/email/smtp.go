package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements the Sender interface using a direct SMTP connection
// via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendDeadlineReminderEmail(ctx context.Context, toEmail, complaintID, departmentName string, deadline time.Time) error {
	content, err := renderEmailTemplate("deadline_reminder.html", deadlineEmailData{
		baseEmailData: baseEmailData{
			Title:   "Срок рассмотрения истекает",
			Heading: "Срок рассмотрения обращения истекает",
		},
		ComplaintID:    complaintID,
		DepartmentName: departmentName,
		Deadline:       deadline.Format("02.01.2006 15:04"),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectDeadlineReminderFmt, complaintID), content)
}

func (s *SMTPSender) SendDeadlineExpiredEmail(ctx context.Context, toEmail, complaintID, departmentName string, deadline time.Time) error {
	content, err := renderEmailTemplate("deadline_expired.html", deadlineEmailData{
		baseEmailData: baseEmailData{
			Title:   "Срок рассмотрения истёк",
			Heading: "Срок рассмотрения обращения истёк",
		},
		ComplaintID:    complaintID,
		DepartmentName: departmentName,
		Deadline:       deadline.Format("02.01.2006 15:04"),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectDeadlineExpiredFmt, complaintID), content)
}

func (s *SMTPSender) SendStatusChangeEmail(ctx context.Context, toEmail, complaintID, newStatus, response string) error {
	content, err := renderEmailTemplate("status_change.html", statusChangeEmailData{
		baseEmailData: baseEmailData{
			Title:   "Статус обращения изменён",
			Heading: "Статус вашего обращения изменён",
		},
		ComplaintID: complaintID,
		NewStatus:   newStatus,
		Response:    response,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectStatusChangeFmt, complaintID), content)
}

// Compile-time check that SMTPSender implements Sender.
var _ Sender = (*SMTPSender)(nil)
