package autopilot

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.opentelemetry.io/otel/codes"

	"github.com/jordan-wright/email"
)

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
}

// Mailer emails autopilot reports, mainly the list of days the owner
// has to find lunch elsewhere.
type Mailer struct {
	config SmtpConfig
	to     []string
}

func NewMailer(config SmtpConfig, to []string) Mailer {
	return Mailer{config: config, to: to}
}

// SendReport mails the run summary to the configured recipients.
func (m Mailer) SendReport(ctx context.Context, report Report) error {
	_, span := tracer.Start(ctx, "SendReport")
	defer span.End()

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Lunch Autopilot <%s>", m.config.EmailAddress)
	mail.To = m.to
	mail.Subject = fmt.Sprintf("Lunch autopilot: %d ordered, %d skipped, %d failed",
		len(report.Ordered), len(report.Skipped), len(report.Failed))
	mail.Text = []byte(report.Summary())

	addr := fmt.Sprintf("%s:%d", m.config.Server, m.config.Port)
	err := mail.Send(
		addr,
		smtp.PlainAuth("", m.config.EmailAddress, m.config.Password, m.config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send report")
		return err
	}
	return nil
}
