package utils

import (
	"fmt"

	"github.com/mailjet/mailjet-apiv3-go/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

type MailConfig struct {
	FromEmail        string
	FromName         string
	SMTPHost         string
	SMTPPort         int
	SMTPPassword     string
	MailjetAPIKey    string
	MailjetSecretKey string
}

// Mailer sends transactional email over SMTP, falling back to Mailjet's API
// when SMTP is not configured.
type Mailer struct {
	cfg MailConfig
}

func NewMailer(cfg MailConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

func (m *Mailer) Send(to, subject, htmlBody string) error {
	if m.cfg.SMTPHost != "" {
		return m.sendSMTP(to, subject, htmlBody)
	}
	if m.cfg.MailjetAPIKey != "" {
		return m.sendMailjet(to, subject, htmlBody)
	}
	return errors.New("mailer: no transport configured")
}

func (m *Mailer) sendSMTP(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.FromEmail)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(m.cfg.SMTPHost, m.cfg.SMTPPort, m.cfg.FromEmail, m.cfg.SMTPPassword)
	if err := d.DialAndSend(msg); err != nil {
		return errors.Wrap(err, "mailer: smtp send")
	}
	logrus.WithField("to", to).Debug("mail sent via smtp")
	return nil
}

func (m *Mailer) sendMailjet(to, subject, htmlBody string) error {
	mj := mailjet.NewMailjetClient(m.cfg.MailjetAPIKey, m.cfg.MailjetSecretKey)
	messages := &mailjet.MessagesV31{Info: []mailjet.InfoMessagesV31{
		{
			From:     &mailjet.RecipientV31{Email: m.cfg.FromEmail, Name: m.cfg.FromName},
			To:       &mailjet.RecipientsV31{{Email: to}},
			Subject:  subject,
			HTMLPart: htmlBody,
		},
	}}
	if _, err := mj.SendMailV31(messages); err != nil {
		return errors.Wrap(err, "mailer: mailjet send")
	}
	logrus.WithField("to", to).Debug("mail sent via mailjet")
	return nil
}

// DepositEmail is the notification sent to a wallet's contact when a new
// credit lands. Amounts arrive already rescaled to major units.
func DepositEmail(appDisplayName, supportEmail, amount, symbol, address string) (subject, body string) {
	subject = fmt.Sprintf("You received %s %s", amount, symbol)
	body = fmt.Sprintf(`<body style="margin:0;padding:0;background:#f6f6f6;">
  <table width="100%%" cellpadding="0" cellspacing="0" border="0" style="background:#f6f6f6;">
    <tr><td align="center">
      <table width="100%%" cellpadding="0" cellspacing="0" border="0" style="max-width:600px;background:#ffffff;border-radius:16px;margin:32px 0;">
        <tr><td style="padding:32px;">
          <h1 style="margin:0 0 12px 0;font-family:Arial,sans-serif;font-size:26px;color:#111;">Deposit received</h1>
          <p style="margin:0 0 24px 0;font-family:Arial,sans-serif;font-size:16px;color:#222;">
            %s %s has arrived at your %s deposit address.
          </p>
          <table cellpadding="0" cellspacing="0" border="0" style="width:100%%;margin-bottom:24px;">
            <tr>
              <td style="font-family:Arial,sans-serif;font-size:14px;color:#555;padding:6px 0;">Amount:</td>
              <td style="font-family:Arial,sans-serif;font-size:14px;color:#111;font-weight:bold;padding:6px 0;">%s %s</td>
            </tr>
            <tr>
              <td style="font-family:Arial,sans-serif;font-size:14px;color:#555;padding:6px 0;">Address:</td>
              <td style="font-family:Arial,sans-serif;font-size:14px;color:#111;font-weight:bold;padding:6px 0;">%s</td>
            </tr>
          </table>
          <div style="font-family:Arial,sans-serif;font-size:12px;color:#aaa;">Questions? Contact %s.</div>
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>`, amount, symbol, appDisplayName, amount, symbol, address, supportEmail)
	return subject, body
}

// VerificationEmail carries a short-lived code for email ownership checks and
// password resets.
func VerificationEmail(appDisplayName, code string) (subject, body string) {
	subject = fmt.Sprintf("%s verification code", appDisplayName)
	body = fmt.Sprintf(`<body style="margin:0;padding:0;background:#f6f6f6;">
  <table width="100%%" cellpadding="0" cellspacing="0" border="0" style="background:#f6f6f6;">
    <tr><td align="center">
      <table width="100%%" cellpadding="0" cellspacing="0" border="0" style="max-width:600px;background:#ffffff;border-radius:16px;margin:32px 0;">
        <tr><td style="padding:32px;">
          <h1 style="margin:0 0 12px 0;font-family:Arial,sans-serif;font-size:26px;color:#111;">Your verification code</h1>
          <p style="margin:0 0 24px 0;font-family:Arial,sans-serif;font-size:16px;color:#222;">
            Use this code to continue with %s. It expires in 15 minutes.
          </p>
          <div style="font-family:Arial,sans-serif;font-size:32px;letter-spacing:8px;font-weight:bold;color:#111;text-align:center;padding:16px 0;">%s</div>
          <div style="font-family:Arial,sans-serif;font-size:12px;color:#aaa;margin-top:24px;">If you did not request this code, ignore this email.</div>
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>`, appDisplayName, code)
	return subject, body
}
