package utils

import (
	"fmt"
	"log"
	"os"

	"vendora_back_end/internal/notify"

	"github.com/wneessen/go-mail"
)

// MailSender envoie les notifications par SMTP — implémente notify.Sender
type MailSender struct {
	From string
	Host string
	Port int
}

func NewMailSender() *MailSender {
	from := os.Getenv("MAIL_FROM")
	if from == "" {
		from = "noreply@vendora.shop"
	}
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		host = "ssl0.ovh.net"
	}
	return &MailSender{From: from, Host: host, Port: 587}
}

func (s *MailSender) Send(m notify.Message) error {
	msg := mail.NewMsg()

	if err := msg.From(s.From); err != nil {
		return err
	}
	if err := msg.To(m.To); err != nil {
		return err
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextHTML, m.Body)

	client, err := mail.NewClient(s.Host,
		mail.WithPort(s.Port),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(os.Getenv("SMTP_USERNAME")),
		mail.WithPassword(os.Getenv("SMTP_PASSWORD")),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}

	log.Println("📤 Envoi de l'e-mail à", m.To)
	return client.DialAndSend(msg)
}

// StatusEmailHTML génère le corps HTML d'un e-mail de statut de commande
func StatusEmailHTML(orderID, title, message string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="fr">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>%s</title>
</head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">%s</h2>
		<p>Bonjour,</p>
		<p>%s</p>
		<p style="color: #888;">Commande n° %s</p>
		<p style="margin-top: 30px; color: #555;">
			Cordialement,<br>
			<strong>L'équipe Vendora</strong>
		</p>
	</div>
</body>
</html>`, title, title, message, orderID)
}
