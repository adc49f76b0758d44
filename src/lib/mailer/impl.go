package mailer

import (
	"cbs/src/lib"
	"fmt"
	"log"
	"os"

	"github.com/wneessen/go-mail"
)

func SendMail(input *lib.SendMailInput) error {
	c, err := lib.GetSMTPClient()
	if err != nil {
		return err
	}
	m := mail.NewMsg()
	from := input.From
	if from == "" {
		from = os.Getenv("MAIL_FROM")
	}
	if err := m.FromFormat(input.FromName, from); err != nil {
		return fmt.Errorf("invalid sender address: %s", err.Error())
	}
	if err := m.To(input.To); err != nil {
		return fmt.Errorf("invalid recipient address: %s", err.Error())
	}
	if input.ReplyTo != "" {
		if err := m.ReplyTo(input.ReplyTo); err != nil {
			return err
		}
	}
	m.Subject(input.Subject)
	if input.Html != "" {
		m.SetBodyString(mail.TypeTextHTML, input.Html)
	} else {
		m.SetBodyString(mail.TypeTextPlain, input.Body)
	}
	if err := c.DialAndSend(m); err != nil {
		return fmt.Errorf("error delivering mail: %s", err.Error())
	}
	return nil
}

// SendBookingConfirmation mails the booking summary. Failures are logged and
// swallowed so a broken SMTP relay never rolls back a confirmed booking.
func SendBookingConfirmation(to, userName, courtName, when string, durationMin uint) {
	subject := fmt.Sprintf("Reserva confirmada: %s", courtName)
	body := fmt.Sprintf(
		"Hola %s,\n\nTu reserva de %s el %s (%d minutos) fue confirmada.\n",
		userName, courtName, when, durationMin,
	)
	if err := SendMail(&lib.SendMailInput{
		To:       to,
		FromName: "Reservas",
		Subject:  subject,
		Body:     body,
	}); err != nil {
		log.Printf("Could not send confirmation email to %s: %s\n", to, err.Error())
	}
}
