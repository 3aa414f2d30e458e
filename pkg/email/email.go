package email

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Send delivers one message to all recipients in a single SMTP transaction.
func Send(server string, port int, username, password, fromName string, to []string, subject, body string) error {
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}
	for _, addr := range to {
		if !strings.Contains(addr, "@") {
			return fmt.Errorf("invalid email address: %s", addr)
		}
	}

	msg := []byte(fmt.Sprintf(
		"From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		fromName, username, strings.Join(to, ", "), subject, body,
	))
	auth := smtp.PlainAuth("", username, password, server)
	addr := fmt.Sprintf("%s:%d", server, port)
	return smtp.SendMail(addr, auth, username, to, msg)
}
