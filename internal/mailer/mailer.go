// Package mailer отправляет письма с учетными данными новым
// пользователям.
package mailer

import (
	"fmt"
	"log/slog"

	"gopkg.in/gomail.v2"

	"github.com/junyours/CSDL/config"
)

// SendUserCredentials отправляет новому пользователю его номер и
// временный пароль. Ошибка отправки логируется и возвращается, создание
// пользователя она не откатывает.
func SendUserCredentials(to, userIDNo, password string) error {
	if config.SMTP.Host == "" {
		slog.Warn("SMTP не настроен, письмо с учетными данными не отправлено", "user_id_no", userIDNo)
		return nil
	}

	body := fmt.Sprintf(
		"<p>Your account has been created.</p>"+
			"<p>ID number: <b>%s</b><br>Password: <b>%s</b></p>"+
			"<p>Please change your password after the first login.</p>",
		userIDNo, password,
	)

	msg := gomail.NewMessage()
	msg.SetHeader("From", config.SMTP.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Your campus attendance account")
	msg.SetBody("text/html", body)

	dialer := gomail.NewDialer(config.SMTP.Host, config.SMTP.Port, config.SMTP.Username, config.SMTP.Password)
	if err := dialer.DialAndSend(msg); err != nil {
		slog.Error("Не удалось отправить письмо с учетными данными", "error", err, "to", to)
		return err
	}

	slog.Info("Письмо с учетными данными отправлено", "to", to)
	return nil
}
