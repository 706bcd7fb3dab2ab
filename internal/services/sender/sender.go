// Package sender отправляет письма из очередей уведомлений: приглашения
// новым пользователям и алерты оператору.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/subscription-sync/internal/config"
	"github.com/magabrotheeeer/subscription-sync/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-sync/internal/lib/smtp"
	"github.com/magabrotheeeer/subscription-sync/internal/services/notify"
)

// SenderService потребляет сообщения уведомлений и отправляет их по SMTP.
type SenderService struct {
	transport    smtp.TransportInterface
	supportEmail string
	log          *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(cfg *config.Config, log *slog.Logger, transport smtp.TransportInterface) *SenderService {
	return &SenderService{
		transport:    transport,
		supportEmail: cfg.SupportEmail,
		log:          log,
	}
}

// SendWelcome отправляет письмо-приглашение новому пользователю.
// Пароль в письме не фигурирует: ссылка ведет на настройку доступа.
func (s *SenderService) SendWelcome(body []byte) error {
	var message notify.WelcomeMessage
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	to := []string{message.Email}
	subject := "Bem-vindo! Sua assinatura está ativa"
	bodyText := fmt.Sprintf("Olá, %s!\n\nSua assinatura foi ativada com sucesso.\n\nPara definir sua senha de acesso, utilize a opção \"Esqueci minha senha\" na página de login.",
		message.FirstName)

	return s.sendEmail(to, subject, bodyText)
}

// SendSupportAlert пересылает оператору сырую ошибку синхронизации с полезной
// нагрузкой, чтобы проблемы конфигурации не терялись молча.
func (s *SenderService) SendSupportAlert(body []byte) error {
	var alert notify.SupportAlert
	if err := json.Unmarshal(body, &alert); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	payload, err := json.MarshalIndent(alert.Payload, "", "  ")
	if err != nil {
		payload = []byte(fmt.Sprintf("%v", alert.Payload))
	}

	to := []string{s.supportEmail}
	subject := "[subscription-sync] " + alert.Subject
	bodyText := fmt.Sprintf("Error: %s\nOccurred at: %s\n\nPayload:\n%s",
		alert.Error, alert.OccurredAt, payload)

	return s.sendEmail(to, subject, bodyText)
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", s.transport.GetSMTPUser()), sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}

	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", slog.Any("to", to))
	return nil
}
