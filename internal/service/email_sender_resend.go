package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
)

// ResendEmailSender delivers verification codes through the Resend API.
type ResendEmailSender struct {
	Client  *resend.Client
	From    string
	AppName string
}

func NewResendEmailSender(apiKey string, from string, appName string) *ResendEmailSender {
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(from) == "" {
		return &ResendEmailSender{}
	}
	return &ResendEmailSender{
		Client:  resend.NewClient(apiKey),
		From:    from,
		AppName: appName,
	}
}

func (s *ResendEmailSender) SendCode(ctx context.Context, email string, code string) error {
	if s.Client == nil {
		return errors.New("email sender not configured")
	}
	name := s.AppName
	if strings.TrimSpace(name) == "" {
		name = "StepAuth"
	}
	subject := fmt.Sprintf("%s verification code", name)
	html := fmt.Sprintf("<p>Your verification code is:</p><p><strong>%s</strong></p><p>It expires in a few minutes. If you did not request it, ignore this email.</p>", code)
	text := fmt.Sprintf("Your verification code is %s. It expires in a few minutes.", code)

	_, err := s.Client.Emails.Send(&resend.SendEmailRequest{
		From:    s.From,
		To:      []string{email},
		Subject: subject,
		Html:    html,
		Text:    text,
	})
	return err
}
