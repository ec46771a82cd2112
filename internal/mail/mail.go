// Package mail delivers transactional email. The only message the application
// sends is the password reset link.
package mail

import (
	"context"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// Sender delivers a password reset link to a recipient.
type Sender interface {
	SendPasswordReset(ctx context.Context, recipient, resetURL string) error
}

// SESSender sends mail through Amazon SES.
type SESSender struct {
	client *ses.Client
	// This address must be verified with Amazon SES.
	sender string
}

// NewSESSender builds an SESSender using the default AWS credential chain.
func NewSESSender(ctx context.Context, sender string) (*SESSender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &SESSender{
		client: ses.NewFromConfig(awsCfg),
		sender: sender,
	}, nil
}

func (s *SESSender) SendPasswordReset(ctx context.Context, recipient, resetURL string) error {
	subject := "Password Reset Request"
	htmlBody := fmt.Sprintf(
		"<p>To reset your password, visit the following link:</p><p><a href=%q>%s</a></p>"+
			"<p>If you did not make this request, simply ignore this email and no changes will be made.</p>",
		resetURL, resetURL,
	)
	textBody := fmt.Sprintf(
		"To reset your password, visit the following link:\n%s\n\n"+
			"If you did not make this request, simply ignore this email and no changes will be made.",
		resetURL,
	)

	_, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{recipient},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Charset: aws.String("UTF-8"),
				Data:    aws.String(subject),
			},
			Body: &types.Body{
				Html: &types.Content{
					Charset: aws.String("UTF-8"),
					Data:    aws.String(htmlBody),
				},
				Text: &types.Content{
					Charset: aws.String("UTF-8"),
					Data:    aws.String(textBody),
				},
			},
		},
		Source: aws.String(s.sender),
	})
	if err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}

// LogSender writes the reset link to the log instead of sending mail.
// Used in development and when MAIL_ENABLED is false.
type LogSender struct {
	Logger *slog.Logger
}

// NewLogSender returns a LogSender writing to the default logger.
func NewLogSender() *LogSender {
	return &LogSender{Logger: slog.Default()}
}

func (s *LogSender) SendPasswordReset(ctx context.Context, recipient, resetURL string) error {
	s.Logger.InfoContext(ctx, "password reset link (mail disabled)",
		slog.String("recipient", recipient),
		slog.String("url", resetURL),
	)
	return nil
}
