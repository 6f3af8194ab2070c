package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	pkglogger "github.com/clinicwise/clinic-backend/pkg/logger"
)

// LockoutNotifier tells an account holder that sign-in was blocked
type LockoutNotifier interface {
	NotifyLockout(ctx context.Context, email, username string, blockedUntil time.Time) error
}

// SESAPI is the subset of the SES client used for notifications
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESNotifier sends lockout notices through AWS SES
type SESNotifier struct {
	client      SESAPI
	fromAddress string
	logger      *slog.Logger
}

// NewSESNotifier loads the default AWS configuration for region
func NewSESNotifier(ctx context.Context, region, fromAddress string, logger *slog.Logger) (*SESNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewSESNotifierWithClient(ses.NewFromConfig(cfg), fromAddress, logger), nil
}

// NewSESNotifierWithClient creates a notifier around an existing client
func NewSESNotifierWithClient(client SESAPI, fromAddress string, logger *slog.Logger) *SESNotifier {
	return &SESNotifier{client: client, fromAddress: fromAddress, logger: logger}
}

// NotifyLockout sends the lockout notice
func (n *SESNotifier) NotifyLockout(ctx context.Context, email, username string, blockedUntil time.Time) error {
	until := blockedUntil.UTC().Format("2006-01-02 15:04 MST")

	textBody := fmt.Sprintf(`Sign-in temporarily blocked

Hello %s,

We blocked sign-in to your account after several failed password attempts.
You can try again after %s.

If this was not you, contact your administrator so the account can be reviewed.

This is an automated message. Please do not reply to this email.
`, username, until)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <h2>Sign-in temporarily blocked</h2>
  <p>Hello %s,</p>
  <p>We blocked sign-in to your account after several failed password attempts.
  You can try again after <strong>%s</strong>.</p>
  <p>If this was not you, contact your administrator so the account can be reviewed.</p>
  <p style="color: #666; font-size: 12px;">This is an automated message. Please do not reply to this email.</p>
</body>
</html>
`, username, until)

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String("Sign-in to your account was blocked")},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(htmlBody)},
				Text: &types.Content{Data: aws.String(textBody)},
			},
		},
	}

	result, err := n.client.SendEmail(ctx, input)
	if err != nil {
		n.logger.ErrorContext(ctx, "failed to send lockout email via SES",
			slog.String("email", pkglogger.MaskEmail(email)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	n.logger.InfoContext(ctx, "lockout email sent",
		slog.String("email", pkglogger.MaskEmail(email)),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}

// LogNotifier records lockout notices in the log instead of sending them
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// NotifyLockout logs the notice
func (n *LogNotifier) NotifyLockout(ctx context.Context, email, username string, blockedUntil time.Time) error {
	n.logger.InfoContext(ctx, "lockout notice (email delivery disabled)",
		slog.String("email", pkglogger.MaskEmail(email)),
		slog.String("username", pkglogger.MaskUsername(username)),
		slog.Time("blocked_until", blockedUntil))
	return nil
}
