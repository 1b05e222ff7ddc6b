package email

import (
	"context"
	"fmt"
	"html"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/rs/zerolog"
)

// Config selects the sender identity and region. A disabled notifier
// accepts every call and sends nothing.
type Config struct {
	Enabled   bool
	Region    string
	FromEmail string
	FromName  string
}

type sesAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESNotifier sends account emails through Amazon SES.
type SESNotifier struct {
	client  sesAPI
	from    string
	enabled bool
	log     zerolog.Logger
}

// NewSESNotifier loads AWS credentials from the default chain. With
// cfg.Enabled false or no sender address it returns a disabled notifier.
func NewSESNotifier(ctx context.Context, cfg Config, log zerolog.Logger) (*SESNotifier, error) {
	if !cfg.Enabled || cfg.FromEmail == "" {
		log.Info().Msg("email notifier disabled")
		return &SESNotifier{log: log}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	log.Info().Str("from", cfg.FromEmail).Str("region", cfg.Region).Msg("email notifier enabled")
	return newNotifier(sesv2.NewFromConfig(awsCfg), cfg, log), nil
}

func newNotifier(client sesAPI, cfg Config, log zerolog.Logger) *SESNotifier {
	from := cfg.FromEmail
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail)
	}
	return &SESNotifier{client: client, from: from, enabled: true, log: log}
}

// SendWelcome greets a newly registered user.
func (n *SESNotifier) SendWelcome(ctx context.Context, toEmail, toName string) error {
	if !n.enabled {
		n.log.Debug().Str("to", toEmail).Msg("welcome email skipped (notifier disabled)")
		return nil
	}

	subject := "Welcome to OBA LifeHub"
	text := fmt.Sprintf(`Hi %s,

Your OBA LifeHub account is ready. Earn coins with every purchase and
activity, then spend them on rewards in your wallet.

---
This is an automated message. Please do not reply.
`, toName)
	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<h1>Welcome to OBA LifeHub</h1>
	<p>Hi %s,</p>
	<p>Your account is ready. Earn coins with every purchase and activity, then spend them on rewards in your wallet.</p>
	<p style="font-size: 12px; color: #666;">This is an automated message. Please do not reply.</p>
</body>
</html>
`, html.EscapeString(toName))

	return n.send(ctx, toEmail, subject, body, text)
}

func (n *SESNotifier) send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	out, err := n.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(n.from),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(htmlBody), Charset: aws.String("UTF-8")},
					Text: &types.Content{Data: aws.String(textBody), Charset: aws.String("UTF-8")},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}

	ev := n.log.Info().Str("to", to).Str("subject", subject)
	if out != nil && out.MessageId != nil {
		ev = ev.Str("message_id", *out.MessageId)
	}
	ev.Msg("email sent")
	return nil
}
