package service

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// EmailService handles sending guardian emails via Amazon SES
type EmailService struct {
	client     *sesv2.Client
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	debug      bool
}

// NewEmailService creates a new email service. When fromEmail is empty
// the service is created disabled and every send becomes a logged no-op.
func NewEmailService(awsRegion, fromEmail, fromName, appBaseURL string, debug bool) (*EmailService, error) {
	if fromEmail == "" {
		log.Println("Email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{
			enabled: false,
			debug:   debug,
		}, nil
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(awsRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := sesv2.NewFromConfig(cfg)
	log.Printf("Email service enabled: from=%s, region=%s", fromEmail, awsRegion)

	return &EmailService{
		client:     client,
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
		debug:      debug,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendChildCredentials emails the generated username and passcode for a
// newly registered child to the guardian.
func (s *EmailService) SendChildCredentials(ctx context.Context, to, nickname, username, passcode string) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): child credentials to %s", to)
		return nil
	}

	subject := fmt.Sprintf("Login details for %s", nickname)
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #4a90e2; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.credentials { background-color: #fff; border: 1px solid #ddd; padding: 15px; border-radius: 5px; font-family: monospace; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>%s Can Now Sign In</h1>
		</div>
		<div class="content">
			<p>Hi,</p>
			<p>A new child account was just added to your family. Here is how %s signs in on the app:</p>
			<div class="credentials">
				<p>Username: <strong>%s</strong></p>
				<p>Passcode: <strong>%s</strong></p>
			</div>
			<p>Keep these details somewhere safe. You can reset the passcode at any time from your dashboard.</p>
		</div>
		<div class="footer">
			<p>This is an automated email from GuardianLink. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, nickname, nickname, username, passcode)

	textBody := fmt.Sprintf(`Hi,

A new child account was just added to your family. Here is how %s signs in on the app:

Username: %s
Passcode: %s

Keep these details somewhere safe. You can reset the passcode at any time from your dashboard.

---
This is an automated email from GuardianLink. Please do not reply.
`, nickname, username, passcode)

	return s.sendEmail(ctx, to, subject, htmlBody, textBody)
}

// SendWelcomeEmail sends a welcome email to a new guardian account
func (s *EmailService) SendWelcomeEmail(ctx context.Context, toEmail, toName string) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): welcome to %s", toEmail)
		return nil
	}

	subject := "Welcome to GuardianLink!"
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #4a90e2; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.button { display: inline-block; padding: 12px 30px; background-color: #4a90e2; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>Welcome to GuardianLink!</h1>
		</div>
		<div class="content">
			<p>Hi %s,</p>
			<p>Thank you for creating your account! You can now add your children, plan their term and follow their progress.</p>
			<p>Here's what you can do next:</p>
			<ul>
				<li>Register child accounts for your family</li>
				<li>Set up a study plan for the term</li>
				<li>Turn on weekly or monthly progress reports</li>
			</ul>
			<p style="text-align: center;">
				<a href="%s/login" class="button">Get Started</a>
			</p>
		</div>
		<div class="footer">
			<p>This is an automated email from GuardianLink. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, toName, s.appBaseURL)

	textBody := fmt.Sprintf(`Hi %s,

Thank you for creating your account! You can now add your children, plan their term and follow their progress.

Here's what you can do next:
- Register child accounts for your family
- Set up a study plan for the term
- Turn on weekly or monthly progress reports

Get started: %s/login

---
This is an automated email from GuardianLink. Please do not reply.
`, toName, s.appBaseURL)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// SendConsentReceipt confirms to the guardian which consents were recorded
func (s *EmailService) SendConsentReceipt(ctx context.Context, toEmail string, marketing bool) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): consent receipt to %s", toEmail)
		return nil
	}

	marketingLine := "You have opted out of marketing communication."
	if marketing {
		marketingLine = "You have opted in to marketing communication."
	}

	subject := "Your consent choices"
	textBody := fmt.Sprintf(`Hi,

This confirms the consent choices recorded for your account:

- Privacy policy: accepted
- Terms of service: accepted
- %s

You can review these at any time from your account settings.

---
This is an automated email from GuardianLink. Please do not reply.
`, marketingLine)

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body>
	<p>Hi,</p>
	<p>This confirms the consent choices recorded for your account:</p>
	<ul>
		<li>Privacy policy: accepted</li>
		<li>Terms of service: accepted</li>
		<li>%s</li>
	</ul>
	<p>You can review these at any time from your account settings.</p>
	<p style="font-size: 12px; color: #666;">This is an automated email from GuardianLink. Please do not reply.</p>
</body>
</html>
`, marketingLine)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	if s.debug && result.MessageId != nil {
		log.Printf("[DEBUG] SES message ID: %s", *result.MessageId)
	}

	log.Printf("Email sent successfully: to=%s, subject=%s", toEmail, subject)
	return nil
}
