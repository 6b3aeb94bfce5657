package outbound

import (
	"context"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/verihire/verihire-backend/internal/infrastructure/config"
)

// sesAPI is the slice of the SES client the sender needs. Tests substitute
// a fake; production wires the real client from NewEmailSender.
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// EmailSender delivers reference questionnaires over SES when a reference
// has no phone number. The questionnaire round-trip is collected out of
// band; sending is fire-and-forget from the session worker's view.
type EmailSender struct {
	client sesAPI
	from   string
	logger *slog.Logger
}

func NewEmailSender(ctx context.Context, cfg config.EmailConfig, logger *slog.Logger) (*EmailSender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return &EmailSender{
		client: ses.NewFromConfig(awsCfg),
		from:   cfg.FromAddress,
		logger: logger,
	}, nil
}

func (s *EmailSender) SendReferenceEmail(ctx context.Context, to, referenceName, candidateName string) (string, error) {
	subject := fmt.Sprintf("Reference request for %s", candidateName)
	body := fmt.Sprintf(
		"Hello %s,\n\n"+
			"%s listed you as a professional reference. Please reply to this "+
			"email with:\n\n"+
			"1. Your working relationship with the candidate\n"+
			"2. A performance rating from 1 to 10\n"+
			"3. Whether you would hire them again\n\n"+
			"Thank you,\nVeriHire Verification Team\n",
		referenceName, candidateName)

	out, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      &s.from,
		Destination: &types.Destination{ToAddresses: []string{to}},
		Message: &types.Message{
			Subject: &types.Content{Data: &subject},
			Body: &types.Body{
				Text: &types.Content{Data: &body},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("sending reference email: %w", err)
	}

	messageID := ""
	if out.MessageId != nil {
		messageID = *out.MessageId
	}
	s.logger.Info("reference email sent",
		slog.String("to", to),
		slog.String("message_id", messageID))
	return messageID, nil
}
