package aws

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// SESAPI is the single sesv2 operation used for transactional mail.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// NewSESClient builds a sesv2 client from the shared config.
func NewSESClient(cfg sdkaws.Config) *sesv2.Client {
	return sesv2.NewFromConfig(cfg)
}

// BuildHTMLEmail assembles a simple single-recipient HTML message.
func BuildHTMLEmail(from, to, subject, html string) *sesv2.SendEmailInput {
	return &sesv2.SendEmailInput{
		FromEmailAddress: sdkaws.String(from),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: sdkaws.String(subject), Charset: sdkaws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: sdkaws.String(html), Charset: sdkaws.String("UTF-8")},
				},
			},
		},
	}
}

// SendHTMLEmail sends one message and returns the SES message id.
func SendHTMLEmail(ctx context.Context, api SESAPI, from, to, subject, html string) (string, error) {
	out, err := api.SendEmail(ctx, BuildHTMLEmail(from, to, subject, html))
	if err != nil {
		return "", fmt.Errorf("ses send to %s failed: %w", to, err)
	}
	return sdkaws.ToString(out.MessageId), nil
}
