// internal/common/aws/ses.go
package aws

import (
	"context"
	"errors"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

var ErrNoRecipient = errors.New("no recipient")

// SESAPI is the subset of the SES client used here.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Email is one outbound message. HTML is optional.
type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type SESClient struct {
	api  SESAPI
	from string
}

func NewSESClient(cfg sdkaws.Config, from string) *SESClient {
	return &SESClient{api: ses.NewFromConfig(cfg), from: from}
}

// NewSESClientWithAPI is used with a stubbed API in tests.
func NewSESClientWithAPI(api SESAPI, from string) *SESClient {
	return &SESClient{api: api, from: from}
}

// Send delivers e and returns the SES message id.
func (s *SESClient) Send(ctx context.Context, e Email) (string, error) {
	if e.To == "" {
		return "", ErrNoRecipient
	}

	body := &types.Body{Text: &types.Content{Data: sdkaws.String(e.Text), Charset: sdkaws.String("UTF-8")}}
	if e.HTML != "" {
		body.Html = &types.Content{Data: sdkaws.String(e.HTML), Charset: sdkaws.String("UTF-8")}
	}

	out, err := s.api.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{ToAddresses: []string{e.To}},
		Message: &types.Message{
			Subject: &types.Content{Data: sdkaws.String(e.Subject), Charset: sdkaws.String("UTF-8")},
			Body:    body,
		},
		Source: sdkaws.String(s.from),
	})
	if err != nil {
		return "", fmt.Errorf("ses send email: %w", err)
	}
	return sdkaws.ToString(out.MessageId), nil
}
