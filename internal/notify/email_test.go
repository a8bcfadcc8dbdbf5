package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
)

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "",
		FromEmail: "test@example.com",
	}, nil)

	if sender != nil {
		t.Error("expected nil sender when API key is empty")
	}
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "test-key",
		FromEmail: "test@example.com",
	}, nil)

	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != defaultFromName {
		t.Errorf("expected default from name %q, got %q", defaultFromName, sender.fromName)
	}
}

func TestSendGridSender_Send_NilClient(t *testing.T) {
	sender := &SendGridSender{}

	err := sender.Send(context.Background(), EmailMessage{
		To:      "owner@salon.example",
		Subject: "Test",
		Body:    "Test body",
	})
	if err == nil {
		t.Error("expected error when client is nil")
	}
}

func TestStubEmailSender_Send(t *testing.T) {
	if err := NewStubEmailSender(nil).Send(context.Background(), EmailMessage{To: "owner@salon.example", Subject: "Test"}); err != nil {
		t.Errorf("stub sender should not return error, got: %v", err)
	}
}

func TestSESSender_Send(t *testing.T) {
	api := &fakeSES{}
	sender := NewSESSender(api, SESConfig{FromEmail: "noreply@salon.example", FromName: "Salon"}, nil)

	err := sender.Send(context.Background(), EmailMessage{
		To:      "owner@salon.example",
		ReplyTo: "alice@example.com",
		Subject: "New booking request",
		Body:    "text",
		HTML:    "<p>html</p>",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got := aws.ToString(api.input.FromEmailAddress); got != "Salon <noreply@salon.example>" {
		t.Errorf("from = %q", got)
	}
	if got := api.input.Destination.ToAddresses; len(got) != 1 || got[0] != "owner@salon.example" {
		t.Errorf("to = %v", got)
	}
	if got := api.input.ReplyToAddresses; len(got) != 1 || got[0] != "alice@example.com" {
		t.Errorf("reply-to = %v", got)
	}
	body := api.input.Content.Simple.Body
	if aws.ToString(body.Text.Data) != "text" || aws.ToString(body.Html.Data) != "<p>html</p>" {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestSESSender_SendError(t *testing.T) {
	sender := NewSESSender(&fakeSES{err: errors.New("throttled")}, SESConfig{FromEmail: "noreply@salon.example"}, nil)

	if err := sender.Send(context.Background(), EmailMessage{To: "owner@salon.example"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewEmailSender_SelectsProvider(t *testing.T) {
	if _, ok := NewEmailSender(SenderOptions{}, nil).(*StubEmailSender); !ok {
		t.Error("expected stub without credentials")
	}
	if _, ok := NewEmailSender(SenderOptions{SendGrid: SendGridConfig{APIKey: "key"}}, nil).(*SendGridSender); !ok {
		t.Error("expected sendgrid when an API key is set")
	}
	if _, ok := NewEmailSender(SenderOptions{Provider: "stub", SendGrid: SendGridConfig{APIKey: "key"}}, nil).(*StubEmailSender); !ok {
		t.Error("expected stub when explicitly selected")
	}
	if _, ok := NewEmailSender(SenderOptions{Provider: "SES", SESClient: &fakeSES{}}, nil).(*SESSender); !ok {
		t.Error("expected SES sender")
	}
	if _, ok := NewEmailSender(SenderOptions{Provider: "ses"}, nil).(*StubEmailSender); !ok {
		t.Error("expected stub when SES has no client")
	}
}
