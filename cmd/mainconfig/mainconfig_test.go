package mainconfig

import (
	"context"
	"testing"

	appconfig "github.com/wolfman30/salon-booking/internal/config"
)

func TestLoadAWSConfigStaticCredentials(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	cfg := &appconfig.Config{
		AWSRegion:           "eu-west-3",
		AWSAccessKeyID:      "test",
		AWSSecretAccessKey:  "test",
		AWSEndpointOverride: "http://localhost:4566",
	}

	awsCfg, err := LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if awsCfg.Region != "eu-west-3" {
		t.Fatalf("expected region eu-west-3, got %s", awsCfg.Region)
	}
	creds, err := awsCfg.Credentials.Retrieve(context.Background())
	if err != nil {
		t.Fatalf("retrieve credentials: %v", err)
	}
	if creds.AccessKeyID != "test" {
		t.Fatalf("expected static credentials, got %s", creds.AccessKeyID)
	}

	client, err := NewSESClient(context.Background(), cfg)
	if err != nil || client == nil {
		t.Fatalf("expected SES client, got %v", err)
	}
}
