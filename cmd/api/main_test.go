package main

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"

	appconfig "github.com/premiumdental/dental-ai-platform/internal/config"
	"github.com/premiumdental/dental-ai-platform/pkg/logging"
)

func TestBuildEmailSender(t *testing.T) {
	logger := logging.New("error")

	tests := []struct {
		name string
		cfg  *appconfig.Config
		want bool
	}{
		{name: "sendgrid configured", cfg: &appconfig.Config{
			EmailProvider:     "sendgrid",
			SendGridAPIKey:    "SG.test",
			SendGridFromEmail: "noreply@premiumdental.example",
		}, want: true},
		{name: "sendgrid without key", cfg: &appconfig.Config{
			EmailProvider: "sendgrid",
		}, want: false},
		{name: "ses without from email", cfg: &appconfig.Config{
			EmailProvider: "ses",
		}, want: false},
		{name: "stub", cfg: &appconfig.Config{
			EmailProvider: "stub",
		}, want: true},
		{name: "unknown provider", cfg: &appconfig.Config{
			EmailProvider: "smoke-signals",
		}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := buildEmailSender(tt.cfg, aws.Config{}, logger)
			if got := sender != nil; got != tt.want {
				t.Fatalf("sender != nil = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOriginChecker(t *testing.T) {
	if originChecker(nil) != nil {
		t.Fatal("no allowlist should allow all origins")
	}
	if originChecker([]string{"*"}) != nil {
		t.Fatal("wildcard should allow all origins")
	}

	check := originChecker([]string{"https://premiumdental.example"})
	if check == nil {
		t.Fatal("expected checker")
	}
	if !check("https://premiumdental.example") {
		t.Error("listed origin rejected")
	}
	if check("https://evil.example") {
		t.Error("unlisted origin accepted")
	}
}
