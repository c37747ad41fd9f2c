// Command llmtest exercises the configured provider chain from the shell.
// Useful for checking API keys and the fallback order before deploying.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	appconfig "github.com/premiumdental/dental-ai-platform/internal/config"
	"github.com/premiumdental/dental-ai-platform/internal/conversation"
	"github.com/premiumdental/dental-ai-platform/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	logger := logging.New("info")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	providers, closeAll, err := conversation.BuildProviders(ctx, cfg, nil, logger)
	if err != nil {
		log.Fatalf("build providers: %v", err)
	}
	defer func() { _ = closeAll() }()

	req := conversation.LLMRequest{
		Turns: []conversation.Turn{
			{Role: conversation.RoleSystem, Content: conversation.SystemPrompt()},
			{Role: conversation.RoleUser, Content: "Hi, do you have any cleaning appointments this week?"},
		},
		MaxTokens:   200,
		Temperature: 0.8,
	}

	fmt.Println("LLM Provider Test")
	fmt.Println("-----------------")

	for i, p := range providers {
		fmt.Printf("\n[%d] %s\n", i+1, p.Name)
		start := time.Now()
		resp, err := p.Client.Complete(ctx, req)
		elapsed := time.Since(start).Round(time.Millisecond)
		if err != nil {
			fmt.Printf("    error (%v): %v\n", elapsed, err)
			continue
		}
		fmt.Printf("    ok (%v): %s\n", elapsed, resp.Content)
		fmt.Printf("    tokens: in=%d out=%d\n", resp.Usage.InputTokens, resp.Usage.OutputTokens)
	}

	fmt.Println("\nGateway fallback")
	fmt.Println("----------------")
	gateway := conversation.NewGateway(providers, nil, logger)
	resp, err := gateway.Complete(ctx, req)
	if err != nil {
		fmt.Printf("gateway error: %v\n", err)
	}
	fmt.Printf("reply: %s\n", resp.Content)
}
