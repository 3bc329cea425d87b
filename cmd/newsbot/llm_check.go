package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/teams-newsbot/internal/config"
	"github.com/jonathan/teams-newsbot/internal/llm"
	"github.com/jonathan/teams-newsbot/internal/prompts"
	"github.com/jonathan/teams-newsbot/internal/rewriting"
)

// sampleShares are rewritten by llm-check to show the model's style.
var sampleShares = []string{
	"OpenAIが新しいモデルを発表。推論性能が前世代から2倍に向上し、API価格は半額になった。",
	"ローカルLLMを社内PCで動かす手順をまとめました。VRAM 8GBでも7Bモデルが快適に動作します。",
}

var llmCheckCmd = &cobra.Command{
	Use:   "llm-check",
	Short: "Check the language model connection",
	Long:  `Sends a tiny prompt to the configured model, then rewrites a few sample posts.`,
	RunE:  runLLMCheck,
}

func init() {
	rootCmd.AddCommand(llmCheckCmd)
}

func runLLMCheck(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}

	client, err := newLLMClient(ctx, cfg)
	if err != nil {
		return err
	}
	if client == nil {
		return fmt.Errorf("no LLM configured: set LLM_ENDPOINT, or GEMINI_API_KEY with LLM_PROVIDER=gemini")
	}
	defer func() { _ = client.Close() }()

	return checkLLM(ctx, os.Stdout, client, cfg)
}

func checkLLM(ctx context.Context, w io.Writer, client llm.Client, cfg config.Config) error {
	fmt.Fprintf(w, "Provider: %s\nModel:    %s\n", cfg.LLMProvider, client.GetModel())
	if cfg.LLMProvider != config.ProviderGemini {
		fmt.Fprintf(w, "Endpoint: %s\n", cfg.LLMEndpoint)
	}

	reply, err := client.GenerateContent(ctx, llm.Request{
		Prompt:      prompts.MustGet(prompts.Rewriting, "connection-check"),
		Temperature: 0,
		MaxTokens:   10,
	})
	if err != nil {
		return fmt.Errorf("connection check failed: %w", err)
	}
	fmt.Fprintf(w, "Connection OK (reply: %q)\n\n", strings.TrimSpace(reply))

	rw := rewriting.New(client)
	for i, text := range sampleShares {
		fmt.Fprintf(w, "[%d] %s\n  → %s\n\n", i+1, text, rw.Rewrite(ctx, text))
	}
	return nil
}
