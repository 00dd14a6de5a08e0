// Command route resolves one typed request against the registry and
// executes it, skipping the audio front end entirely. Useful for
// exercising the intent path without a microphone.
//
// Exit codes: 0 on success, 1 on failure, 2 when no request text was
// given.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"hey-george/config"
	"hey-george/internal/domain"
	"hey-george/internal/infra/homeassistant"
	infrallm "hey-george/internal/infra/llm"
	"hey-george/internal/intent"
	"hey-george/internal/registry"
)

func main() {
	configPath := pflag.StringP("config", "c", "config.yaml", "path to the YAML configuration file")
	envPath := pflag.StringP("env", "e", ".env", "path to an optional dotenv file")
	dryRun := pflag.Bool("dry-run", false, "resolve and print the command without executing it")
	pflag.Parse()

	text := strings.TrimSpace(strings.Join(pflag.Args(), " "))
	if text == "" {
		fmt.Fprintln(os.Stderr, "usage: route [flags] <request text>")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath, *envPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(cfg, logger, text, *dryRun); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, text string, dryRun bool) error {
	ctx := context.Background()

	snap, err := registry.Load(cfg.Registry.Path)
	if err != nil {
		return err
	}

	llmClient := infrallm.NewClient(cfg.LLM.URL, cfg.LLM.Model, cfg.LLM.APIKey, cfg.LLM.MaxTokens, cfg.LLM.Timeout)
	resolver := intent.NewResolver(llmClient, logger)

	resolveCtx, cancel := context.WithTimeout(ctx, cfg.LLM.Timeout)
	cmd, err := resolver.Resolve(resolveCtx, text, snap)
	cancel()

	var notApplicable *domain.NotApplicableError
	if errors.As(err, &notApplicable) {
		reply := notApplicable.Reply
		if reply == "" {
			reply = "Not applicable."
		}
		fmt.Println(reply)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s.%s %v %v\n", cmd.Domain, cmd.Action, cmd.Target.Payload(), cmd.Data)
	if dryRun {
		return nil
	}

	haClient := homeassistant.NewClient(cfg.HomeAssistant.URL, cfg.HomeAssistant.Token, cfg.HomeAssistant.Timeout)
	execCtx, cancel := context.WithTimeout(ctx, cfg.HomeAssistant.Timeout)
	defer cancel()
	return haClient.Execute(execCtx, cmd)
}
