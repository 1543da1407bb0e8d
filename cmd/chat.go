package cmd

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"chat-gateway/internal/client"
	"chat-gateway/internal/history"
	"chat-gateway/internal/models"
	"chat-gateway/internal/terminal"
)

const chatUsage = `Usage:
  chat-gateway chat [--url <base-url>] [--timeout <duration>]

Flags:
  --url      string     Base URL of a running chat-gateway server (default http://127.0.0.1:8080)
  --timeout  duration   Per-turn HTTP timeout (default 2m)

Commands inside the chat:
  /reset   Start a new conversation
  /exit    Quit`

func chat(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, chatUsage)
	}

	var baseURL string
	var timeout time.Duration
	fs.StringVar(&baseURL, "url", "http://127.0.0.1:8080", "server base url")
	fs.DurationVar(&timeout, "timeout", 2*time.Minute, "per-turn timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse chat flags: %w", err)
	}

	cl, err := client.New(baseURL, &http.Client{Timeout: timeout})
	if err != nil {
		return err
	}
	if err := cl.Health(ctx); err != nil {
		return fmt.Errorf("server at %s is not reachable: %w", baseURL, err)
	}

	display := terminal.NewDisplay(os.Stdout)
	session := history.NewSession(cl)
	display.PrintWelcome(baseURL)

	return runChatLoop(ctx, os.Stdin, display, session)
}

func runChatLoop(ctx context.Context, in io.Reader, display *terminal.Display, session *history.Session) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for {
		display.PrintPrompt()
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			display.PrintGoodbye()
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			display.PrintGoodbye()
			return nil
		case "/reset":
			session.Reset()
			display.PrintNotice("conversation cleared")
			continue
		}

		display.ShowTurn(models.RoleUser, line, time.Now())

		stopTyping := display.StartTyping()
		reply, err := session.Send(ctx, line)
		stopTyping()

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			display.PrintError(err)
			var serverErr *client.ServerError
			if errors.As(err, &serverErr) && serverErr.Rejected() {
				display.PrintNotice("turn not recorded; type /reset to start a new conversation")
			}
		}
		display.ShowTurn(models.RoleAssistant, reply, time.Now())
	}
}
