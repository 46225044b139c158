package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chamber-ai/william/src/arrakis"
	"github.com/chamber-ai/william/src/config"
	"github.com/chamber-ai/william/src/session"
	"github.com/chamber-ai/william/src/wsclient"
)

// ChatCmd is a line-based chat REPL against a running backend.
type ChatCmd struct {
	URL string `help:"Backend websocket URL (overrides config)"`
}

func (cmd *ChatCmd) Run(cli *CLI) error {
	// Logs go to a file so they don't interleave with streamed replies.
	logger := createFileLogger(cli.LogLevel)

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}

	url := cfg.Client.URL
	if cmd.URL != "" {
		url = cmd.URL
	}

	api, err := cfg.API.Selector()
	if err != nil {
		return fmt.Errorf("invalid api selection: %w", err)
	}

	var ctrl *session.Controller
	client := wsclient.New(wsclient.Config{
		URL:               url,
		MaxRetries:        cfg.Client.MaxRetries,
		RetryInterval:     cfg.Client.RetryInterval(),
		HeartbeatInterval: cfg.Client.HeartbeatInterval(),
		Logger:            logger,
		Handler: func(resp arrakis.Response) {
			switch r := resp.(type) {
			case arrakis.CompletionResponse:
				fmt.Print(r.Delta)
			case arrakis.CompletionEndResponse:
				fmt.Println()
			case arrakis.ErrorResponse:
				fmt.Fprintf(os.Stderr, "backend error: %s: %s\n", r.ErrorType, r.Message)
			}
			ctrl.HandleResponse(resp)
		},
	})
	ctrl = session.New(session.Config{
		Sender: client,
		API:    api,
		Logger: logger,
	})

	client.Connect()
	defer client.Close()

	if err := ctrl.FetchSystemPrompt(); err != nil {
		logger.Warn("failed to fetch system prompt", "error", err)
	}

	fmt.Printf("william chat (%s/%s). /help for commands.\n", api.Provider, api.Model)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := cmd.handleCommand(ctrl, line); quit {
				return nil
			}
			continue
		}

		if err := ctrl.Send(line); err != nil {
			fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
			continue
		}
		waitForStream(ctrl)
	}
}

func (cmd *ChatCmd) handleCommand(ctrl *session.Controller, line string) (quit bool) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true

	case "/help":
		fmt.Println(`commands:
  /new                 start a fresh conversation
  /list                list saved conversations
  /load <id>           load a conversation
  /fork <sequence>     branch at a message and regenerate
  /regen               regenerate the last reply
  /prompt [text]       show or replace the system prompt
  /model <provider> <model>
  /quit`)

	case "/new":
		ctrl.NewConversation()

	case "/list":
		if err := ctrl.ListConversations(); err != nil {
			fmt.Fprintf(os.Stderr, "list failed: %v\n", err)
			return false
		}
		// The response lands asynchronously; give it a beat.
		time.Sleep(200 * time.Millisecond)
		for _, c := range ctrl.Conversations() {
			fmt.Printf("  %d  %s\n", *c.ID, c.Name)
		}

	case "/load":
		if len(fields) != 2 {
			fmt.Println("usage: /load <id>")
			return false
		}
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			fmt.Println("usage: /load <id>")
			return false
		}
		if err := ctrl.Load(id); err != nil {
			fmt.Fprintf(os.Stderr, "load failed: %v\n", err)
		}

	case "/fork":
		if len(fields) != 2 {
			fmt.Println("usage: /fork <sequence>")
			return false
		}
		seq, err := strconv.Atoi(fields[1])
		if err != nil {
			fmt.Println("usage: /fork <sequence>")
			return false
		}
		if err := ctrl.Fork(seq); err != nil {
			fmt.Fprintf(os.Stderr, "fork failed: %v\n", err)
			return false
		}
		waitForStream(ctrl)

	case "/regen":
		if err := ctrl.Regenerate(); err != nil {
			fmt.Fprintf(os.Stderr, "regenerate failed: %v\n", err)
			return false
		}
		waitForStream(ctrl)

	case "/prompt":
		if len(fields) == 1 {
			fmt.Println(ctrl.SystemPrompt())
			return false
		}
		content := strings.TrimSpace(strings.TrimPrefix(line, "/prompt"))
		if err := ctrl.SaveSystemPrompt(content); err != nil {
			fmt.Fprintf(os.Stderr, "save prompt failed: %v\n", err)
		}

	case "/model":
		if len(fields) != 3 {
			fmt.Println("usage: /model <provider> <model>")
			return false
		}
		api, err := arrakis.NewAPI(fields[1], fields[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return false
		}
		if err := ctrl.SetAPI(api); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}

	default:
		fmt.Printf("unknown command %s (try /help)\n", fields[0])
	}
	return false
}

// waitForStream blocks until the in-flight completion finishes so the
// prompt doesn't interleave with streamed output.
func waitForStream(ctrl *session.Controller) {
	deadline := time.Now().Add(5 * time.Minute)
	for ctrl.Streaming() && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
}
