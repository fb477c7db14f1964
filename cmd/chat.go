// File: cmd/chat.go
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/formpilot/formpilot/api/schemas"
	"github.com/formpilot/formpilot/internal/export"
	"github.com/formpilot/formpilot/internal/observability"
)

// newChatCmd creates the interactive `chat` command.
func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation driving the live application",
		Long: `Opens the configured application in a browser and starts a conversational
loop. Each message is planned by the remote planning service and executed
against the live page. Type /clear to reset the conversation, /export to save
a session report, and /quit to leave.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			comps, err := initializeComponents(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer comps.Shutdown()

			comps.Session.SetStepObserver(func(so schemas.StepOutcome) {
				fmt.Printf("  %s: %s\n", so.Step.Describe(), so.Outcome.String())
			})

			printTranscript(comps.Session.Messages())
			return runChatLoop(ctx, comps, cfg.Export.Format, os.Stdin)
		},
	}
}

// runChatLoop pumps stdin lines through the session until EOF, /quit or
// context cancellation. The reader goroutine is deliberately not awaited: a
// blocked stdin read cannot be interrupted, and the process is about to exit
// anyway.
func runChatLoop(ctx context.Context, comps *components, exportFormat string, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Print("> ")
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			err := handleLine(ctx, comps, exportFormat, line)
			if errors.Is(err, errDone) {
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Print("> ")
		}
	}
}

// errDone signals a clean exit from the chat loop.
var errDone = errors.New("done")

func handleLine(ctx context.Context, comps *components, exportFormat, line string) error {
	text := strings.TrimSpace(line)
	switch {
	case text == "":
		return nil
	case text == "/quit", text == "/exit":
		return errDone
	case text == "/clear":
		comps.Session.Clear(ctx)
		fmt.Println("Conversation cleared.")
		printTranscript(comps.Session.Messages())
		return nil
	case strings.HasPrefix(text, "/export"):
		path := strings.TrimSpace(strings.TrimPrefix(text, "/export"))
		return exportSession(comps, exportFormat, path)
	}

	reply := comps.Session.Ask(ctx, text)
	fmt.Println(reply.Content)
	return nil
}

func exportSession(comps *components, format, path string) error {
	if !comps.Session.ExportAvailable() {
		fmt.Println("Nothing to export yet.")
		return nil
	}
	reporter, err := export.New(format, path)
	if err != nil {
		return err
	}
	defer reporter.Close()
	if err := reporter.Write(comps.Session.Report()); err != nil {
		return fmt.Errorf("failed to write session report: %w", err)
	}
	if path != "" {
		fmt.Printf("Session report written to %s\n", path)
	}
	return nil
}

func printTranscript(msgs []schemas.ChatMessage) {
	for _, m := range msgs {
		fmt.Printf("[%s] %s\n", m.Role, m.Content)
	}
}
