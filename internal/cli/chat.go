package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lorekeep/lorekeep/internal/chat"
	"github.com/lorekeep/lorekeep/internal/session"
	"github.com/lorekeep/lorekeep/internal/stream"
)

var chatNew bool

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Send a message to the current session and stream the reply",
	Long: `Send a message to the current chat session and stream the assistant's
reply token by token. Creates and selects a session when none is active.

Examples:
  lorekeep chat "What did I note about the auth service?"
  lorekeep chat --new "Start a fresh thread about billing"`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatNew, "new", false, "start the turn in a new session")
}

func runChat(cmd *cobra.Command, args []string) error {
	prompt := strings.TrimSpace(args[0])
	if prompt == "" {
		return fmt.Errorf("message must not be empty")
	}
	ctx := cmd.Context()

	sess := store.CurrentSession()
	if chatNew || sess == nil {
		id := store.AddSession(ctx, "")
		store.SetCurrentSessionID(ctx, id)
		sess = store.CurrentSession()
	}
	chatID := sess.ID
	isFirstMessage := len(sess.Messages) == 0

	store.AppendMessage(ctx, chatID, session.RoleUser, prompt)
	svc.StartTurn(chatID)

	src, err := apiClient.Ask(ctx, chatID, prompt)
	if err != nil {
		return fmt.Errorf("start turn: %w", err)
	}
	defer src.Close()

	if term.IsTerminal(int(os.Stdout.Fd())) {
		err = runTurnView(ctx, src, chatID)
	} else {
		err = runTurnPlain(ctx, src)
	}
	if err != nil {
		return err
	}

	state := svc.TurnState(chatID)
	svc.EndTurn(chatID)
	if state.Phase == chat.PhaseError {
		return fmt.Errorf("turn failed: %s", state.Err)
	}

	// Auto-title fresh sessions from the opening message. Best effort: the
	// conversation is already saved, so a failed title is only logged.
	if isFirstMessage {
		if title, err := apiClient.Title(ctx, chatID, prompt); err != nil {
			logger.Warn("title generation failed", "chat_id", chatID, "error", err)
		} else if title != "" {
			store.RenameSession(ctx, chatID, title)
		}
	}

	return nil
}

// runTurnPlain streams tokens straight to stdout (non-TTY output).
func runTurnPlain(ctx context.Context, src stream.Source) error {
	d := stream.NewDispatcher(src, svc, logger, stream.WithObserver(func(ev chat.Event) {
		if ev.Type == chat.EventOutput && ev.Payload.Kind == chat.OutputToken {
			fmt.Print(ev.Payload.Content)
		}
	}))
	if err := d.Run(ctx); err != nil {
		return fmt.Errorf("stream: %w", err)
	}
	fmt.Println()
	return nil
}
