package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage chat sessions",
	Long: `Manage chat sessions: list, create, select, rename, and delete.

Session ids may be abbreviated to a unique prefix (at least 4 characters).

Examples:
  lorekeep sessions list
  lorekeep sessions new "Billing questions"
  lorekeep sessions use 3f2a
  lorekeep sessions rename 3f2a "Auth service notes"
  lorekeep sessions delete 3f2a`,
	RunE: runSessionsList,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	RunE:  runSessionsList,
}

var sessionsNewCmd = &cobra.Command{
	Use:   "new [title]",
	Short: "Create a session and select it",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSessionsNew,
}

var sessionsUseCmd = &cobra.Command{
	Use:   "use <id>",
	Short: "Select the current session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsUse,
}

var sessionsRenameCmd = &cobra.Command{
	Use:   "rename <id> <title>",
	Short: "Rename a session",
	Args:  cobra.ExactArgs(2),
	RunE:  runSessionsRename,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsNewCmd)
	sessionsCmd.AddCommand(sessionsUseCmd)
	sessionsCmd.AddCommand(sessionsRenameCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
}

var currentMarkStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00D787")).Bold(true)

func runSessionsList(cmd *cobra.Command, args []string) error {
	sessions := store.Sessions()
	if len(sessions) == 0 {
		fmt.Println("No sessions. Start one with: lorekeep chat \"...\"")
		return nil
	}

	currentID := store.CurrentSessionID()
	for _, sess := range sessions {
		mark := "  "
		if sess.ID == currentID {
			mark = currentMarkStyle.Render("* ")
		}
		title := sess.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%s%s  %-40s %d messages\n", mark, sess.ID[:8], truncateTitle(title, 40), len(sess.Messages))
	}
	return nil
}

func runSessionsNew(cmd *cobra.Command, args []string) error {
	title := ""
	if len(args) > 0 {
		title = args[0]
	}

	ctx := cmd.Context()
	id := store.AddSession(ctx, title)
	store.SetCurrentSessionID(ctx, id)
	fmt.Printf("Created and selected session %s\n", id[:8])
	return nil
}

func runSessionsUse(cmd *cobra.Command, args []string) error {
	sess, err := resolveSession(args[0])
	if err != nil {
		return err
	}
	store.SetCurrentSessionID(cmd.Context(), sess.ID)
	fmt.Printf("Selected session %s (%s)\n", sess.ID[:8], sess.Title)
	return nil
}

func runSessionsRename(cmd *cobra.Command, args []string) error {
	sess, err := resolveSession(args[0])
	if err != nil {
		return err
	}
	store.RenameSession(cmd.Context(), sess.ID, args[1])
	fmt.Printf("Renamed session %s to %q\n", sess.ID[:8], args[1])
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	sess, err := resolveSession(args[0])
	if err != nil {
		return err
	}
	store.DeleteSession(cmd.Context(), sess.ID)
	fmt.Printf("Deleted session %s\n", sess.ID[:8])
	if store.CurrentSessionID() == "" {
		fmt.Println("No session selected. Use 'lorekeep sessions use <id>' to select one.")
	}
	return nil
}

func truncateTitle(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return strings.TrimSpace(s[:maxLen-3]) + "..."
}
