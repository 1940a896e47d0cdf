package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lorekeep/lorekeep/internal/session"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export [session-id]",
	Short: "Export sessions as json, yaml, or markdown",
	Long: `Export chat sessions for archival or processing elsewhere.

Exports all sessions by default, or a single session when an id is given.

Examples:
  lorekeep export
  lorekeep export --format yaml
  lorekeep export 3f2a --format markdown -o thread.md`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "output format: json, yaml, or markdown")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write output to file instead of stdout")
}

func runExport(cmd *cobra.Command, args []string) error {
	var sessions []session.Session
	if len(args) > 0 {
		sess, err := resolveSession(args[0])
		if err != nil {
			return err
		}
		sessions = []session.Session{*sess}
	} else {
		sessions = store.Sessions()
	}

	var out []byte
	var err error
	switch exportFormat {
	case "json":
		out, err = json.MarshalIndent(sessions, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal json: %w", err)
		}
		out = append(out, '\n')
	case "yaml":
		out, err = yaml.Marshal(sessions)
		if err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
	case "markdown", "md":
		out = []byte(renderMarkdown(sessions))
	default:
		return fmt.Errorf("unknown format %q (want json, yaml, or markdown)", exportFormat)
	}

	if exportOutput == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	if err := os.WriteFile(exportOutput, out, 0644); err != nil {
		return fmt.Errorf("write %s: %w", exportOutput, err)
	}
	fmt.Printf("Exported %d session(s) to %s\n", len(sessions), exportOutput)
	return nil
}

// renderMarkdown formats sessions as a readable transcript.
func renderMarkdown(sessions []session.Session) string {
	var b strings.Builder
	for i, sess := range sessions {
		if i > 0 {
			b.WriteString("\n---\n\n")
		}
		title := sess.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(&b, "# %s\n\n", title)
		fmt.Fprintf(&b, "Session `%s`, %d messages.\n\n", sess.ID, len(sess.Messages))
		for _, msg := range sess.Messages {
			switch msg.Role {
			case session.RoleUser:
				b.WriteString("**You:**\n\n")
			default:
				b.WriteString("**Assistant:**\n\n")
			}
			b.WriteString(msg.Content)
			b.WriteString("\n\n")
		}
	}
	return b.String()
}
