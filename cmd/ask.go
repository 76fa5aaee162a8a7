package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"grantdesk/client"
	"grantdesk/model"
)

var askGrant string

var askCmd = &cobra.Command{
	Use:   "ask QUESTION...",
	Short: "Ask a single question without opening the chat",
	Long: `Send one question and print the answer. With --grant the question is
answered from that grant's documents, with sources.

Actions that need approval are not run from here; open the chat to
approve or reject them.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.TrimSpace(strings.Join(args, " "))
		if question == "" {
			return fmt.Errorf("question must not be empty")
		}

		backend, err := newBackendClient()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		threadID := model.NewSessionID()

		if id := strings.TrimSpace(askGrant); id != "" {
			answer, err := backend.AskGrant(cmd.Context(), client.GrantQuestion{GrantID: id, Question: question, ThreadID: threadID})
			if err != nil {
				printBackendHint(out, backend, err)
				return fmt.Errorf("grant question failed: %w", err)
			}
			printGrantAnswer(out, answer)
			return nil
		}

		reply, err := backend.SendChat(cmd.Context(), client.ChatRequest{Message: question, ThreadID: threadID})
		if err != nil {
			printBackendHint(out, backend, err)
			return fmt.Errorf("chat request failed: %w", err)
		}

		fmt.Fprintln(out, reply.ReplyText())
		if approval, ok := reply.(client.ApprovalReply); ok {
			fmt.Fprintln(out)
			fmt.Fprintln(out, warningStyle.Render("🔒 The assistant wants to run "+approval.ToolCall.Name+"."))
			fmt.Fprintln(out, "   Run grantdesk without arguments to approve or reject it.")
		}
		return nil
	},
}

// printBackendHint points at the health check when the backend itself failed.
func printBackendHint(out io.Writer, backend *client.Client, err error) {
	if !client.IsTransportError(err) {
		return
	}
	fmt.Fprintln(out, warningStyle.Render("💡 Is the backend running at "+backend.BaseURL()+"? Try 'grantdesk health'."))
}

func printGrantAnswer(out io.Writer, answer client.GrantAnswer) {
	fmt.Fprintln(out, answer.Answer)
	if len(answer.Sources) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, infoStyle.Render("Sources:"))
	for _, src := range answer.Sources {
		fmt.Fprintln(out, "  • "+src)
	}
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askGrant, "grant", "g", "", "Answer from a single grant's documents")
}
