package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	var conversationFlag string

	chatCmd := &cobra.Command{
		Use:   "chat MESSAGE...",
		Short: "Send a chat message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]interface{}{"message": strings.Join(args, " ")}
			if conversationFlag != "" {
				payload["conversationId"] = conversationFlag
			}
			data, err := doPostJSON(apiFlag+"/api/chat", payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	chatCmd.Flags().StringVarP(&conversationFlag, "conversation", "c", "", "Conversation ID (new when omitted)")

	var confirmed bool
	confirmCmd := &cobra.Command{
		Use:   "confirm CONVERSATION_ID",
		Short: "Confirm or cancel pending actions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doPostJSON(apiFlag+"/api/chat/confirm", map[string]interface{}{
				"conversationId": args[0],
				"confirmed":      confirmed,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	confirmCmd.Flags().BoolVarP(&confirmed, "yes", "y", true, "Apply the pending actions (use --yes=false to cancel)")
	chatCmd.AddCommand(confirmCmd)

	rootCmd.AddCommand(chatCmd)
}
