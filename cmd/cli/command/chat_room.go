package command

import (
	"petshop/cmd/cli/authentication"
	c "petshop/cmd/cli/command/client"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Support chat commands",
	Long:  `Join the live support chat or read its recent history.`,
}

var chatJoinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join the support chat",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		if username == "" {
			// chat under the logged in name when there is one
			if creds, err := authentication.LoadCredentials(); err == nil {
				username = creds.Username
			}
		}
		return c.JoinChat(cmd.Context(), apiURL, username, cmd.InOrStdin())
	},
}

var chatHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Print recent chat messages",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		history, err := c.NewHTTPClient(apiURL).ChatHistory(cmd.Context(), limit)
		if err != nil {
			return err
		}
		for _, msg := range history.Messages {
			c.PrintMessage(msg)
		}
		return nil
	},
}

func init() {
	chatJoinCmd.Flags().StringP("username", "u", "", "display name (defaults to the logged in user, then Guest)")
	chatHistoryCmd.Flags().IntP("limit", "n", 20, "number of messages")

	chatCmd.AddCommand(chatJoinCmd, chatHistoryCmd)
	rootCmd.AddCommand(chatCmd)
}
