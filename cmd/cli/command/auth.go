package command

import (
	"fmt"

	"petshop/cmd/cli/authentication"
	"petshop/cmd/cli/command/client"

	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication commands",
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a new PetShop account",
	RunE: func(cmd *cobra.Command, args []string) error {
		var req client.RegisterRequest
		req.Username, _ = cmd.Flags().GetString("username")
		req.Password, _ = cmd.Flags().GetString("password")
		req.Email, _ = cmd.Flags().GetString("email")

		resp, err := client.NewHTTPClient(apiURL).Register(cmd.Context(), &req)
		if err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registered, user id %s\n", resp.UserID)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and remember the access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		var req client.LoginRequest
		req.Username, _ = cmd.Flags().GetString("username")
		req.Password, _ = cmd.Flags().GetString("password")

		resp, err := client.NewHTTPClient(apiURL).Login(cmd.Context(), &req)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		creds := authentication.NewCredentials(req.Username, resp.AccessToken, resp.ExpiresIn)
		if err := authentication.StoreCredentials(creds); err != nil {
			// no keyring available (headless box), fall back to printing
			fmt.Fprintf(cmd.ErrOrStderr(), "could not store token: %v\n", err)
			fmt.Fprintln(cmd.OutOrStdout(), resp.AccessToken)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", req.Username)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := authentication.DeleteCredentials(); err != nil {
			return fmt.Errorf("logout failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

func init() {
	registerCmd.Flags().StringP("username", "u", "", "username (required)")
	registerCmd.Flags().StringP("password", "p", "", "password (required)")
	registerCmd.Flags().StringP("email", "e", "", "email (required)")
	registerCmd.MarkFlagRequired("username")
	registerCmd.MarkFlagRequired("password")
	registerCmd.MarkFlagRequired("email")

	loginCmd.Flags().StringP("username", "u", "", "username (required)")
	loginCmd.Flags().StringP("password", "p", "", "password (required)")
	loginCmd.MarkFlagRequired("username")
	loginCmd.MarkFlagRequired("password")

	authCmd.AddCommand(registerCmd, loginCmd, logoutCmd)
	rootCmd.AddCommand(authCmd)
}
