package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	authCmd := &cobra.Command{Use: "auth", Short: "Account operations"}

	var email, password, name string

	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and print a token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password required")
			}
			payload := map[string]interface{}{"email": email, "password": password}
			if name != "" {
				payload["displayName"] = name
			}
			data, err := doPostJSON(apiFlag+"/api/auth/register", payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	registerCmd.Flags().StringVarP(&email, "email", "e", "", "Email (required)")
	registerCmd.Flags().StringVarP(&password, "password", "p", "", "Password (required)")
	registerCmd.Flags().StringVarP(&name, "name", "n", "", "Display name")
	authCmd.AddCommand(registerCmd)

	var loginEmail, loginPassword string
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and print a token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if loginEmail == "" || loginPassword == "" {
				return fmt.Errorf("--email and --password required")
			}
			data, err := doPostJSON(apiFlag+"/api/auth/login", map[string]interface{}{
				"email":    loginEmail,
				"password": loginPassword,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "Email (required)")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Password (required)")
	authCmd.AddCommand(loginCmd)

	rootCmd.AddCommand(authCmd)
}
