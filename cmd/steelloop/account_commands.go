package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"steelloop/internal/app"
	"steelloop/internal/domain"
)

func newAccountCommand(ctx *commandContext) *cobra.Command {
	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Manage storage and social connections",
	}

	var (
		provider     string
		accessToken  string
		refreshToken string
		expiresIn    time.Duration
	)
	driveCmd := &cobra.Command{
		Use:   "connect-drive",
		Short: "Store OAuth tokens for a cloud storage provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withUser(cmd, func(a *app.Application, userID string) error {
				conn := domain.CloudConnection{
					UserID:       userID,
					Provider:     domain.Provider(provider),
					AccessToken:  accessToken,
					RefreshToken: refreshToken,
				}
				if expiresIn > 0 {
					conn.TokenExpiry = time.Now().UTC().Add(expiresIn)
				}
				if err := a.Loop().ConnectDrive(cmd.Context(), conn); err != nil {
					return err
				}
				return ctx.emit(cmd, map[string]string{"provider": provider}, func() string {
					return fmt.Sprintf("Connected %s", provider)
				})
			})
		},
	}
	driveCmd.Flags().StringVar(&provider, "provider", string(domain.ProviderGoogleDrive), "Storage provider")
	driveCmd.Flags().StringVar(&accessToken, "access-token", "", "OAuth access token")
	driveCmd.Flags().StringVar(&refreshToken, "refresh-token", "", "OAuth refresh token")
	driveCmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "Access token lifetime; zero forces a refresh on first use")
	_ = driveCmd.MarkFlagRequired("refresh-token")
	accountCmd.AddCommand(driveCmd)

	var socialProvider string
	socialCmd := &cobra.Command{
		Use:   "link-social <external-account-id>",
		Short: "Link the account drafts are published to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withUser(cmd, func(a *app.Application, userID string) error {
				account := domain.SocialAccount{
					UserID:            userID,
					Provider:          socialProvider,
					ExternalAccountID: args[0],
				}
				if err := a.Loop().LinkSocialAccount(cmd.Context(), account); err != nil {
					return err
				}
				return ctx.emit(cmd, account, func() string {
					return fmt.Sprintf("Linked %s account %s", account.Provider, account.ExternalAccountID)
				})
			})
		},
	}
	socialCmd.Flags().StringVar(&socialProvider, "provider", domain.SocialProviderTelegram, "Social provider")
	accountCmd.AddCommand(socialCmd)

	return accountCmd
}
