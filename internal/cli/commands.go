package cli

import (
	"encoding/json"
	"fmt"

	"github.com/kanopy-platform/appid-gateway/pkg/appid"
	"github.com/kanopy-platform/appid-gateway/pkg/random"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

func newAuthorizeURLCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authorize-url",
		Short: "Print the authorization URL to start a login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := newProvider()
			if err != nil {
				return err
			}

			state, _ := cmd.Flags().GetString("state")
			if state == "" {
				if state, err = random.State(); err != nil {
					return err
				}
			}

			idp, _ := cmd.Flags().GetString("idp-override")
			var opts []appid.AuthOption
			if idp != "" {
				opts = append(opts, appid.WithIDP(idp))
			}

			authURL, err := provider.AuthorizationURL(state, opts...)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "url: %s\nstate: %s\n", authURL, state)
			return nil
		},
	}

	cmd.Flags().String("state", "", "state value; generated when empty")
	cmd.Flags().String("idp-override", "", "identity provider for this request only")

	return cmd
}

func newIntrospectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "introspect TOKEN",
		Short: "Check whether a token is active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := newProvider()
			if err != nil {
				return err
			}

			active, err := provider.Introspect(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "active: %t\n", active)
			return nil
		},
	}
}

func newRevokeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke TOKEN",
		Short: "Revoke a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := newProvider()
			if err != nil {
				return err
			}

			revoked, err := provider.Revoke(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "revoked: %t\n", revoked)
			return nil
		},
	}
}

func newUserInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "userinfo ACCESS_TOKEN",
		Short: "Print the user info of an access token's owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := newProvider()
			if err != nil {
				return err
			}

			owner, err := provider.ResourceOwner(cmd.Context(), &oauth2.Token{
				AccessToken: args[0],
				TokenType:   "Bearer",
			})
			if err != nil {
				return err
			}

			email, err := owner.Email()
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{
				"id":           owner.ID(),
				"name":         owner.FullName(),
				"email":        email,
				"cnum":         owner.Cnum(),
				"uid":          owner.UID(),
				"location":     owner.Location(),
				"lotusNotesId": owner.LotusNotesID(),
				"raw":          owner.ToMap(),
			})
		},
	}
}
