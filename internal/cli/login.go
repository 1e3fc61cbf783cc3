package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ghswitch/ghswitch/internal/account"
	"github.com/ghswitch/ghswitch/internal/deviceflow"
	"github.com/ghswitch/ghswitch/internal/spinner"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Link a GitHub account via device authorization",
	RunE: func(cmd *cobra.Command, args []string) error {
		alias, _ := cmd.Flags().GetString("alias")
		scopes, _ := cmd.Flags().GetStringSlice("scope")

		eng, err := newEngine(cmd)
		if err != nil {
			return err
		}
		defer eng.Close()

		var cred account.Credential
		authorize := func() error {
			var err error
			cred, err = eng.Flows.Start(cmd.Context(), scopes, alias)
			return err
		}

		if isTerminal() && !quiet {
			err = spinner.Show("Waiting for browser authorization...", eng.Flows.Cancel, authorize)
		} else {
			err = authorize()
		}
		if err != nil {
			var flowErr *deviceflow.FlowError
			if errors.As(err, &flowErr) {
				return fmt.Errorf("authorization failed: %w", flowErr)
			}
			return err
		}

		if err := eng.Registry.Add(cred); err != nil {
			return err
		}

		out("Linked %s", cred.ProviderUsername)
		if cred.Alias != "" {
			out(" as %s", cred.Alias)
		}
		outln()
		if eng.Registry.ActiveID() == cred.ID {
			outln("This account is now active.")
		}
		return nil
	},
}

func init() {
	loginCmd.Flags().String("alias", "", "Display label for the new account")
	loginCmd.Flags().StringSlice("scope", nil, "OAuth scopes to request (defaults to repo, read:user)")
}
