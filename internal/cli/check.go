package cli

import (
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the active account by calling the provider",
	Long:  "Sends an authenticated request through the observed HTTP client, so a successful check counts toward today's usage and a throttled one triggers rotation.",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine(cmd)
		if err != nil {
			return err
		}
		defer eng.Close()

		active, ok := eng.Registry.GetActive()
		if !ok {
			outln("No active account. Run `ghswitch login` to link one.")
			return nil
		}

		user, err := eng.ObservedAPI().FetchAuthenticatedUser(cmd.Context(), active.Token)
		if err != nil {
			return err
		}
		out("Authenticated as %s", user.Login)
		if user.Name != "" {
			out(" (%s)", user.Name)
		}
		outln()
		return nil
	},
}
