package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ghswitch/ghswitch/internal/bridge"
)

var remoteCheckCmd = &cobra.Command{
	Use:   "remote-check <remote-url>",
	Short: "Check whether another linked account owns a remote",
	Long:  "Probes every non-active account's access to the repository behind the URL and offers to switch to the first one that can reach it.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		remoteURL := args[0]
		if _, _, ok := bridge.ParseRemote(remoteURL); !ok {
			return fmt.Errorf("%q is not a GitHub HTTPS remote", remoteURL)
		}

		eng, err := newEngine(cmd)
		if err != nil {
			return err
		}
		defer eng.Close()

		if eng.Bridge.CheckCrossAccountRemote(cmd.Context(), remoteURL) {
			active, _ := eng.Registry.GetActive()
			out("Switched to %s\n", active.Label())
			return nil
		}
		outln("Keeping the current account.")
		return nil
	},
}
