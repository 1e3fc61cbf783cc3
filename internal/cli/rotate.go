package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/ghswitch/ghswitch/internal/rotation"
)

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Switch to the next non-exhausted account",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine(cmd)
		if err != nil {
			return err
		}
		defer eng.Close()

		next, err := eng.Rotation.Rotate()
		if errors.Is(err, rotation.ErrNoCredentialAvailable) {
			outln("No other account is available to rotate to.")
			return nil
		}
		if err != nil {
			return err
		}
		out("Now using %s\n", next.Label())
		return nil
	},
}
