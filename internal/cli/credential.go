package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// inReader is the reader for the git credential protocol. Tests replace it.
var inReader io.Reader = os.Stdin

var credentialCmd = &cobra.Command{
	Use:   "credential <get|store|erase>",
	Short: "Act as a git credential helper for the active account",
	Long: `Speaks the git credential helper protocol on stdin/stdout.
Configure with:

    git config --global credential.https://github.com.helper "!ghswitch credential"
    git config --global credential.https://github.com.useHttpPath true

useHttpPath is required: the repository path decides which account
authenticates the remote.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"get", "store", "erase"},
	RunE: func(cmd *cobra.Command, args []string) error {
		// store and erase are part of the helper contract but tokens live
		// only in the vault, so both are acknowledged and ignored.
		if args[0] != "get" {
			return nil
		}

		attrs, err := readCredentialAttrs(inReader)
		if err != nil {
			return err
		}
		remoteURL := remoteFromAttrs(attrs)
		if remoteURL == "" {
			return nil
		}

		eng, err := newEngine(cmd)
		if err != nil {
			return err
		}
		defer eng.Close()

		cred, ok := eng.Bridge.ResolveCredentials(remoteURL)
		if !ok {
			return nil
		}
		out("username=%s\n", cred.Username)
		out("password=%s\n", cred.Secret)
		return nil
	},
}

// readCredentialAttrs parses the key=value lines git writes on stdin,
// terminated by a blank line or EOF.
func readCredentialAttrs(r io.Reader) (map[string]string, error) {
	attrs := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			break
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		attrs[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading credential request: %w", err)
	}
	return attrs, nil
}

func remoteFromAttrs(attrs map[string]string) string {
	if attrs["protocol"] != "https" || attrs["host"] == "" {
		return ""
	}
	url := "https://" + attrs["host"]
	if p := attrs["path"]; p != "" {
		url += "/" + strings.TrimPrefix(p, "/")
	}
	return url
}
