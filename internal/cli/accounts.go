package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ghswitch/ghswitch/internal/account"
	"github.com/ghswitch/ghswitch/internal/engine"
	"github.com/ghswitch/ghswitch/internal/prompt"
)

var (
	activeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	exhaustedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	warningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List and manage linked accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAccountsList(cmd)
	},
}

var switchCmd = &cobra.Command{
	Use:   "switch [account]",
	Short: "Make another account the active one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine(cmd)
		if err != nil {
			return err
		}
		defer eng.Close()

		var target account.Credential
		if len(args) == 1 {
			target, err = resolveAccount(eng, args[0])
			if err != nil {
				return err
			}
		} else {
			target, err = pickAccount(eng)
			if err != nil {
				return err
			}
		}

		if err := eng.Registry.SetActive(target.ID); err != nil {
			return err
		}
		out("Now using %s\n", target.Label())
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <account>",
	Short: "Unlink an account and purge its stored token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine(cmd)
		if err != nil {
			return err
		}
		defer eng.Close()

		target, err := resolveAccount(eng, args[0])
		if err != nil {
			return err
		}
		if err := eng.Registry.Remove(target.ID); err != nil {
			return err
		}
		out("Removed %s\n", target.Label())
		if active, ok := eng.Registry.GetActive(); ok {
			out("Now using %s\n", active.Label())
		} else {
			outln("No accounts remain. Run `ghswitch login` to link one.")
		}
		return nil
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <account> <alias>",
	Short: "Set an account's display label",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine(cmd)
		if err != nil {
			return err
		}
		defer eng.Close()

		target, err := resolveAccount(eng, args[0])
		if err != nil {
			return err
		}
		target.Alias = args[1]
		if err := eng.Registry.Update(target); err != nil {
			return err
		}
		out("Renamed %s to %s\n", target.ProviderUsername, target.Alias)
		return nil
	},
}

func init() {
	accountsCmd.AddCommand(switchCmd)
	accountsCmd.AddCommand(removeCmd)
	accountsCmd.AddCommand(renameCmd)
}

// accountJSON is the scripting shape for one account. Token material is
// deliberately absent.
type accountJSON struct {
	ID       string `json:"id"`
	Alias    string `json:"alias,omitempty"`
	Login    string `json:"login"`
	Status   string `json:"status"`
	Requests int    `json:"requests"`
	Active   bool   `json:"active"`
}

func runAccountsList(cmd *cobra.Command) error {
	eng, err := newEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	creds := eng.Registry.GetAll()
	activeID := eng.Registry.ActiveID()

	if jsonOutput {
		list := make([]accountJSON, len(creds))
		for i, c := range creds {
			list[i] = accountJSON{
				ID:       c.ID,
				Alias:    c.Alias,
				Login:    c.ProviderUsername,
				Status:   string(c.Status),
				Requests: c.RequestCount,
				Active:   c.ID == activeID,
			}
		}
		return outJSON(list)
	}

	if len(creds) == 0 {
		outln("No accounts linked. Run `ghswitch login` to add one.")
		return nil
	}

	for _, c := range creds {
		marker := "  "
		if c.ID == activeID {
			marker = activeStyle.Render("* ")
		}
		line := fmt.Sprintf("%s%-20s %s", marker, c.Label(), statusLabel(c.Status))
		if c.Alias != "" {
			line += dimStyle.Render("  (" + c.ProviderUsername + ")")
		}
		outln(line)
	}
	return nil
}

func statusLabel(s account.Status) string {
	switch s {
	case account.StatusExhausted:
		return exhaustedStyle.Render("exhausted")
	case account.StatusWarning:
		return warningStyle.Render("warning")
	case account.StatusIdle:
		return dimStyle.Render("idle")
	default:
		return string(s)
	}
}

// resolveAccount finds a credential by id, alias, or login.
func resolveAccount(eng *engine.Engine, name string) (account.Credential, error) {
	for _, c := range eng.Registry.GetAll() {
		if c.ID == name || c.Alias == name || strings.EqualFold(c.ProviderUsername, name) {
			return c, nil
		}
	}
	return account.Credential{}, fmt.Errorf("no account matches %q", name)
}

func pickAccount(eng *engine.Engine) (account.Credential, error) {
	creds := eng.Registry.GetAll()
	if len(creds) == 0 {
		return account.Credential{}, fmt.Errorf("no accounts linked")
	}

	options := make([]prompt.SelectOption, len(creds))
	for i, c := range creds {
		options[i] = prompt.SelectOption{Label: c.Label(), Value: c.ID}
	}
	prompter := &prompt.Huh{}
	id, err := prompter.Select(prompt.SelectConfig{
		Title:   "Switch to which account?",
		Options: options,
	})
	if err != nil {
		return account.Credential{}, err
	}
	cred, ok := eng.Registry.Get(id)
	if !ok {
		return account.Credential{}, fmt.Errorf("account no longer exists")
	}
	return cred, nil
}
