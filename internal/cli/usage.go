package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ghswitch/ghswitch/internal/account"
)

type usageJSON struct {
	Login    string             `json:"login"`
	Alias    string             `json:"alias,omitempty"`
	Status   string             `json:"status"`
	Requests int                `json:"requests"`
	Limit    int                `json:"limit"`
	Percent  int                `json:"percent"`
	History  []account.DayUsage `json:"history,omitempty"`
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show per-account request usage for today",
	RunE: func(cmd *cobra.Command, args []string) error {
		showHistory, _ := cmd.Flags().GetBool("history")

		eng, err := newEngine(cmd)
		if err != nil {
			return err
		}
		defer eng.Close()

		// Roll any stale windows first so yesterday's counts read as zero.
		if err := eng.Rotation.ResetDailyCountsIfNeeded(); err != nil {
			return err
		}

		creds := eng.Registry.GetAll()
		limit := eng.Tracker.DailyLimit()

		if jsonOutput {
			list := make([]usageJSON, len(creds))
			for i, c := range creds {
				list[i] = usageJSON{
					Login:    c.ProviderUsername,
					Alias:    c.Alias,
					Status:   string(c.Status),
					Requests: c.RequestCount,
					Limit:    limit,
					Percent:  eng.Tracker.UsagePercent(c),
					History:  eng.Tracker.History(c),
				}
			}
			return outJSON(list)
		}

		if len(creds) == 0 {
			outln("No accounts linked.")
			return nil
		}

		activeID := eng.Registry.ActiveID()
		for _, c := range creds {
			marker := "  "
			if c.ID == activeID {
				marker = activeStyle.Render("* ")
			}
			out("%s%-20s %4d/%d (%d%%) %s\n",
				marker, c.Label(), c.RequestCount, limit,
				eng.Tracker.UsagePercent(c), statusLabel(c.Status))

			if showHistory {
				for _, day := range eng.Tracker.History(c) {
					outln(dimStyle.Render(fmt.Sprintf("    %s  %d requests", day.Date, day.Count)))
				}
			}
		}
		return nil
	},
}

func init() {
	usageCmd.Flags().Bool("history", false, "Include archived daily counts")
}
