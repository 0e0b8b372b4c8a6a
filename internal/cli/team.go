// team.go implements the "chorus team" command running every bot in
// one or more environment directories.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/chorus-irc/chorus/internal/config"
)

var teamCmd = &cobra.Command{
	Use:   "team <env-dir>...",
	Short: "Run every bot defined in the given environment directories",
	Long: `Load all *.yml bot configurations from the given directories and
run them as one team. Bots learn each other's nicknames so they can
leave messages addressed to a teammate alone.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTeam,
}

func runTeam(cmd *cobra.Command, args []string) error {
	cfgs, err := config.LoadTeam(args)
	if err != nil {
		return err
	}
	return runBots(cfgs)
}
