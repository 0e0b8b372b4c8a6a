// bot.go implements the "chorus bot" command running a single bot.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/chorus-irc/chorus/internal/config"
)

var botCmd = &cobra.Command{
	Use:   "bot <config.yml>",
	Short: "Run a single bot from one configuration file",
	Args:  cobra.ExactArgs(1),
	RunE:  runBot,
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(args[0])
	if err != nil {
		return err
	}
	return runBots([]*config.Bot{cfg})
}
