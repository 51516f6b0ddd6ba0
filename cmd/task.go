package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/melih-ucgun/xal/internal/config"
	"github.com/melih-ucgun/xal/internal/fleet"
	"github.com/melih-ucgun/xal/internal/inventory"
)

var taskCmd = &cobra.Command{
	Use:   "task [id...]",
	Short: "Run config tasks in dependency order",
	Long: `Runs the tasks of the config, or the named ones with their dependencies.
Without --hosts, tasks run on the local machine.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tasks, err := config.Select(cfg.Tasks, args...)
		if err != nil {
			return err
		}
		layers, err := config.SortTasks(tasks)
		if err != nil {
			return err
		}
		if len(layers) == 0 {
			pterm.Info.Println("No tasks to run.")
			return nil
		}

		var m *fleet.Manager
		var hosts []inventory.Host
		if names, _ := cmd.Flags().GetString("hosts"); names != "" {
			m, hosts, err = fleetSetup(cmd)
			if err != nil {
				return err
			}
		} else {
			m = fleet.NewManager(1, sessionOptions()...)
			m.Vars = cfg.Vars
			hosts = []inventory.Host{{Name: "localhost", Address: "localhost", Connection: inventory.ConnLocal}}
		}

		outcomes := m.RunTasks(cmd.Context(), hosts, layers)
		for _, o := range outcomes {
			for _, t := range o.Tasks {
				if t.Result != nil {
					fmt.Fprint(cmd.OutOrStdout(), t.Result.Stdout)
				}
			}
		}
		return failures(fleet.Failures(outcomes))
	},
}

func init() {
	rootCmd.AddCommand(taskCmd)
	addFleetFlags(taskCmd)
}
