package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/melih-ucgun/xal/internal/core"
	"github.com/melih-ucgun/xal/internal/fleet"
	"github.com/melih-ucgun/xal/internal/inventory"
)

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Run operations across the inventory",
	Long:  `Inventory based operations for multiple hosts.`,
}

var factsCmd = &cobra.Command{
	Use:   "facts",
	Short: "Gather system facts from all hosts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, hosts, err := fleetSetup(cmd)
		if err != nil {
			return err
		}
		outcomes := m.Facts(cmd.Context(), hosts)

		data := pterm.TableData{{"HOST", "STATUS", "OS", "KERNEL", "ARCH", "INIT", "CPU", "RAM"}}
		for _, o := range outcomes {
			if o.Err != nil {
				data = append(data, []string{o.Host.Label(), "OFFLINE", "", "", "", "", "", ""})
				continue
			}
			f := o.Facts
			cpu := f.Hardware.CPUModel
			if len(cpu) > 30 {
				cpu = cpu[:27] + "..."
			}
			data = append(data, []string{
				o.Host.Label(), "ONLINE",
				strings.TrimSpace(f.Distro + " " + f.Version),
				f.Kernel, f.Arch, f.InitSystem, cpu, f.Hardware.RAMTotal,
			})
		}
		if err := renderTable(cmd.OutOrStdout(), data); err != nil {
			return err
		}
		return failures(fleet.Failures(outcomes))
	},
}

var fleetRunCmd = &cobra.Command{
	Use:   "run [--when COND] -- command [args...]",
	Short: "Run a command on all hosts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, hosts, err := fleetSetup(cmd)
		if err != nil {
			return err
		}
		when, _ := cmd.Flags().GetString("when")

		line := args[0]
		if len(args) > 1 {
			line = core.JoinQuoted(args)
		}
		outcomes := m.Run(cmd.Context(), hosts, line, when)

		out := cmd.OutOrStdout()
		for _, o := range outcomes {
			if o.Result == nil {
				continue
			}
			for _, l := range strings.Split(strings.TrimRight(o.Result.Stdout, "\n"), "\n") {
				if l != "" {
					fmt.Fprintf(out, "%s: %s\n", o.Host.Label(), l)
				}
			}
		}
		return failures(fleet.Failures(outcomes))
	},
}

// fleetSetup loads the inventory, keeps the --hosts selection and builds
// a manager from the config.
func fleetSetup(cmd *cobra.Command) (*fleet.Manager, []inventory.Host, error) {
	inv, err := loadInventory(cmd)
	if err != nil {
		return nil, nil, err
	}
	hosts, err := selectHosts(cmd, inv)
	if err != nil {
		return nil, nil, err
	}

	concurrency, _ := cmd.Flags().GetInt("concurrency")
	if concurrency <= 0 {
		concurrency = cfg.Concurrency
	}
	m := fleet.NewManager(concurrency, sessionOptions()...)
	m.Vars = cfg.Vars
	return m, hosts, nil
}

func selectHosts(cmd *cobra.Command, inv *inventory.Inventory) ([]inventory.Host, error) {
	names, _ := cmd.Flags().GetString("hosts")
	if names == "" {
		return inv.Hosts, nil
	}
	var hosts []inventory.Host
	for _, name := range strings.Split(names, ",") {
		h, ok := inv.Find(strings.TrimSpace(name))
		if !ok {
			return nil, fmt.Errorf("host %q not found in inventory", name)
		}
		hosts = append(hosts, h)
	}
	return hosts, nil
}

func addFleetFlags(c *cobra.Command) {
	c.Flags().String("hosts", "", "comma separated host names (default all)")
	c.Flags().Int("concurrency", 0, "hosts handled at once (default from config)")
}

func renderTable(w io.Writer, data pterm.TableData) error {
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

func failures(n int) error {
	if n == 0 {
		return nil
	}
	return fmt.Errorf("failed on %d hosts", n)
}

func init() {
	rootCmd.AddCommand(fleetCmd)
	fleetCmd.AddCommand(factsCmd, fleetRunCmd)
	addFleetFlags(factsCmd)
	addFleetFlags(fleetRunCmd)
	fleetRunCmd.Flags().String("when", "", `condition on host facts, e.g. OS == "linux"`)
}
