package cmd

import (
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List registered providers and the active one per interface",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		data := pterm.TableData{{"INTERFACE", "PROVIDERS", "ACTIVE"}}
		r := s.Registry()
		for _, iface := range r.Interfaces() {
			active := "-"
			if _, err := s.Get(iface); err == nil {
				active, _ = r.Active(iface)
			}
			data = append(data, []string{iface, strings.Join(r.Providers(iface), ", "), active})
		}
		return renderTable(cmd.OutOrStdout(), data)
	},
}

func init() {
	addHostFlag(providersCmd)
	rootCmd.AddCommand(providersCmd)
}
