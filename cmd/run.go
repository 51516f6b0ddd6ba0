package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/melih-ucgun/xal/internal/core"
)

var runCmd = &cobra.Command{
	Use:   "run [--host H] -- command [args...]",
	Short: "Run a command and exit with its status",
	Long: `Runs a command on the selected host. A single argument is a shell line;
several arguments are quoted and run as one command.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := s.Run(args...)
		if errors.Is(err, core.ErrCommandNotFound) {
			fmt.Fprintln(cmd.ErrOrStderr(), err)
			return &ExitError{Code: 127}
		}
		if err != nil {
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), res.Stdout)
		fmt.Fprint(cmd.ErrOrStderr(), res.Stderr)
		if !res.Succeeded() {
			return &ExitError{Code: res.ReturnCode}
		}
		return nil
	},
}

func init() {
	addHostFlag(runCmd)
	rootCmd.AddCommand(runCmd)
}
