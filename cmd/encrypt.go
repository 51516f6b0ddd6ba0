package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/melih-ucgun/xal/internal/crypto"
)

var encryptCmd = &cobra.Command{
	Use:   "encrypt <value>",
	Short: "Encrypt a value for the inventory or config vars",
	Long: `Prints an ENC[...] value sealed with the master key from XAL_MASTER_KEY,
~/.xal/master.key or a prompt.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		enc, err := crypto.Encrypt(args[0], crypto.MasterKey())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), enc)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(encryptCmd)
}
