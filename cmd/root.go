package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/melih-ucgun/xal/internal/config"
	"github.com/melih-ucgun/xal/internal/core"
	"github.com/melih-ucgun/xal/internal/inventory"
	"github.com/melih-ucgun/xal/internal/session"
)

// DefaultInventory is used when neither --inventory nor the config name one.
const DefaultInventory = "inventory.yaml"

// cfg is loaded before every command runs.
var cfg = config.Default()

var rootCmd = &cobra.Command{
	Use:           "xal",
	Short:         "Run commands and manage paths on local and remote machines.",
	Long:          `xal gives one API for the local machine and SSH hosts: commands, paths and system facts.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig(cmd)
		if err != nil {
			return err
		}
		verbose, _ := cmd.Flags().GetBool("verbose")
		level := cfg.Level()
		if verbose {
			level = slog.LevelDebug
		}
		handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
		slog.SetDefault(slog.New(handler))
		return nil
	},
}

// ExitError carries the exit status of a remote or local command.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultFile, "config file path")
	rootCmd.PersistentFlags().StringP("inventory", "i", "", "inventory file (default from config, then "+DefaultInventory+")")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")
}

// loadConfig reads --config. A missing file is only an error when the flag
// was given explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	c, err := config.Load(path, nil)
	if err == nil {
		return c, nil
	}
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		return config.Default(), nil
	}
	return nil, err
}

func loadInventory(cmd *cobra.Command) (*inventory.Inventory, error) {
	path, _ := cmd.Flags().GetString("inventory")
	if path == "" {
		path = cfg.Inventory
	}
	if path == "" {
		path = DefaultInventory
	}
	return inventory.LoadInventory(path, nil)
}

func sessionOptions() []session.Option {
	return []session.Option{
		session.WithLogger(slog.Default()),
		session.WithUse(cfg.Use),
		session.WithShell(cfg.ShellEnabled()),
	}
}

// openSession connects to the --host flag, the config's default_host, or
// the local machine. Host names are looked up in the inventory.
func openSession(cmd *cobra.Command) (*core.Session, error) {
	name, _ := cmd.Flags().GetString("host")
	if name == "" {
		name = cfg.DefaultHost
	}
	if name == "" || name == "localhost" {
		return session.NewLocal(cmd.Context(), sessionOptions()...)
	}

	inv, err := loadInventory(cmd)
	if err != nil {
		return nil, err
	}
	host, ok := inv.Find(name)
	if !ok {
		return nil, fmt.Errorf("host %q not found in inventory", name)
	}
	return session.FromHost(cmd.Context(), host, sessionOptions()...)
}

func addHostFlag(c *cobra.Command) {
	c.Flags().StringP("host", "H", "", "inventory host to use (default from config, then localhost)")
}

// exitCode maps an error returned by Execute to a process exit status.
func exitCode(err error) int {
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	return 1
}

// Main runs the CLI and exits.
func Main() {
	err := Execute()
	if err == nil {
		return
	}
	var exit *ExitError
	if !errors.As(err, &exit) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitCode(err))
}
