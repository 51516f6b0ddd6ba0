package cmd

import (
	"io/fs"
	"slices"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/melih-ucgun/xal/internal/core"
)

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		pp, err := s.Path()
		if err != nil {
			return err
		}
		dir := pp.Path(".")
		if len(args) == 1 {
			dir = pp.Path(args[0])
		}

		entries, err := dir.Iterdir()
		if err != nil {
			return err
		}
		slices.SortFunc(entries, func(a, b *core.Path) int { return a.Compare(b) })

		data := pterm.TableData{{"TYPE", "MODE", "OWNER", "GROUP", "SIZE", "NAME"}}
		for _, e := range entries {
			data = append(data, lsRow(e))
		}
		return renderTable(cmd.OutOrStdout(), data)
	},
}

func lsRow(p *core.Path) []string {
	row := []string{"?", "?", "-", "-", "-", p.Name()}
	info, err := p.Lstat()
	if err == nil {
		row[0] = fileType(info.Mode())
		row[1] = info.Mode().Perm().String()
		row[4] = strconv.FormatInt(info.Size(), 10)
	}
	if owner, err := p.Owner(); err == nil {
		row[2] = owner
	}
	if group, err := p.Group(); err == nil {
		row[3] = group
	}
	return row
}

func fileType(mode fs.FileMode) string {
	switch {
	case mode.IsDir():
		return "dir"
	case mode&fs.ModeSymlink != 0:
		return "link"
	case mode&fs.ModeNamedPipe != 0:
		return "fifo"
	case mode&fs.ModeSocket != 0:
		return "socket"
	case mode&fs.ModeCharDevice != 0:
		return "char"
	case mode&fs.ModeDevice != 0:
		return "block"
	default:
		return "file"
	}
}

func init() {
	addHostFlag(lsCmd)
	rootCmd.AddCommand(lsCmd)
}
