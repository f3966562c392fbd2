package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"tern/internal/snapshot"
)

var inspectFormat string

func init() {
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "pretty", "output format (pretty|json)")
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <snapshot.mp>",
	Short: "Decode a task-table snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tbl, err := snapshot.Read(args[0])
		if err != nil {
			return err
		}

		switch strings.ToLower(inspectFormat) {
		case "pretty":
			renderTablePretty(cmd.OutOrStdout(), tbl)
			return nil
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(tbl)
		default:
			return fmt.Errorf("unsupported format %q (must be pretty or json)", inspectFormat)
		}
	},
}

func renderTablePretty(out io.Writer, tbl *snapshot.Table) {
	fmt.Fprintf(out, "snapshot taken %s (%d tasks)\n", tbl.TakenAt.Format("2006-01-02 15:04:05"), len(tbl.Tasks))
	if len(tbl.Tasks) == 0 {
		return
	}
	fmt.Fprintf(out, "%5s  %-16s %-8s %-8s %-24s %s\n", "PID", "NAME", "KIND", "STATUS", "FLAGS", "CPDEPTH")
	for _, rec := range tbl.Tasks {
		fmt.Fprintf(out, "%5d  %-16s %-8s %-8s %-24s %d\n",
			rec.Pid, rec.Name, rec.KindString(), rec.StatusString(), rec.FlagsString(), rec.CancelPointDepth)
	}
}
