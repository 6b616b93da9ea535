package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jpfielding/tiff.go/pkg/logging"
	"github.com/spf13/cobra"
)

func NewRoot(ctx context.Context, gitsha string) *cobra.Command {
	var sink io.WriteCloser
	cmd := &cobra.Command{
		Use:   "tiffctl",
		Short: "a CLI to write and inspect tiled (Big)TIFF files",
		Long:  "tiffctl writes raw pixel planes into tiled TIFF or BigTIFF files and dumps the directory chain of existing files.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logLevel, _ := cmd.Flags().GetString("log-level")
			logFile, _ := cmd.Flags().GetString("log-file")
			logJSON, _ := cmd.Flags().GetBool("log-json")

			var level slog.Level
			levelErr := level.UnmarshalText([]byte(strings.ToUpper(logLevel)))
			if levelErr != nil {
				level = slog.LevelInfo
			}
			var out io.Writer = os.Stderr
			if logFile != "" {
				sink = logging.RotatingFile(logFile, 50, 3)
				out = io.MultiWriter(os.Stderr, sink)
			}
			slog.SetDefault(logging.Logger(out, logJSON, level))
			if levelErr != nil {
				slog.WarnContext(ctx, "Invalid log level, defaulting to INFO", "level", logLevel, "error", levelErr)
			}
		},
		Run: func(cmd *cobra.Command, args []string) {
			printCommandTree(cmd.OutOrStdout(), cmd, 0)
		},
	}
	// runs after every command, failed ones included
	cobra.OnFinalize(func() {
		if sink != nil {
			sink.Close()
			sink = nil
		}
	})
	cmd.AddCommand(
		NewVersionCmd(ctx, gitsha),
		NewWriteCmd(ctx),
		NewInspectCmd(ctx),
		NewCodecsCmd(ctx),
	)
	pf := cmd.PersistentFlags()
	pf.String("log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	pf.String("log-file", "", "also append logs to this rotating file")
	pf.Bool("log-json", false, "log records as json")
	return cmd
}

func printCommandTree(w io.Writer, cmd *cobra.Command, indent int) {
	fmt.Fprintln(w, strings.Repeat("\t", indent), cmd.Use+":", cmd.Short)
	for _, subCmd := range cmd.Commands() {
		printCommandTree(w, subCmd, indent+1)
	}
}

func NewVersionCmd(ctx context.Context, gitsha string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "git sha for this build",
		Long:  "git sha for this build",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), gitsha)
		},
	}
	return cmd
}
