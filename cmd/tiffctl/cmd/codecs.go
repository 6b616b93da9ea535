package cmd

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/jpfielding/tiff.go/pkg/tiff"
	"github.com/jpfielding/tiff.go/pkg/tiff/compression"
	"github.com/spf13/cobra"
)

// NewCodecsCmd lists the compression names the writer accepts
func NewCodecsCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codecs",
		Short: "list supported compressions",
		Long:  "Lists each compression name, its TIFF code, whether an encoder is available and the pixel types it accepts.",
		Run: func(cmd *cobra.Command, args []string) {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tCODE\tENCODER\tLOSSY\tPIXEL TYPES")
			for _, name := range compression.Names() {
				code, _ := compression.FromName(name)
				var types []string
				for _, pt := range tiff.PixelTypesFor(name) {
					types = append(types, pt.String())
				}
				fmt.Fprintf(tw, "%s\t%d\t%t\t%t\t%s\n", name, code, tiff.CodecByCode(code) != nil, code.IsLossy(), strings.Join(types, ","))
			}
			tw.Flush()
		},
	}
	return cmd
}
