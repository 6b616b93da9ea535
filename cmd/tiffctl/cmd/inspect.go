package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/jpfielding/tiff.go/pkg/tiff"
	"github.com/jpfielding/tiff.go/pkg/tiff/tag"
	"github.com/spf13/cobra"
)

// maxValues caps how many values of one entry are printed
const maxValues = 16

// FileReport is the json form of an inspected file
type FileReport struct {
	Path        string            `json:"path"`
	BigTIFF     bool              `json:"bigtiff"`
	ByteOrder   string            `json:"byteOrder"`
	Directories []DirectoryReport `json:"directories"`
}

// DirectoryReport describes one directory of the chain
type DirectoryReport struct {
	Index   int           `json:"index"`
	Offset  int64         `json:"offset"`
	Entries []EntryReport `json:"entries"`
}

// EntryReport describes one directory entry
type EntryReport struct {
	Tag   tag.Tag `json:"tag"`
	Code  uint16  `json:"code"`
	Type  string  `json:"type"`
	Count uint64  `json:"count"`
	Value string  `json:"value"`
}

// NewInspectCmd dumps the directory chain of a TIFF
func NewInspectCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "print the directory chain of a TIFF",
		Long:  "Walks every directory of a TIFF or BigTIFF file and prints its entries.",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			if path == "" && len(args) > 0 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("file path is required. Use --file flag or provide as argument")
			}
			rep, err := inspectFile(path)
			if err != nil {
				return err
			}
			switch format, _ := cmd.Flags().GetString("format"); format {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			default:
				return printReport(cmd.OutOrStdout(), rep)
			}
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringP("file", "f", "", "TIFF file to inspect")
	pf.String("format", "text", "output format (text|json)")
	return cmd
}

func inspectFile(path string) (*FileReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	format, offsets, dirs, err := tiff.ReadDirectories(f)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	rep := &FileReport{
		Path:      path,
		BigTIFF:   format.BigTIFF,
		ByteOrder: format.Order.String(),
	}
	for i, d := range dirs {
		dr := DirectoryReport{Index: i, Offset: offsets[i]}
		for _, t := range d.Tags() {
			e, _ := d.Get(t)
			dr.Entries = append(dr.Entries, EntryReport{
				Tag:   t,
				Code:  uint16(t),
				Type:  e.Type.String(),
				Count: e.Count,
				Value: entryValue(e),
			})
		}
		rep.Directories = append(rep.Directories, dr)
	}
	return rep, nil
}

func entryValue(e tiff.Entry) string {
	switch {
	case e.Type == tag.ASCII:
		return e.String()
	case len(e.Values) > maxValues:
		return fmt.Sprintf("%v ... (%d values)", e.Values[:maxValues], len(e.Values))
	case len(e.Values) == 0 && len(e.Data) > maxValues:
		return fmt.Sprintf("%v ... (%d bytes)", e.Data[:maxValues], len(e.Data))
	case len(e.Values) == 0:
		return fmt.Sprint(e.Data)
	}
	return e.String()
}

func printReport(w io.Writer, rep *FileReport) error {
	kind := "TIFF"
	if rep.BigTIFF {
		kind = "BigTIFF"
	}
	fmt.Fprintf(w, "%s: %s %s, %d directories\n", rep.Path, kind, rep.ByteOrder, len(rep.Directories))
	for _, d := range rep.Directories {
		fmt.Fprintf(w, "\n=== IFD %d @ %d ===\n", d.Index, d.Offset)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, e := range d.Entries {
			fmt.Fprintf(tw, "%s\t(%d)\t%s[%d]\t%s\n", e.Tag, e.Code, e.Type, e.Count, e.Value)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}
