// Command ben converts districting ensembles between JSONL, BEN and XBEN.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ensemble-tools/ben"
	"github.com/ensemble-tools/ben/xben"
)

var (
	output      string
	overwrite   bool
	verbose     bool
	variantName string
	envName     string
	toXben      bool
	toBen       bool
	snapshots   int
	sampleNum   int
)

var rootCmd = &cobra.Command{
	Use:   "ben [command] (flags)",
	Short: "ben compresses and decompresses districting plan ensembles",
	Long: `ben converts ensembles of assignment vectors between the JSONL text
form, the BEN binary container, and the XBEN compressed archive form.`,
	SilenceUsage: true,
}

func main() {
	cobra.EnableCommandSorting = false
	rootCmd.AddCommand(encodeCmd, decodeCmd, readCmd)

	for _, cmd := range []*cobra.Command{encodeCmd, decodeCmd} {
		cmd.Flags().StringVarP(
			&output, "output", "o", "", "output path (default derived from the input path)")
		cmd.Flags().BoolVarP(
			&overwrite, "overwrite", "w", false, "replace the output file if it exists")
		cmd.Flags().BoolVarP(
			&verbose, "verbose", "v", false, "enable verbose logging")
	}

	encodeCmd.Flags().StringVar(
		&variantName, "variant", "standard", "encoding variant: standard or mkv-chain")
	encodeCmd.Flags().BoolVarP(
		&toXben, "xben", "x", false, "produce XBEN instead of BEN")
	encodeCmd.Flags().StringVar(
		&envName, "envelope", "zstd", "XBEN envelope: zstd or lz4")
	encodeCmd.Flags().IntVar(
		&snapshots, "snapshot-interval", ben.DefaultSnapshotInterval,
		"full-frame spacing for the mkv-chain variant")

	decodeCmd.Flags().BoolVarP(
		&toBen, "ben", "b", false, "decompress XBEN to BEN instead of JSONL")

	readCmd.Flags().IntVarP(
		&sampleNum, "sample", "n", 0, "0-based sample ordinal to extract")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var encodeCmd = &cobra.Command{
	Use:   "encode <input.jsonl | input.ben>",
	Short: "encode JSONL to BEN/XBEN, or BEN to XBEN",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src := args[0]
		variant, err := parseVariant(variantName)
		if err != nil {
			return err
		}
		env, ok := xben.ByName(envName)
		if !ok {
			return fmt.Errorf("unknown envelope %q", envName)
		}
		opt := func(o *ben.TransformOptions) {
			o.Overwrite = overwrite
			o.Variant = variant
			o.SnapshotInterval = snapshots
			o.Envelope = env
			o.Logger = newLogger()
		}

		switch {
		case strings.HasSuffix(src, ".ben"):
			return ben.CompressBenToXBen(src, defaultOutput(src, ".xben"), opt)
		case toXben:
			return ben.CompressJSONLToXBen(src, defaultOutput(src, ".xben"), opt)
		default:
			return ben.CompressJSONLToBen(src, defaultOutput(src, ".ben"), opt)
		}
	},
}

var decodeCmd = &cobra.Command{
	Use:   "decode <input.ben | input.xben>",
	Short: "decode BEN/XBEN to JSONL, or XBEN to BEN",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src := args[0]
		opt := func(o *ben.TransformOptions) {
			o.Overwrite = overwrite
			o.Logger = newLogger()
		}

		switch {
		case toBen:
			return ben.DecompressXBenToBen(src, defaultOutput(src, ".ben"), opt)
		case strings.HasSuffix(src, ".xben"):
			return ben.DecompressXBenToJSONL(src, defaultOutput(src, ".jsonl"), opt)
		default:
			return ben.DecompressBenToJSONL(src, defaultOutput(src, ".jsonl"), opt)
		}
	},
}

var readCmd = &cobra.Command{
	Use:   "read <input.ben | input.xben>",
	Short: "print one sample as a JSON array",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, ok, err := ben.ReadSingle(args[0], sampleNum)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("sample %d not found in %s", sampleNum, args[0])
		}
		out, err := json.Marshal(v)
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func parseVariant(name string) (ben.Variant, error) {
	switch name {
	case "standard":
		return ben.Standard, nil
	case "mkv-chain":
		return ben.MkvChain, nil
	default:
		return 0, fmt.Errorf("unknown variant %q", name)
	}
}

func defaultOutput(src, ext string) string {
	if output != "" {
		return output
	}
	base := strings.TrimSuffix(strings.TrimSuffix(src, ".xben"), ".ben")
	return base + ext
}

func newLogger() *ben.Logger {
	if verbose {
		return ben.NewTextLogger(slog.LevelDebug)
	}
	return ben.NewTextLogger(slog.LevelInfo)
}
