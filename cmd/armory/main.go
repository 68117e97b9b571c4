// Package main is the entry point for the armory CLI, a toolbox for
// coat-of-arms document files: format, inspect, validate, and move
// layers between documents through the system clipboard.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Neumenon/armory/coa"
)

var (
	version = "0.1.0"
	verbose bool
	log     zerolog.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "armory",
		Short: "Armory - coat-of-arms document toolbox",
		Long: `Armory reads, validates, and rewrites coat-of-arms documents in the
Clausewitz-style nested text format, including the ##META## editor tags
carrying layer names, grouping, and symmetry configuration.

Format a file:        armory fmt coat.txt -w
Inspect a file:       armory info coat.txt
Validate a file:      armory check coat.txt
Copy layers out:      armory copy coat.txt --layers 0,2
Paste layers in:      armory paste coat.txt -w`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("armory v%s\n", version)
		},
	})

	rootCmd.AddCommand(fmtCmd())
	rootCmd.AddCommand(infoCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(copyCmd())
	rootCmd.AddCommand(pasteCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initConfig wires viper and the logger. Every flag can come from an
// ARMORY_* environment variable or the optional ~/.armory.yaml file.
func initConfig(cmd *cobra.Command, args []string) error {
	v := viper.New()
	v.SetEnvPrefix("ARMORY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
		v.SetConfigName(".armory")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return fmt.Errorf("reading config: %w", err)
			}
		}
	}

	if v.IsSet("verbose") && !cmd.Flags().Changed("verbose") {
		verbose = v.GetBool("verbose")
	}

	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
	return nil
}

// ============================================================
// Commands
// ============================================================

func fmtCmd() *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "fmt [file]",
		Short: "Rewrite a document in canonical form",
		Long: `Parses a document and emits it back in canonical layout: tab
indentation, metadata tags preceding the block they annotate, and
symmetry-derived instances re-expanded from the live configuration.
Reads stdin when no file is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, path, err := readInput(args)
			if err != nil {
				return err
			}

			doc, err := coa.FromText(text, coa.WithLogger(log))
			if err != nil {
				return fmt.Errorf("parsing %s: %w", inputName(path), err)
			}
			out := doc.ToText()

			if write && path != "" {
				return os.WriteFile(path, []byte(out), 0644)
			}
			fmt.Print(out)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "write result back to the file")
	return cmd
}

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info [file]",
		Short: "Summarize a document's layers, containers, and symmetry",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, path, err := readInput(args)
			if err != nil {
				return err
			}

			doc, err := coa.FromText(text, coa.WithLogger(log))
			if err != nil {
				return fmt.Errorf("parsing %s: %w", inputName(path), err)
			}

			fmt.Printf("pattern: %s\n", doc.Pattern())
			fmt.Printf("base colors: %s, %s, %s\n",
				doc.BaseColor(0), doc.BaseColor(1), doc.BaseColor(2))
			fmt.Printf("layers: %d\n\n", doc.LayerCount())

			for i, id := range doc.LayerIDs() {
				l, err := doc.Layer(id)
				if err != nil {
					return err
				}

				var notes []string
				if !l.Visible() {
					notes = append(notes, "hidden")
				}
				if c := l.Container(); c != "" {
					notes = append(notes, "group "+coa.ContainerName(c))
				}
				if sym := l.Symmetry(); sym.Kind != coa.SymmetryNone {
					notes = append(notes, sym.Kind.String())
				}

				suffix := ""
				if len(notes) > 0 {
					suffix = "  (" + strings.Join(notes, ", ") + ")"
				}
				fmt.Printf("  %2d  %-24s %s  %d instance(s), %d placement(s)%s\n",
					i, l.Name(), l.Texture(), l.InstanceCount(), len(l.Placements()), suffix)
			}

			containers := doc.Containers()
			if len(containers) > 0 {
				fmt.Printf("\ncontainers: %d\n", len(containers))
				for _, c := range containers {
					fmt.Printf("  %s: %d layer(s)\n", coa.ContainerName(c), len(doc.ContainerMembers(c)))
				}
			}
			return nil
		},
	}
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [file]",
		Short: "Validate a document",
		Long: `Parses the document and reports structural problems: malformed
syntax, duplicate layer identifiers, and container groups whose members
are not contiguous in the layer order.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, path, err := readInput(args)
			if err != nil {
				return err
			}

			doc, err := coa.FromText(text, coa.WithLogger(log))
			if err != nil {
				return fmt.Errorf("%s: %w", inputName(path), err)
			}

			problems := 0
			seen := make(map[string]int)
			for _, id := range doc.LayerIDs() {
				seen[id]++
			}
			var dupes []string
			for id, n := range seen {
				if n > 1 {
					dupes = append(dupes, id)
				}
			}
			sort.Strings(dupes)
			for _, id := range dupes {
				fmt.Printf("duplicate layer identifier %s\n", id)
				problems++
			}

			for _, split := range doc.ValidateContainers() {
				fmt.Printf("container %q was not contiguous: %d layer(s) split off\n",
					coa.ContainerName(split.OldID), split.LayerCount)
				problems++
			}

			if problems > 0 {
				return fmt.Errorf("%d problem(s) found", problems)
			}
			fmt.Printf("%s: ok (%d layers)\n", inputName(path), doc.LayerCount())
			return nil
		},
	}
}

func copyCmd() *cobra.Command {
	var layerSpec string
	var keepContainers bool

	cmd := &cobra.Command{
		Use:   "copy [file]",
		Short: "Copy layers to the system clipboard",
		Long: `Serializes the selected layers as loose emblem blocks and places
them on the system clipboard. Container tags are stripped unless
--keep-containers is set, so a pasted layer lands ungrouped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, path, err := readInput(args)
			if err != nil {
				return err
			}

			doc, err := coa.FromText(text, coa.WithLogger(log))
			if err != nil {
				return fmt.Errorf("parsing %s: %w", inputName(path), err)
			}

			ids, err := selectLayers(doc, layerSpec)
			if err != nil {
				return err
			}

			out, err := doc.SerializeLayers(ids, keepContainers)
			if err != nil {
				return err
			}
			if err := clipboard.WriteAll(out); err != nil {
				return fmt.Errorf("writing clipboard: %w", err)
			}
			log.Debug().Int("layers", len(ids)).Msg("layers copied")
			fmt.Printf("copied %d layer(s)\n", len(ids))
			return nil
		},
	}

	cmd.Flags().StringVar(&layerSpec, "layers", "", "comma-separated layer indexes (default: all)")
	cmd.Flags().BoolVar(&keepContainers, "keep-containers", false, "keep container grouping tags")
	return cmd
}

func pasteCmd() *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "paste [file]",
		Short: "Paste clipboard layers into a document",
		Long: `Reads loose emblem blocks (or a whole document) from the system
clipboard and inserts the layers on top of the given document. Pasted
layers always receive fresh identifiers.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, path, err := readInput(args)
			if err != nil {
				return err
			}

			doc, err := coa.FromText(text, coa.WithLogger(log))
			if err != nil {
				return fmt.Errorf("parsing %s: %w", inputName(path), err)
			}

			clip, err := clipboard.ReadAll()
			if err != nil {
				return fmt.Errorf("reading clipboard: %w", err)
			}
			if strings.TrimSpace(clip) == "" {
				return fmt.Errorf("clipboard is empty")
			}

			pasted, err := doc.PasteLayers(clip, "")
			if err != nil {
				return fmt.Errorf("pasting: %w", err)
			}
			log.Debug().Int("layers", len(pasted)).Msg("layers pasted")

			out := doc.ToText()
			if write && path != "" {
				if err := os.WriteFile(path, []byte(out), 0644); err != nil {
					return err
				}
				fmt.Printf("pasted %d layer(s) into %s\n", len(pasted), path)
				return nil
			}
			fmt.Print(out)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "write result back to the file")
	return cmd
}

// ============================================================
// Helpers
// ============================================================

// readInput returns the document text from the file argument or stdin.
func readInput(args []string) (text, path string, err error) {
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", "", err
		}
		return string(data), args[0], nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", "", err
	}
	return string(data), "", nil
}

func inputName(path string) string {
	if path == "" {
		return "stdin"
	}
	return path
}

// selectLayers resolves a comma-separated index list against document
// order; an empty spec selects every layer.
func selectLayers(doc *coa.Document, spec string) ([]string, error) {
	ids := doc.LayerIDs()
	if strings.TrimSpace(spec) == "" {
		return ids, nil
	}

	var out []string
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		var idx int
		if _, err := fmt.Sscanf(part, "%d", &idx); err != nil {
			return nil, fmt.Errorf("bad layer index %q", part)
		}
		if idx < 0 || idx >= len(ids) {
			return nil, fmt.Errorf("layer index %d out of range (0-%d)", idx, len(ids)-1)
		}
		out = append(out, ids[idx])
	}
	return out, nil
}
