package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/touchy/internal/binding"
	"github.com/roach88/touchy/internal/harness"
	"github.com/roach88/touchy/internal/ir"
	"github.com/roach88/touchy/internal/store"
)

// RulesOptions holds flags shared by the rules subcommands.
type RulesOptions struct {
	*RootOptions
	Database string
}

// NewRulesCommand creates the rules command and its subcommands.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RulesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect, import and export saved rules",
		Long: `Inspect, import and export the rules saved in a touchy database.

Presets are JSON files holding the rules of one or more device keys.
Comments and trailing commas are allowed when importing.

Examples:
  touchy rules list --db touchy.db
  touchy rules export --db touchy.db -o studio.jsonc
  touchy rules import --db touchy.db studio.jsonc
  touchy rules delete --db touchy.db "Wacom Intuos/Pressure Stylus/1"`,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite rule database (required)")
	_ = cmd.MarkPersistentFlagRequired("db")

	cmd.AddCommand(newRulesListCommand(opts))
	cmd.AddCommand(newRulesExportCommand(opts))
	cmd.AddCommand(newRulesImportCommand(opts))
	cmd.AddCommand(newRulesDeleteCommand(opts))

	return cmd
}

func newRulesListCommand(opts *RulesOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List saved rules by device key",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openRuleStore(contextOf(cmd), opts.Database, false)
			if err != nil {
				return err
			}
			formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			if formatter.JSON() {
				return formatter.Success(store.Export(st))
			}
			writeRuleSets(formatter.Writer, st)
			return nil
		},
	}
}

func newRulesExportCommand(opts *RulesOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:           "export",
		Short:         "Write saved rules as a preset",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openRuleStore(contextOf(cmd), opts.Database, false)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to create preset file", err)
				}
				defer f.Close()
				w = f
			}
			if err := store.WritePreset(w, store.Export(st)); err != nil {
				return WrapExitError(ExitCommandError, "failed to export rules", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "preset file to write (default stdout)")
	return cmd
}

// ImportResult is the json payload of rules import.
type ImportResult struct {
	Imported int `json:"imported"`
	Keys     int `json:"keys"`
}

func newRulesImportCommand(opts *RulesOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <preset>",
		Short: "Merge a preset into the database",
		Long: `Merge a preset into the database. Keys in the preset replace the
saved rules of the same key; other keys are kept. Nothing is written if
any rule in the preset is invalid.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

			f, err := os.Open(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open preset", err)
			}
			defer f.Close()

			preset, err := store.ReadPreset(f)
			if err != nil {
				_ = formatter.Error(ErrCodeBadPreset, err.Error(), nil)
				return WrapExitError(ExitFailure, "failed to read preset", err)
			}

			// Check the preset against a scratch store first; loading the
			// real one creates the database file.
			if _, err := store.Import(store.New(nil), preset); err != nil {
				_ = formatter.Error(ErrCodeBadPreset, err.Error(), nil)
				return WrapExitError(ExitFailure, "failed to import preset", err)
			}

			st, err := openRuleStore(contextOf(cmd), opts.Database, true)
			if err != nil {
				return err
			}
			n, err := store.Import(st, preset)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to import preset", err)
			}
			if !st.Save(contextOf(cmd)) {
				_ = formatter.Error(ErrCodeStoreFailed, "rules were not saved", nil)
				return NewExitError(ExitCommandError, "failed to save rules")
			}

			result := ImportResult{Imported: n, Keys: st.Len()}
			if formatter.JSON() {
				return formatter.Success(result)
			}
			fmt.Fprintf(formatter.Writer, "✓ Imported %d rule set(s); %d key(s) saved\n", result.Imported, result.Keys)
			return nil
		},
	}
}

// DeleteResult is the json payload of rules delete.
type DeleteResult struct {
	Key  string `json:"key"`
	Keys int    `json:"keys"`
}

func newRulesDeleteCommand(opts *RulesOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <source/cursor/button>",
		Short: "Forget the saved rules of one key",
		Long: `Forget the saved rules of one device key. The next time that key is
selected its rules start from the factory defaults.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

			key, err := ir.ParseKey(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid key", err)
			}
			st, err := openRuleStore(contextOf(cmd), opts.Database, false)
			if err != nil {
				return err
			}
			if !st.Delete(key) {
				_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("no saved rules for %s", key), nil)
				return NewExitError(ExitFailure, fmt.Sprintf("no saved rules for %s", key))
			}
			if !st.Save(contextOf(cmd)) {
				_ = formatter.Error(ErrCodeStoreFailed, "rules were not saved", nil)
				return NewExitError(ExitCommandError, "failed to save rules")
			}

			result := DeleteResult{Key: key.String(), Keys: st.Len()}
			if formatter.JSON() {
				return formatter.Success(result)
			}
			fmt.Fprintf(formatter.Writer, "✓ Deleted rules for %s; %d key(s) left\n", result.Key, result.Keys)
			return nil
		},
	}
}

// openRuleStore loads the database at path. Unless create is set the
// database must already exist.
func openRuleStore(ctx context.Context, path string, create bool) (*store.Store, error) {
	if !create {
		if _, err := os.Stat(path); err != nil {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
		}
	}
	st := store.New(store.NewSQLite(path))
	st.Load(ctx)
	return st, nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// ruleFieldOrder is the column order of the text listing.
var ruleFieldOrder = []binding.Field{
	binding.FieldEnabled,
	binding.FieldChannel,
	binding.FieldMessageType,
	binding.FieldControlType,
	binding.FieldRangeFrom,
	binding.FieldRangeTo,
	binding.FieldThreshold,
	binding.FieldStep,
	binding.FieldValue,
	binding.FieldPullBack,
}

func writeRuleSets(w io.Writer, st *store.Store) {
	keys := st.Keys()
	if len(keys) == 0 {
		fmt.Fprintln(w, "No saved rules.")
		return
	}
	for _, key := range keys {
		snaps, _ := st.Lookup(key)
		fmt.Fprintln(w, key)
		for i, snap := range snaps {
			fmt.Fprintf(w, "  [%d] %s\n", i, describeSnapshot(snap))
		}
	}
}

// describeSnapshot renders a snapshot as "axis field=value ...".
func describeSnapshot(s ir.Snapshot) string {
	fields := harness.SnapshotFields(s)
	parts := []string{string(s.Axis)}
	for _, f := range ruleFieldOrder {
		v, ok := fields[f.String()]
		if !ok {
			continue
		}
		if v == "" {
			v = "-"
		} else if strings.ContainsRune(v, ' ') {
			v = fmt.Sprintf("%q", v)
		}
		parts = append(parts, f.String()+"="+v)
	}
	return strings.Join(parts, " ")
}
