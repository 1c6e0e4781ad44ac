package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/icdload/internal/config"
	"github.com/JonMunkholm/icdload/internal/core"
	_ "github.com/JonMunkholm/icdload/internal/core/tables" // Register all tables
	"github.com/JonMunkholm/icdload/internal/logging"
	"github.com/JonMunkholm/icdload/internal/pipeline"
	"github.com/JonMunkholm/icdload/internal/registry"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "icdload",
		Short:        "Generate ICD-11 MMS category INSERT statements from the WHO ICD API",
		SilenceUsage: true,
	}

	root.AddCommand(runCmd())
	root.AddCommand(columnsCmd())
	return root
}

// runFlags holds the command-line overrides of the run command.
type runFlags struct {
	input     string
	output    string
	versionID int
	envFile   string
}

func runCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Resolve every code in the input file and write INSERT statements",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, &flags)
		},
	}

	cmd.Flags().StringVar(&flags.input, "input", "", "JSON file with the array of codes (overrides INPUT_CODES_FILE)")
	cmd.Flags().StringVar(&flags.output, "output", "", "SQL output file (overrides OUTPUT_SQL_FILE)")
	cmd.Flags().IntVar(&flags.versionID, "version-id", 0, "MMS version id for ID_VERSION (overrides MMS_VERSION_ID)")
	cmd.Flags().StringVar(&flags.envFile, "env-file", "", "load environment variables from this file instead of .env")

	return cmd
}

func runLoad(cmd *cobra.Command, flags *runFlags) error {
	loadEnvFile(flags.envFile)

	cfg, err := config.LoadWithOverrides(flagOverrides(cmd, flags))
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return err
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"release", cfg.Registry.ReleaseID,
		"linearization", cfg.Registry.Linearization,
		"timeout", cfg.Registry.Timeout,
		"table", cfg.Load.Table,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	def, err := core.Lookup(cfg.Load.Table)
	if err != nil {
		slog.Error("target table not available", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := registry.New(cfg.Registry)
	gen := core.NewGenerator(ctx, cfg.Files.OutputSQL, def)

	res, err := pipeline.New(client, gen, cfg.Load.VersionID).Run(ctx, cfg.Files.InputCodes)
	printSummary(cmd.OutOrStdout(), res)
	return err
}

// loadEnvFile loads path, or .env when path is empty. Values in the file
// overwrite existing environment variables.
func loadEnvFile(path string) {
	if path == "" {
		if err := godotenv.Overload(); err != nil {
			slog.Info("no .env file found, using environment variables")
			return
		}
		slog.Info("loaded .env file (overwriting existing env vars)")
		return
	}

	if err := godotenv.Overload(path); err != nil {
		slog.Warn("could not load env file, using environment variables", "path", path, "error", err)
		return
	}
	slog.Info("loaded env file (overwriting existing env vars)", "path", path)
}

// flagOverrides applies the flags the user actually set.
func flagOverrides(cmd *cobra.Command, flags *runFlags) func(*config.Config) {
	return func(cfg *config.Config) {
		if cmd.Flags().Changed("input") {
			cfg.Files.InputCodes = flags.input
		}
		if cmd.Flags().Changed("output") {
			cfg.Files.OutputSQL = flags.output
		}
		if cmd.Flags().Changed("version-id") {
			cfg.Load.VersionID = flags.versionID
		}
	}
}

func printSummary(w io.Writer, res *pipeline.Result) {
	if res == nil {
		return
	}

	fmt.Fprintf(w, "run %s %s in %s\n", res.RunID, res.Phase, res.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  codes:   %d\n", res.TotalCodes)
	fmt.Fprintf(w, "  written: %d\n", res.Written)
	fmt.Fprintf(w, "  skipped: %d\n", len(res.Skipped))
	for _, s := range res.Skipped {
		fmt.Fprintf(w, "    #%d %q (%s): %s\n", s.Index, s.Code, s.Stage, s.Reason)
	}
	if res.Error != "" {
		fmt.Fprintf(w, "  error:   %s\n", res.Error)
	}
	if !res.TokenExpiresAt.IsZero() {
		fmt.Fprintf(w, "  token expires: %s\n", res.TokenExpiresAt.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "review %s\n", res.OutputFile)
}

func columnsCmd() *cobra.Command {
	var table string

	cmd := &cobra.Command{
		Use:   "columns",
		Short: "List the columns of the registered target tables, in statement order",
		RunE: func(cmd *cobra.Command, args []string) error {
			defs := core.All()
			if table != "" {
				def, err := core.Lookup(table)
				if err != nil {
					return err
				}
				defs = []core.TableDefinition{def}
			}

			for i, def := range defs {
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				if err := printColumns(cmd.OutOrStdout(), def); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&table, "table", "", "registered table key (default: every table)")
	return cmd
}

func printColumns(w io.Writer, def core.TableDefinition) error {
	specs := make(map[string]core.FieldSpec, len(def.FieldSpecs))
	for _, spec := range def.FieldSpecs {
		specs[spec.Name] = spec
	}

	info := def.Info
	if _, err := fmt.Fprintf(w, "%s: %s (%s) -> %s, sequence %s\n",
		info.Key, info.Label, info.Group, info.Table, info.Sequence); err != nil {
		return err
	}
	for i, col := range info.Columns {
		spec := specs[col]
		line := fmt.Sprintf("%2d %s %s", i+1, col, spec.Type)
		if spec.Required {
			line += " required"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
