// Package cli implements the zbx-import command-line interface.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"zbx-import/internal/app"
	"zbx-import/internal/config"
	internaldb "zbx-import/internal/db"
	"zbx-import/internal/domain"
)

var (
	version = "dev"
	commit  = "none"
)

// errFailed signals a failure whose details were already printed.
var errFailed = errors.New("command failed")

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errFailed) {
			return 1
		}
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			errObj := map[string]interface{}{
				"error": err.Error(),
			}
			if kind := errorKind(err); kind != "" {
				errObj["kind"] = kind
			}
			_ = printJSON(os.Stdout, errObj)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// globalFlags holds the persistent flags. Empty values fall back to the
// environment and then to the config defaults.
type globalFlags struct {
	output      string
	logLevel    string
	backend     string
	dbPath      string
	zabbixURL   string
	zabbixToken string
	envFile     string
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:           "zbx-import",
		Short:         "Zabbix template importer",
		Long:          "Imports Zabbix template documents in parent dependency order and rejects circular template links.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("output") {
				if v := os.Getenv("ZBX_IMPORT_OUTPUT"); v != "" {
					flags.output = v
				}
			}
			return validateOutputFormat(flags.output)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.output, "output", "o", "table", "Output format (table, json)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error (env LOG_LEVEL, default warn)")
	pf.StringVar(&flags.backend, "backend", "", "Import backend: sqlite or zabbix (env IMPORT_BACKEND)")
	pf.StringVar(&flags.dbPath, "db", "", "SQLite template store path (env META_DB_PATH)")
	pf.StringVar(&flags.zabbixURL, "zabbix-url", "", "Zabbix JSON-RPC endpoint (env ZABBIX_URL)")
	pf.StringVar(&flags.zabbixToken, "zabbix-token", "", "Zabbix API token (env ZABBIX_API_TOKEN)")
	pf.StringVar(&flags.envFile, "env-file", ".env", "Dotenv file loaded before reading the environment")

	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newPlanCmd(&flags))
	rootCmd.AddCommand(newImportCmd(&flags))
	rootCmd.AddCommand(newGroupCmd(&flags))
	rootCmd.AddCommand(newTemplateCmd(&flags))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

// loadConfig resolves configuration with flag > env > default precedence.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	if f.envFile != "" {
		if err := config.LoadDotEnv(f.envFile); err != nil {
			return nil, err
		}
	}
	logLevelSet := os.Getenv("LOG_LEVEL") != ""

	return config.LoadFromEnvWith(func(c *config.Config) {
		if !logLevelSet {
			c.LogLevel = "warn"
		}
		if f.logLevel != "" {
			c.LogLevel = f.logLevel
		}
		if f.backend != "" {
			c.Backend = f.backend
		}
		if f.dbPath != "" {
			c.MetaDBPath = f.dbPath
		}
		if f.zabbixURL != "" {
			c.Zabbix.URL = f.zabbixURL
		}
		if f.zabbixToken != "" {
			c.Zabbix.Token = f.zabbixToken
		}
	})
}

// openApp wires the application for a command. The returned close function
// releases the template store.
func (f *globalFlags) openApp(cmd *cobra.Command) (*app.App, func(), error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, nil, err
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	for _, w := range cfg.Warnings {
		logger.Debug(w)
	}

	deps := app.Deps{Cfg: cfg, Logger: logger}
	closeFn := func() {}
	if cfg.Backend == config.BackendSQLite {
		writeDB, readDB, err := internaldb.OpenStore(cmd.Context(), cfg.MetaDBPath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open template store: %w", err)
		}
		deps.WriteDB, deps.ReadDB = writeDB, readDB
		closeFn = func() {
			_ = writeDB.Close()
			_ = readDB.Close()
		}
	}

	a, err := app.New(deps)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return a, closeFn, nil
}

func errorKind(err error) string {
	var validation *domain.ValidationError
	var cycle *domain.CycleError
	var unresolved *domain.UnresolvedReferenceError
	var remote *domain.RemoteOperationError
	var conflict *domain.ConflictError
	var notFound *domain.NotFoundError

	switch {
	case errors.As(err, &validation):
		return "validation"
	case errors.As(err, &cycle):
		return "circular_reference"
	case errors.As(err, &unresolved):
		return "unresolved_reference"
	case errors.As(err, &remote):
		return "remote_operation"
	case errors.As(err, &conflict):
		return "conflict"
	case errors.As(err, &notFound):
		return "not_found"
	default:
		return ""
	}
}

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
	return cmd
}

// getOutputFormat returns the effective output format from the root command's persistent flags.
func getOutputFormat(cmd *cobra.Command) string {
	v, _ := cmd.Root().PersistentFlags().GetString("output")
	return v
}

func validateOutputFormat(output string) error {
	if output != "" && output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
