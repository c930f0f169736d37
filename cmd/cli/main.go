package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/yurifrl/brokerfacts/pkg/config"
	"github.com/yurifrl/brokerfacts/pkg/executors"
	"github.com/yurifrl/brokerfacts/pkg/plan"
	"github.com/yurifrl/brokerfacts/pkg/source"
	"github.com/yurifrl/brokerfacts/pkg/store"
	"github.com/yurifrl/brokerfacts/pkg/ynab"
)

var (
	cliFilters filters
	cfgFile    string
)

var rootCmd = &cobra.Command{
	Use:   "brokerfacts",
	Short: "Extract account facts from brokerage statements",
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Show help when no subcommand is provided
		return cmd.Help()
	},
	SilenceUsage: true,
}

// setup loads configuration and builds the executor shared by the commands.
func setup(cmd *cobra.Command, ledger executors.Ledger) (*config.Config, *log.Logger, *executors.Executor, error) {
	cfg, err := config.Build(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, nil, err
	}
	logger := cfg.Logger("brokerfacts")
	reg, err := cfg.Registry()
	if err != nil {
		return nil, nil, nil, err
	}
	if _, err := reg.Select(cfg.Dialects); err != nil {
		return nil, nil, nil, err
	}
	exec := executors.New(logger, cfg, reg, source.NewFiles(logger, cfg.XLSCharset), ledger)
	return cfg, logger, exec, nil
}

var extractCmd = &cobra.Command{
	Use:   "extract [flags] <path|glob|dir>...",
	Short: "Extract account facts from statements",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, exec, err := setup(cmd, nil)
		if err != nil {
			return err
		}

		files, err := collectInputs(logger, args)
		if err != nil {
			return err
		}
		statements := make([]plan.Statement, 0, len(files))
		for _, f := range files {
			statements = append(statements, plan.Statement{File: f, Dialects: cfg.Dialects})
		}

		batch, err := exec.Run(cmd.Context(), statements)
		if err != nil {
			return err
		}
		results := cliFilters.apply(batch.Results())
		if err := render(os.Stdout, cfg.Output, results); err != nil {
			return err
		}

		if save, _ := cmd.Flags().GetBool("save"); save {
			st, err := store.Open(cmd.Context(), logger, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Migrate(cmd.Context()); err != nil {
				return err
			}
			if _, err := st.Save(cmd.Context(), batch.ID, results...); err != nil {
				return err
			}
		}

		if batch.Failed() > 0 {
			return fmt.Errorf("%d of %d statements failed", batch.Failed(), len(statements))
		}
		return nil
	},
}

var tokensCmd = &cobra.Command{
	Use:   "tokens <file>",
	Short: "Dump the reading-order tokens of a statement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Build(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		logger := cfg.Logger("brokerfacts")

		doc, err := source.NewFiles(logger, cfg.XLSCharset).Open(args[0])
		if err != nil {
			return err
		}
		defer doc.Close()

		page, _ := cmd.Flags().GetInt("page")
		if page >= 0 {
			p, err := doc.Page(page)
			if err != nil {
				return err
			}
			return source.WriteDump(os.Stdout, p)
		}
		pages, err := source.ReadAll(doc)
		if err != nil {
			return err
		}
		return source.WriteDump(os.Stdout, pages...)
	},
}

var dialectsCmd = &cobra.Command{
	Use:   "dialects",
	Short: "List the known statement dialects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Build(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		reg, err := cfg.Registry()
		if err != nil {
			return err
		}
		fmt.Println(dialectTable(reg))
		return nil
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch <plan_file>",
	Short: "Extract every statement listed in a YAML plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := plan.Load(args[0])
		if err != nil {
			return err
		}
		cfg, _, exec, err := setup(cmd, nil)
		if err != nil {
			return err
		}

		batch, err := exec.Run(cmd.Context(), p.Statements)
		if err != nil {
			return err
		}
		if cfg.Output == "table" {
			executors.PrintBatch(os.Stdout, batch)
			return nil
		}
		return render(os.Stdout, cfg.Output, cliFilters.apply(batch.Results()))
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync <plan_file>",
	Short: "Reconcile statement values with YNAB tracking accounts (dry-run)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		planPath := args[0]
		p, err := plan.Load(planPath)
		if err != nil {
			return err
		}
		cfg, err := config.Build(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		token := p.YNAB.Token()
		if token == "" {
			token = cfg.YNAB.Token
		}
		if token == "" {
			return fmt.Errorf("no YNAB token: set %s_YNAB_TOKEN or ynab.token_env in the plan", config.EnvPrefix)
		}

		_, _, exec, err := setup(cmd, ynab.New(token))
		if err != nil {
			return err
		}

		fmt.Printf("Plan preview for %s\n", planPath)
		p.Print(os.Stdout)
		batch, report, err := exec.Plan(cmd.Context(), p)
		if err != nil {
			return err
		}
		for _, o := range batch.Outcomes {
			if o.Err != nil {
				fmt.Printf("  ! %s: %v\n", o.File, o.Err)
			}
		}
		executors.PrintReport(os.Stdout, report)

		if apply, _ := cmd.Flags().GetBool("apply"); apply {
			n, err := exec.Apply(p, report)
			if err != nil {
				return err
			}
			fmt.Printf("Created %s adjustment transaction(s)\n", strconv.Itoa(n))
		}
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default is config.yaml)")
	rootCmd.PersistentFlags().StringSlice("dialect", nil, "Dialect to try, in order (repeatable; default all)")
	rootCmd.PersistentFlags().StringSlice("dialect-file", nil, "Extra YAML dialect definition (repeatable)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format (table, json, yaml, csv, pp)")
	rootCmd.PersistentFlags().Int("workers", 4, "Statements processed concurrently")
	rootCmd.PersistentFlags().String("xls-charset", "cp1252", "Charset of legacy .xls workbooks")

	// Filter flags (global)
	rootCmd.PersistentFlags().StringVar(&cliFilters.account, "account", "", "Only accounts whose key contains this text")
	rootCmd.PersistentFlags().StringVar(&cliFilters.startDate, "start", "", "Start statement date (YYYY-MM-DD)")
	rootCmd.PersistentFlags().StringVar(&cliFilters.endDate, "end", "", "End statement date (YYYY-MM-DD)")

	extractCmd.Flags().Bool("save", false, "Save the facts to Postgres")
	extractCmd.Flags().String("database-url", "", "Postgres connection string")
	tokensCmd.Flags().Int("page", -1, "Only dump this zero-based page")
	syncCmd.Flags().Bool("apply", false, "Create the adjustment transactions")

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(tokensCmd)
	rootCmd.AddCommand(dialectsCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(syncCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
