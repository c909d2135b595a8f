package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/camden-git/vanshavalibackend/kinship"
	"github.com/camden-git/vanshavalibackend/rules"
)

var (
	rootCmd = &cobra.Command{
		Use:   "vanshavali",
		Short: "Family heritage backend with dynamic relationship inference",
		Long: `vanshavali serves the family tree API and infers the relationship
between members by walking parent, child, sibling and spouse links.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
		SilenceUsage: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	relationsCmd = &cobra.Command{
		Use:   "relations <serNo>",
		Short: "Print the computed relations of one member as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runRelations,
	}

	seedRulesCmd = &cobra.Command{
		Use:   "seed-rules [file]",
		Short: "Replace the stored relation rules with a YAML file or the embedded table",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSeedRules,
	}

	exportRulesCmd = &cobra.Command{
		Use:   "export-rules",
		Short: "Print the active relation rule table as YAML",
		Args:  cobra.NoArgs,
		RunE:  runExportRules,
	}

	relationsTimeout time.Duration
)

func init() {
	relationsCmd.Flags().DurationVar(&relationsTimeout, "timeout", 30*time.Second, "give up after this long")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(relationsCmd)
	rootCmd.AddCommand(seedRulesCmd)
	rootCmd.AddCommand(exportRulesCmd)
}

func runServe() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return serve(cfg)
}

func withApp(fn func(a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func runRelations(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), relationsTimeout)
		defer cancel()

		relations, err := a.service.ComputeRelations(ctx, args[0])
		if err != nil {
			return err
		}
		if relations == nil {
			relations = []kinship.ComputedRelation{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(relations)
	})
}

func runSeedRules(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app) error {
		path := a.cfg.RulesPath
		if len(args) == 1 {
			path = args[0]
		}
		n, err := a.seedRules(path)
		if err != nil {
			return err
		}
		source := path
		if source == "" {
			source = "embedded default"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d relation rule(s) from %s\n", n, source)
		return nil
	})
}

func runExportRules(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app) error {
		rows, err := a.ruleRepo.ListAll()
		if err != nil {
			return err
		}
		var rs []kinship.Rule
		if len(rows) == 0 {
			if rs, err = rules.Default(); err != nil {
				return err
			}
		} else {
			rs = make([]kinship.Rule, len(rows))
			for i := range rows {
				rs[i] = rows[i].ToKinship()
			}
		}
		out, err := rules.Marshal(rs)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	})
}
