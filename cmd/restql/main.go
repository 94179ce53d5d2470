// Command restql inspects fields queries from the command line.
//
// Usage:
//
//	restql parse '{name, course(code: "CS50"){name, -author}}'
//	restql fmt '{n: name age}'
//	restql params '(status: "active"){name, course(code: "CS50"){name}}'
//	restql plan --mapping mapping.yaml '{course{books}}'
//	restql select '{name, course{code}}' students.json --format compact
package main

import (
	"fmt"
	"os"

	"github.com/relux-works/restql"
	"github.com/relux-works/restql/cobraext"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		// Parse errors were already reported as JSON by the subcommand.
		if !restql.IsParseError(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		cfgFile string
		verbose bool
	)
	env := &cobraext.Env{}

	root := &cobra.Command{
		Use:           "restql",
		Short:         "Parse and apply fields queries",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(verbose)
			if err != nil {
				return err
			}
			cfg := restql.DefaultConfig()
			if cfgFile != "" {
				cfg, err = restql.LoadConfig(cfgFile)
				if err != nil {
					logger.Error("Failed to load config", zap.String("path", cfgFile), zap.Error(err))
					return err
				}
			}
			env.Logger = logger
			env.Parser = restql.NewParser(restql.WithConfig(cfg), restql.WithLogger(logger))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if env.Logger != nil {
				_ = env.Logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML settings file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cobraext.AddCommands(root, env)
	return root
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}
