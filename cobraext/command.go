// Package cobraext provides Cobra command factories for restql.
// It isolates the github.com/spf13/cobra dependency so that users who only
// need the parser never import it.
package cobraext

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/relux-works/restql"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Env is the state shared by the commands. Root commands fill it in a
// PersistentPreRunE hook once flags are known; commands read it when they run.
type Env struct {
	Parser *restql.Parser
	Logger *zap.Logger
}

func (e *Env) parser() *restql.Parser {
	if e.Parser == nil {
		e.Parser = restql.NewParser(restql.WithLogger(e.logger()))
	}
	return e.Parser
}

func (e *Env) logger() *zap.Logger {
	if e.Logger == nil {
		e.Logger = zap.NewNop()
	}
	return e.Logger
}

// parse parses text and, on failure, writes the structured error as JSON to
// the command's error stream before returning it.
func (e *Env) parse(cmd *cobra.Command, text string) (*restql.Query, error) {
	q, err := e.parser().Parse(text)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), errorJSON(err))
		return nil, err
	}
	return q, nil
}

// errorJSON renders err in its structured form, or as plain text when the
// details cannot be encoded.
func errorJSON(err error) string {
	data, merr := json.Marshal(restql.AsError(err))
	if merr != nil {
		return err.Error()
	}
	return string(data)
}

func write(cmd *cobra.Command, v any, format string, fieldOrder []string) error {
	mode, err := restql.ParseOutputMode(format)
	if err != nil {
		return err
	}
	data, err := restql.Render(v, mode, fieldOrder)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

// ParseCommand creates a "parse" subcommand that prints the Query tree of a
// fields query.
func ParseCommand(env *Env) *cobra.Command {
	var (
		format string
		asMap  bool
	)

	cmd := &cobra.Command{
		Use:           "parse <query>",
		Short:         "Parse a fields query and print its tree",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := env.parse(cmd, args[0])
			if err != nil {
				return err
			}
			if asMap {
				return write(cmd, q.ToMap(), format, nil)
			}
			return write(cmd, q, format, nil)
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", `Output format: "json", "yaml" or "compact"`)
	cmd.Flags().BoolVar(&asMap, "map", false, "Print the include/exclude map instead of the full tree")
	return cmd
}

// FormatCommand creates a "fmt" subcommand that prints the canonical text of
// a fields query.
func FormatCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:           "fmt <query>",
		Short:         "Print a fields query in canonical form",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := env.parse(cmd, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), q.String())
			return err
		},
	}
}

// ParamsCommand creates a "params" subcommand that prints the arguments of a
// fields query flattened into filter parameters.
func ParamsCommand(env *Env) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:           "params <query>",
		Short:         "Print query arguments as flat filter parameters",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := env.parse(cmd, args[0])
			if err != nil {
				return err
			}
			return write(cmd, q.QueryParams(), format, nil)
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", `Output format: "json", "yaml" or "compact"`)
	return cmd
}

// PlanCommand creates a "plan" subcommand that prints the relations to eager
// load for a fields query, given a YAML relation mapping. When the parser's
// config turns automatic eager loading off, the plan is empty unless --force
// is given.
func PlanCommand(env *Env) *cobra.Command {
	var (
		format      string
		mappingPath string
		force       bool
	)

	cmd := &cobra.Command{
		Use:           "plan <query>",
		Short:         "Print the relations to eager load for a fields query",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			mapping, err := restql.LoadMapping(mappingPath)
			if err != nil {
				return err
			}
			q, err := env.parse(cmd, args[0])
			if err != nil {
				return err
			}
			if !env.parser().Config().AutoApplyEagerLoading && !force {
				env.logger().Debug("eager loading disabled by config")
				return write(cmd, restql.Plan{Select: []string{}, Prefetch: []string{}}, format, nil)
			}
			plan := mapping.Plan(q)
			env.logger().Debug("eager loading plan",
				zap.Strings("select", plan.Select),
				zap.Strings("prefetch", plan.Prefetch))
			return write(cmd, plan, format, nil)
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", `Output format: "json" or "yaml"`)
	cmd.Flags().StringVar(&mappingPath, "mapping", "", "YAML file with select/prefetch relation mappings (required)")
	cmd.Flags().BoolVar(&force, "force", false, "Plan even when auto_apply_eager_loading is off")
	_ = cmd.MarkFlagRequired("mapping")
	return cmd
}

// SelectCommand creates a "select" subcommand that projects a JSON document
// (object or array of objects) through a fields query. The document is read
// from the file argument, or from stdin when it is omitted or "-".
func SelectCommand(env *Env) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:           "select <query> [file]",
		Short:         "Project a JSON document through a fields query",
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := env.parse(cmd, args[0])
			if err != nil {
				return err
			}
			sel, err := env.parser().NewSelector(q)
			if err != nil {
				return err
			}

			var in io.Reader = cmd.InOrStdin()
			if len(args) == 2 && args[1] != "-" {
				f, err := os.Open(args[1])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			var doc any
			if err := json.NewDecoder(in).Decode(&doc); err != nil {
				return fmt.Errorf("decode document: %w", err)
			}

			out, err := sel.Project(doc)
			if err != nil {
				return err
			}
			// Wildcard levels select keys the query never names.
			var order []string
			if !sel.Query().IncludesAll() {
				order = sel.Fields()
			}
			return write(cmd, out, format, order)
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", `Output format: "json", "yaml" or "compact"`)
	return cmd
}

// AddCommands adds every restql subcommand to parent.
func AddCommands(parent *cobra.Command, env *Env) {
	parent.AddCommand(ParseCommand(env))
	parent.AddCommand(FormatCommand(env))
	parent.AddCommand(ParamsCommand(env))
	parent.AddCommand(PlanCommand(env))
	parent.AddCommand(SelectCommand(env))
}
