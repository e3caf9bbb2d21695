package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

// ClassesResult lists the mapped classes.
type ClassesResult struct {
	Classes []string `json:"classes"`
}

// NewClassesCommand creates the classes command.
func NewClassesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "classes",
		Short: "List every class declared in the mapping roots",
		Long: `List every class declared in the mapping definition files found under
the configured mapping roots, sorted and without duplicates.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClasses(rootOpts, cmd)
		},
	}
}

func runClasses(opts *RootOptions, cmd *cobra.Command) error {
	env, err := newEnvironment(opts, cmd)
	if err != nil {
		return err
	}

	names, err := classNames(env)
	if err != nil {
		return fail(env.formatter, "", err)
	}
	if len(names) == 0 {
		return fail(env.formatter, ErrCodeNoClass,
			fmt.Errorf("no mapped classes found in %s", strings.Join(env.cfg.MappingPaths, ", ")))
	}

	if env.formatter.Format == "json" {
		return env.formatter.Success(ClassesResult{Classes: names})
	}
	for _, name := range names {
		fmt.Fprintln(env.formatter.Writer, name)
	}
	return nil
}

// classNames returns the declared classes, sorted and deduplicated.
func classNames(env *environment) ([]string, error) {
	names, err := env.driver.AllClassNames()
	if err != nil {
		return nil, err
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}
