package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sfmap/internal/mapping"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Checks []ValidationCheck `json:"checks"`
}

// ValidationCheck is the outcome for one class.
type ValidationCheck struct {
	Class   string `json:"class"`
	Valid   bool   `json:"valid"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [class...]",
		Short: "Validate mapping definitions",
		Long: `Load the mapping definitions of the given classes, or of every declared
class when none are given, and report every class that fails.

With a declared schema (--schema), each mapped field and the identity
property must also exist on the local class.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}
}

func runValidate(opts *RootOptions, classes []string, cmd *cobra.Command) error {
	env, err := newEnvironment(opts, cmd)
	if err != nil {
		return err
	}

	if len(classes) == 0 {
		classes, err = classNames(env)
		if err != nil {
			return fail(env.formatter, "", err)
		}
		if len(classes) == 0 {
			return fail(env.formatter, ErrCodeNoClass, errors.New("no mapped classes to validate"))
		}
	}

	withSchema := env.cfg.Schema != ""
	m := env.mapper(nil)

	result := ValidationResult{Valid: true}
	for _, className := range classes {
		env.formatter.VerboseLog("Validating %s", className)

		var err error
		if withSchema {
			err = m.ValidateMapping(className)
		} else {
			_, err = env.driver.LoadMetadataForClass(className)
		}

		check := ValidationCheck{Class: className, Valid: err == nil}
		if err != nil {
			result.Valid = false
			check.Code = codeFor(err)
			check.Message = err.Error()
		}
		result.Checks = append(result.Checks, check)
	}

	if err := outputValidation(env.formatter, result); err != nil {
		return err
	}
	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

func outputValidation(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		if result.Valid {
			return formatter.Success(result)
		}
		return formatter.Error(ErrCodeInvalidMapping, "validation failed", result)
	}

	for _, c := range result.Checks {
		if c.Valid {
			formatter.VerboseLog("✓ %s", c.Class)
			continue
		}
		fmt.Fprintf(formatter.Writer, "  %s [%s]: %s\n", mapping.ShortName(c.Class), c.Code, c.Message)
	}
	if result.Valid {
		fmt.Fprintf(formatter.Writer, "✓ All mappings valid (%d classes)\n", len(result.Checks))
	} else {
		fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	}
	return nil
}
