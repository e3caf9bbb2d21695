package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/sfmap/internal/identification"
	"github.com/roach88/sfmap/internal/mapping"
)

// ClassReport describes the loaded metadata of one class.
type ClassReport struct {
	Class      string                 `json:"class"`
	Object     string                 `json:"object"`
	Identity   string                 `json:"identity"`
	Fields     []mapping.FieldMapping `json:"fields"`
	Strategies []StrategyReport       `json:"strategies"`
}

// StrategyReport describes one identification strategy.
type StrategyReport struct {
	Kind          identification.Kind `json:"kind"`
	Property      string              `json:"property,omitempty"`
	MatchingField string              `json:"matching_field,omitempty"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <class>",
		Short: "Show the metadata loaded for a class",
		Long: `Load the mapping definition of a class and print its Salesforce object
type, field mappings, identification strategies and the resolved local
identity.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, args[0], cmd)
		},
	}
}

func runInspect(opts *RootOptions, className string, cmd *cobra.Command) error {
	env, err := newEnvironment(opts, cmd)
	if err != nil {
		return err
	}

	md, err := env.driver.LoadMetadataForClass(className)
	if err != nil {
		return fail(env.formatter, "", err)
	}

	report := newClassReport(md)
	if env.formatter.Format == "json" {
		return env.formatter.Success(report)
	}
	writeClassReport(env.formatter.Writer, report)
	return nil
}

func newClassReport(md *mapping.ClassMetadata) ClassReport {
	report := ClassReport{
		Class:    md.ClassName(),
		Object:   md.RemoteType(),
		Identity: md.LocalIdentity().String(),
		Fields:   md.FieldMappings(),
	}
	for _, s := range md.Strategies() {
		sr := StrategyReport{Kind: s.Kind()}
		switch v := s.(type) {
		case *identification.Property:
			sr.Property = v.Name
		case *identification.FullRemote:
			sr.MatchingField = v.MatchingField
		}
		report.Strategies = append(report.Strategies, sr)
	}
	return report
}

func writeClassReport(w io.Writer, r ClassReport) {
	fmt.Fprintf(w, "Class:    %s\n", r.Class)
	fmt.Fprintf(w, "Object:   %s\n", r.Object)
	fmt.Fprintf(w, "Identity: %s\n", r.Identity)

	fmt.Fprintln(w, "Fields:")
	for _, f := range r.Fields {
		fmt.Fprintf(w, "  %s -> %s\n", f.Field, f.Remote())
	}

	fmt.Fprintln(w, "Strategies:")
	for _, s := range r.Strategies {
		switch {
		case s.Property != "":
			fmt.Fprintf(w, "  - %s (property: %s)\n", s.Kind, s.Property)
		case s.MatchingField != "":
			fmt.Fprintf(w, "  - %s (matching field: %s)\n", s.Kind, s.MatchingField)
		default:
			fmt.Fprintf(w, "  - %s\n", s.Kind)
		}
	}
}
