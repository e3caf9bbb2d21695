package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sfmap/internal/identification"
	"github.com/roach88/sfmap/internal/mapping"
	"github.com/roach88/sfmap/internal/store"
)

// LookupOptions holds flags for the lookup command.
type LookupOptions struct {
	LocalID  string
	RemoteID string
}

// NewLinkCommand creates the link command.
func NewLinkCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "link <class> <local-id> <salesforce-id>",
		Short: "Record the Salesforce id of a local entity",
		Long: `Record in the mapping table that the local entity is the given
Salesforce record. The class must use the mappingTable identification
strategy. Relinking an entity replaces its previous Salesforce id.`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLink(rootOpts, args[0], args[1], args[2], cmd)
		},
	}
}

// NewUnlinkCommand creates the unlink command.
func NewUnlinkCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "unlink <class> <local-id>",
		Short:         "Remove the Salesforce id of a local entity",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUnlink(rootOpts, args[0], args[1], cmd)
		},
	}
}

// NewLookupCommand creates the lookup command.
func NewLookupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LookupOptions{}

	cmd := &cobra.Command{
		Use:   "lookup <class>",
		Short: "Look up mapping table entries",
		Long: `Look up the mapping table entries of a class.

With --local, print the Salesforce id linked to a local id. With --remote,
print the local id linked to a Salesforce id. Without either, list every
link of the class.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.LocalID, "local", "", "local entity id")
	cmd.Flags().StringVar(&opts.RemoteID, "remote", "", "Salesforce id")
	cmd.MarkFlagsMutuallyExclusive("local", "remote")

	return cmd
}

// linkedClass checks that className is mapped and keeps identity in the
// mapping table.
func linkedClass(env *environment, className string) error {
	md, err := env.driver.LoadMetadataForClass(className)
	if err != nil {
		return err
	}
	if identity := md.LocalIdentity(); identity.Kind != identification.KindMappingTable {
		return mapping.NewInvalidState(className,
			fmt.Sprintf("identity is %s, not kept in the mapping table", identity))
	}
	return nil
}

func runLink(opts *RootOptions, className, localID, remoteID string, cmd *cobra.Command) error {
	env, err := newEnvironment(opts, cmd)
	if err != nil {
		return err
	}
	if err := linkedClass(env, className); err != nil {
		return fail(env.formatter, "", err)
	}

	st, err := env.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Link(cmd.Context(), className, localID, remoteID); err != nil {
		code := ErrCodeStore
		if errors.Is(err, store.ErrLinkConflict) {
			code = ErrCodeLinkConflict
		}
		return fail(env.formatter, code, err)
	}
	env.logger.Info("linked entity", "class", className, "local_id", localID, "salesforce_id", remoteID)

	link := store.Link{EntityType: className, EntityID: localID, SalesforceID: remoteID}
	if env.formatter.Format == "json" {
		return env.formatter.Success(link)
	}
	fmt.Fprintf(env.formatter.Writer, "Linked %s(%s) to %s\n", className, localID, remoteID)
	return nil
}

func runUnlink(opts *RootOptions, className, localID string, cmd *cobra.Command) error {
	env, err := newEnvironment(opts, cmd)
	if err != nil {
		return err
	}

	st, err := env.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	removed, err := st.Unlink(cmd.Context(), className, localID)
	if err != nil {
		return fail(env.formatter, ErrCodeStore, err)
	}
	if !removed {
		return fail(env.formatter, ErrCodeNotFound, fmt.Errorf("%s(%s) is not linked", className, localID))
	}

	if env.formatter.Format == "json" {
		return env.formatter.Success(map[string]any{"class": className, "local_id": localID, "removed": true})
	}
	fmt.Fprintf(env.formatter.Writer, "Unlinked %s(%s)\n", className, localID)
	return nil
}

func runLookup(rootOpts *RootOptions, opts *LookupOptions, className string, cmd *cobra.Command) error {
	env, err := newEnvironment(rootOpts, cmd)
	if err != nil {
		return err
	}

	st, err := env.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	links, err := lookupLinks(cmd.Context(), st, className, opts)
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return fail(env.formatter, ErrCodeNotFound, exitErr.Err)
		}
		return fail(env.formatter, ErrCodeStore, err)
	}

	if env.formatter.Format == "json" {
		return env.formatter.Success(links)
	}
	if len(links) == 0 {
		fmt.Fprintf(env.formatter.Writer, "No links for %s\n", className)
		return nil
	}
	for _, l := range links {
		fmt.Fprintf(env.formatter.Writer, "%s\t%s\n", l.EntityID, l.SalesforceID)
	}
	return nil
}

// lookupLinks resolves the lookup flags. A miss on --local or --remote is
// returned as an *ExitError wrapping the cause.
func lookupLinks(ctx context.Context, st *store.Store, className string, opts *LookupOptions) ([]store.Link, error) {
	switch {
	case opts.LocalID != "":
		remoteID, ok, err := st.FindByLocalKey(ctx, className, opts.LocalID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, WrapExitError(ExitCommandError, ErrCodeNotFound,
				fmt.Errorf("%s(%s) is not linked", className, opts.LocalID))
		}
		return []store.Link{{EntityType: className, EntityID: opts.LocalID, SalesforceID: remoteID}}, nil

	case opts.RemoteID != "":
		localID, ok, err := st.FindByRemoteKey(ctx, opts.RemoteID, className)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, WrapExitError(ExitCommandError, ErrCodeNotFound,
				fmt.Errorf("no %s is linked to %s", className, opts.RemoteID))
		}
		return []store.Link{{EntityType: className, EntityID: localID, SalesforceID: opts.RemoteID}}, nil

	default:
		return st.Links(ctx, className)
	}
}
