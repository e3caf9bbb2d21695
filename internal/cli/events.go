package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/sfmap/internal/event"
	"github.com/roach88/sfmap/internal/store"
)

// EventsListOptions holds flags for events list.
type EventsListOptions struct {
	All   bool
	Class string
	Limit int
}

// PushResult reports the outcome of events push.
type PushResult struct {
	ID       string `json:"id"`
	Inserted bool   `json:"inserted"`
}

// NewEventsCommand creates the events command group.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Manage the pending sync event outbox",
		Long: `Inspect and manage the sync events recorded for dispatch to Salesforce.

Events are listed in append order. Pushing an event identical to one still
pending returns the pending event instead of queueing it twice.`,
	}

	cmd.AddCommand(newEventsListCommand(rootOpts))
	cmd.AddCommand(newEventsAckCommand(rootOpts))
	cmd.AddCommand(newEventsPushCommand(rootOpts))

	return cmd
}

func newEventsListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsListOptions{}

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List pending sync events",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEventsList(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "include acknowledged events")
	cmd.Flags().StringVar(&opts.Class, "class", "", "only events of this local class")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of events (0 = no limit)")

	return cmd
}

func newEventsAckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "ack <event-id>",
		Short:         "Mark a pending sync event as dispatched",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEventsAck(rootOpts, args[0], cmd)
		},
	}
}

func newEventsPushCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "push <file|->",
		Short: "Queue a sync event read from a JSON file",
		Long: `Queue a sync event read from a JSON file, or from stdin when the
argument is "-". The document has the shape:

  {"action": "update",
   "entity": {"id": "42", "type": "Acme\\Entity\\Customer"},
   "salesforce": {"type": "Account", "object": {"Id": "001...", "Name": "Acme"}}}`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEventsPush(rootOpts, args[0], cmd)
		},
	}
}

func runEventsList(rootOpts *RootOptions, opts *EventsListOptions, cmd *cobra.Command) error {
	env, err := newEnvironment(rootOpts, cmd)
	if err != nil {
		return err
	}

	st, err := env.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.ReadEvents(cmd.Context(), store.ReadOptions{
		IncludeAcked: opts.All,
		EntityType:   opts.Class,
		Limit:        opts.Limit,
	})
	if err != nil {
		return fail(env.formatter, ErrCodeStore, err)
	}

	if env.formatter.Format == "json" {
		return env.formatter.Success(records)
	}
	if len(records) == 0 {
		fmt.Fprintln(env.formatter.Writer, "No pending events")
		return nil
	}
	for _, r := range records {
		state := "pending"
		if r.Acked {
			state = "acked"
		}
		fmt.Fprintf(env.formatter.Writer, "%d\t%s\t%s\t%s\t%s(%s)\t%s\n",
			r.Seq, r.ID, state, r.Event.Action, r.Event.Local.Type, r.Event.Local.ID, r.Event.Remote.Type)
	}
	return nil
}

func runEventsAck(rootOpts *RootOptions, id string, cmd *cobra.Command) error {
	env, err := newEnvironment(rootOpts, cmd)
	if err != nil {
		return err
	}

	st, err := env.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	acked, err := st.AckEvent(cmd.Context(), id)
	if err != nil {
		return fail(env.formatter, ErrCodeStore, err)
	}
	if !acked {
		return fail(env.formatter, ErrCodeNotFound, fmt.Errorf("no pending event %s", id))
	}

	if env.formatter.Format == "json" {
		return env.formatter.Success(map[string]any{"id": id, "acked": true})
	}
	fmt.Fprintf(env.formatter.Writer, "Acknowledged %s\n", id)
	return nil
}

func runEventsPush(rootOpts *RootOptions, source string, cmd *cobra.Command) error {
	env, err := newEnvironment(rootOpts, cmd)
	if err != nil {
		return err
	}

	ev, err := readEvent(source, cmd.InOrStdin())
	if err != nil {
		return fail(env.formatter, ErrCodeInput, err)
	}

	st, err := env.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	id, inserted, err := st.AppendEvent(cmd.Context(), ev)
	if err != nil {
		return fail(env.formatter, ErrCodeStore, err)
	}
	env.logger.Info("pushed sync event", "id", id, "inserted", inserted,
		"action", ev.Action, "class", ev.Local.Type, "local_id", ev.Local.ID)

	result := PushResult{ID: id, Inserted: inserted}
	if env.formatter.Format == "json" {
		return env.formatter.Success(result)
	}
	if inserted {
		fmt.Fprintf(env.formatter.Writer, "Queued %s\n", id)
	} else {
		fmt.Fprintf(env.formatter.Writer, "Already pending as %s\n", id)
	}
	return nil
}

// readEvent decodes a SyncEvent from a file, or from stdin when source is "-".
func readEvent(source string, stdin io.Reader) (event.SyncEvent, error) {
	var data []byte
	var err error
	if source == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return event.SyncEvent{}, fmt.Errorf("read event: %w", err)
	}

	var ev event.SyncEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return event.SyncEvent{}, fmt.Errorf("decode event: %w", err)
	}

	action, err := event.ParseAction(string(ev.Action))
	if err != nil {
		return event.SyncEvent{}, err
	}
	if ev.Local.Type == "" || ev.Remote.Type == "" {
		return event.SyncEvent{}, fmt.Errorf("decode event: entity.type and salesforce.type are required")
	}
	return event.New(ev.Remote.Type, ev.Remote.Object, ev.Local, action), nil
}
