// README: nilectl is a terminal client for the nile session API.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"nile/internal/modules/session"
)

const (
	Version = "0.1.0"
	appName = "nilectl"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	server string
	token  string
}

func rootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Plan an accessible Egypt trip from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.server, "server", "s", envOr("NILE_API_URL", "http://localhost:8080"), "nile API base URL")
	cmd.PersistentFlags().StringVarP(&opts.token, "token", "t", os.Getenv("NILE_TOKEN"), "Firebase ID token")

	cmd.AddCommand(chatCmd(opts), showCmd(opts), confirmCmd(opts), versionCmd())
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	}
}

func chatCmd(opts *options) *cobra.Command {
	var (
		sessionID string
		skipPrefs bool
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start or resume an interactive planning session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			c := newAPIClient(opts.server, opts.token)
			r := &repl{client: c, in: cmd.InOrStdin(), out: cmd.OutOrStdout()}
			return r.run(ctx, sessionID, !skipPrefs)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "resume an existing session")
	cmd.Flags().BoolVar(&skipPrefs, "no-preferences", false, "skip the preference questions")
	return cmd
}

func showCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print a session transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newAPIClient(opts.server, opts.token)
			snap, err := c.get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printEntries(out, snap.Entries)
			printItems(out, snap)
			printStatus(out, snap)
			return nil
		},
	}
}

func confirmCmd(opts *options) *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "confirm <session-id> [item-id...]",
		Short: "Accept the given items and save the itinerary",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), wait)
			defer cancel()
			c := newAPIClient(opts.server, opts.token)
			id := args[0]
			for _, item := range args[1:] {
				if _, err := c.toggle(ctx, id, item, true); err != nil {
					return fmt.Errorf("accept %s: %w", item, err)
				}
			}
			if _, err := c.confirm(ctx, id); err != nil {
				return err
			}
			snap, err := c.settle(ctx, id)
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), snap)
			if snap.Phase != session.PhaseConfirmed {
				return fmt.Errorf("itinerary not saved")
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 30*time.Second, "how long to wait for the save")
	return cmd
}

const replHelp = `commands:
  <text>            send a message
  <n>               pick option n of the open question
  /done             submit the selected options
  /prefs            answer the preference questions again
  /accept <item>    accept an itinerary item
  /decline <item>   decline an itinerary item
  /save <activity>  bookmark a suggestion card
  /confirm          save the accepted items
  /regen            generate a new itinerary
  /show             reprint the session
  /quit             close the session and exit`

type repl struct {
	client *apiClient
	in     io.Reader
	out    io.Writer
	id     string
	seen   int
	last   *session.Snapshot
}

func (r *repl) run(ctx context.Context, sessionID string, prefs bool) error {
	var (
		snap *session.Snapshot
		err  error
	)
	if sessionID != "" {
		snap, err = r.client.get(ctx, sessionID)
	} else {
		snap, err = r.client.create(ctx, prefs)
	}
	if err != nil {
		return err
	}
	r.id = string(snap.ID)
	fmt.Fprintf(r.out, "session %s\n%s\n\n", r.id, replHelp)
	r.render(snap)

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r.in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		fmt.Fprint(r.out, "> ")
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}
		if line == "/quit" {
			return r.client.closeSession(context.WithoutCancel(ctx), r.id)
		}
		if err := r.handle(ctx, line); err != nil {
			fmt.Fprintf(r.out, "! %v\n", err)
			continue
		}
		snap, err := r.client.settle(ctx, r.id)
		if err != nil {
			fmt.Fprintf(r.out, "! %v\n", err)
			continue
		}
		r.render(snap)
	}
}

func (r *repl) handle(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	arg := func() (string, error) {
		if len(fields) < 2 {
			return "", fmt.Errorf("%s needs an id", fields[0])
		}
		return fields[1], nil
	}

	if n, err := strconv.Atoi(line); err == nil {
		return r.pick(ctx, n)
	}
	var err error
	switch fields[0] {
	case "/done":
		if r.last == nil || r.last.ActivePrompt == nil {
			return fmt.Errorf("no open question")
		}
		_, err = r.client.submit(ctx, r.id, string(r.last.ActivePrompt.ID))
	case "/prefs":
		_, err = r.client.startPreferences(ctx, r.id)
	case "/accept", "/decline":
		item, aerr := arg()
		if aerr != nil {
			return aerr
		}
		_, err = r.client.toggle(ctx, r.id, item, fields[0] == "/accept")
	case "/save":
		act, aerr := arg()
		if aerr != nil {
			return aerr
		}
		_, err = r.client.saveCard(ctx, r.id, act, true)
	case "/confirm":
		_, err = r.client.confirm(ctx, r.id)
	case "/regen":
		_, err = r.client.regenerate(ctx, r.id)
	case "/show":
		r.seen = 0
	case "/help":
		fmt.Fprintln(r.out, replHelp)
	default:
		if strings.HasPrefix(fields[0], "/") {
			return fmt.Errorf("unknown command %s", fields[0])
		}
		_, err = r.client.send(ctx, r.id, line)
	}
	return err
}

func (r *repl) pick(ctx context.Context, n int) error {
	if r.last == nil {
		return fmt.Errorf("no open question")
	}
	opts := activeOptions(r.last)
	if n < 1 || n > len(opts) {
		return fmt.Errorf("pick a number between 1 and %d", len(opts))
	}
	_, err := r.client.selectOption(ctx, r.id, string(r.last.ActivePrompt.ID), opts[n-1].Value)
	return err
}

// render prints entries not shown yet. Card bookmarks and plan actions mutate in place, so
// /show resets the cursor to reprint everything.
func (r *repl) render(snap *session.Snapshot) {
	r.last = snap
	if r.seen > len(snap.Entries) {
		r.seen = 0
	}
	printEntries(r.out, snap.Entries[r.seen:])
	r.seen = len(snap.Entries)
	if snap.Phase == session.PhaseReview || snap.Phase == session.PhaseConfirmed {
		printItems(r.out, snap)
	}
	printStatus(r.out, snap)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
