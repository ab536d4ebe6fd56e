package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/kimchiprasadyadav-beep/callharvey/internal/calls"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/conversations"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/scheduler"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/thread"
)

var (
	flagWatch    bool
	flagInterval time.Duration
)

func init() {
	for _, c := range []*cobra.Command{threadCmd, callsCmd} {
		c.Flags().BoolVarP(&flagWatch, "watch", "w", false, "keep polling until interrupted")
		c.Flags().DurationVar(&flagInterval, "interval", scheduler.DefaultPollInterval, "poll interval with --watch")
	}
	rootCmd.AddCommand(conversationsCmd, threadCmd, callsCmd)
}

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"convs"},
	Short:   "List SMS conversations with qualification badges",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}
		list := conversations.NewListSync(p.client(), clockwork.NewRealClock(), slog.Default())
		if err := list.Refresh(cmd.Context()); err != nil {
			return err
		}
		printConversations(cmd.OutOrStdout(), list.List())
		return nil
	},
}

func printConversations(w io.Writer, list []conversations.Conversation) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PHONE\tLEAD\tMSGS\tQUALIFIED\tBADGES\tLAST MESSAGE")
	qualified := 0
	for _, c := range list {
		q := "no"
		if c.Qualification.Qualified() {
			q = "yes"
			qualified++
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n", c.Phone, c.LeadName, c.MessageCount, q, badgeLine(c.Qualification), truncate(c.LastMessage, 48))
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d conversations, %d qualified\n", len(list), qualified)
}

func badgeLine(q conversations.Qualification) string {
	parts := []string{}
	for _, b := range conversations.Badges(q) {
		mark := "-"
		if b.Confirmed {
			mark = "+"
		}
		parts = append(parts, mark+b.Label)
	}
	return strings.Join(parts, " ")
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}

var threadCmd = &cobra.Command{
	Use:   "thread <phone>",
	Short: "Print the transcript of one conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}
		phone := args[0]
		sync := thread.NewSync(p.client(), clockwork.NewRealClock(), slog.Default())
		sync.Select(phone)

		printed := 0
		show := func(ctx context.Context) error {
			if err := sync.Refresh(ctx, phone); err != nil {
				return err
			}
			view, ok := sync.Current()
			if !ok {
				return nil
			}
			printed = printMessages(cmd.OutOrStdout(), view.Value.Messages, printed)
			return nil
		}

		if !flagWatch {
			return show(cmd.Context())
		}
		return watch(cmd.Context(), "thread", phone, show)
	},
}

// printMessages prints messages from index from on and returns the new count.
func printMessages(w io.Writer, msgs []thread.Message, from int) int {
	if from > len(msgs) {
		from = 0
	}
	for _, m := range msgs[from:] {
		who := "lead "
		if m.Direction == thread.Outbound {
			who = "agent"
		}
		fmt.Fprintf(w, "[%s] %s\n", who, m.Body)
	}
	return len(msgs)
}

var callsCmd = &cobra.Command{
	Use:   "calls",
	Short: "Show the backend call feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}
		clock := clockwork.NewRealClock()
		feed := calls.NewFeedSync(p.client(), calls.NewTracker(clock, slog.Default()), clock, slog.Default())
		show := func(ctx context.Context) error {
			if err := feed.Refresh(ctx); err != nil {
				return err
			}
			printCalls(cmd.OutOrStdout(), feed.Records())
			return nil
		}
		if !flagWatch {
			return show(cmd.Context())
		}
		return watch(cmd.Context(), "calls", "calls", show)
	},
}

func printCalls(w io.Writer, records []calls.CallRecord) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CALL\tLEAD\tPHONE\tSTATUS\tDURATION\tSTARTED")
	for _, r := range records {
		dur := "-"
		if r.DurationSeconds > 0 {
			dur = (time.Duration(r.DurationSeconds) * time.Second).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.LeadName, r.LeadPhone, r.Status, dur, r.StartedAt)
	}
	tw.Flush()
}

// watch runs task on a scheduler until SIGINT or SIGTERM. Poll errors are logged by the
// scheduler and the previous output stays on screen.
func watch(parent context.Context, name, key string, task scheduler.Task) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := scheduler.New(name, flagInterval, clockwork.NewRealClock(), slog.Default())
	s.Activate(key, task)
	<-ctx.Done()
	s.Deactivate()
	return nil
}
