package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/kimchiprasadyadav-beep/callharvey/internal/actions"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/auth"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/calls"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/config"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/conversations"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/leads"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/rbac"
)

var flagArea string

func init() {
	sendCmd.Flags().StringVar(&flagArea, "area", "", "area mentioned in the opening message (default: profile agent.default_area)")
	leadsCmd.AddCommand(leadsListCmd, leadsUploadCmd)
	rootCmd.AddCommand(sendCmd, leadsCmd, callCmd, tokenCmd)
}

// coordinator builds a one-shot coordinator against the profile's backend.
func coordinator(p *Profile, dir *leads.Directory) *actions.Coordinator {
	client := p.client()
	clock := clockwork.NewRealClock()
	log := slog.Default()
	tracker := calls.NewTracker(clock, log)
	return actions.NewCoordinator(actions.Deps{
		Backend:       client,
		Conversations: conversations.NewListSync(client, clock, log),
		CallFeed:      calls.NewFeedSync(client, tracker, clock, log),
		Tracker:       tracker,
		Leads:         dir,
		Settings:      p.settings(),
		Actor:         actions.Actor{WorkspaceID: p.Auth.WorkspaceID, OperatorID: p.Auth.OperatorID},
		Log:           log,
	})
}

var sendCmd = &cobra.Command{
	Use:   "send <phone> <name>",
	Short: "Open an SMS conversation with a lead",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}
		area := flagArea
		if area == "" {
			area = p.settings().DefaultArea
		}
		c := coordinator(p, nil)
		if err := c.SendMessage(cmd.Context(), args[0], args[1], area); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Message sent to %s\n", args[0])
		return nil
	},
}

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "List or import leads",
}

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List leads known to the backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}
		dir := leads.NewDirectory()
		if err := dir.Load(cmd.Context(), p.client()); err != nil {
			return err
		}
		printLeads(cmd, dir.List())
		return nil
	},
}

var leadsUploadCmd = &cobra.Command{
	Use:   "upload <file.csv>",
	Short: "Import a CSV of leads (columns: name, phone, email, area, notes)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		c := coordinator(p, nil)
		res, err := c.UploadLeads(cmd.Context(), filepath.Base(args[0]), f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d leads\n", res.Imported)
		printLeads(cmd, res.Leads)
		return nil
	},
}

func printLeads(cmd *cobra.Command, list []leads.Lead) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPHONE\tAREA\tSTATUS")
	for _, l := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", l.ID, l.DisplayName(), l.Phone, l.Area, l.Status)
	}
	tw.Flush()
}

var callCmd = &cobra.Command{
	Use:   "call <lead-id>",
	Short: "Start an outbound AI call to a lead",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}
		dir := leads.NewDirectory()
		if err := dir.Load(cmd.Context(), p.client()); err != nil {
			return err
		}
		c := coordinator(p, dir)
		entry, err := c.StartCall(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		status := string(entry.Status)
		if entry.Provisional {
			status += " (provisional)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Call %s for lead %s: %s, %s\n", entry.CallID, entry.LeadID, entry.Phase, status)
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a console access token from the profile's auth section (development only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}
		role := p.Auth.Role
		if role == "" {
			role = rbac.RoleAgent
		}
		if !rbac.IsKnownRole(role) {
			return fmt.Errorf("unknown role %q", role)
		}
		m, err := auth.NewManager(config.AuthConfig{
			JWTSecret:       p.Auth.JWTSecret,
			AccessTokenTTL:  12 * time.Hour,
			RefreshTokenTTL: 7 * 24 * time.Hour,
		})
		if err != nil {
			return fmt.Errorf("auth.jwt_secret: %w", err)
		}
		pair, err := m.IssuePair(time.Now(), auth.Identity{
			OperatorID:  p.Auth.OperatorID,
			WorkspaceID: p.Auth.WorkspaceID,
			Role:        role,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), pair.AccessToken)
		return nil
	},
}
