package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"grantdesk/client"
	"grantdesk/config"
)

var matchLimit int

var matchCmd = &cobra.Command{
	Use:   "match PROFILE.yaml",
	Short: "Find grants that fit an SME profile",
	Long: `Send an SME profile to the backend and list the grants it matches,
best first, followed by the application checklist for the top match.

Example profile:
  sme_size: Micro                 # Micro, Small or Medium
  udyam_status: true
  sector_category: Manufacturing  # Manufacturing, Service or Trading
  financial_performance: Profitable for 3 years
  location_state: Karnataka
  project_value: 2500000
  project_need_description: Upgrade to energy efficient machinery`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := loadProfile(config.ExpandPath(args[0]))
		if err != nil {
			return err
		}

		backend, err := newBackendClient()
		if err != nil {
			return err
		}

		reply, err := backend.MatchGrants(cmd.Context(), profile)
		if err != nil {
			return fmt.Errorf("grant matching failed: %w", err)
		}

		printMatches(cmd.OutOrStdout(), reply, matchLimit)
		return nil
	},
}

// loadProfile reads and validates a YAML SME profile.
func loadProfile(path string) (client.SMEProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return client.SMEProfile{}, fmt.Errorf("failed to read profile: %w", err)
	}

	var profile client.SMEProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return client.SMEProfile{}, fmt.Errorf("failed to parse profile: %w", err)
	}
	if err := profile.Validate(); err != nil {
		return client.SMEProfile{}, fmt.Errorf("invalid profile: %w", err)
	}
	return profile, nil
}

func printMatches(out io.Writer, reply client.MatchReply, limit int) {
	if len(reply.Matches) == 0 {
		fmt.Fprintln(out, warningStyle.Render("⚠️  No matching grants found"))
		return
	}

	fmt.Fprintln(out, sectionStyle.Render(fmt.Sprintf("🎯 %d matching grant(s)", len(reply.Matches))))
	fmt.Fprintln(out)

	for i, m := range reply.Matches {
		if limit > 0 && i >= limit {
			fmt.Fprintln(out, dateStyle.Render(fmt.Sprintf("... and %d more", len(reply.Matches)-limit)))
			break
		}

		fmt.Fprintf(out, "%2d. %s %s\n", i+1, titleStyle.Render(runewidth.Truncate(m.Title, 70, "...")), dateStyle.Render("#"+string(m.ID)))

		var details []string
		if m.Amount != "" {
			details = append(details, "Amount: "+m.Amount)
		}
		if m.Sector != "" {
			details = append(details, "Sector: "+m.Sector)
		}
		if m.Deadline != "" {
			details = append(details, "Deadline: "+m.Deadline)
		}
		if m.Status != "" {
			details = append(details, "Status: "+m.Status)
		}
		if len(details) > 0 {
			fmt.Fprintln(out, "    "+strings.Join(details, " · "))
		}
		for _, e := range m.Eligibility {
			fmt.Fprintln(out, "    • "+e)
		}
	}

	if reply.TopMatchChecklist != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, sectionStyle.Render("📋 Checklist for the top match"))
		fmt.Fprintln(out)
		fmt.Fprintln(out, reply.TopMatchChecklist)
	}
}

func init() {
	rootCmd.AddCommand(matchCmd)
	matchCmd.Flags().IntVarP(&matchLimit, "limit", "n", 10, "Show at most this many matches (0 for all)")
}
