package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"grantdesk/config"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the backend is reachable",
	Long: `Check the health of the grant assistant backend by verifying:
  • The configured URL is valid
  • The backend answers GET /
  • The local activity history can be opened`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, sectionStyle.Render("🔍 GrantDesk Health Check"))
		fmt.Fprintln(out)

		fmt.Fprintln(out, infoStyle.Render("Step 1: Checking configuration..."))
		backend, err := newBackendClient()
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Invalid configuration:"), err)
			return err
		}
		fmt.Fprintln(out, successStyle.Render("✅ Backend URL: "+backend.BaseURL()))
		if verbose {
			fmt.Fprintf(out, "   Data directory: %s\n", settings.DataDir())
			fmt.Fprintf(out, "   Config file: %s\n", config.UserConfigPath(settings.DataDir()))
			fmt.Fprintf(out, "   Request timeout: %s\n", backend.Timeout())
		}
		fmt.Fprintln(out)

		fmt.Fprintln(out, infoStyle.Render("Step 2: Contacting backend..."))
		reply, err := backend.Health(cmd.Context())
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Backend unreachable:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		fmt.Fprintln(out, successStyle.Render("✅ Backend status: "+reply.Status))
		if reply.System != "" {
			fmt.Fprintf(out, "   System: %s\n", reply.System)
		}
		if reply.Model != "" {
			fmt.Fprintf(out, "   Model: %s\n", reply.Model)
		}
		fmt.Fprintln(out)

		fmt.Fprintln(out, infoStyle.Render("Step 3: Opening activity history..."))
		activity := openActivity()
		if activity == nil {
			fmt.Fprintln(out, warningStyle.Render("⚠️  Activity history unavailable (uploads will not be recorded)"))
		} else {
			activity.Close()
			fmt.Fprintln(out, successStyle.Render("✅ Activity history available"))
		}
		fmt.Fprintln(out)

		fmt.Fprintln(out, successStyle.Render("✅ Health check passed!"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
