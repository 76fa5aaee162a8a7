package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"grantdesk/client"
	"grantdesk/config"
	"grantdesk/storage"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape URL...",
	Short: "Queue grant portals for crawling",
	Long: `Ask the backend to crawl the given pages, download the grant documents
they link to and add them to the knowledge base. All URLs go out as a
single batch.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		urls, err := client.NormalizeURLs(args)
		if err != nil {
			return err
		}

		backend, err := newBackendClient()
		if err != nil {
			return err
		}

		activity := openActivity()
		if activity != nil {
			defer activity.Close()
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, infoStyle.Render(fmt.Sprintf("Queueing %d URL(s)...", len(urls))))

		reply, err := backend.Scrape(cmd.Context(), urls)
		run := storage.ScrapeRun{
			URLs:        urls,
			Status:      reply.Status,
			Message:     reply.Message,
			FilesQueued: reply.FilesQueued,
		}
		if err != nil {
			run.Error = err.Error()
		}
		if activity != nil {
			if _, recErr := activity.RecordScrape(run); recErr != nil && config.DebugLog != nil {
				config.DebugLog.Printf("[CLI] %v", recErr)
			}
		}
		if err != nil {
			return fmt.Errorf("scrape request failed: %w", err)
		}

		switch {
		case reply.Succeeded():
			fmt.Fprintln(out, successStyle.Render("✅ "+reply.Message))
		default:
			fmt.Fprintln(out, warningStyle.Render("⚠️  "+reply.Message))
		}
		if reply.FilesQueued > 0 {
			fmt.Fprintf(out, "   %d file(s) queued for ingestion\n", reply.FilesQueued)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
}
