package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"grantdesk/storage"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent uploads and scrape requests",
	Long:  `List the documents and scrape batches sent from this machine, newest first.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		activity, err := storage.NewActivityStore(settings.DataDir())
		if err != nil {
			return fmt.Errorf("failed to open activity history: %w", err)
		}
		defer activity.Close()

		uploads, err := activity.ListUploads(historyLimit)
		if err != nil {
			return err
		}
		scrapes, err := activity.ListScrapes(historyLimit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		printUploads(out, uploads)
		fmt.Fprintln(out)
		printScrapes(out, scrapes)
		return nil
	},
}

func printUploads(out io.Writer, uploads []storage.Upload) {
	if len(uploads) == 0 {
		fmt.Fprintln(out, sectionStyle.Render("📎 No uploads yet"))
		return
	}
	fmt.Fprintln(out, sectionStyle.Render(fmt.Sprintf("📎 %d upload(s)", len(uploads))))
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "FILE\tRESULT\tWHEN\t")
	for _, u := range uploads {
		result := successStyle.Render(fmt.Sprintf("%d chunks", u.ChunksAdded))
		if !u.Succeeded() {
			result = errorStyle.Render("failed: " + runewidth.Truncate(u.Error, 40, "..."))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t\n", runewidth.Truncate(u.Filename, 40, "..."), result, dateStyle.Render(formatWhen(u.CreatedAt)))
	}
	_ = w.Flush()
}

func printScrapes(out io.Writer, scrapes []storage.ScrapeRun) {
	if len(scrapes) == 0 {
		fmt.Fprintln(out, sectionStyle.Render("🌐 No scrape requests yet"))
		return
	}
	fmt.Fprintln(out, sectionStyle.Render(fmt.Sprintf("🌐 %d scrape request(s)", len(scrapes))))
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "URLS\tRESULT\tWHEN\t")
	for _, r := range scrapes {
		urls := strings.Join(r.URLs, ", ")
		result := successStyle.Render(fmt.Sprintf("%s (%d queued)", r.Status, r.FilesQueued))
		if r.Error != "" {
			result = errorStyle.Render("failed: " + runewidth.Truncate(r.Error, 40, "..."))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t\n", runewidth.Truncate(urls, 50, "..."), result, dateStyle.Render(formatWhen(r.CreatedAt)))
	}
	_ = w.Flush()
}

func formatWhen(t time.Time) string {
	diff := time.Since(t)
	switch {
	case diff < 24*time.Hour:
		return t.Format("Today 15:04")
	case diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	case diff < 365*24*time.Hour:
		return t.Format("Jan 02 15:04")
	default:
		return t.Format("2006-01-02")
	}
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Show at most this many entries of each kind (0 for all)")
}
