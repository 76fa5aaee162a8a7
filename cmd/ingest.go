package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"grantdesk/client"
	"grantdesk/config"
	"grantdesk/storage"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest FILE...",
	Short: "Add documents to the knowledge base",
	Long: `Upload one or more documents (PDF, text, Markdown, Word, CSV) to the
backend's knowledge base. Each file is sent on its own; a failure does not
stop the remaining uploads.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := newBackendClient()
		if err != nil {
			return err
		}

		activity := openActivity()
		if activity != nil {
			defer activity.Close()
		}

		out := cmd.OutOrStdout()
		failed := 0
		for _, arg := range args {
			path := config.ExpandPath(arg)
			upload := storage.Upload{Filename: filepath.Base(path), Path: path}

			reply, err := ingestFile(cmd, backend, path)
			if err != nil {
				failed++
				upload.Error = err.Error()
				fmt.Fprintln(out, errorStyle.Render("❌ "+upload.Filename+":"), err)
			} else {
				upload.ChunksAdded = reply.ChunksAdded
				fmt.Fprintln(out, successStyle.Render("✅ "+upload.Filename), fmt.Sprintf("(%d chunks indexed)", reply.ChunksAdded))
			}

			if activity != nil {
				if _, err := activity.RecordUpload(upload); err != nil && config.DebugLog != nil {
					config.DebugLog.Printf("[CLI] %v", err)
				}
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d uploads failed", failed, len(args))
		}
		return nil
	},
}

func ingestFile(cmd *cobra.Command, backend *client.Client, path string) (client.IngestReply, error) {
	f, err := os.Open(path)
	if err != nil {
		return client.IngestReply{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return client.IngestReply{}, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return client.IngestReply{}, fmt.Errorf("%s is a directory", path)
	}

	return backend.Ingest(cmd.Context(), path, f)
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
