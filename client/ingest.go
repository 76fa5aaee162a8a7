package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
)

// Ingest uploads a document to /ingest as multipart field "file" and reports
// how many chunks the backend indexed.
func (c *Client) Ingest(ctx context.Context, filename string, r io.Reader) (IngestReply, error) {
	endpoint := c.baseURL + "/ingest"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return IngestReply{}, &TransportError{Op: "ingest", URL: endpoint, Err: fmt.Errorf("failed to build form: %w", err)}
	}
	if _, err := io.Copy(part, r); err != nil {
		return IngestReply{}, &TransportError{Op: "ingest", URL: endpoint, Err: fmt.Errorf("failed to read %s: %w", filename, err)}
	}
	if err := mw.Close(); err != nil {
		return IngestReply{}, &TransportError{Op: "ingest", URL: endpoint, Err: fmt.Errorf("failed to build form: %w", err)}
	}

	var reply IngestReply
	if err := c.do(ctx, "ingest", http.MethodPost, "/ingest", mw.FormDataContentType(), &buf, &reply); err != nil {
		return IngestReply{}, err
	}
	return reply, nil
}
