package ui

// markdownRenderedMsg delivers a rendered bubble for row Key. Source and
// Width identify what was rendered so stale results can be dropped.
type markdownRenderedMsg struct {
	Key      int
	Source   string
	Width    int
	Rendered string
}

type transcriptExportedMsg struct {
	Path string
	Err  error
}
