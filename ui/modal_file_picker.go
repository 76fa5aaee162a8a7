package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"grantdesk/config"
)

// uploadTypes are the document formats the ingest endpoint accepts.
var uploadTypes = []string{".pdf", ".txt", ".md", ".docx", ".csv"}

type FilePickerConfig struct {
	Title          string
	AllowedTypes   []string
	StartDirectory string
	ShowHidden     bool
}

type FilePickerState struct {
	Active bool
	Picker filepicker.Model
	Config FilePickerConfig
}

func NewFilePickerState(cfg FilePickerConfig) FilePickerState {
	fp := filepicker.New()
	fp.AllowedTypes = cfg.AllowedTypes
	fp.Height = 10
	fp.DirAllowed = true
	fp.FileAllowed = true
	fp.ShowPermissions = false
	fp.ShowSize = true
	fp.ShowHidden = cfg.ShowHidden

	startDir := cfg.StartDirectory
	if startDir == "" {
		startDir = config.GetHomeDir()
	}
	fp.CurrentDirectory = startDir

	fp.Styles.Directory = lipgloss.NewStyle().
		Foreground(accentColor).
		Bold(true)
	fp.Styles.File = lipgloss.NewStyle().
		Foreground(lipgloss.Color("15"))
	fp.Styles.Selected = lipgloss.NewStyle().
		Foreground(successColor).
		Bold(true)
	fp.Styles.Cursor = lipgloss.NewStyle().
		Foreground(successColor)

	return FilePickerState{
		Picker: fp,
		Config: cfg,
	}
}

// Activate opens the picker and returns the directory read command.
func (fps *FilePickerState) Activate() tea.Cmd {
	fps.Active = true
	fps.Picker.Path = ""
	return fps.Picker.Init()
}

func (fps *FilePickerState) Reset() {
	fps.Active = false
	fps.Picker.Path = ""
}

// HandleKey forwards msg to the picker and returns the chosen file, if the
// key selected one. Directories are never returned.
func (fps *FilePickerState) HandleKey(msg tea.KeyMsg) (string, tea.Cmd) {
	var cmd tea.Cmd
	fps.Picker, cmd = fps.Picker.Update(msg)

	if fps.Picker.Path == "" {
		return "", cmd
	}

	path := fps.Picker.Path
	fps.Picker.Path = ""
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return "", cmd
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[UI] File selected for upload: %s", path)
	}
	return path, cmd
}

func RenderFilePickerModal(state FilePickerState, width, height int) string {
	if width < 20 || height < 10 {
		return "Terminal too small"
	}

	modalWidth := clampModalWidth(80, width)

	contentStyle := lipgloss.NewStyle().
		Width(modalWidth).
		Align(lipgloss.Left)

	var messageLines []string
	messageLines = append(messageLines, contentStyle.Render("  "+DimStyle.Render(state.Picker.CurrentDirectory)))
	for _, line := range strings.Split(state.Picker.View(), "\n") {
		messageLines = append(messageLines, contentStyle.Render("  "+strings.TrimRight(line, " ")))
	}

	footer := FormatFooter("j/k", "Navigate", "h/l", "Back/Forward", "Enter", "Upload", "Esc", "Cancel")

	return RenderThreeSectionModal(
		state.Config.Title,
		messageLines,
		footer,
		ModalTypeInfo,
		modalWidth,
		width,
		height,
	)
}
