package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	fieldTypeRadio = iota
	fieldTypeText
)

const (
	charsetPrintable = iota
	charsetSemver
)

type option struct {
	value       string
	description string
}

type fieldConfig struct {
	name        string
	description string
	fieldType   int
	options     []option // For radio fields.
	selected    int      // For radio fields.
	textValue   string   // For text fields.
	charset     int      // For text fields.
	maxLen      int      // For text fields.
}

// ManifestDraft carries the wizard selections used to scaffold a plugin.
type ManifestDraft struct {
	Version          string
	Summary          string
	MinHostVersion   string
	EnabledByDefault bool
}

type manifestModel struct {
	draft        ManifestDraft
	currentField int
	fields       []fieldConfig
	done         bool
	cancelled    bool
}

// newManifestModel creates a new TUI model for configuring a plugin manifest.
func newManifestModel(hostVersion string) manifestModel {
	fields := []fieldConfig{
		{
			name:        "Version",
			description: "Plugin semantic version (major.minor.patch)",
			fieldType:   fieldTypeText,
			textValue:   "0.1.0",
			charset:     charsetSemver,
			maxLen:      11,
		},
		{
			name:        "Summary",
			description: "One line describing what the plugin does",
			fieldType:   fieldTypeText,
			charset:     charsetPrintable,
			maxLen:      60,
		},
		{
			name:        "MinHostVersion",
			description: "Minimum host version the plugin requires",
			fieldType:   fieldTypeRadio,
			options: []option{
				{"", "No minimum"},
				{hostVersion, fmt.Sprintf("Require host %s or newer", hostVersion)},
			},
			selected: 0,
		},
		{
			name:        "EnabledByDefault",
			description: "Whether the plugin loads without an allowlist entry",
			fieldType:   fieldTypeRadio,
			options: []option{
				{"yes", "Start enabled unless policy disables it"},
				{"no", "Stay disabled unless allowlisted"},
			},
			selected: 0,
		},
	}

	return manifestModel{
		draft: ManifestDraft{
			Version:          "0.1.0",
			EnabledByDefault: true,
		},
		currentField: 0,
		fields:       fields,
	}
}

// Init initializes the model.
func (m manifestModel) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model state.
func (m manifestModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		currentField := &m.fields[m.currentField]

		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancelled = true

			return m, tea.Quit
		case "enter":
			m.updateDraftFromSelection()
			if m.currentField >= len(m.fields)-1 {
				m.done = true

				return m, tea.Quit
			}
			m.currentField++
		case "tab":
			// Move to next field.
			if m.currentField < len(m.fields)-1 {
				m.currentField++
			}
		case "shift+tab":
			// Move to previous field.
			if m.currentField > 0 {
				m.currentField--
			}
		case "up", "k":
			if currentField.fieldType == fieldTypeRadio && currentField.selected > 0 {
				currentField.selected--
			}
		case "down", "j":
			if currentField.fieldType == fieldTypeRadio {
				maxIdx := len(currentField.options) - 1
				if currentField.selected < maxIdx {
					currentField.selected++
				}
			}
		case "backspace":
			if currentField.fieldType == fieldTypeText {
				m.handleBackspace()
			}
		default:
			// Route printable characters into text fields.
			if currentField.fieldType == fieldTypeText && len(msg.String()) == 1 {
				m.handleTextInput(msg.String()[0])
			}
		}
	}

	return m, nil
}

// handleTextInput appends one character to the current text field if the
// field's charset accepts it.
func (m *manifestModel) handleTextInput(char byte) {
	currentField := &m.fields[m.currentField]
	if currentField.fieldType != fieldTypeText {
		return
	}

	if currentField.maxLen > 0 && len(currentField.textValue) >= currentField.maxLen {
		return
	}

	switch currentField.charset {
	case charsetSemver:
		if (char < '0' || char > '9') && char != '.' {
			return
		}
	default:
		if char < 32 || char > 126 {
			return
		}
	}

	currentField.textValue += string(char)
}

// handleBackspace removes the last character from the current text field.
func (m *manifestModel) handleBackspace() {
	currentField := &m.fields[m.currentField]
	if currentField.fieldType != fieldTypeText {
		return
	}

	if len(currentField.textValue) > 0 {
		currentField.textValue = currentField.textValue[:len(currentField.textValue)-1]
	}
}

// updateDraftFromSelection updates the draft with currently entered values.
func (m *manifestModel) updateDraftFromSelection() {
	for _, field := range m.fields {
		switch field.name {
		case "Version":
			m.draft.Version = field.textValue
			if m.draft.Version == "" {
				m.draft.Version = "0.1.0"
			}
		case "Summary":
			m.draft.Summary = field.textValue
		case "MinHostVersion":
			m.draft.MinHostVersion = field.options[field.selected].value
		case "EnabledByDefault":
			m.draft.EnabledByDefault = field.selected == 0
		}
	}
}

// View renders the current state of the model.
func (m manifestModel) View() string {
	if m.done {
		return "Plugin manifest configured successfully!\n"
	}

	if m.cancelled {
		return "Operation cancelled.\n"
	}

	s := "Configure Plugin Manifest\n"
	s += strings.Repeat("=", 50) + "\n\n"

	// Show progress.
	s += fmt.Sprintf("Field %d of %d\n\n", m.currentField+1, len(m.fields))

	// Show current field.
	currentField := m.fields[m.currentField]
	s += fmt.Sprintf("▶ %s: %s\n\n", currentField.name, currentField.description)

	if currentField.fieldType == fieldTypeRadio {
		for j, opt := range currentField.options {
			selector := "  ○ "
			if j == currentField.selected {
				selector = "  ● "
			}

			label := opt.value
			if label == "" {
				label = "(none)"
			}
			s += fmt.Sprintf("%s%s - %s\n", selector, label, opt.description)
		}
	} else {
		s += fmt.Sprintf("  [ %s_ ]\n", currentField.textValue)
		s += "  Type to edit, Backspace to delete\n"
	}

	s += "\n"

	// Show summary of completed fields.
	if m.currentField > 0 {
		s += "Completed fields:\n"
		for i := 0; i < m.currentField; i++ {
			field := m.fields[i]
			if field.fieldType == fieldTypeRadio {
				label := field.options[field.selected].value
				if label == "" {
					label = "(none)"
				}
				s += fmt.Sprintf("  %s: %s\n", field.name, label)
			} else {
				s += fmt.Sprintf("  %s: %s\n", field.name, field.textValue)
			}
		}
		s += "\n"
	}

	s += "Navigation:\n"
	s += "  ↑/↓ or j/k: Select option\n"
	s += "  Tab/Shift+Tab: Next/Previous field\n"
	s += "  Enter: Confirm and continue\n"
	s += "  Esc or Ctrl+C: Quit\n"

	return s
}

// RunManifestWizard starts the interactive TUI for plugin manifest
// configuration. The second return value is false when the user cancelled.
func RunManifestWizard(hostVersion string) (ManifestDraft, bool, error) {
	model := newManifestModel(hostVersion)

	p := tea.NewProgram(model)
	finalModel, err := p.Run()
	if err != nil {
		return ManifestDraft{}, false, err
	}

	m, ok := finalModel.(manifestModel)
	if !ok {
		return ManifestDraft{}, false, fmt.Errorf("unexpected model type %T", finalModel)
	}
	m.updateDraftFromSelection() // Ensure final state is captured.

	return m.draft, !m.cancelled, nil
}
