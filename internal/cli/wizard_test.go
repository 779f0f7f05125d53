package cli

import (
	"testing"
)

func TestManifestWizardDefaults(t *testing.T) {
	// Test that the TUI model initializes correctly.
	model := newManifestModel("1.4.0")

	// Check initial draft values.
	if model.draft.Version != "0.1.0" {
		t.Errorf("expected Version to be '0.1.0', got '%s'", model.draft.Version)
	}

	if !model.draft.EnabledByDefault {
		t.Errorf("expected EnabledByDefault to be true")
	}

	if model.draft.MinHostVersion != "" {
		t.Errorf("expected MinHostVersion to be empty, got '%s'", model.draft.MinHostVersion)
	}

	// Test field configuration.
	if len(model.fields) != 4 {
		t.Errorf("expected 4 fields, got %d", len(model.fields))
	}

	versionField := model.fields[0]
	if versionField.fieldType != fieldTypeText {
		t.Errorf("expected Version field to be text type")
	}

	if versionField.textValue != "0.1.0" {
		t.Errorf("expected Version initial value to be '0.1.0', got '%s'", versionField.textValue)
	}

	if versionField.charset != charsetSemver {
		t.Errorf("expected Version field to use the semver charset")
	}

	hostField := model.fields[2]
	if hostField.fieldType != fieldTypeRadio {
		t.Errorf("expected MinHostVersion field to be radio type")
	}

	if hostField.options[1].value != "1.4.0" {
		t.Errorf(
			"expected MinHostVersion option to carry the host version, got '%s'",
			hostField.options[1].value,
		)
	}
}

func TestTextFieldOperations(t *testing.T) {
	model := newManifestModel("1.4.0")

	// Version field accepts digits and dots only.
	model.currentField = 0
	model.fields[0].textValue = ""

	model.handleTextInput('1')
	model.handleTextInput('.')
	model.handleTextInput('2')
	if model.fields[0].textValue != "1.2" {
		t.Errorf("expected value to be '1.2', got '%s'", model.fields[0].textValue)
	}

	model.handleTextInput('x')
	if model.fields[0].textValue != "1.2" {
		t.Errorf("expected letter to be rejected, got '%s'", model.fields[0].textValue)
	}

	// Test backspace.
	model.handleBackspace()
	if model.fields[0].textValue != "1." {
		t.Errorf("expected value to be '1.' after backspace, got '%s'", model.fields[0].textValue)
	}

	// Summary field accepts free text up to its limit.
	model.currentField = 1
	model.handleTextInput('h')
	model.handleTextInput('i')
	model.handleTextInput(' ')
	model.handleTextInput('!')
	if model.fields[1].textValue != "hi !" {
		t.Errorf("expected value to be 'hi !', got '%s'", model.fields[1].textValue)
	}

	model.fields[1].textValue = string(make([]byte, model.fields[1].maxLen))
	before := model.fields[1].textValue
	model.handleTextInput('x')
	if model.fields[1].textValue != before {
		t.Errorf("expected input beyond maxLen to be rejected")
	}
}

func TestDraftUpdate(t *testing.T) {
	model := newManifestModel("1.4.0")

	// Modify some selections.
	model.fields[0].textValue = "2.0.1"       // Version.
	model.fields[1].textValue = "test plugin" // Summary.
	model.fields[2].selected = 1              // MinHostVersion: host version.
	model.fields[3].selected = 1              // EnabledByDefault: no.

	// Update draft from selections.
	model.updateDraftFromSelection()

	// Check updated values.
	if model.draft.Version != "2.0.1" {
		t.Errorf("expected Version to be '2.0.1', got '%s'", model.draft.Version)
	}

	if model.draft.Summary != "test plugin" {
		t.Errorf("expected Summary to be 'test plugin', got '%s'", model.draft.Summary)
	}

	if model.draft.MinHostVersion != "1.4.0" {
		t.Errorf("expected MinHostVersion to be '1.4.0', got '%s'", model.draft.MinHostVersion)
	}

	if model.draft.EnabledByDefault {
		t.Errorf("expected EnabledByDefault to be false")
	}
}

func TestDraftEmptyVersionFallsBack(t *testing.T) {
	model := newManifestModel("1.4.0")

	model.fields[0].textValue = ""
	model.updateDraftFromSelection()

	if model.draft.Version != "0.1.0" {
		t.Errorf("expected empty version to fall back to '0.1.0', got '%s'", model.draft.Version)
	}
}
