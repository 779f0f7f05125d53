package plugins

import (
	"errors"
	"testing"
)

func TestParseManifest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		identifier string
		data       string
		wantErr    error
	}{
		{
			name:       "minimal",
			identifier: "echo",
			data:       `{"name":"echo"}`,
		},
		{
			name:       "full declaration",
			identifier: "counter",
			data: `{
				"name": "counter",
				"version": "1.2.3",
				"summary": "stateful counter",
				"features": ["count"],
				"dependsOn": ["echo"],
				"minHostVersion": "1.0.0",
				"maxHostVersion": "2.0.0",
				"enabledByDefault": true,
				"tags": ["demo"]
			}`,
		},
		{
			name:       "empty declaration",
			identifier: "echo",
			data:       "",
			wantErr:    ErrManifestMissing,
		},
		{
			name:       "whitespace only",
			identifier: "echo",
			data:       "  \n\t ",
			wantErr:    ErrManifestMissing,
		},
		{
			name:       "array not mapping",
			identifier: "echo",
			data:       `["echo"]`,
			wantErr:    ErrNotMapping,
		},
		{
			name:       "scalar not mapping",
			identifier: "echo",
			data:       `"echo"`,
			wantErr:    ErrNotMapping,
		},
		{
			name:       "truncated json",
			identifier: "echo",
			data:       `{"name":"echo"`,
			wantErr:    ErrNotMapping,
		},
		{
			name:       "name missing",
			identifier: "echo",
			data:       `{"version":"1.0.0"}`,
			wantErr:    ErrNameMissing,
		},
		{
			name:       "name invalid characters",
			identifier: "echo",
			data:       `{"name":"Echo!"}`,
			wantErr:    ErrNameInvalid,
		},
		{
			name:       "name starts with digit",
			identifier: "echo",
			data:       `{"name":"9echo"}`,
			wantErr:    ErrNameInvalid,
		},
		{
			name:       "name does not match file",
			identifier: "echo",
			data:       `{"name":"reverb"}`,
			wantErr:    ErrNameMismatch,
		},
		{
			name:       "version malformed",
			identifier: "echo",
			data:       `{"name":"echo","version":"1.2"}`,
			wantErr:    ErrVersionInvalid,
		},
		{
			name:       "min host version malformed",
			identifier: "echo",
			data:       `{"name":"echo","minHostVersion":"latest"}`,
			wantErr:    ErrVersionInvalid,
		},
		{
			name:       "self dependency",
			identifier: "echo",
			data:       `{"name":"echo","dependsOn":["echo"]}`,
			wantErr:    ErrSelfDependency,
		},
		{
			name:       "dependency name invalid",
			identifier: "echo",
			data:       `{"name":"echo","dependsOn":["Not A Name"]}`,
			wantErr:    ErrNameInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			meta, err := ParseManifest(tt.identifier, []byte(tt.data))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseManifest error = %v, want %v", err, tt.wantErr)
				}

				return
			}
			if err != nil {
				t.Fatalf("ParseManifest failed: %v", err)
			}
			if meta.Name != tt.identifier {
				t.Errorf("Name = %q, want %q", meta.Name, tt.identifier)
			}
		})
	}
}

func TestParseManifestDefaults(t *testing.T) {
	t.Parallel()

	meta, err := ParseManifest("echo", []byte(`{"name":"echo"}`))
	if err != nil {
		t.Fatalf("ParseManifest failed: %v", err)
	}

	if meta.Version != "0.0.0" {
		t.Errorf("default Version = %q, want 0.0.0", meta.Version)
	}
	if !meta.EnabledByDefault {
		t.Error("absent enabledByDefault should default to true")
	}

	meta, err = ParseManifest("echo", []byte(`{"name":"echo","enabledByDefault":false}`))
	if err != nil {
		t.Fatalf("ParseManifest failed: %v", err)
	}
	if meta.EnabledByDefault {
		t.Error("explicit enabledByDefault=false must survive parsing")
	}
}

func TestParseManifestDeduplicatesLists(t *testing.T) {
	t.Parallel()

	meta, err := ParseManifest("quotes", []byte(
		`{"name":"quotes","dependsOn":["echo","store","echo"],"features":["a","a","b"]}`,
	))
	if err != nil {
		t.Fatalf("ParseManifest failed: %v", err)
	}

	if len(meta.DependsOn) != 2 || meta.DependsOn[0] != "echo" || meta.DependsOn[1] != "store" {
		t.Errorf("DependsOn = %v, want [echo store]", meta.DependsOn)
	}
	if len(meta.Features) != 2 {
		t.Errorf("Features = %v, want [a b]", meta.Features)
	}
}

func TestMetadataClone(t *testing.T) {
	t.Parallel()

	orig := &Metadata{
		Name:      "echo",
		Version:   "1.0.0",
		DependsOn: []string{"store"},
		Tags:      []string{"demo"},
	}

	clone := orig.Clone()
	clone.Name = "changed"
	clone.DependsOn[0] = "changed"
	clone.Tags = append(clone.Tags, "extra")

	if orig.Name != "echo" {
		t.Error("clone mutation leaked into original name")
	}
	if orig.DependsOn[0] != "store" {
		t.Error("clone shares DependsOn backing array with original")
	}
	if len(orig.Tags) != 1 {
		t.Error("clone shares Tags backing array with original")
	}
}
