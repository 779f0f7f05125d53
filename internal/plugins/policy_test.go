package plugins

import "testing"

func TestPolicyPrecedence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		allow      []string
		deny       []string
		plugin     string
		defaultOn  bool
		enabled    bool
		wantReason string
	}{
		{
			name:      "no lists default on",
			plugin:    "echo",
			defaultOn: true,
			enabled:   true,
		},
		{
			name:       "no lists default off",
			plugin:     "echo",
			defaultOn:  false,
			enabled:    false,
			wantReason: "disabled by default",
		},
		{
			name:      "allowlist admits listed",
			allow:     []string{"echo"},
			plugin:    "echo",
			defaultOn: false,
			enabled:   true,
		},
		{
			name:       "allowlist excludes unlisted",
			allow:      []string{"store"},
			plugin:     "echo",
			defaultOn:  true,
			enabled:    false,
			wantReason: "not in allowlist",
		},
		{
			name:      "allowlist overrides denylist",
			allow:     []string{"echo"},
			deny:      []string{"echo"},
			plugin:    "echo",
			defaultOn: true,
			enabled:   true,
		},
		{
			name:       "denylist blocks",
			deny:       []string{"echo"},
			plugin:     "echo",
			defaultOn:  true,
			enabled:    false,
			wantReason: "denylisted",
		},
		{
			name:      "denylist ignores others",
			deny:      []string{"store"},
			plugin:    "echo",
			defaultOn: true,
			enabled:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := NewPolicy(tt.allow, tt.deny)
			meta := &Metadata{Name: tt.plugin, Version: "0.0.0", EnabledByDefault: tt.defaultOn}

			enabled, reason := p.Enabled(meta)
			if enabled != tt.enabled {
				t.Fatalf("Enabled = %v, want %v (reason %q)", enabled, tt.enabled, reason)
			}
			if !tt.enabled && reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", reason, tt.wantReason)
			}
			if tt.enabled && reason != "" {
				t.Errorf("enabled plugin carries reason %q", reason)
			}
		})
	}
}
