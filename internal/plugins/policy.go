package plugins

// Policy resolves enable/disable precedence: a non-empty allowlist enables
// exactly the listed names; otherwise the denylist disables its names;
// otherwise the plugin's own default governs. Evaluated independently per
// plugin, in that order, always.
type Policy struct {
	allow map[string]struct{}
	deny  map[string]struct{}
}

// NewPolicy builds a policy from allowlist and denylist names.
func NewPolicy(allow, deny []string) *Policy {
	p := &Policy{
		allow: make(map[string]struct{}, len(allow)),
		deny:  make(map[string]struct{}, len(deny)),
	}
	for _, name := range allow {
		p.allow[name] = struct{}{}
	}
	for _, name := range deny {
		p.deny[name] = struct{}{}
	}

	return p
}

// Enabled reports whether the plugin is included, with a reason when it is not.
func (p *Policy) Enabled(meta *Metadata) (bool, string) {
	if len(p.allow) > 0 {
		if _, ok := p.allow[meta.Name]; ok {
			return true, ""
		}

		return false, "not in allowlist"
	}

	if _, ok := p.deny[meta.Name]; ok {
		return false, "denylisted"
	}

	if !meta.EnabledByDefault {
		return false, "disabled by default"
	}

	return true, ""
}
