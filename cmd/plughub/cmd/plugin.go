package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andrei-cloud/plughub/internal/cli"
	"github.com/andrei-cloud/plughub/internal/plugins"
	"github.com/andrei-cloud/plughub/internal/version"
)

var (
	pluginSummary string
	pluginVersion string
	pluginDeps    string
	pluginTags    string
	pluginMinHost string
	pluginOut     string
	pluginWizard  bool
)

// pluginCmd represents the plugin command.
var pluginCmd = &cobra.Command{
	Use:   "plugin",
	Short: "Plugin management commands",
	Long:  `Commands for inspecting and scaffolding plughub WASM plugins.`,
}

// createCmd represents the create command.
var createCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Scaffold a new plugin",
	Long: `Scaffold a new WASM plugin. This will:
1. Create the plugin source directory
2. Generate a main.go with the manifest and command skeleton
3. Print the TinyGo command that builds the module`,
	Args: cobra.ExactArgs(1),
	RunE: runCreatePlugin,
}

func runCreatePlugin(cmd *cobra.Command, args []string) error {
	name := strings.ToLower(args[0])

	draft := cli.ManifestDraft{
		Version:          pluginVersion,
		Summary:          pluginSummary,
		MinHostVersion:   pluginMinHost,
		EnabledByDefault: true,
	}

	if pluginWizard {
		var (
			ok  bool
			err error
		)
		draft, ok, err = cli.RunManifestWizard(version.Version)
		if err != nil {
			return fmt.Errorf("manifest wizard failed: %w", err)
		}
		if !ok {
			cmd.Println("Plugin creation cancelled.")

			return nil
		}
	}

	deps := splitList(pluginDeps)
	tags := splitList(pluginTags)

	// Reuse the runtime's manifest validation so a scaffolded plugin is
	// guaranteed to pass discovery.
	meta := &plugins.Metadata{
		Name:           name,
		Version:        draft.Version,
		DependsOn:      deps,
		MinHostVersion: draft.MinHostVersion,
		Tags:           tags,
	}
	if err := meta.Validate(name); err != nil {
		return fmt.Errorf("invalid plugin declaration: %w", err)
	}

	dir := filepath.Join(pluginOut, name)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("plugin directory %s already exists", dir)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create plugin directory: %w", err)
	}

	mainPath := filepath.Join(dir, "main.go")
	source := renderPluginSource(name, draft, deps, tags)
	if err := os.WriteFile(mainPath, []byte(source), 0o644); err != nil {
		return fmt.Errorf("failed to create plugin source: %w", err)
	}

	cmd.Printf("Created plugin %s at %s\n", name, mainPath)
	cmd.Println("Build the WASM module with:")
	cmd.Printf("  tinygo build -o plugins/plug_%s.wasm -target=wasi -no-debug ./%s\n",
		name, filepath.ToSlash(dir))

	return nil
}

// renderPluginSource generates the guest source for a scaffolded plugin.
func renderPluginSource(name string, draft cli.ManifestDraft, deps, tags []string) string {
	var fields strings.Builder
	fmt.Fprintf(&fields, "\t\tName:    %q,\n", name)
	fmt.Fprintf(&fields, "\t\tVersion: %q,\n", draft.Version)

	if draft.Summary != "" {
		fmt.Fprintf(&fields, "\t\tSummary: %q,\n", draft.Summary)
	}

	if len(deps) > 0 {
		fmt.Fprintf(&fields, "\t\tDependsOn: []string{%s},\n", quoteJoin(deps))
	}

	if draft.MinHostVersion != "" {
		fmt.Fprintf(&fields, "\t\tMinHostVersion: %q,\n", draft.MinHostVersion)
	}

	if !draft.EnabledByDefault {
		fields.WriteString("\t\tEnabledByDefault: plug.BoolPtr(false),\n")
	}

	if len(tags) > 0 {
		fmt.Fprintf(&fields, "\t\tTags: []string{%s},\n", quoteJoin(tags))
	}

	return fmt.Sprintf(`package main

import (
	plug "github.com/andrei-cloud/plughub/pkg/hubplugin"
)

//export Alloc
func Alloc(size uint32) uint32 {
	return plug.Alloc(size)
}

//export Free
func Free(ptr uint32) {
	plug.Free(ptr)
}

//export Manifest
func Manifest() uint64 {
	return plug.PackJSON(plug.Manifest{
%s	})
}

//export Register
func Register() uint64 {
	return plug.Commands("%s.hello")
}

//export Invoke
func Invoke(cmdPtr, cmdLen, payloadPtr, payloadLen uint32) uint64 {
	cmd := string(plug.ReadBytes(cmdPtr, cmdLen))
	payload := string(plug.ReadBytes(payloadPtr, payloadLen))
	plug.ResetAllocator()

	switch cmd {
	case "%s.hello":
		return plug.WriteString("hello from %s: " + payload)
	default:
		plug.LogError("unexpected command " + cmd)

		return plug.WriteString("unknown command " + cmd)
	}
}

func main() {}
`, fields.String(), name, name, name)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}

	var out []string
	for _, d := range strings.Split(s, ",") {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}

	return out
}

func quoteJoin(items []string) string {
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = fmt.Sprintf("%q", it)
	}

	return strings.Join(quoted, ", ")
}

func init() {
	rootCmd.AddCommand(pluginCmd)
	pluginCmd.AddCommand(createCmd)

	createCmd.Flags().StringVarP(&pluginSummary, "summary", "s", "", "Plugin summary")
	createCmd.Flags().StringVarP(&pluginVersion, "version", "v", "0.1.0", "Plugin version")
	createCmd.Flags().StringVar(&pluginDeps, "deps", "", "Comma separated plugin dependencies")
	createCmd.Flags().StringVar(&pluginTags, "tags", "", "Comma separated plugin tags")
	createCmd.Flags().StringVar(&pluginMinHost, "min-host", "", "Minimum host version")
	createCmd.Flags().
		StringVarP(&pluginOut, "out", "o", "commands", "Output directory for plugin sources")
	createCmd.Flags().BoolVar(&pluginWizard, "wizard", false, "Configure the manifest interactively")
}
