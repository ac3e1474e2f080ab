// Package plugins discovers the prompt assets installed for the host AI
// coding assistant: slash commands (markdown workflow templates) and agents
// (markdown-defined subagent prompts). perfscope never interprets the prompt
// content; it only discovers and lists what is installed.
package plugins

// PluginType represents the type of a discovered asset.
type PluginType string

// Plugin types.
const (
	PluginTypeCommand PluginType = "command"
	PluginTypeAgent   PluginType = "agent"
)

// Plugin represents a discoverable asset (slash command or agent).
type Plugin interface {
	Name() string
	Description() string
	Path() string
	Type() PluginType
}

// CommandPlugin is a discovered slash command: a markdown file whose relative
// path forms the command name.
type CommandPlugin struct {
	name        string
	description string
	path        string
}

// NewCommandPlugin creates a command plugin.
func NewCommandPlugin(name, description, path string) *CommandPlugin {
	return &CommandPlugin{name: name, description: description, path: path}
}

// Name returns the command name, e.g. "perf/investigate".
func (c *CommandPlugin) Name() string { return c.name }

// Description returns the frontmatter description, possibly empty.
func (c *CommandPlugin) Description() string { return c.description }

// Path returns the markdown file path.
func (c *CommandPlugin) Path() string { return c.path }

// Type returns the plugin type (command).
func (c *CommandPlugin) Type() PluginType { return PluginTypeCommand }

// AgentPlugin is a discovered agent: a directory with an AGENT.md file whose
// frontmatter names and describes it.
type AgentPlugin struct {
	name        string
	description string
	directory   string
}

// NewAgentPlugin creates an agent plugin.
func NewAgentPlugin(name, description, directory string) *AgentPlugin {
	return &AgentPlugin{name: name, description: description, directory: directory}
}

// Name returns the agent name.
func (a *AgentPlugin) Name() string { return a.name }

// Description returns the frontmatter description.
func (a *AgentPlugin) Description() string { return a.description }

// Path returns the agent directory path.
func (a *AgentPlugin) Path() string { return a.directory }

// Type returns the plugin type (agent).
func (a *AgentPlugin) Type() PluginType { return PluginTypeAgent }

// InstalledPlugin represents an installed plugin package that may contribute
// multiple commands and agents.
type InstalledPlugin struct {
	Name     string   // Package name in "org@repo" directory format
	Path     string   // Full path to the package directory
	Commands []string // Command names contributed by this package
	Agents   []string // Agent names contributed by this package
}
