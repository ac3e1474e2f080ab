package plugins

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
)

const (
	agentFileName  = "AGENT.md"
	commandsSubdir = "commands"
	agentsSubdir   = "agents"
	pluginsSubdir  = "plugins"
)

// Discovery finds commands and agents across the project and global host
// directories. Precedence: project assets first, then project plugin
// packages, then the user's global directory, then global packages; the
// first occurrence of a name wins.
type Discovery struct {
	hostDir string // project host dir, e.g. ".claude"
	homeDir string
}

// DiscoveryOption configures a Discovery instance.
type DiscoveryOption func(*Discovery)

// WithHostDir sets the project host directory.
func WithHostDir(dir string) DiscoveryOption {
	return func(d *Discovery) {
		d.hostDir = dir
	}
}

// WithHomeDir sets a custom home directory (for testing).
func WithHomeDir(dir string) DiscoveryOption {
	return func(d *Discovery) {
		d.homeDir = dir
	}
}

// NewDiscovery creates a plugin discovery instance for a host directory.
func NewDiscovery(hostDir string, opts ...DiscoveryOption) (*Discovery, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user home directory")
	}

	d := &Discovery{
		hostDir: hostDir,
		homeDir: homeDir,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// globalHostDir is the user-level twin of the project host dir, e.g.
// ~/.claude for ./.claude.
func (d *Discovery) globalHostDir() string {
	return filepath.Join(d.homeDir, filepath.Base(d.hostDir))
}

// searchRoots returns the asset roots in precedence order, each with the
// name prefix its assets carry.
func (d *Discovery) searchRoots(subdir string) []searchRoot {
	roots := []searchRoot{{dir: filepath.Join(d.hostDir, subdir)}}
	roots = append(roots, d.packageRoots(d.hostDir, subdir)...)
	roots = append(roots, searchRoot{dir: filepath.Join(d.globalHostDir(), subdir)})
	roots = append(roots, d.packageRoots(d.globalHostDir(), subdir)...)
	return roots
}

type searchRoot struct {
	dir    string
	prefix string
}

// packageRoots lists asset roots contributed by installed plugin packages
// under baseDir. Package directories use "org@repo" naming; their assets are
// prefixed "org/repo/".
func (d *Discovery) packageRoots(baseDir, subdir string) []searchRoot {
	pluginsDir := filepath.Join(baseDir, pluginsSubdir)
	entries, err := os.ReadDir(pluginsDir)
	if err != nil {
		return nil
	}

	var roots []searchRoot
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		assetDir := filepath.Join(pluginsDir, entry.Name(), subdir)
		if _, err := os.Stat(assetDir); err == nil {
			roots = append(roots, searchRoot{
				dir:    assetDir,
				prefix: packageNameToPrefix(entry.Name()),
			})
		}
	}
	return roots
}

// packageNameToPrefix converts an "org@repo" package directory name to the
// "org/repo/" asset name prefix.
func packageNameToPrefix(name string) string {
	return strings.Replace(name, "@", "/", 1) + "/"
}

// DiscoverCommands finds all slash commands, keyed by name.
func (d *Discovery) DiscoverCommands() (map[string]Plugin, error) {
	commands := make(map[string]Plugin)

	for _, root := range d.searchRoots(commandsSubdir) {
		found, err := d.commandsFromDir(root.dir, root.prefix)
		if err != nil {
			logrus.WithError(err).WithField("dir", root.dir).Debug("failed to discover commands")
			continue
		}
		for _, c := range found {
			if _, exists := commands[c.Name()]; !exists {
				commands[c.Name()] = c
			}
		}
	}

	return commands, nil
}

// DiscoverAgents finds all agents, keyed by name.
func (d *Discovery) DiscoverAgents() (map[string]Plugin, error) {
	agents := make(map[string]Plugin)

	for _, root := range d.searchRoots(agentsSubdir) {
		found, err := d.agentsFromDir(root.dir, root.prefix)
		if err != nil {
			logrus.WithError(err).WithField("dir", root.dir).Debug("failed to discover agents")
			continue
		}
		for _, a := range found {
			if _, exists := agents[a.Name()]; !exists {
				agents[a.Name()] = a
			}
		}
	}

	return agents, nil
}

// commandsFromDir walks a commands directory; every markdown file becomes a
// command named by its relative path.
func (d *Discovery) commandsFromDir(dir, prefix string) ([]Plugin, error) {
	var commands []Plugin

	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			return nil
		}

		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}

		name := filepath.ToSlash(strings.TrimSuffix(relPath, ".md"))
		if prefix != "" {
			name = prefix + name
		}

		description, err := frontmatterDescription(path)
		if err != nil {
			logrus.WithError(err).WithField("file", path).Debug("unreadable command frontmatter")
			description = ""
		}

		commands = append(commands, NewCommandPlugin(name, description, path))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return commands, nil
}

// agentsFromDir reads agent directories, each holding an AGENT.md with
// required name and description frontmatter. Directories without a valid
// AGENT.md are skipped.
func (d *Discovery) agentsFromDir(dir, prefix string) ([]Plugin, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var agents []Plugin
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		agentDir := filepath.Join(dir, entry.Name())
		agent, err := loadAgent(filepath.Join(agentDir, agentFileName), prefix)
		if err != nil {
			logrus.WithError(err).WithField("dir", agentDir).Debug("skipping invalid agent")
			continue
		}

		agent.directory = agentDir
		agents = append(agents, agent)
	}

	return agents, nil
}

func loadAgent(path, prefix string) (*AgentPlugin, error) {
	metaData, err := parseFrontmatter(path)
	if err != nil {
		return nil, err
	}
	if metaData == nil {
		return nil, errors.New("missing frontmatter")
	}

	name, _ := metaData["name"].(string)
	description, _ := metaData["description"].(string)

	if name == "" {
		return nil, errors.New("agent name is required in frontmatter")
	}
	if description == "" {
		return nil, errors.New("agent description is required in frontmatter")
	}

	if prefix != "" {
		name = prefix + name
	}

	return &AgentPlugin{name: name, description: description}, nil
}

func frontmatterDescription(path string) (string, error) {
	metaData, err := parseFrontmatter(path)
	if err != nil {
		return "", err
	}
	if metaData == nil {
		return "", nil
	}
	description, _ := metaData["description"].(string)
	return description, nil
}

func parseFrontmatter(path string) (map[string]interface{}, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read markdown file")
	}

	md := goldmark.New(goldmark.WithExtensions(meta.Meta))

	var buf bytes.Buffer
	pctx := parser.NewContext()
	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return nil, errors.Wrap(err, "failed to parse markdown")
	}

	return meta.Get(pctx), nil
}

// ListInstalledPlugins returns the installed plugin packages from the project
// or global location.
func (d *Discovery) ListInstalledPlugins(global bool) ([]InstalledPlugin, error) {
	baseDir := d.hostDir
	if global {
		baseDir = d.globalHostDir()
	}

	pluginsDir := filepath.Join(baseDir, pluginsSubdir)
	entries, err := os.ReadDir(pluginsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to read plugins directory")
	}

	var packages []InstalledPlugin
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		pkgPath := filepath.Join(pluginsDir, entry.Name())
		pkg := InstalledPlugin{
			Name: entry.Name(),
			Path: pkgPath,
		}

		commands, err := d.commandsFromDir(filepath.Join(pkgPath, commandsSubdir), "")
		if err == nil {
			for _, c := range commands {
				pkg.Commands = append(pkg.Commands, c.Name())
			}
		}

		agents, err := d.agentsFromDir(filepath.Join(pkgPath, agentsSubdir), "")
		if err == nil {
			for _, a := range agents {
				pkg.Agents = append(pkg.Agents, a.Name())
			}
		}

		if len(pkg.Commands) == 0 && len(pkg.Agents) == 0 {
			continue
		}
		packages = append(packages, pkg)
	}

	return packages, nil
}
