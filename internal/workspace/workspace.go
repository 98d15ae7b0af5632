// Package workspace reads the local project layout: project names and the
// files to upload to the device.
package workspace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
)

const (
	// DenoConfigName is the optional workspace config listing import maps.
	DenoConfigName = "deno.json"
	// RemoteRoot is the device directory holding every uploaded project.
	RemoteRoot = "Projects"
)

// File is one local file and its destination on the device.
type File struct {
	AbsolutePath string
	RemotePath   string
}

// Project is one directory uploaded as a unit. Name is the directory basename.
type Project struct {
	Name string
	Root string
}

// Provider reads the workspace rooted at Root. Every call re-reads deno.json so
// edits are picked up by long-lived owners.
type Provider struct {
	Root string
}

// New returns a provider for root, resolved to an absolute path.
func New(root string) (*Provider, error) {
	if strings.TrimSpace(root) == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root %q: %w", root, err)
	}
	return &Provider{Root: abs}, nil
}

// CurrentProject returns the workspace root as a project.
func (p *Provider) CurrentProject() (Project, error) {
	return openProject(p.Root)
}

// CurrentProjectName returns the basename of the workspace root.
func (p *Provider) CurrentProjectName() (string, error) {
	project, err := p.CurrentProject()
	if err != nil {
		return "", err
	}
	return project.Name, nil
}

// Imports returns the local import projects named by deno.json, in file order.
// Only import map values starting with "." are local; the rest are remote
// modules and are left to the runtime.
func (p *Provider) Imports() ([]Project, error) {
	current, err := p.CurrentProject()
	if err != nil {
		return nil, err
	}
	targets, err := localImports(filepath.Join(p.Root, DenoConfigName))
	if err != nil {
		return nil, err
	}

	seen := map[string]string{current.Name: current.Root}
	projects := make([]Project, 0, len(targets))
	for _, target := range targets {
		project, err := openProject(filepath.Join(p.Root, target))
		if err != nil {
			return nil, fmt.Errorf("import %q: %w", target, err)
		}
		if root, dup := seen[project.Name]; dup {
			if root == project.Root {
				continue
			}
			return nil, fmt.Errorf("import %q: duplicate project name %q", target, project.Name)
		}
		seen[project.Name] = project.Root
		projects = append(projects, project)
	}
	return projects, nil
}

// ImportProjectNames returns the names of locally linked import projects.
func (p *Provider) ImportProjectNames() ([]string, error) {
	imports, err := p.Imports()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(imports))
	for _, project := range imports {
		names = append(names, project.Name)
	}
	return names, nil
}

// UploadFiles enumerates each import then the current project, in directory
// listing order.
func (p *Provider) UploadFiles() ([]File, error) {
	current, err := p.CurrentProject()
	if err != nil {
		return nil, err
	}
	imports, err := p.Imports()
	if err != nil {
		return nil, err
	}

	var files []File
	for _, project := range append(imports, current) {
		projectFiles, err := enumerate(project)
		if err != nil {
			return nil, err
		}
		files = append(files, projectFiles...)
	}
	return files, nil
}

func openProject(dir string) (Project, error) {
	dir = filepath.Clean(dir)
	info, err := os.Stat(dir)
	if err != nil {
		return Project{}, fmt.Errorf("open project: %w", err)
	}
	if !info.IsDir() {
		return Project{}, fmt.Errorf("open project: %s is not a directory", dir)
	}
	return Project{Name: filepath.Base(dir), Root: dir}, nil
}

// localImports reads the import map in configPath. A missing file means no
// imports.
func localImports(configPath string) ([]string, error) {
	content, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", configPath, err)
	}

	var config struct {
		Imports json.RawMessage `json:"imports"`
	}
	if err := json.Unmarshal(jsonc.ToJSON(content), &config); err != nil {
		return nil, fmt.Errorf("decode %s: %w", configPath, err)
	}
	values, err := orderedValues(config.Imports)
	if err != nil {
		return nil, fmt.Errorf("decode %s imports: %w", configPath, err)
	}

	var targets []string
	for _, value := range values {
		target, ok := value.(string)
		if ok && strings.HasPrefix(target, ".") {
			targets = append(targets, target)
		}
	}
	return targets, nil
}

// orderedValues returns the member values of a JSON object in document order.
func orderedValues(raw json.RawMessage) ([]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("want an object, got %v", tok)
	}

	var values []any
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

// enumerate walks one project. Entries whose name starts with "." are skipped
// at every depth.
func enumerate(project Project) ([]File, error) {
	var files []File
	err := filepath.WalkDir(project.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == project.Root {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(project.Root, p)
		if err != nil {
			return err
		}
		files = append(files, File{
			AbsolutePath: p,
			RemotePath:   path.Join(RemoteRoot, project.Name, filepath.ToSlash(rel)),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate project %q: %w", project.Name, err)
	}
	return files, nil
}
