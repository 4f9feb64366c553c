// Package templates discovers issue and pull-request templates under a
// repository's .github directory and parses their YAML frontmatter.
package templates

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"

	"repotree/internal/logging"
	"repotree/pkg/fileops"
	"repotree/pkg/pathutil"
)

// Matter is the frontmatter block GitHub issue templates carry.
type Matter struct {
	Name        string   `yaml:"name"`
	About       string   `yaml:"about"`
	Description string   `yaml:"description"`
	Title       string   `yaml:"title"`
	Labels      []string `yaml:"labels"`
}

// Template is one discovered template file.
type Template struct {
	// FileName is the base name of the template file.
	FileName string
	// Path is the absolute file path.
	Path string
	// Name is the display name, from frontmatter when present, else the
	// file name without extension.
	Name string
	// About describes when to use the template; frontmatter "about" wins
	// over "description".
	About string
	// Labels are applied to issues created from the template.
	Labels []string
	// Body is the template content without the frontmatter block.
	Body string
}

var templateExtensions = map[string]bool{
	".md":   true,
	".yml":  true,
	".yaml": true,
}

// Discover lists the templates under repoRoot's .github/ISSUE_TEMPLATE
// directory, sorted by display name. A missing directory yields an empty
// list; individual unreadable or frontmatter-less files are skipped.
func Discover(repoRoot string) ([]Template, error) {
	githubDir, _, err := pathutil.GitHubDir(repoRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve .github directory: %w", err)
	}
	dir := filepath.Join(githubDir, "ISSUE_TEMPLATE")

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list issue templates: %w", err)
	}

	var out []Template
	for _, e := range entries {
		if e.IsDir() || !templateExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		// config.yml customizes the template chooser, it is not a template.
		if strings.EqualFold(e.Name(), "config.yml") || strings.EqualFold(e.Name(), "config.yaml") {
			continue
		}

		tpl, err := parseFile(filepath.Join(dir, e.Name()))
		if err != nil {
			logging.Debug("Skipping unparsable template", "file", e.Name(), "error", err)
			continue
		}
		out = append(out, tpl)
	}

	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// Instantiate creates a new file inside the repository's .github folder
// from the template's body. fileName is sanitized first and the resulting
// path is validated to stay inside the repository; an extension is
// inherited from the template when the caller gives none. Returns the path
// of the created file.
func Instantiate(repoRoot string, tpl Template, fileName string) (string, error) {
	name := pathutil.SanitizeFileName(fileName)
	if name == "" {
		return "", fmt.Errorf("file name %q is empty after sanitization", fileName)
	}
	if filepath.Ext(name) == "" {
		name += filepath.Ext(tpl.FileName)
	}

	githubDir, _, err := pathutil.GitHubDir(repoRoot)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(githubDir, name)
	if err := fileops.ValidateFileInDirectory(dest, repoRoot); err != nil {
		return "", err
	}

	if err := fileops.AtomicWrite(dest, []byte(tpl.Body)); err != nil {
		return "", err
	}
	logging.Debug("Created file from template", "template", tpl.Name, "dest", dest)
	return dest, nil
}

func parseFile(path string) (Template, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Template{}, err
	}

	name := filepath.Base(path)
	tpl := Template{
		FileName: name,
		Path:     path,
		Name:     strings.TrimSuffix(name, filepath.Ext(name)),
	}

	var matter Matter
	var body []byte
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yml" || ext == ".yaml" {
		// Issue form templates are whole-file YAML, not frontmatter.
		if err := yaml.Unmarshal(content, &matter); err != nil {
			return Template{}, err
		}
	} else {
		// Markdown templates without frontmatter are still valid; Parse
		// then returns the content unchanged and matter stays zero.
		body, err = frontmatter.Parse(bytes.NewReader(content), &matter)
		if err != nil {
			tpl.Body = string(content)
			return tpl, nil
		}
	}

	if matter.Name != "" {
		tpl.Name = matter.Name
	}
	tpl.About = matter.About
	if tpl.About == "" {
		tpl.About = matter.Description
	}
	tpl.Labels = matter.Labels
	tpl.Body = string(body)
	return tpl, nil
}
