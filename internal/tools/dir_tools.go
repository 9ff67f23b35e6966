package tools

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

type listDirectoryTool struct{}

func (t *listDirectoryTool) Name() string        { return "list_directory" }
func (t *listDirectoryTool) Description() string { return "List the contents of a directory" }

func (t *listDirectoryTool) Execute(_ context.Context, args map[string]any) string {
	dir := argStringDefault(args, "directory_path", ".")

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return fmt.Sprintf("Directory not found: %s", dir)
	}
	if os.IsPermission(err) {
		return fmt.Sprintf("Permission denied: %s", dir)
	}
	if err != nil {
		return fmt.Sprintf("Error listing directory: %v", err)
	}

	items := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			items = append(items, fmt.Sprintf("[dir]  %s/", e.Name()))
			continue
		}
		size := int64(0)
		if info, err := e.Info(); err == nil {
			size = info.Size()
		}
		items = append(items, fmt.Sprintf("[file] %s (%d bytes)", e.Name(), size))
	}
	sort.Strings(items)
	return strings.Join(items, "\n")
}

type findFilesTool struct{}

func (t *findFilesTool) Name() string        { return "find_files" }
func (t *findFilesTool) Description() string { return "Find files matching a glob pattern, recursively" }

func (t *findFilesTool) Execute(_ context.Context, args map[string]any) string {
	pattern := argString(args, "pattern")
	dir := argStringDefault(args, "directory", ".")

	var matches []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ok, _ := filepath.Match(pattern, d.Name()); ok {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Sprintf("Error finding files: %v", err)
	}
	if len(matches) == 0 {
		return fmt.Sprintf("No files found matching pattern: %s", pattern)
	}
	sort.Strings(matches)
	return strings.Join(matches, "\n")
}

type searchInFilesTool struct{}

func (t *searchInFilesTool) Name() string { return "search_in_files" }
func (t *searchInFilesTool) Description() string {
	return "Search file contents for a regex, reporting matching lines"
}

func (t *searchInFilesTool) Execute(_ context.Context, args map[string]any) string {
	pattern := argString(args, "pattern")
	dir := argStringDefault(args, "directory", ".")
	filePattern := argStringDefault(args, "file_pattern", "*")

	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return fmt.Sprintf("Error searching in files: invalid pattern: %v", err)
	}

	var out []string
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if ok, _ := filepath.Match(filePattern, d.Name()); !ok {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		var hits []string
		for i, line := range strings.Split(string(data), "\n") {
			if re.MatchString(line) {
				hits = append(hits, fmt.Sprintf("  Line %d: %s", i+1, strings.TrimSpace(line)))
			}
		}
		if len(hits) == 0 {
			return nil
		}
		out = append(out, path+":")
		if len(hits) > 5 {
			out = append(out, hits[:5]...)
			out = append(out, fmt.Sprintf("  ... and %d more matches", len(hits)-5))
		} else {
			out = append(out, hits...)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Sprintf("Error searching in files: %v", walkErr)
	}
	if len(out) == 0 {
		return fmt.Sprintf("No matches found for pattern: %s", pattern)
	}
	return strings.Join(out, "\n")
}

type createDirectoryTool struct{}

func (t *createDirectoryTool) Name() string        { return "create_directory" }
func (t *createDirectoryTool) Description() string { return "Create a directory, parents included" }

func (t *createDirectoryTool) Execute(_ context.Context, args map[string]any) string {
	dir := argString(args, "directory_path")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Sprintf("Error creating directory: %v", err)
	}
	return fmt.Sprintf("Successfully created directory: %s", dir)
}

type getCurrentDirectoryTool struct{}

func (t *getCurrentDirectoryTool) Name() string        { return "get_current_directory" }
func (t *getCurrentDirectoryTool) Description() string { return "Return the current working directory" }

func (t *getCurrentDirectoryTool) Execute(_ context.Context, _ map[string]any) string {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Sprintf("Error getting current directory: %v", err)
	}
	return wd
}

type changeDirectoryTool struct{}

func (t *changeDirectoryTool) Name() string        { return "change_directory" }
func (t *changeDirectoryTool) Description() string { return "Change the current working directory" }

func (t *changeDirectoryTool) Execute(_ context.Context, args map[string]any) string {
	dir := argString(args, "directory_path")
	if err := os.Chdir(dir); err != nil {
		if os.IsNotExist(err) {
			return fmt.Sprintf("Directory not found: %s", dir)
		}
		return fmt.Sprintf("Error changing directory: %v", err)
	}
	wd, _ := os.Getwd()
	return fmt.Sprintf("Changed directory to: %s", wd)
}

type createProjectStructureTool struct{}

func (t *createProjectStructureTool) Name() string { return "create_project_structure" }
func (t *createProjectStructureTool) Description() string {
	return "Scaffold a project directory with common files"
}

func (t *createProjectStructureTool) Execute(_ context.Context, args map[string]any) string {
	name := argString(args, "project_name")
	kind := strings.ToLower(argStringDefault(args, "project_type", "go"))
	if name == "" {
		return "Missing project_name"
	}

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Sprintf("Error creating project structure: %v", err)
	}
	base := filepath.Join(wd, name)
	if _, err := os.Stat(base); err == nil {
		return fmt.Sprintf("Project directory already exists: %s", base)
	}

	var dirs []string
	var files map[string]string
	switch kind {
	case "go":
		dirs = []string{"cmd/" + name, "internal", "docs"}
		files = map[string]string{
			"README.md": fmt.Sprintf("# %s\n\nA Go project.\n\n## Build\n\n```bash\ngo build ./...\n```\n", name),
			"go.mod":    fmt.Sprintf("module %s\n\ngo 1.22\n", name),
			".gitignore": "bin/\n*.test\n*.out\n.env\n",
			"cmd/" + name + "/main.go": fmt.Sprintf("package main\n\nimport \"fmt\"\n\nfunc main() {\n\tfmt.Println(\"Hello from %s!\")\n}\n", name),
		}
	case "web":
		dirs = []string{"css", "js", "images", "assets"}
		files = map[string]string{
			"index.html": fmt.Sprintf("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n  <meta charset=\"UTF-8\">\n  <title>%s</title>\n  <link rel=\"stylesheet\" href=\"css/style.css\">\n</head>\n<body>\n  <h1>Welcome to %s</h1>\n  <script src=\"js/main.js\"></script>\n</body>\n</html>\n", name, name),
			"css/style.css": "body {\n  font-family: Arial, sans-serif;\n  margin: 0;\n  padding: 20px;\n}\n",
			"js/main.js":    fmt.Sprintf("console.log(\"Welcome to %s!\");\n", name),
			"README.md":     fmt.Sprintf("# %s\n\nA web project. Open index.html in your browser.\n", name),
		}
	default:
		dirs = []string{"src", "docs"}
		files = map[string]string{
			"README.md":  fmt.Sprintf("# %s\n\nProject description here.\n", name),
			".gitignore": "*.log\n*.tmp\n.DS_Store\n",
		}
	}

	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(base, d), 0o755); err != nil {
			return fmt.Sprintf("Error creating project structure: %v", err)
		}
	}
	for rel, content := range files {
		full := filepath.Join(base, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return fmt.Sprintf("Error creating project structure: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			return fmt.Sprintf("Error creating project structure: %v", err)
		}
	}
	return fmt.Sprintf("Successfully created %s project structure at: %s", kind, base)
}
