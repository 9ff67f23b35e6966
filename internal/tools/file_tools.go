package tools

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// cancelled is the fixed result returned when consent is denied. The loop
// treats it as a normal tool outcome, not an error.
const cancelled = "Operation cancelled by user due to safety concerns"

type searchFileTool struct{}

func (t *searchFileTool) Name() string        { return "search_file" }
func (t *searchFileTool) Description() string { return "Read and return the content of a file" }

func (t *searchFileTool) Execute(_ context.Context, args map[string]any) string {
	path := argString(args, "file_path")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fmt.Sprintf("File not found: %s", path)
	}
	if os.IsPermission(err) {
		return fmt.Sprintf("Permission denied: %s", path)
	}
	if err != nil {
		return fmt.Sprintf("Error reading file: %v", err)
	}
	return string(data)
}

type createFileTool struct{}

func (t *createFileTool) Name() string { return "create_file" }
func (t *createFileTool) Description() string {
	return "Create a new file with optional content; refuses to overwrite"
}

func (t *createFileTool) Execute(_ context.Context, args map[string]any) string {
	path := argString(args, "file_path")
	content := argString(args, "content")

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Sprintf("Error creating file: %v", err)
		}
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Sprintf("File already exists: %s. Use modify_file to update it.", path)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		if os.IsPermission(err) {
			return fmt.Sprintf("Permission denied: %s", path)
		}
		return fmt.Sprintf("Error creating file: %v", err)
	}
	return fmt.Sprintf("Successfully created %s", path)
}

type modifyFileTool struct {
	deps Deps
}

func (t *modifyFileTool) Name() string { return "modify_file" }
func (t *modifyFileTool) Description() string {
	return "Overwrite a file with new content, backing up risky targets first"
}

func (t *modifyFileTool) Execute(_ context.Context, args map[string]any) string {
	path := argString(args, "file_path")
	content := argString(args, "new_content")

	assessment := t.deps.Safety.AssessFileOperation("modify", path)
	if assessment.Destructive() {
		var backup string
		if t.deps.Safety.BackupsEnabled() {
			var err error
			backup, err = t.deps.Safety.CreateBackup(path)
			if err != nil {
				t.deps.Logger.Warn("Backup failed", zap.String("path", path), zap.Error(err))
			}
		}
		if !t.deps.Confirm("File Modification", fmt.Sprintf("File: %s\nBackup: %s", path, backup), assessment) {
			return cancelled
		}
		t.deps.Safety.LogOperation("modify_file", path, assessment.Level, true)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		if os.IsPermission(err) {
			return fmt.Sprintf("Permission denied: %s", path)
		}
		return fmt.Sprintf("Error modifying file: %v", err)
	}
	return fmt.Sprintf("Successfully modified %s", path)
}

type appendToFileTool struct{}

func (t *appendToFileTool) Name() string        { return "append_to_file" }
func (t *appendToFileTool) Description() string { return "Append content to a file" }

func (t *appendToFileTool) Execute(_ context.Context, args map[string]any) string {
	path := argString(args, "file_path")
	content := argString(args, "content")

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Sprintf("Error appending to file: %v", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsPermission(err) {
			return fmt.Sprintf("Permission denied: %s", path)
		}
		return fmt.Sprintf("Error appending to file: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		return fmt.Sprintf("Error appending to file: %v", err)
	}
	return fmt.Sprintf("Successfully appended to %s", path)
}

type editFileLinesTool struct{}

func (t *editFileLinesTool) Name() string { return "edit_file_lines" }
func (t *editFileLinesTool) Description() string {
	return "Replace a 1-indexed inclusive line range in a file"
}

func (t *editFileLinesTool) Execute(_ context.Context, args map[string]any) string {
	path := argString(args, "file_path")
	start, okStart := argInt(args, "start_line")
	end, okEnd := argInt(args, "end_line")
	newContent := argString(args, "new_content")

	if !okStart || !okEnd {
		return "Missing start_line or end_line"
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fmt.Sprintf("File not found: %s", path)
	}
	if err != nil {
		return fmt.Sprintf("Error editing file: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if start < 1 || end < 1 || start > len(lines) || end > len(lines) {
		return fmt.Sprintf("Invalid line numbers. File has %d lines.", len(lines))
	}
	if start > end {
		return "Start line must be <= end line"
	}

	var replacement []string
	if newContent != "" {
		replacement = strings.Split(newContent, "\n")
	}
	out := make([]string, 0, len(lines)-(end-start+1)+len(replacement))
	out = append(out, lines[:start-1]...)
	out = append(out, replacement...)
	out = append(out, lines[end:]...)

	if err := os.WriteFile(path, []byte(strings.Join(out, "\n")+"\n"), 0o644); err != nil {
		return fmt.Sprintf("Error editing file: %v", err)
	}
	return fmt.Sprintf("Successfully edited lines %d-%d in %s", start, end, path)
}

type copyFileTool struct{}

func (t *copyFileTool) Name() string        { return "copy_file" }
func (t *copyFileTool) Description() string { return "Copy a file to a new location" }

func (t *copyFileTool) Execute(_ context.Context, args map[string]any) string {
	source := argString(args, "source")
	destination := argString(args, "destination")

	src, err := os.Open(source)
	if os.IsNotExist(err) {
		return fmt.Sprintf("Source file not found: %s", source)
	}
	if err != nil {
		return fmt.Sprintf("Error copying file: %v", err)
	}
	defer src.Close()

	dst, err := os.Create(destination)
	if err != nil {
		return fmt.Sprintf("Error copying file: %v", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Sprintf("Error copying file: %v", err)
	}
	return fmt.Sprintf("Successfully copied %s to %s", source, destination)
}

type moveFileTool struct {
	deps Deps
}

func (t *moveFileTool) Name() string        { return "move_file" }
func (t *moveFileTool) Description() string { return "Move or rename a file" }

func (t *moveFileTool) Execute(_ context.Context, args map[string]any) string {
	source := argString(args, "source")
	destination := argString(args, "destination")

	assessment := t.deps.Safety.AssessFileOperation("move", source)
	if assessment.RequiresConfirmation() {
		if !t.deps.Confirm("File Move", fmt.Sprintf("From: %s\nTo: %s", source, destination), assessment) {
			return cancelled
		}
		t.deps.Safety.LogOperation("move_file", source+" -> "+destination, assessment.Level, true)
	}

	if _, err := os.Stat(source); os.IsNotExist(err) {
		return fmt.Sprintf("Source file not found: %s", source)
	}
	if err := os.Rename(source, destination); err != nil {
		return fmt.Sprintf("Error moving file: %v", err)
	}
	return fmt.Sprintf("Successfully moved %s to %s", source, destination)
}

type deleteFileTool struct {
	deps Deps
}

func (t *deleteFileTool) Name() string { return "delete_file" }
func (t *deleteFileTool) Description() string {
	return "Delete a file or directory, taking a backup of files first"
}

func (t *deleteFileTool) Execute(_ context.Context, args map[string]any) string {
	path := argString(args, "file_path")

	assessment := t.deps.Safety.AssessFileOperation("delete", path)
	var backup string
	if t.deps.Safety.BackupsEnabled() {
		var err error
		backup, err = t.deps.Safety.CreateBackup(path)
		if err != nil {
			t.deps.Logger.Warn("Backup failed", zap.String("path", path), zap.Error(err))
		}
	}
	if !t.deps.Confirm("File Deletion", fmt.Sprintf("File: %s\nBackup: %s", path, backup), assessment) {
		return cancelled
	}
	t.deps.Safety.LogOperation("delete_file", path, assessment.Level, true)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Sprintf("File not found: %s", path)
	}
	if err != nil {
		return fmt.Sprintf("Error deleting file: %v", err)
	}
	if info.IsDir() {
		if err := os.RemoveAll(path); err != nil {
			return fmt.Sprintf("Error deleting file: %v", err)
		}
		return fmt.Sprintf("Successfully deleted directory: %s", path)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Sprintf("Error deleting file: %v", err)
	}
	return fmt.Sprintf("Successfully deleted file: %s", path)
}

type getFileInfoTool struct{}

func (t *getFileInfoTool) Name() string        { return "get_file_info" }
func (t *getFileInfoTool) Description() string { return "Return metadata about a file as JSON" }

func (t *getFileInfoTool) Execute(_ context.Context, args map[string]any) string {
	path := argString(args, "file_path")

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Sprintf("File not found: %s", path)
	}
	if err != nil {
		return fmt.Sprintf("Error getting file info: %v", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	out := map[string]any{
		"name":          info.Name(),
		"size":          info.Size(),
		"is_directory":  info.IsDir(),
		"is_file":       !info.IsDir(),
		"absolute_path": abs,
		"parent":        filepath.Dir(abs),
		"suffix":        filepath.Ext(path),
		"modified_time": info.ModTime().Unix(),
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Sprintf("Error getting file info: %v", err)
	}
	return string(data)
}
