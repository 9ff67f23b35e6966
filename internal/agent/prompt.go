package agent

import (
	"fmt"
	"strings"

	json "github.com/json-iterator/go"
)

// historyWindow is how many trailing history entries the prompt shows.
const historyWindow = 5

// toolDescriptions is the static catalog used for the prompt's tool listing.
var toolDescriptions = map[string]string{
	"execute_shell_command":    "Execute system commands (requires confirmation for dangerous operations)",
	"search_file":              "Read and display file contents",
	"create_file":              "Create a new file with optional content",
	"modify_file":              "Create or modify file contents",
	"append_to_file":           "Append content to an existing file",
	"edit_file_lines":          "Edit specific lines in a file (start_line, end_line, new_content)",
	"list_directory":           "List directory contents with file sizes",
	"find_files":               "Find files matching patterns recursively",
	"get_file_info":            "Get detailed file/directory metadata",
	"create_directory":         "Create new directories",
	"create_project_structure": "Create complete project templates (go, web, generic)",
	"copy_file":                "Copy files from source to destination",
	"move_file":                "Move/rename files (requires confirmation)",
	"delete_file":              "Delete files/directories (requires confirmation)",
	"search_in_files":          "Search for text patterns within files",
	"get_current_directory":    "Display current working directory",
	"change_directory":         "Change working directory",
	"get_memory_statistics":    "Display agent memory system statistics",
	"fetch_web_content":        "Fetch a URL and return its content",
	"call_api":                 "Call an HTTP API endpoint",
	ToolNoOp:                   "Take no action (explain reasoning)",
	ToolFinish:                 "Complete the goal (provide summary)",
}

// BuildPrompt assembles the full model prompt from the goal, recent history,
// the tool catalog, and memory context. A window below 1 falls back to the
// default. Pure string assembly; empty history and empty context render as
// explicit "none" lines.
func BuildPrompt(goal string, history []HistoryEntry, toolNames []string, memoryContext string, window int) string {
	if window < 1 {
		window = historyWindow
	}
	var sb strings.Builder

	sb.WriteString("You are an intelligent autonomous agent designed to achieve goals through systematic tool execution.\n\n")
	sb.WriteString("GOAL: " + goal + "\n\n")

	sb.WriteString("AVAILABLE TOOLS:\n")
	for i, name := range toolNames {
		desc, ok := toolDescriptions[name]
		if !ok {
			desc = "No description available"
		}
		sb.WriteString(fmt.Sprintf("%2d. %s: %s\n", i+1, name, desc))
	}
	sb.WriteString("\n")

	sb.WriteString("EXECUTION HISTORY:\n")
	if len(history) == 0 {
		sb.WriteString("No previous actions taken.\n")
	} else {
		recent := history
		if len(recent) > window {
			recent = recent[len(recent)-window:]
		}
		for i, h := range recent {
			args := "{}"
			if data, err := json.Marshal(h.Args); err == nil {
				args = string(data)
			}
			result := h.Result
			if r := []rune(result); len(r) > 100 {
				result = string(r[:100]) + "..."
			}
			sb.WriteString(fmt.Sprintf("%d. %s(%s) -> %s\n", i+1, h.Action, args, result))
		}
	}
	sb.WriteString("\n")

	sb.WriteString("RELEVANT CONTEXT:\n")
	if memoryContext == "" {
		sb.WriteString("none\n")
	} else {
		sb.WriteString(memoryContext + "\n")
	}
	sb.WriteString("\n")

	sb.WriteString(`RESPONSE FORMAT:
You MUST respond with valid JSON containing exactly these fields:
{
    "thought": "Your reasoning about what to do next",
    "tool": "exact_tool_name_from_list_above",
    "args": {"param1": "value1", "param2": "value2"}
}

CRITICAL RULES:
1. Tool name must EXACTLY match one from the available tools list
2. Use proper JSON formatting with double quotes
3. Think step-by-step before acting
4. Avoid repeating failed actions
5. If unsure about tool names, use 'no_op' to explain the issue
6. Use 'finish' when the goal is fully accomplished

EXAMPLES:
- To list files: {"thought": "I need to see what files are available", "tool": "list_directory", "args": {"directory_path": "."}}
- To read a file: {"thought": "I should examine this file", "tool": "search_file", "args": {"file_path": "example.txt"}}
- To create a file: {"thought": "I need to create a source file", "tool": "create_file", "args": {"file_path": "main.go", "content": "package main"}}
- To get memory stats: {"thought": "I need to check memory statistics", "tool": "get_memory_statistics", "args": {}}

What is your next action to achieve the goal?`)

	return sb.String()
}
