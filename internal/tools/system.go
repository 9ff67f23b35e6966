package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

type memoryStatisticsTool struct {
	deps Deps
}

func (t *memoryStatisticsTool) Name() string { return "get_memory_statistics" }
func (t *memoryStatisticsTool) Description() string {
	return "Report counts from the agent's persistent memory"
}

func (t *memoryStatisticsTool) Execute(_ context.Context, _ map[string]any) string {
	if t.deps.Memory == nil {
		return "Memory store is not available"
	}
	stats, err := t.deps.Memory.GetStats()
	if err != nil {
		return fmt.Sprintf("Error getting memory statistics: %v", err)
	}

	var sb strings.Builder
	sb.WriteString("Agent Memory Statistics:\n")
	sb.WriteString(fmt.Sprintf("  Total Memories: %d\n", stats.TotalMemories))
	sb.WriteString(fmt.Sprintf("  Successful Memories: %d\n", stats.SuccessfulMemories))
	sb.WriteString(fmt.Sprintf("  Error Patterns: %d\n", stats.ErrorPatterns))

	if len(stats.Categories) > 0 {
		sb.WriteString("Memory Categories:\n")
		names := make([]string, 0, len(stats.Categories))
		for name := range stats.Categories {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			sb.WriteString(fmt.Sprintf("  %s: %d entries\n", name, stats.Categories[name]))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
