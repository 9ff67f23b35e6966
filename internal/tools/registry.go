// Package tools implements the agent's action surface: a fixed registry of
// named tools, each a total function from arguments to a result string. Tools
// never return Go errors to the caller; failures are reported in the result
// text so the model can read and react to them.
package tools

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/drover/internal/memory"
	"github.com/xkilldash9x/drover/internal/safety"
)

// Tool is one callable action. Execute must be total: any failure is encoded
// in the returned string.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, args map[string]any) string
}

// ConfirmFunc decides whether a risky operation may proceed. The loop wires
// this to operator consent; tests wire it to a constant.
type ConfirmFunc func(operation, details string, assessment safety.Assessment) bool

// Deps carries the shared collaborators tools need.
type Deps struct {
	Memory  *memory.Store
	Safety  *safety.Manager
	Logger  *zap.Logger
	Confirm ConfirmFunc
	// HTTPClient serves fetch_web_content and call_api; defaults to a
	// 10-second-timeout client.
	HTTPClient *http.Client
}

// Registry is an immutable name -> tool table built once at startup.
type Registry struct {
	tools  map[string]Tool
	logger *zap.Logger
}

// NewRegistry builds the full tool set. The returned registry is never
// mutated afterwards and is safe for concurrent reads.
func NewRegistry(deps Deps) *Registry {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Confirm == nil {
		deps.Confirm = func(string, string, safety.Assessment) bool { return true }
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}

	all := []Tool{
		&shellTool{deps: deps},
		&searchFileTool{},
		&createFileTool{},
		&modifyFileTool{deps: deps},
		&appendToFileTool{},
		&editFileLinesTool{},
		&listDirectoryTool{},
		&findFilesTool{},
		&getFileInfoTool{},
		&createDirectoryTool{},
		&createProjectStructureTool{},
		&copyFileTool{},
		&moveFileTool{deps: deps},
		&deleteFileTool{deps: deps},
		&searchInFilesTool{},
		&getCurrentDirectoryTool{},
		&changeDirectoryTool{},
		&memoryStatisticsTool{deps: deps},
		&fetchWebContentTool{deps: deps},
		&callAPITool{deps: deps},
	}

	m := make(map[string]Tool, len(all))
	for _, t := range all {
		m[t.Name()] = t
	}
	return &Registry{tools: m, logger: deps.Logger.Named("tools")}
}

// Has reports whether name is a registered tool.
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns the tool's description, or empty when unknown.
func (r *Registry) Describe(name string) string {
	if t, ok := r.tools[name]; ok {
		return t.Description()
	}
	return ""
}

// Invoke dispatches to the named tool. Unknown names yield a descriptive
// result string, never a panic or error.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) string {
	t, ok := r.tools[name]
	if !ok {
		return fmt.Sprintf("Unknown tool: %s. Available tools: %v", name, r.Names())
	}
	r.logger.Debug("Invoking tool", zap.String("tool", name))
	return t.Execute(ctx, args)
}

// argString reads a string argument, tolerating absence and non-string
// values (stringified).
func argString(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// argStringDefault reads a string argument with a fallback.
func argStringDefault(args map[string]any, key, def string) string {
	if s := argString(args, key); s != "" {
		return s
	}
	return def
}

// argInt reads an integer argument; JSON numbers arrive as float64.
func argInt(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	default:
		return 0, false
	}
}
