// Package safety assesses the risk of shell commands and file operations
// before the agent executes them, takes backups ahead of mutations, and keeps
// a capped audit log of approvals. Consent prompting is the caller's job; this
// package only scores and records.
package safety

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/drover/internal/config"
)

// Risk levels in ascending severity.
const (
	RiskSafe     = "SAFE"
	RiskLow      = "LOW"
	RiskMedium   = "MEDIUM"
	RiskHigh     = "HIGH"
	RiskCritical = "CRITICAL"
)

// Assessment is the outcome of scoring one operation.
type Assessment struct {
	Level    string
	Score    float64
	Warnings []string
}

// RequiresConfirmation reports whether the operation should be put to the
// operator before execution.
func (a Assessment) RequiresConfirmation() bool {
	return a.Level != RiskSafe
}

// Destructive reports whether the operation warrants a backup first.
func (a Assessment) Destructive() bool {
	return a.Level == RiskMedium || a.Level == RiskHigh || a.Level == RiskCritical
}

type patternCategory struct {
	name     string
	patterns []*regexp.Regexp
}

// Manager holds the compiled denylist and the audit log writer. Construct
// once with New and share; all methods are safe for concurrent use.
type Manager struct {
	dangerous     []patternCategory
	sensitiveFile []*regexp.Regexp
	protectedDirs []string
	logger        *zap.Logger
	cfg           config.SafetyConfig

	auditMu sync.Mutex
}

// AuditEntry is one row in the flat JSON audit log.
type AuditEntry struct {
	Timestamp string `json:"timestamp"`
	Operation string `json:"operation"`
	Details   string `json:"details"`
	RiskLevel string `json:"risk_level"`
	Approved  bool   `json:"approved"`
	User      string `json:"user"`
}

func mustCompileAll(exprs []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile("(?i)"+e))
	}
	return out
}

// New builds a Manager with the built-in denylist.
func New(cfg config.SafetyConfig, logger *zap.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		logger: logger.Named("safety"),
		dangerous: []patternCategory{
			{name: "destructive", patterns: mustCompileAll([]string{
				`\brm\s+.*-r.*/`,
				`\brm\s+.*-rf.*`,
				`\brmdir\s+`,
				`\bdel\s+.*\*`,
				`\bformat\s+`,
				`\bfdisk\s+`,
				`>\s*/dev/`,
				`\bdd\s+.*of=`,
			})},
			{name: "system_modification", patterns: mustCompileAll([]string{
				`\bchmod\s+.*777`,
				`\bchown\s+.*root`,
				`\bsudo\s+`,
				`\bsu\s+`,
				`passwd\s+`,
				`/etc/`,
				`/boot/`,
				`/sys/`,
			})},
			{name: "network_security", patterns: mustCompileAll([]string{
				`\bcurl\s+.*\|\s*sh`,
				`\bwget\s+.*\|\s*sh`,
				`\bnc\s+.*-e`,
				`\btelnet\s+`,
				`\bftp\s+`,
				`ssh\s+.*@`,
			})},
			{name: "data_exfiltration", patterns: mustCompileAll([]string{
				`\btar\s+.*\|\s*ssh`,
				`\bzip\s+.*\|\s*curl`,
				`\bcp\s+.*/tmp`,
				`\bmv\s+.*/tmp`,
			})},
		},
		sensitiveFile: mustCompileAll([]string{
			`\.ssh/`,
			`\.aws/`,
			`\.config/`,
			`passwords?\.txt`,
			`secrets?\.txt`,
			`\.env`,
			`\.key$`,
			`\.pem$`,
			`\.p12$`,
			`\.pfx$`,
		}),
		protectedDirs: []string{
			"/bin", "/boot", "/dev", "/etc", "/lib", "/lib64",
			"/proc", "/root", "/sbin", "/sys", "/usr", "/var",
		},
	}
}

func levelFor(score float64) string {
	switch {
	case score >= 0.8:
		return RiskCritical
	case score >= 0.5:
		return RiskHigh
	case score >= 0.3:
		return RiskMedium
	case score > 0:
		return RiskLow
	default:
		return RiskSafe
	}
}

// AssessCommand scores a shell command against the denylist, sensitive-file
// patterns, and protected directories.
func (m *Manager) AssessCommand(command string) Assessment {
	var a Assessment

	for _, cat := range m.dangerous {
		for _, p := range cat.patterns {
			if p.MatchString(command) {
				a.Score += 0.3
				a.Warnings = append(a.Warnings, fmt.Sprintf("detected %s pattern: %s", cat.name, p.String()))
			}
		}
	}
	for _, p := range m.sensitiveFile {
		if p.MatchString(command) {
			a.Score += 0.2
			a.Warnings = append(a.Warnings, fmt.Sprintf("command involves sensitive files: %s", p.String()))
		}
	}
	for _, dir := range m.protectedDirs {
		if strings.Contains(command, dir) {
			a.Score += 0.4
			a.Warnings = append(a.Warnings, fmt.Sprintf("command affects protected directory: %s", dir))
		}
	}

	a.Level = levelFor(a.Score)
	return a
}

// AssessFileOperation scores a named file operation (delete, move, modify,
// overwrite are treated as destructive) against a target path.
func (m *Manager) AssessFileOperation(operation, path string) Assessment {
	var a Assessment

	switch strings.ToLower(operation) {
	case "delete", "move", "modify", "overwrite":
		a.Score += 0.3
	}

	for _, p := range m.sensitiveFile {
		if p.MatchString(path) {
			a.Score += 0.4
			a.Warnings = append(a.Warnings, fmt.Sprintf("sensitive file detected: %s", p.String()))
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	for _, dir := range m.protectedDirs {
		if abs == dir || strings.HasPrefix(abs, dir+string(os.PathSeparator)) {
			a.Score += 0.5
			a.Warnings = append(a.Warnings, fmt.Sprintf("file in protected directory: %s", dir))
		}
	}

	for _, ext := range []string{".exe", ".dll", ".sys", ".so", ".dylib"} {
		if strings.HasSuffix(strings.ToLower(path), ext) {
			a.Score += 0.3
			a.Warnings = append(a.Warnings, "system executable file detected")
			break
		}
	}

	a.Level = levelFor(a.Score)
	return a
}

// SanitizeCommand collapses whitespace and strips shell metacharacters that
// enable chaining or substitution.
func (m *Manager) SanitizeCommand(command string) string {
	command = regexp.MustCompile(`\s+`).ReplaceAllString(strings.TrimSpace(command), " ")
	for _, c := range []string{"$(", "`", "|", "&", ";", ">", "<"} {
		if strings.Contains(command, c) {
			m.logger.Warn("Removing shell metacharacter from command", zap.String("char", c))
			command = strings.ReplaceAll(command, c, "")
		}
	}
	return command
}

// BackupsEnabled reports whether risky mutations should snapshot the target
// first.
func (m *Manager) BackupsEnabled() bool {
	return m.cfg.BackupOnRisky
}

// CreateBackup copies the file to a timestamped sibling before mutation.
// Missing files are not an error.
func (m *Manager) CreateBackup(path string) (string, error) {
	src, err := os.Open(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("open %s for backup: %w", path, err)
	}
	defer src.Close()

	backupPath := fmt.Sprintf("%s.backup_%s", path, time.Now().Format("20060102_150405"))
	dst, err := os.Create(backupPath)
	if err != nil {
		return "", fmt.Errorf("create backup %s: %w", backupPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("copy to backup %s: %w", backupPath, err)
	}
	m.logger.Debug("Backup created", zap.String("path", backupPath))
	return backupPath, nil
}

// LogOperation appends an approval decision to the audit log, trimming it to
// the configured cap. Audit failures are logged, never propagated.
func (m *Manager) LogOperation(operation, details, riskLevel string, approved bool) {
	m.auditMu.Lock()
	defer m.auditMu.Unlock()

	entry := AuditEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Operation: operation,
		Details:   details,
		RiskLevel: riskLevel,
		Approved:  approved,
		User:      userName(),
	}

	var entries []AuditEntry
	if data, err := os.ReadFile(m.cfg.AuditLogPath); err == nil {
		if err := json.Unmarshal(data, &entries); err != nil {
			m.logger.Warn("Audit log unreadable, starting fresh", zap.Error(err))
			entries = nil
		}
	}
	entries = append(entries, entry)

	limit := m.cfg.AuditLogCap
	if limit <= 0 {
		limit = 1000
	}
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		m.logger.Warn("Could not encode audit log", zap.Error(err))
		return
	}
	if err := os.WriteFile(m.cfg.AuditLogPath, data, 0o644); err != nil {
		m.logger.Warn("Could not write audit log", zap.Error(err))
	}
}

// AuditEntries reads back the audit log for inspection.
func (m *Manager) AuditEntries() ([]AuditEntry, error) {
	m.auditMu.Lock()
	defer m.auditMu.Unlock()

	data, err := os.ReadFile(m.cfg.AuditLogPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	var entries []AuditEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode audit log: %w", err)
	}
	return entries, nil
}

func userName() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}
