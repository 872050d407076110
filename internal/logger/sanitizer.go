package logger

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// masked replaces every archive password in log output
const masked = "***"

// sensitiveKeys are attribute key fragments whose values are masked
var sensitiveKeys = []string{"password", "passwd", "pwd", "secret"}

// Sanitizer strips archive passwords and user names from log lines.
// Attribute values are masked by key; free text is masked by pattern,
// so a password under an unrelated key is caught only when it appears
// as a password setting or as the -p / --password flag.
type Sanitizer struct {
	mu       sync.RWMutex
	patterns []SanitizeRule
}

// SanitizeRule 單一過濾規則
type SanitizeRule struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// NewSanitizer 建立預設 sanitizer
func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		patterns: defaultSanitizeRules(),
	}
}

func defaultSanitizeRules() []SanitizeRule {
	return []SanitizeRule{
		// 壓縮檔密碼（設定值與命令列旗標）
		{regexp.MustCompile(`(?i)(password|passwd|pwd)=\S+`), "$1=" + masked},
		{regexp.MustCompile(`(?i)--password[= ]\S+`), "--password=" + masked},
		{regexp.MustCompile(`(^|\s)-p[= ]\S+`), "$1-p=" + masked},

		// 使用者目錄
		{regexp.MustCompile(`(?i)[A-Z]:\\Users\\[^\\]+`), `***:\Users\***`},
		{regexp.MustCompile(`(?i)\\\\[^\\]+\\[^\\]+\\Users\\[^\\]+`), `\\***\***\Users\***`},
		{regexp.MustCompile(`/home/[^/]+`), "/home/***"},
		{regexp.MustCompile(`/Users/[^/]+`), "/Users/***"},
	}
}

// Sanitize applies every rule to input
func (s *Sanitizer) Sanitize(input string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rule := range s.patterns {
		input = rule.Pattern.ReplaceAllString(input, rule.Replacement)
	}
	return input
}

// SanitizeArgs returns a copy of slog-style key/value args with the
// values of sensitive keys masked. Non-string values are kept.
func (s *Sanitizer) SanitizeArgs(args []any) []any {
	if len(args) == 0 {
		return args
	}

	result := make([]any, len(args))
	copy(result, args)

	for i := 0; i+1 < len(result); i += 2 {
		key, ok := result[i].(string)
		if !ok || !isSensitiveKey(key) {
			continue
		}
		switch result[i+1].(type) {
		case string, error:
			result[i+1] = masked
		}
	}
	return result
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, sk := range sensitiveKeys {
		if strings.Contains(key, sk) {
			return true
		}
	}
	return false
}

// AddRule 新增自訂過濾規則
func (s *Sanitizer) AddRule(pattern string, replacement string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns = append(s.patterns, SanitizeRule{
		Pattern:     re,
		Replacement: replacement,
	})
	return nil
}
