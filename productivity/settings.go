package productivity

import (
	"context"
	"fmt"
	"strings"
)

// SettingExclusionPrefixes is the settings key holding the comma-separated
// exclusion prefixes.
const SettingExclusionPrefixes = "exclusion_prefixes"

// DefaultExclusionPrefixes skip placeholder and temporary codes.
var DefaultExclusionPrefixes = []string{"TB", "IF", "HB"}

// ParsePrefixes splits a comma-separated list: entries are trimmed and
// upper-cased, blanks dropped, duplicates removed keeping first order.
func ParsePrefixes(s string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		p := strings.ToUpper(strings.TrimSpace(part))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// FormatPrefixes is the inverse of ParsePrefixes.
func FormatPrefixes(prefixes []string) string {
	return strings.Join(prefixes, ",")
}

// LoadExclusionPrefixes reads the stored prefixes, or fallback when the
// setting was never written. A stored empty value means "exclude nothing".
func LoadExclusionPrefixes(ctx context.Context, s SettingsStore, fallback []string) ([]string, error) {
	v, ok, err := s.GetSetting(ctx, SettingExclusionPrefixes)
	if err != nil {
		return nil, fmt.Errorf("load exclusion prefixes: %w", err)
	}
	if !ok {
		return append([]string(nil), fallback...), nil
	}
	return ParsePrefixes(v), nil
}

// SaveExclusionPrefixes normalizes input and stores it. It returns the
// prefixes as stored.
func SaveExclusionPrefixes(ctx context.Context, s SettingsStore, input string) ([]string, error) {
	prefixes := ParsePrefixes(input)
	if err := s.PutSetting(ctx, SettingExclusionPrefixes, FormatPrefixes(prefixes)); err != nil {
		return nil, fmt.Errorf("save exclusion prefixes: %w", err)
	}
	return prefixes, nil
}
