// Package featureflags evaluates process switches and per-user rollouts
// configured as FEATURE_FLAGS="uploads=on,realtime=25%".
package featureflags

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// rule is one parsed flag. percent is the share of users the flag is on
// for; a negative percent marks a value that could not be parsed.
type rule struct {
	value   string
	percent int
}

func parseRule(value string) rule {
	r := rule{value: value, percent: -1}
	switch value {
	case "on", "true", "1":
		r.percent = 100
	case "off", "false", "0":
		r.percent = 0
	default:
		if n, ok := strings.CutSuffix(value, "%"); ok {
			if pct, err := strconv.Atoi(n); err == nil {
				r.percent = min(max(pct, 0), 100)
			}
		}
	}
	return r
}

// enabledFor places userID in one of 100 stable buckets per flag.
func (r rule) enabledFor(key, userID string) bool {
	switch {
	case r.percent <= 0:
		return false
	case r.percent >= 100:
		return true
	case userID == "":
		return false
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	_, _ = h.Write([]byte{':'})
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32()%100) < r.percent
}

// Manager holds the flags parsed at startup. A nil Manager reports every flag off.
type Manager struct {
	rules map[string]rule
}

// NewManager parses a comma-separated list of name=value pairs. Keys and
// values are case-insensitive; malformed pairs are skipped.
func NewManager(raw string) *Manager {
	m := &Manager{rules: make(map[string]rule)}
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = canonical(key), canonical(value)
		if key == "" || value == "" {
			continue
		}
		m.rules[key] = parseRule(value)
	}
	return m
}

// Enabled reports whether name is on for userID. Percentage rollouts need
// a user id and always give the same answer for the same user.
func (m *Manager) Enabled(name, userID string) bool {
	if m == nil {
		return false
	}
	key := canonical(name)
	r, ok := m.rules[key]
	return ok && r.enabledFor(key, userID)
}

// On reports whether name is on for everyone.
func (m *Manager) On(name string) bool {
	if m == nil {
		return false
	}
	return m.rules[canonical(name)].percent >= 100
}

// Raw returns the configured values keyed by flag name.
func (m *Manager) Raw() map[string]string {
	if m == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(m.rules))
	for key, r := range m.rules {
		out[key] = r.value
	}
	return out
}

// Snapshot evaluates every configured flag for userID.
func (m *Manager) Snapshot(userID string) map[string]bool {
	if m == nil {
		return map[string]bool{}
	}
	out := make(map[string]bool, len(m.rules))
	for key, r := range m.rules {
		out[key] = r.enabledFor(key, userID)
	}
	return out
}

func canonical(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
