// Package featureflags evaluates the FEATURE_FLAGS setting.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// Flags read by the application.
const (
	// GoogleLogin enables the /google routes.
	GoogleLogin = "google_login"
	// SetupEndpoint exposes GET /setup, which provisions the system account.
	SetupEndpoint = "setup_endpoint"
	// AdminSignup lets registration with type "admin" grant the admin role.
	// When off, every self-registered account gets the user role.
	AdminSignup = "admin_signup"
)

// Manager evaluates flags from a "name=value,name=value" list, e.g.
// "google_login=on,admin_signup=off,setup_endpoint=25%".
type Manager struct {
	flags map[string]string
}

// NewManager parses raw on top of defaults. Entries in raw win.
// Malformed pairs are ignored.
func NewManager(raw string, defaults map[string]string) *Manager {
	out := make(map[string]string, len(defaults))
	for k, v := range defaults {
		if k, v = normalize(k), normalize(v); k != "" && v != "" {
			out[k] = v
		}
	}

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return &Manager{flags: out}
}

// Defaults returns the flag values for an environment before FEATURE_FLAGS is applied.
func Defaults(env string) map[string]string {
	if strings.EqualFold(env, "production") {
		return map[string]string{GoogleLogin: "on", SetupEndpoint: "off", AdminSignup: "off"}
	}
	return map[string]string{GoogleLogin: "on", SetupEndpoint: "on", AdminSignup: "on"}
}

// On reports whether name is switched on for everyone. Percentage rollouts are not.
func (m *Manager) On(name string) bool {
	return m.Enabled(name, 0)
}

// Enabled returns whether a flag is enabled for a given user.
// Values are on/true/1, off/false/0, or N% for a deterministic per-user
// rollout. A percentage below 100 is off for userID 0.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	value, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pctRaw, isPct := strings.CutSuffix(value, "%")
	if !isPct {
		return false
	}
	pct, err := strconv.Atoi(pctRaw)
	switch {
	case err != nil || pct <= 0:
		return false
	case pct >= 100:
		return true
	case userID == 0:
		return false
	}
	return rolloutBucket(name, userID) < pct
}

// Snapshot returns the evaluated flags for one user, keyed by name.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

// Names lists the configured flags in sorted order.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.flags))
	for name := range m.flags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", normalize(name), userID)
	return int(h.Sum32() % 100)
}
