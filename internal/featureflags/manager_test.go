package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabled_BooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0", nil)

	for _, name := range []string{"a", "c", "e"} {
		assert.True(t, m.Enabled(name, 1), name)
	}
	for _, name := range []string{"b", "d", "f", "missing"} {
		assert.False(t, m.Enabled(name, 1), name)
	}
}

func TestEnabled_PercentageValues(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%,junk=abc%", nil)

	assert.True(t, m.Enabled("always", 1))
	assert.True(t, m.On("always"))
	assert.False(t, m.Enabled("never", 1))
	assert.False(t, m.Enabled("junk", 1))

	first := m.Enabled("canary", 42)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Enabled("canary", 42), "rollout is deterministic per user")
	}
	assert.False(t, m.On("canary"), "partial rollouts are off for anonymous callers")
}

func TestNewManager_DefaultsAndOverrides(t *testing.T) {
	m := NewManager(" bad ,Setup_Endpoint = ON, =x,y= ", Defaults("production"))

	assert.True(t, m.On(GoogleLogin))
	assert.True(t, m.On(SetupEndpoint), "FEATURE_FLAGS overrides the environment default")
	assert.False(t, m.On(AdminSignup))
	assert.Equal(t, []string{AdminSignup, GoogleLogin, SetupEndpoint}, m.Names())

	snap := m.Snapshot(7)
	assert.Len(t, snap, 3)
	assert.True(t, snap[SetupEndpoint])
}

func TestDefaults(t *testing.T) {
	assert.Equal(t, "off", Defaults("PRODUCTION")[SetupEndpoint])
	assert.Equal(t, "on", Defaults("development")[SetupEndpoint])
}

func TestNilManager(t *testing.T) {
	var m *Manager
	assert.False(t, m.On(GoogleLogin))
}
