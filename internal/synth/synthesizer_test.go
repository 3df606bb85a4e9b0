package synth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/spaceai-assistant/internal/domain"
	"github.com/xela07ax/spaceai-assistant/internal/policy"
)

type fakeValidator struct {
	err   error
	calls []string
}

func (f *fakeValidator) Validate(name string, _ domain.Arguments) error {
	f.calls = append(f.calls, name)
	return f.err
}

func TestSynthesize_Calendar(t *testing.T) {
	s := New(nil)
	tests := []struct {
		message string
		action  string
	}{
		{"schedule a meeting tomorrow", "create"},
		{"Book the room", "create"},
		{"reschedule my appointment", "create"}, // "reschedule" содержит "schedule"
		{"move the calendar entry", "update"},
		{"cancel the meeting", "delete"},
		{"what is on my calendar", "list"},
	}
	for _, tt := range tests {
		args, err := s.Synthesize("calendar_crud", tt.message)
		require.NoError(t, err)
		assert.Equal(t, domain.Arguments{"action": tt.action, "request": tt.message, "approved": false}, args, tt.message)
	}
}

func TestSynthesize_Email(t *testing.T) {
	s := New(nil)
	cases := map[string]string{
		"draft an email to bob": "compose",
		"send the email":        "send",
		"check my inbox":        "search",
	}
	for msg, action := range cases {
		args, err := s.Synthesize("email_message", msg)
		require.NoError(t, err)
		assert.Equal(t, action, args["action"], msg)
		assert.Equal(t, false, args["approved"])
	}
}

func TestSynthesize_SmartHome(t *testing.T) {
	s := New(nil)
	cases := map[string]any{
		"turn on the lights":      "turn_on",
		"Turn off the lights":     "turn_off",
		"set thermostat to 20":    "set_temperature",
		"what do the lights show": nil,
	}
	for msg, service := range cases {
		args, err := s.Synthesize("smart_home_control", msg)
		require.NoError(t, err)
		assert.Equal(t, service, args["service"], msg)
		assert.Equal(t, msg, args["request"])
	}
}

func TestSynthesize_ApprovedOnlyOnSensitive(t *testing.T) {
	s := New(nil)
	gate := policy.NewGate()
	for name := range rules {
		args, err := s.Synthesize(name, "some message")
		require.NoError(t, err)

		approved, has := args["approved"]
		if gate.IsSensitive(name) {
			assert.True(t, has, name)
			assert.Equal(t, false, approved, name)
		} else {
			assert.False(t, has, name)
		}
	}
}

func TestSynthesize_MemoryRules(t *testing.T) {
	s := New(nil)

	args, err := s.Synthesize("remember", "remember to buy milk")
	require.NoError(t, err)
	assert.Equal(t, domain.Arguments{"content": "remember to buy milk"}, args)

	args, err = s.Synthesize("recall", "search milk")
	require.NoError(t, err)
	assert.Equal(t, domain.Arguments{"query": "search milk"}, args)

	args, err = s.Synthesize("create_task", "remind me")
	require.NoError(t, err)
	assert.Equal(t, domain.Arguments{"title": "remind me"}, args)

	args, err = s.Synthesize("system_command", "run command ls")
	require.NoError(t, err)
	assert.Equal(t, "", args["command"])
}

func TestSynthesize_UnknownCapability(t *testing.T) {
	_, err := New(nil).Synthesize("forget_memory", "x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, HasRule("forget_memory"))
}

func TestSynthesize_Validates(t *testing.T) {
	v := &fakeValidator{}
	_, err := New(v).Synthesize("remember", "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"remember"}, v.calls)

	v.err = errors.New("bad")
	_, err = New(v).Synthesize("remember", "x")
	assert.Error(t, err)
}
