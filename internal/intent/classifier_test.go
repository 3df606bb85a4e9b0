package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		message string
		want    Tag
	}{
		{"remember to buy milk", Remember},
		{"Please SAVE this", Remember},
		{"summarize our chat", StoreSummary},
		{"remind me at 5pm", CreateTask},
		{"add a todo", CreateTask},
		{"search for the wifi password", Recall},
		{"schedule a meeting tomorrow", Calendar},
		{"check my inbox", Email},
		{"turn on the lights", SmartHome},
		{"set the thermostat to 21", SmartHome},
		{"execute ls", SystemCommand},
		{"open a terminal", SystemCommand},
		{"how are you?", General},
		{"", General},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.message))
		})
	}
}

func TestClassify_PriorityOrder(t *testing.T) {
	// remember выше calendar и email
	assert.Equal(t, Remember, Classify("remember the meeting email"))
	// task выше calendar
	assert.Equal(t, CreateTask, Classify("remind me about the appointment"))
	// calendar выше email
	assert.Equal(t, Calendar, Classify("email me the calendar"))
}

func TestClassify_RemindAndLights(t *testing.T) {
	for _, msg := range []string{"remind me", "Remind the team", "please REMIND"} {
		assert.Equal(t, CreateTask, Classify(msg), msg)
	}
	for _, msg := range []string{"lights off", "dim the LIGHTS", "kitchen lights"} {
		assert.Equal(t, SmartHome, Classify(msg), msg)
	}
}

func TestCapabilityFor(t *testing.T) {
	name, ok := CapabilityFor(Calendar)
	assert.True(t, ok)
	assert.Equal(t, "calendar_crud", name)

	_, ok = CapabilityFor(General)
	assert.False(t, ok)
}
