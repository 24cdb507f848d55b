package services_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/services"
)

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name string
		body string
		want services.Event
	}{
		{"no payload", `{"type":"initialize_tracker"}`, services.InitializeTracker{}},
		{"date payload", `{"type":"change_focused_day","date":"2026-10-15"}`, services.ChangeFocusedDay{Date: date("2026-10-15")}},
		{"id payload", `{"type":"toggle_habit_performed","id":3}`, services.ToggleHabitPerformed{ID: 3}},
		{"insert after", `{"type":"insert_task_after","id":7}`, services.InsertTaskAfter{OtherTaskID: 7}},
		{"rename", `{"type":"update_task_name","id":2,"name":"Buy milk"}`, services.UpdateTaskName{ID: 2, Name: "Buy milk"}},
		{"priority", `{"type":"update_task_priority","id":2,"priority":"HIGH"}`, services.UpdateTaskPriority{ID: 2, Priority: domain.TaskPriorityHigh}},
		{"clear deadline", `{"type":"update_task_deadline","id":2,"deadline":null}`, services.UpdateTaskDeadline{ID: 2}},
		{"clear mood", `{"type":"set_mood"}`, services.SetMood{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := services.DecodeEvent([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeEvent_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"unknown type", `{"type":"launch_rockets"}`, domain.ErrUnknownEvent},
		{"missing type", `{"id":1}`, domain.ErrUnknownEvent},
		{"malformed json", `{"type":`, domain.ErrInvalidEvent},
		{"missing id", `{"type":"delete_task"}`, domain.ErrInvalidEvent},
		{"bad date", `{"type":"change_focused_day","date":"16/10/2026"}`, domain.ErrInvalidEvent},
		{"missing date", `{"type":"change_focused_day"}`, domain.ErrInvalidEvent},
		{"bad priority", `{"type":"update_task_priority","id":1,"priority":"URGENT"}`, domain.ErrInvalidEvent},
		{"mood out of range", `{"type":"set_mood","mood":6}`, domain.ErrInvalidEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := services.DecodeEvent([]byte(tt.body))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEncodeEvent_AddsType(t *testing.T) {
	mood := domain.MoodAmazing
	data, err := services.EncodeEvent(services.SetMood{Mood: &mood})
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, services.EventSetMood, body["type"])
	assert.EqualValues(t, 5, body["mood"])

	decoded, err := services.DecodeEvent(data)
	require.NoError(t, err)
	require.IsType(t, services.SetMood{}, decoded)
	assert.Equal(t, domain.MoodAmazing, *decoded.(services.SetMood).Mood)
}
