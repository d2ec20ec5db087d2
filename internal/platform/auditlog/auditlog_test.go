package auditlog

import (
	"testing"
	"time"
)

func TestEventValidate(t *testing.T) {
	valid := Event{
		OccurredAt:   time.Now().UTC(),
		Actor:        "releaser",
		Action:       "publish.complete",
		ResourceType: "pipeline_run",
		ResourceID:   "run-1",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() err=%v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Event)
	}{
		{"missing occurred at", func(e *Event) { e.OccurredAt = time.Time{} }},
		{"missing actor", func(e *Event) { e.Actor = " " }},
		{"missing action", func(e *Event) { e.Action = "" }},
		{"missing resource type", func(e *Event) { e.ResourceType = "" }},
	}
	for _, tc := range tests {
		event := valid
		tc.mutate(&event)
		if err := event.Validate(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}
