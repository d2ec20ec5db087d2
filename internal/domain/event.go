package domain

import (
	"errors"
	"fmt"
	"strings"
)

type TriggerKind string

const (
	TriggerPush        TriggerKind = "push"
	TriggerPullRequest TriggerKind = "pull_request"
)

func ParseTriggerKind(s string) (TriggerKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "push":
		return TriggerPush, nil
	case "pull_request":
		return TriggerPullRequest, nil
	default:
		return "", fmt.Errorf("unknown trigger kind: %q", s)
	}
}

// TriggerEvent carries the logical fields of one source-control event. Branch
// is set only for push events, PRNumber only for pull-request events.
type TriggerEvent struct {
	Kind       TriggerKind
	Revision   string
	Branch     string
	PRNumber   int
	OriginRepo string
	OptIn      bool
}

func (e TriggerEvent) Validate() error {
	if strings.TrimSpace(e.Revision) == "" {
		return errors.New("revision is required")
	}
	if strings.TrimSpace(e.OriginRepo) == "" {
		return errors.New("origin repo is required")
	}
	switch e.Kind {
	case TriggerPush:
		if strings.TrimSpace(e.Branch) == "" {
			return errors.New("branch is required for push events")
		}
		if e.PRNumber != 0 {
			return errors.New("pr number must not be set for push events")
		}
	case TriggerPullRequest:
		if e.PRNumber <= 0 {
			return errors.New("pr number is required for pull-request events")
		}
		if strings.TrimSpace(e.Branch) != "" {
			return errors.New("branch must not be set for pull-request events")
		}
	default:
		return fmt.Errorf("unknown trigger kind: %q", e.Kind)
	}
	return nil
}
