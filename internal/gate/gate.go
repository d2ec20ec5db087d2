// Package gate decides whether a pipeline run is authorized to publish.
//
// The decision is a pure function of the run. The opt-in signal on the run
// must already be materialized as "has the signal ever been attached for this
// PR", not just "was it attached to this event" — the webhook listener ORs the
// incoming event's signal with the persisted per-PR flag before a run is
// created, so an event without the label still authorizes once the label has
// been seen.
package gate

import (
	"strings"

	"github.com/shipline-labs/shipline/internal/domain"
)

const (
	ReasonPush       = "push"
	ReasonOptedIn    = "pr_opted_in"
	ReasonForkOrigin = "fork_origin"
	ReasonNoOptIn    = "pr_not_opted_in"
	ReasonBadEvent   = "invalid_event"
)

type Decision struct {
	Authorized bool
	Reason     string
}

type Gate struct {
	canonicalRepo string
}

func New(canonicalRepo string) Gate {
	return Gate{canonicalRepo: strings.TrimSpace(canonicalRepo)}
}

// Authorize evaluates the publication policy. Rejection is a normal outcome,
// not an error: the caller skips the publisher and nothing else.
func (g Gate) Authorize(run domain.PipelineRun) Decision {
	if err := run.Event.Validate(); err != nil {
		return Decision{Authorized: false, Reason: ReasonBadEvent}
	}

	switch run.Event.Kind {
	case domain.TriggerPush:
		return Decision{Authorized: true, Reason: ReasonPush}
	case domain.TriggerPullRequest:
		if !strings.EqualFold(strings.TrimSpace(run.Event.OriginRepo), g.canonicalRepo) {
			return Decision{Authorized: false, Reason: ReasonForkOrigin}
		}
		if !run.Event.OptIn {
			return Decision{Authorized: false, Reason: ReasonNoOptIn}
		}
		return Decision{Authorized: true, Reason: ReasonOptedIn}
	default:
		return Decision{Authorized: false, Reason: ReasonBadEvent}
	}
}
