package domain

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

type AddressKind string

const (
	AddressRevision AddressKind = "rev"
	AddressBranch   AddressKind = "branch"
	AddressPR       AddressKind = "pr"
)

// Address is one publication prefix in the content store. Revision addresses
// are immutable; branch and PR addresses are overwrite-latest pointers.
type Address struct {
	Kind  AddressKind
	Value string
}

func (a Address) Prefix() string {
	return string(a.Kind) + "/" + a.Value
}

func (a Address) Key(target Target) string {
	return a.Prefix() + "/" + target.Name()
}

func (a Address) Mutable() bool {
	return a.Kind != AddressRevision
}

// AddressSet holds the addresses one run publishes under: the revision
// address plus exactly one pointer address.
type AddressSet struct {
	Revision Address
	Pointer  Address
}

func (s AddressSet) All() []Address {
	return []Address{s.Revision, s.Pointer}
}

// DeriveAddresses maps a run's trigger onto its publication addresses.
func DeriveAddresses(run PipelineRun) (AddressSet, error) {
	if err := run.Event.Validate(); err != nil {
		return AddressSet{}, err
	}

	set := AddressSet{
		Revision: Address{Kind: AddressRevision, Value: run.Event.Revision},
	}
	switch run.Event.Kind {
	case TriggerPush:
		set.Pointer = Address{Kind: AddressBranch, Value: run.Event.Branch}
	case TriggerPullRequest:
		set.Pointer = Address{Kind: AddressPR, Value: strconv.Itoa(run.Event.PRNumber)}
	default:
		return AddressSet{}, fmt.Errorf("unknown trigger kind: %q", run.Event.Kind)
	}
	return set, nil
}

// Receipt records what the publisher wrote, for rendering and auditing.
type Receipt struct {
	RunID      string
	Revision   string
	Set        AddressSet
	Keys       []string
	UploadedAt time.Time
}

func (r Receipt) Validate() error {
	if r.RunID == "" {
		return errors.New("run id is required")
	}
	if r.Revision == "" {
		return errors.New("revision is required")
	}
	if len(r.Keys) == 0 {
		return errors.New("at least one key is required")
	}
	return nil
}
