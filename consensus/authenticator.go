package consensus

import (
	"sync"

	"github.com/robolibs/blockit-sub001/blockiterr"
)

// StateSuspended is the conventional state value ValidateAndRecordAction
// treats as unauthorized. Any other state string is accepted and carries
// no special meaning to the Authenticator itself.
const StateSuspended = "suspended"

// Participant is a fleet member known to the Authenticator, independent
// of whether it also acts as a consensus Validator. State is a free-form
// descriptive string ("idle", "ready", "maintenance", "suspended", ...),
// not a fixed enum.
type Participant struct {
	ID           string
	State        string
	Metadata     map[string]string
	Capabilities map[string]struct{}
}

// Authenticator tracks registered participants and the set of
// transaction UUIDs it has already authorized, kept separate from any
// Chain's own duplicate-transaction bookkeeping.
type Authenticator struct {
	mu           sync.RWMutex
	participants map[string]*Participant
	usedTxUUIDs  map[string]struct{}
}

// NewAuthenticator creates an empty Authenticator.
func NewAuthenticator() *Authenticator {
	return &Authenticator{
		participants: make(map[string]*Participant),
		usedTxUUIDs:  make(map[string]struct{}),
	}
}

// RegisterParticipant adds or replaces a participant record in the
// "active" state.
func (a *Authenticator) RegisterParticipant(id string, capabilities []string, metadata map[string]string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	caps := make(map[string]struct{}, len(capabilities))
	for _, c := range capabilities {
		caps[c] = struct{}{}
	}
	if metadata == nil {
		metadata = make(map[string]string)
	}
	a.participants[id] = &Participant{
		ID:           id,
		State:        "active",
		Metadata:     metadata,
		Capabilities: caps,
	}
}

// IsParticipantAuthorized reports whether id is a registered participant.
func (a *Authenticator) IsParticipantAuthorized(id string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.participants[id]
	return ok
}

// GetState returns a participant's current state string.
func (a *Authenticator) GetState(id string) (string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	p, ok := a.participants[id]
	if !ok {
		return "", blockiterr.Unauthorized("participant " + id + " is not registered")
	}
	return p.State, nil
}

// UpdateState sets a registered participant's state to an arbitrary
// value. Fails if the participant is not registered.
func (a *Authenticator) UpdateState(id, state string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.participants[id]
	if !ok {
		return blockiterr.Unauthorized("participant " + id + " is not registered")
	}
	p.State = state
	return nil
}

// Suspend is a convenience wrapper over UpdateState(id, StateSuspended).
// It is a no-op if the participant is not registered.
func (a *Authenticator) Suspend(id string) {
	_ = a.UpdateState(id, StateSuspended)
}

// SetMetadata attaches a key/value pair to a registered participant.
// Fails if the participant is not registered.
func (a *Authenticator) SetMetadata(id, key, value string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.participants[id]
	if !ok {
		return blockiterr.Unauthorized("participant " + id + " is not registered")
	}
	if p.Metadata == nil {
		p.Metadata = make(map[string]string)
	}
	p.Metadata[key] = value
	return nil
}

// GetMetadata reads a previously set metadata value. Fails if the
// participant is not registered or the key was never set.
func (a *Authenticator) GetMetadata(id, key string) (string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	p, ok := a.participants[id]
	if !ok {
		return "", blockiterr.Unauthorized("participant " + id + " is not registered")
	}
	v, ok := p.Metadata[key]
	if !ok {
		return "", blockiterr.InvalidTransaction("participant " + id + " has no metadata key " + key)
	}
	return v, nil
}

// GrantCapability adds capability to a registered participant's
// capability set. Fails if the participant is not registered.
func (a *Authenticator) GrantCapability(id, capability string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.participants[id]
	if !ok {
		return blockiterr.Unauthorized("participant " + id + " is not registered")
	}
	if p.Capabilities == nil {
		p.Capabilities = make(map[string]struct{})
	}
	p.Capabilities[capability] = struct{}{}
	return nil
}

// HasCapability reports whether a registered participant holds the
// named capability.
func (a *Authenticator) HasCapability(id, capability string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	p, ok := a.participants[id]
	if !ok {
		return false
	}
	_, ok = p.Capabilities[capability]
	return ok
}

// IsTransactionUsed reports whether txUUID has already been recorded by
// the authenticator, either directly or via ValidateAndRecordAction.
func (a *Authenticator) IsTransactionUsed(txUUID string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.usedTxUUIDs[txUUID]
	return ok
}

// MarkTransactionUsed records txUUID as used. Fails if it was already
// recorded.
func (a *Authenticator) MarkTransactionUsed(txUUID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, used := a.usedTxUUIDs[txUUID]; used {
		return blockiterr.DuplicateTx("transaction " + txUUID + " already recorded by authenticator")
	}
	a.usedTxUUIDs[txUUID] = struct{}{}
	return nil
}

// ValidateAndRecordAction authorizes participantID to perform the action
// described by desc and tagged txUUID, requiring requiredCapability
// (pass "" to skip the capability check). desc is carried for logging
// and audit purposes only; it is never structurally validated. On
// success, txUUID is recorded as used and will be rejected on any
// future call.
func (a *Authenticator) ValidateAndRecordAction(participantID, desc, txUUID, requiredCapability string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.participants[participantID]
	if !ok || p.State == StateSuspended {
		return blockiterr.Unauthorized("participant " + participantID + " is not authorized for action " + desc)
	}
	if requiredCapability != "" {
		if _, ok := p.Capabilities[requiredCapability]; !ok {
			return blockiterr.CapabilityMissing("participant " + participantID + " lacks capability " + requiredCapability)
		}
	}
	if _, used := a.usedTxUUIDs[txUUID]; used {
		return blockiterr.DuplicateTx("transaction " + txUUID + " already recorded by authenticator")
	}
	a.usedTxUUIDs[txUUID] = struct{}{}
	return nil
}
