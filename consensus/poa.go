package consensus

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/robolibs/blockit-sub001/blockiterr"
	"github.com/robolibs/blockit-sub001/identity"
)

const hourMs = int64(3600_000)

// ValidatorView is a read-only, value-type snapshot of a Validator.
// Callers iterating a validator set receive copies, never pointers into
// PoAConsensus's internal map.
type ValidatorView struct {
	ID            string
	ParticipantID string
	Weight        uint32
	Status        Status
	LastSeenMs    int64
	CanSign       bool
}

// BlockSignature is one validator's attestation over a proposal's block
// hash, mirroring ledger.BlockSignature's shape without importing the
// ledger package.
type BlockSignature struct {
	ValidatorID   string
	ParticipantID string
	Signature     []byte
	SignedAt      int64 // unix milliseconds
}

type proposal struct {
	id            string
	blockHash     string
	proposerID    string
	signatures    map[string]BlockSignature
	createdAt     int64
	quorumReached bool
}

// PoAConsensus is the Proof-of-Authority core: a validator set, dynamic
// quorum sizing, proposal/signature aggregation, and per-validator
// proposal rate limiting. All state is guarded by a single RWMutex;
// expired proposals and rate-limit windows are swept lazily, never by a
// background timer.
type PoAConsensus struct {
	mu            sync.RWMutex
	config        PoAConfig
	validators    map[string]*Validator
	proposals     map[string]*proposal
	proposalTimes map[string][]int64 // validator id -> recent proposal unix-ms timestamps
	metrics       *Metrics
}

// NewPoAConsensus creates a PoAConsensus with no validators. Pass a
// non-nil registry to enable metrics; nil disables them (the default
// for tests, which would otherwise collide registering on a shared
// registry).
func NewPoAConsensus(config PoAConfig, registry *prometheus.Registry) *PoAConsensus {
	return &PoAConsensus{
		config:        config,
		validators:    make(map[string]*Validator),
		proposals:     make(map[string]*proposal),
		proposalTimes: make(map[string][]int64),
		metrics:       NewMetrics(registry),
	}
}

// Config returns the current configuration.
func (c *PoAConsensus) Config() PoAConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

// SetConfig replaces the current configuration.
func (c *PoAConsensus) SetConfig(config PoAConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config = config
}

// AddValidator registers a new ACTIVE validator. Fails if a validator
// with the same key id is already registered.
func (c *PoAConsensus) AddValidator(participantID string, key identity.Key, weight uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := NewValidator(participantID, key, weight)
	if _, exists := c.validators[v.ID()]; exists {
		return blockiterr.DuplicateTx("validator " + v.ID() + " is already registered")
	}
	c.validators[v.ID()] = &v
	c.metrics.setActiveValidators(c.activeValidatorCountLocked())
	return nil
}

// RemoveValidator deregisters a validator entirely.
func (c *PoAConsensus) RemoveValidator(validatorID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.validators[validatorID]; !ok {
		return blockiterr.InvalidTransaction("validator " + validatorID + " not found")
	}
	delete(c.validators, validatorID)
	c.metrics.setActiveValidators(c.activeValidatorCountLocked())
	return nil
}

// GetValidator returns a snapshot of the named validator.
func (c *PoAConsensus) GetValidator(validatorID string) (ValidatorView, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.validators[validatorID]
	if !ok {
		return ValidatorView{}, blockiterr.InvalidTransaction("validator " + validatorID + " not found")
	}
	return viewOf(v), nil
}

// GetActiveValidators returns snapshots of every validator that can
// currently sign.
func (c *PoAConsensus) GetActiveValidators() []ValidatorView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []ValidatorView
	for _, v := range c.validators {
		if v.CanSign() {
			out = append(out, viewOf(v))
		}
	}
	return out
}

// GetAllValidators returns snapshots of every registered validator,
// regardless of status. Returned as values, never pointers into the
// internal map.
func (c *PoAConsensus) GetAllValidators() []ValidatorView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ValidatorView, 0, len(c.validators))
	for _, v := range c.validators {
		out = append(out, viewOf(v))
	}
	return out
}

// GetActiveValidatorCount returns the number of validators that can
// currently sign.
func (c *PoAConsensus) GetActiveValidatorCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.activeValidatorCountLocked()
}

func (c *PoAConsensus) activeValidatorCountLocked() int {
	n := 0
	for _, v := range c.validators {
		if v.CanSign() {
			n++
		}
	}
	return n
}

// GetTotalActiveWeight sums the weight of every validator that can
// currently sign.
func (c *PoAConsensus) GetTotalActiveWeight() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var total uint64
	for _, v := range c.validators {
		if v.CanSign() {
			total += uint64(v.Weight())
		}
	}
	return total
}

// MarkOnline transitions a validator OFFLINE -> ACTIVE and refreshes
// its activity timestamp.
func (c *PoAConsensus) MarkOnline(validatorID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.validators[validatorID]
	if !ok {
		return blockiterr.InvalidTransaction("validator " + validatorID + " not found")
	}
	v.MarkOnline()
	c.metrics.setActiveValidators(c.activeValidatorCountLocked())
	return nil
}

// MarkOffline sets a validator's status to OFFLINE without touching its
// last-seen timestamp.
func (c *PoAConsensus) MarkOffline(validatorID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.validators[validatorID]
	if !ok {
		return blockiterr.InvalidTransaction("validator " + validatorID + " not found")
	}
	v.MarkOffline()
	c.metrics.setActiveValidators(c.activeValidatorCountLocked())
	return nil
}

// RequiredSignatures computes the dynamic quorum size:
//   - initial, if at least `initial` validators are active
//   - active count, if between minimum and initial validators are active
//   - minimum, if fewer than `minimum` validators are active
func (c *PoAConsensus) RequiredSignatures() uint32 {
	c.mu.RLock()
	initial := c.config.InitialRequiredSignatures
	minimum := c.config.MinimumRequiredSignatures
	c.mu.RUnlock()

	active := uint32(c.GetActiveValidatorCount())
	switch {
	case active >= initial:
		return initial
	case active >= minimum:
		return active
	default:
		return minimum
	}
}

// HasQuorum reports whether the distinct validator ids in signerIDs meet
// the current required-signature count.
func (c *PoAConsensus) HasQuorum(signerIDs []string) bool {
	seen := make(map[string]struct{}, len(signerIDs))
	for _, id := range signerIDs {
		seen[id] = struct{}{}
	}
	return uint32(len(seen)) >= c.RequiredSignatures()
}

func viewOf(v *Validator) ValidatorView {
	return ValidatorView{
		ID:            v.ID(),
		ParticipantID: v.ParticipantID(),
		Weight:        v.Weight(),
		Status:        v.Status(),
		LastSeenMs:    v.LastSeenMs(),
		CanSign:       v.CanSign(),
	}
}

// --- Proposals -------------------------------------------------------

func proposalID(blockHash string) string {
	return "proposal_" + blockHash
}

// CreateProposal creates (or, if one already exists for blockHash,
// returns the existing) proposal id. Creation is idempotent per block
// hash; proposerID is recorded only at creation time, so a replayed
// call from a different proposer has no effect.
func (c *PoAConsensus) CreateProposal(blockHash, proposerID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := proposalID(blockHash)
	if _, exists := c.proposals[id]; exists {
		return id
	}
	c.proposals[id] = &proposal{
		id:         id,
		blockHash:  blockHash,
		proposerID: proposerID,
		signatures: make(map[string]BlockSignature),
		createdAt:  time.Now().UnixMilli(),
	}
	c.metrics.incProposalsCreated()
	return id
}

// AddSignature records validatorID's signature bytes on a proposal.
// Returns true iff this call causes the proposal to reach quorum for
// the first time. Fails if the proposal does not exist, has expired, or
// validatorID has already signed it.
func (c *PoAConsensus) AddSignature(propID, validatorID string, signature []byte) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.proposals[propID]
	if !ok {
		return false, blockiterr.InvalidTransaction("proposal " + propID + " not found")
	}
	if c.isExpiredLocked(p) {
		delete(c.proposals, propID)
		return false, blockiterr.InvalidTransaction("proposal " + propID + " has expired")
	}
	if _, signed := p.signatures[validatorID]; signed {
		return false, blockiterr.DuplicateTx("validator " + validatorID + " already signed proposal " + propID)
	}

	var participantID string
	if v, ok := c.validators[validatorID]; ok {
		participantID = v.ParticipantID()
	}
	p.signatures[validatorID] = BlockSignature{
		ValidatorID:   validatorID,
		ParticipantID: participantID,
		Signature:     append([]byte(nil), signature...),
		SignedAt:      time.Now().UnixMilli(),
	}

	wasReady := p.quorumReached
	nowReady := uint32(len(p.signatures)) >= c.requiredSignaturesLocked()
	if nowReady && !wasReady {
		p.quorumReached = true
		c.metrics.incProposalsFinalized()
		return true, nil
	}
	return false, nil
}

func (c *PoAConsensus) requiredSignaturesLocked() uint32 {
	initial := c.config.InitialRequiredSignatures
	minimum := c.config.MinimumRequiredSignatures
	active := uint32(0)
	for _, v := range c.validators {
		if v.CanSign() {
			active++
		}
	}
	switch {
	case active >= initial:
		return initial
	case active >= minimum:
		return active
	default:
		return minimum
	}
}

func (c *PoAConsensus) isExpiredLocked(p *proposal) bool {
	return time.Now().UnixMilli()-p.createdAt >= c.config.SignatureTimeoutMs
}

// IsProposalReady reports whether a proposal has reached quorum.
func (c *PoAConsensus) IsProposalReady(propID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.proposals[propID]
	return ok && p.quorumReached
}

// GetFinalizedSignatures returns the signatures on a proposal that has
// reached quorum. Fails if the proposal does not exist or has not yet
// reached quorum.
func (c *PoAConsensus) GetFinalizedSignatures(propID string) ([]BlockSignature, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.proposals[propID]
	if !ok {
		return nil, blockiterr.InvalidTransaction("proposal " + propID + " not found")
	}
	if !p.quorumReached {
		return nil, blockiterr.Unauthorized("proposal " + propID + " has not reached quorum")
	}
	out := make([]BlockSignature, 0, len(p.signatures))
	for _, sig := range p.signatures {
		out = append(out, sig)
	}
	return out, nil
}

// RemoveProposal discards a proposal regardless of its state.
func (c *PoAConsensus) RemoveProposal(propID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.proposals[propID]; !ok {
		return blockiterr.InvalidTransaction("proposal " + propID + " not found")
	}
	delete(c.proposals, propID)
	return nil
}

// CleanupExpired sweeps and removes every proposal whose signature
// window has elapsed, returning the number removed. This is the only
// form of expiry sweep: it runs lazily, on caller demand, never on a
// background timer.
func (c *PoAConsensus) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for id, p := range c.proposals {
		if c.isExpiredLocked(p) {
			delete(c.proposals, id)
			removed++
		}
	}
	return removed
}

// --- Rate limiting -----------------------------------------------------

// CanPropose reports whether validatorID is currently allowed to create
// a new proposal: it must be a known, active validator, under the
// hourly proposal cap, and past the minimum inter-proposal delay.
func (c *PoAConsensus) CanPropose(validatorID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.validators[validatorID]
	if !ok || v.Status() != StatusActive {
		return blockiterr.Unauthorized("validator " + validatorID + " is not active")
	}

	times := c.pruneProposalTimesLocked(validatorID)
	if c.config.MaxProposalsPerHour > 0 && uint32(len(times)) >= c.config.MaxProposalsPerHour {
		c.metrics.incRateLimitRejections()
		return blockiterr.Unauthorized("validator " + validatorID + " exceeded max proposals per hour")
	}
	if len(times) > 0 {
		lastMs := times[len(times)-1]
		minGapMs := c.config.MinSecondsBetweenProposals * 1000
		if time.Now().UnixMilli()-lastMs < minGapMs {
			c.metrics.incRateLimitRejections()
			return blockiterr.Unauthorized("validator " + validatorID + " must wait before proposing again")
		}
	}
	return nil
}

// RecordProposal records that validatorID created a proposal now. It
// always increments the count, regardless of whether the validator is
// registered.
func (c *PoAConsensus) RecordProposal(validatorID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	times := c.pruneProposalTimesLocked(validatorID)
	c.proposalTimes[validatorID] = append(times, time.Now().UnixMilli())
}

// GetProposalCount returns the number of proposals validatorID has
// recorded within the current hourly window.
func (c *PoAConsensus) GetProposalCount(validatorID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pruneProposalTimesLocked(validatorID))
}

// pruneProposalTimesLocked drops timestamps older than the hourly
// window and stores the pruned slice back, implementing the sliding
// window lazily at read time.
func (c *PoAConsensus) pruneProposalTimesLocked(validatorID string) []int64 {
	times := c.proposalTimes[validatorID]
	if len(times) == 0 {
		return times
	}
	cutoff := time.Now().UnixMilli() - hourMs
	kept := times[:0:0]
	for _, t := range times {
		if t >= cutoff {
			kept = append(kept, t)
		}
	}
	c.proposalTimes[validatorID] = kept
	return kept
}
