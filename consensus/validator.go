// Package consensus implements the participant authenticator, the
// Validator lifecycle, and the Proof-of-Authority consensus core.
package consensus

import (
	"encoding/binary"
	"time"

	"github.com/robolibs/blockit-sub001/blockiterr"
	"github.com/robolibs/blockit-sub001/identity"
)

// Status is a Validator's position in its lifecycle state machine.
type Status uint8

const (
	StatusActive Status = iota
	StatusOffline
	StatusRevoked
)

// Validator binds an identity Key to a fleet participant, a signing
// weight, and an online/offline/revoked lifecycle.
type Validator struct {
	key           identity.Key
	participantID string
	weight        uint32
	status        Status
	lastSeenMs    int64
}

// NewValidator creates an ACTIVE validator for participantID, signing
// with key, at weight.
func NewValidator(participantID string, key identity.Key, weight uint32) Validator {
	return Validator{
		key:           key,
		participantID: participantID,
		weight:        weight,
		status:        StatusActive,
		lastSeenMs:    time.Now().UnixMilli(),
	}
}

func (v Validator) ID() string            { return v.key.ID() }
func (v Validator) Key() identity.Key     { return v.key }
func (v Validator) ParticipantID() string { return v.participantID }
func (v Validator) Weight() uint32        { return v.weight }
func (v Validator) Status() Status        { return v.status }
func (v Validator) LastSeenMs() int64     { return v.lastSeenMs }

// CanSign reports whether the validator is active and its key is valid.
func (v Validator) CanSign() bool {
	return v.status == StatusActive && v.key.IsValid()
}

// IsOnline reports whether the validator has been seen within timeoutMs,
// independent of its lifecycle status.
func (v Validator) IsOnline(timeoutMs int64) bool {
	return time.Now().UnixMilli()-v.lastSeenMs < timeoutMs
}

// UpdateActivity records that the validator was seen now.
func (v *Validator) UpdateActivity() {
	v.lastSeenMs = time.Now().UnixMilli()
}

// MarkOnline transitions OFFLINE -> ACTIVE and refreshes last-seen. An
// already-active validator keeps its status but still records activity;
// a revoked validator is left untouched (status and last-seen).
func (v *Validator) MarkOnline() {
	if v.status == StatusRevoked {
		return
	}
	if v.status == StatusOffline {
		v.status = StatusActive
	}
	v.lastSeenMs = time.Now().UnixMilli()
}

// MarkOffline sets status to OFFLINE without touching last-seen. A
// revoked validator stays REVOKED.
func (v *Validator) MarkOffline() {
	if v.status == StatusRevoked {
		return
	}
	v.status = StatusOffline
}

// Revoke terminally marks the validator REVOKED.
func (v *Validator) Revoke() {
	v.status = StatusRevoked
}

// Serialize encodes the validator as:
// status(1) | pid_len(4) | pid | identity_len(4) | identity_data | weight(4) | last_seen(8)
// all integers little-endian.
func (v Validator) Serialize() []byte {
	pid := []byte(v.participantID)
	identityData := v.key.Serialize()

	size := 1 + 4 + len(pid) + 4 + len(identityData) + 4 + 8
	buf := make([]byte, size)
	off := 0
	buf[off] = byte(v.status)
	off++
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(pid)))
	off += 4
	copy(buf[off:], pid)
	off += len(pid)
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(identityData)))
	off += 4
	copy(buf[off:], identityData)
	off += len(identityData)
	binary.LittleEndian.PutUint32(buf[off:], v.weight)
	off += 4
	binary.LittleEndian.PutUint64(buf[off:], uint64(v.lastSeenMs))
	return buf
}

// DeserializeValidator parses the wire format produced by Serialize.
func DeserializeValidator(data []byte) (Validator, error) {
	if len(data) < 1+4 {
		return Validator{}, blockiterr.DeserializationFailed("validator data too short")
	}
	off := 0
	status := Status(data[off])
	off++

	pidLen := binary.LittleEndian.Uint32(data[off:])
	off += 4
	if len(data) < off+int(pidLen)+4 {
		return Validator{}, blockiterr.DeserializationFailed("validator data truncated at participant id")
	}
	pid := string(data[off : off+int(pidLen)])
	off += int(pidLen)

	identityLen := binary.LittleEndian.Uint32(data[off:])
	off += 4
	if len(data) < off+int(identityLen)+4+8 {
		return Validator{}, blockiterr.DeserializationFailed("validator data truncated at identity")
	}
	key, err := identity.Deserialize(data[off : off+int(identityLen)])
	if err != nil {
		return Validator{}, err
	}
	off += int(identityLen)

	weight := binary.LittleEndian.Uint32(data[off:])
	off += 4
	lastSeen := int64(binary.LittleEndian.Uint64(data[off:]))

	return Validator{
		key:           key,
		participantID: pid,
		weight:        weight,
		status:        status,
		lastSeenMs:    lastSeen,
	}, nil
}
