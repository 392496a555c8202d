// Package domain holds typed identifiers shared across modules.
//
// IDs are parsed at trust boundaries so services never see malformed input.
package domain

import (
	"strings"
	"unicode"

	"github.com/google/uuid"

	dErrors "regulus/pkg/domain-errors"
)

const maxActorIDLength = 128

// WorkflowID identifies a workflow instance.
type WorkflowID uuid.UUID

// ChallengeID identifies a step-up challenge.
type ChallengeID uuid.UUID

// ActorID identifies a principal issued by the surrounding identity system.
// It is opaque to the engine, so it is a validated string rather than a UUID.
type ActorID string

func NewWorkflowID() WorkflowID   { return WorkflowID(uuid.New()) }
func NewChallengeID() ChallengeID { return ChallengeID(uuid.New()) }

func (id WorkflowID) String() string  { return uuid.UUID(id).String() }
func (id WorkflowID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ChallengeID) String() string { return uuid.UUID(id).String() }
func (id ChallengeID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ActorID) String() string     { return string(id) }
func (id ActorID) IsNil() bool        { return id == "" }

// ParseWorkflowID parses a non-nil UUID workflow identifier.
func ParseWorkflowID(s string) (WorkflowID, error) {
	u, err := parseUUID(s, "workflow_id")
	return WorkflowID(u), err
}

// ParseChallengeID parses a non-nil UUID challenge identifier.
func ParseChallengeID(s string) (ChallengeID, error) {
	u, err := parseUUID(s, "challenge_id")
	return ChallengeID(u), err
}

// ParseActorID validates an actor identifier: non-empty, bounded, printable,
// and free of the ':' delimiter used in counter keys.
func ParseActorID(s string) (ActorID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "actor_id is required")
	}
	if len(s) > maxActorIDLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "actor_id is too long")
	}
	for _, r := range s {
		if r == ':' || !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "actor_id contains invalid characters")
		}
	}
	return ActorID(s), nil
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be nil")
	}
	return u, nil
}
