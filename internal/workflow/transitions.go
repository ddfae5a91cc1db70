// Package workflow enforces the deal status state machine. Transition
// legality is a static adjacency table intersected with a per-role
// permission matrix; there are no timers and no automatic transitions.
package workflow

import (
	"github.com/rotisserie/eris"

	"github.com/ethansammiq/deal-desk-sub004/internal/model"
)

// Sentinel errors for transition failures. Callers match with eris.Is.
var (
	ErrIllegalTransition = eris.New("workflow: illegal status transition")
	ErrForbidden         = eris.New("workflow: role not permitted")
	ErrUnknownStatus     = eris.New("workflow: unknown status")
)

// transitions is the adjacency table: current status to allowed next
// statuses. The happy path is linear; revision_requested and lost are
// side exits reachable from most in-flight states. signed and lost are
// terminal.
var transitions = map[model.DealStatus][]model.DealStatus{
	model.DealStatusDraft:             {model.DealStatusScoping, model.DealStatusSubmitted, model.DealStatusLost},
	model.DealStatusScoping:           {model.DealStatusSubmitted, model.DealStatusDraft, model.DealStatusLost},
	model.DealStatusSubmitted:         {model.DealStatusUnderReview, model.DealStatusRevisionRequested, model.DealStatusLost},
	model.DealStatusUnderReview:       {model.DealStatusNegotiating, model.DealStatusApproved, model.DealStatusRevisionRequested, model.DealStatusLost},
	model.DealStatusNegotiating:       {model.DealStatusApproved, model.DealStatusRevisionRequested, model.DealStatusLost},
	model.DealStatusApproved:          {model.DealStatusLegalReview, model.DealStatusLost},
	model.DealStatusLegalReview:       {model.DealStatusContractDrafting, model.DealStatusLost},
	model.DealStatusContractDrafting:  {model.DealStatusClientReview, model.DealStatusLost},
	model.DealStatusClientReview:      {model.DealStatusSigned, model.DealStatusRevisionRequested, model.DealStatusLost},
	model.DealStatusSigned:            {},
	model.DealStatusLost:              {},
	model.DealStatusRevisionRequested: {model.DealStatusDraft, model.DealStatusSubmitted, model.DealStatusLost},
}

// AllowedNext returns the statuses reachable from the given status. The
// returned slice is shared; callers must not mutate it.
func AllowedNext(from model.DealStatus) []model.DealStatus {
	return transitions[from]
}

// CanTransition reports whether the adjacency table allows from -> to.
func CanTransition(from, to model.DealStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates a status change for the acting session: the move
// must exist in the adjacency table and the session's role must hold the
// permission for the action the move represents. On success it returns
// the action that was performed.
func Transition(session model.Session, from, to model.DealStatus) (Action, error) {
	if !from.Valid() || !to.Valid() {
		return "", eris.Wrapf(ErrUnknownStatus, "%q -> %q", from, to)
	}
	if !CanTransition(from, to) {
		return "", eris.Wrapf(ErrIllegalTransition, "%q -> %q", from, to)
	}

	action := actionFor(to)
	if !Allowed(session.Role, action) {
		return "", eris.Wrapf(ErrForbidden, "role %q may not %s", session.Role, action)
	}
	return action, nil
}

// actionFor maps a target status to the permission the move requires.
// Most moves are plain transitions; entering approved, revision_requested,
// or submitted are distinct actions with their own permissions.
func actionFor(to model.DealStatus) Action {
	switch to {
	case model.DealStatusSubmitted:
		return ActionSubmit
	case model.DealStatusApproved:
		return ActionApprove
	case model.DealStatusRevisionRequested:
		return ActionRequestRevision
	default:
		return ActionTransition
	}
}
