package auth

import (
	"strings"

	"github.com/spec-kit/urbispulse/internal/domain"
	apperrors "github.com/spec-kit/urbispulse/pkg/util"
)

// TransitionPath names the route a status change takes through the lifecycle.
type TransitionPath string

const (
	// PathAdvance moves exactly one step forward.
	PathAdvance TransitionPath = "advance"
	// PathSet lets an Admin jump to any later status.
	PathSet TransitionPath = "set"
	// PathFastTrack moves Under Review straight to In Progress and raises severity to High.
	PathFastTrack TransitionPath = "fast_track"
)

// Valid reports whether p is a known path.
func (p TransitionPath) Valid() bool {
	switch p {
	case PathAdvance, PathSet, PathFastTrack:
		return true
	}
	return false
}

// InWard reports whether location falls inside ward (case-insensitive substring).
func InWard(ward, location string) bool {
	ward = strings.TrimSpace(ward)
	if ward == "" {
		return false
	}
	return strings.Contains(strings.ToLower(location), strings.ToLower(ward))
}

// CanView decides whether viewer may read complaint.
// Admins, citizens and anonymous callers read everything; Ward Members only their ward.
func CanView(viewer *domain.Viewer, complaint domain.Complaint) bool {
	if !viewer.Authenticated() {
		return true
	}
	switch viewer.Role {
	case domain.RoleAdmin, domain.RoleCitizen:
		return true
	case domain.RoleWardMember:
		return InWard(viewer.Ward, complaint.Location)
	}
	return false
}

// CanMutate checks that actor is privileged and scoped to complaint.
func CanMutate(actor *domain.Viewer, complaint domain.Complaint) error {
	if !actor.Authenticated() {
		return apperrors.NewUnauthorized("sign in to update complaints")
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleWardMember:
		if !InWard(actor.Ward, complaint.Location) {
			return apperrors.NewForbidden("complaint is outside your ward")
		}
		return nil
	}
	return apperrors.NewForbidden("role cannot update complaints")
}

// CanTransition decides whether actor may move complaint to target along path.
// A nil result on a Resolved complaint means the request is an accepted no-op.
func CanTransition(actor *domain.Viewer, complaint domain.Complaint, target domain.ComplaintStatus, path TransitionPath) error {
	if err := CanMutate(actor, complaint); err != nil {
		return err
	}

	current := complaint.Status
	if !path.Valid() {
		return apperrors.NewValidationError("unknown transition path", map[string]any{"path": string(path)})
	}
	if !target.Valid() || !current.Valid() {
		return apperrors.NewInvalidTransition(string(current), string(target))
	}
	if current.IsTerminal() {
		return nil
	}

	switch path {
	case PathFastTrack:
		if current != domain.StatusUnderReview || target != domain.StatusInProgress {
			return apperrors.NewInvalidTransition(string(current), string(target))
		}
		return nil
	case PathSet:
		if actor.Role == domain.RoleAdmin {
			if !current.Before(target) {
				return apperrors.NewInvalidTransition(string(current), string(target))
			}
			return nil
		}
	}

	if target != current.Next() {
		return apperrors.NewInvalidTransition(string(current), string(target))
	}
	return nil
}
