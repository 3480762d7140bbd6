package authz

import (
	"strings"

	"github.com/google/uuid"
)

// Actor is the authenticated principal attempting an operation.
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// CanMutate reports whether the actor may modify or delete a resource
// owned by ownerID. Admins always may. Otherwise ownership requires a
// non-nil owner whose normalized ID equals the actor's: resources with
// no recorded owner are mutable only by admins.
func CanMutate(actor Actor, ownerID *uuid.UUID) bool {
	if actor.IsAdmin {
		return true
	}
	if ownerID == nil {
		return false
	}
	if actor.UserID == uuid.Nil {
		return false
	}
	return equalIDs(actor.UserID.String(), ownerID.String())
}

func equalIDs(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
