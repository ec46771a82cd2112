// Package auth holds the ownership authorization guard applied before every
// post or comment mutation.
package auth

import "scribe/internal/models"

// Authorize succeeds iff the acting principal is the recorded owner of the
// resource. It must run strictly before any persistence side effect; callers
// return its error unchanged so ownership failures always surface as 403.
func Authorize(actorID, ownerID uint) error {
	if actorID != ownerID {
		return models.NewForbiddenError("You can only modify your own resources")
	}
	return nil
}
