package domain

// CanModify reports whether actor may perform a destructive action on content authored by
// author: admins may modify anything, everyone else only their own content.
func CanModify(actor Actor, author ParticipantID) bool {
	return actor.IsAdmin || (author != "" && actor.ParticipantID == author)
}

// CanRemoveParticipant reports whether actor may remove target from the trip group.
// Self-removal is always rejected, even for admins.
func CanRemoveParticipant(actor Actor, target ParticipantID) bool {
	if actor.ParticipantID == target {
		return false
	}
	return actor.IsAdmin
}

// CanRenameTrip reports whether actor may change the trip title. The title has no author.
func CanRenameTrip(actor Actor) bool {
	return CanModify(actor, "")
}
