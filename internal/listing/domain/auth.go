package domain

// IsOwner reports whether actorID may mutate a resource owned by ownerID.
// Empty identifiers never match.
func IsOwner(actorID, ownerID string) bool {
	return actorID != "" && ownerID != "" && actorID == ownerID
}
