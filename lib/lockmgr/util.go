package lockmgr

import "github.com/google/uuid"

// generateOwnerID creates a new unique owner ID from a random (v4) UUID.
func generateOwnerID() ([]byte, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}
	return id[:], nil
}
