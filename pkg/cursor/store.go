package cursor

// Store persists subscriber resumption cursors between sessions. The bus
// itself is deliberately non-durable; callers that want to resume after a
// restart save the cursor from the terminal MessageResult here and pass it
// back to Subscribe later.
type Store interface {
	// Save upserts the cursor for a subscriber identity.
	Save(subscriberID, cursor string) error
	// Load returns the stored cursor, or ErrNotFound.
	Load(subscriberID string) (string, error)
	// Delete removes the stored cursor. Deleting an unknown identity is a
	// no-op.
	Delete(subscriberID string) error
	// List returns all stored cursors keyed by subscriber identity.
	List() (map[string]string, error)

	Close() error
}
