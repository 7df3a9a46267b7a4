/*
Package cursor persists subscriber resumption cursors in BoltDB.

The message bus is in-memory only; when a subscription is disposed, the
terminal MessageResult carries the subscriber's final cursor. Saving it
here lets the caller resubscribe after a restart and resume exactly where
it left off (subject to per-topic store eviction).

# Usage

	store, err := cursor.NewBoltStore(dataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	// On disposal:
	_ = store.Save(subscriberID, result.Cursor)

	// On reconnect:
	saved, err := store.Load(subscriberID)
	if errors.Is(err, cursor.ErrNotFound) {
		saved = ""
	}
	handle, err := bus.Subscribe(subscriber, saved, callback, 0)

Cursors are stored as JSON records with a save timestamp so stale entries
from subscribers that never returned can be pruned externally.

# See Also

  - pkg/messagebus for the cursor wire format and resumption semantics
*/
package cursor
