/*
Package types defines the shared data model for the SignalR message bus.

It holds the wire-free core types exchanged between the bus, the broker and
the outer connection layer: Message (an immutable keyed payload with a
per-topic sequence id), MessageResult (one delivery batch plus the cursor
needed to resume after it), the subscriber Callback signature, and the
Subscriber / InterestObserver interfaces through which the connection layer
exposes its identity and dynamic event-key interest to the bus.

Types here carry no behavior beyond their contracts; all semantics live in
pkg/messagebus.

# See Also

  - pkg/messagebus for the bus, topics, stores and the worker-pool broker
  - pkg/cursor for persisting MessageResult.Cursor between sessions
*/
package types
