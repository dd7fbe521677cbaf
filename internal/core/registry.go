package core

// registry tracks live connections: transmitters in connect order (their
// rank determines the display name) and observers as an unordered set.
// Owned by the hub goroutine, never accessed concurrently.
type registry struct {
	names        []string
	transmitters []*Client
	observers    map[*Client]struct{}
}

func newRegistry(names []string) *registry {
	return &registry{
		names:     names,
		observers: make(map[*Client]struct{}),
	}
}

// registerTransmitter appends the client to the ordered transmitter list.
// Must be called only after a color was assigned.
func (r *registry) registerTransmitter(c *Client) {
	r.transmitters = append(r.transmitters, c)
}

// unregisterTransmitter removes the client, preserving relative order of
// the rest so remaining ranks stay contiguous.
func (r *registry) unregisterTransmitter(c *Client) bool {
	for i, t := range r.transmitters {
		if t == c {
			r.transmitters = append(r.transmitters[:i], r.transmitters[i+1:]...)
			return true
		}
	}
	return false
}

// nameFor returns the name at the client's current rank into the name
// catalog. Empty string past the end of the catalog.
func (r *registry) nameFor(c *Client) string {
	for i, t := range r.transmitters {
		if t == c {
			if i < len(r.names) {
				return r.names[i]
			}
			return ""
		}
	}
	return ""
}

// isTransmitter reports whether the client is a registered transmitter.
func (r *registry) isTransmitter(c *Client) bool {
	for _, t := range r.transmitters {
		if t == c {
			return true
		}
	}
	return false
}

func (r *registry) registerObserver(c *Client) {
	r.observers[c] = struct{}{}
}

func (r *registry) unregisterObserver(c *Client) {
	delete(r.observers, c)
}

// each calls fn for every live connection, transmitters first.
func (r *registry) each(fn func(*Client)) {
	for _, t := range r.transmitters {
		fn(t)
	}
	for o := range r.observers {
		fn(o)
	}
}
