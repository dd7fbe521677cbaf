package core

// DefaultColors is the fixed color catalog. A color is held by at most one
// live transmitter and is released only on disconnect.
var DefaultColors = []string{
	"red", "blue", "yellow", "green", "purple",
	"orange", "pink", "cyan", "brown", "lime",
}

// DefaultNames is the fixed name catalog. Names are derived from each
// transmitter's current connect rank, not stored per connection.
var DefaultNames = []string{
	"Albatross", "Barracuda", "Cormorant", "Dolphin", "Egret",
	"Falcon", "Grouper", "Heron", "Ibis", "Jackfish",
}

// identityPool allocates colors from a fixed catalog. All mutations happen
// inside the hub goroutine; the pool itself is not safe for concurrent use.
type identityPool struct {
	colors []string
	held   map[string]string // connection id -> color
}

func newIdentityPool(colors []string) *identityPool {
	return &identityPool{
		colors: colors,
		held:   make(map[string]string),
	}
}

// assign allocates the first color not held by a live connection.
// Returns ErrNoCapacity when every color is taken.
func (p *identityPool) assign(connID string) (string, error) {
	if color, ok := p.held[connID]; ok {
		return color, nil
	}

	inUse := make(map[string]bool, len(p.held))
	for _, color := range p.held {
		inUse[color] = true
	}
	for _, color := range p.colors {
		if !inUse[color] {
			p.held[connID] = color
			return color, nil
		}
	}
	return "", ErrNoCapacity
}

// release frees the color held by this connection. No-op if none held.
func (p *identityPool) release(connID string) {
	delete(p.held, connID)
}

// colorOf returns the color held by this connection, if any.
func (p *identityPool) colorOf(connID string) (string, bool) {
	color, ok := p.held[connID]
	return color, ok
}
