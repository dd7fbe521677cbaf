package core

// Role classifies a connection at accept time. It never changes for the
// lifetime of the connection.
type Role int

const (
	// RoleObserver passively receives broadcast updates.
	RoleObserver Role = iota
	// RoleTransmitter actively reports vessel telemetry.
	RoleTransmitter
)

// String returns the wire name of the role.
func (r Role) String() string {
	if r == RoleTransmitter {
		return "transmitter"
	}
	return "observer"
}

// Client is a live connection as seen by the core layer.
type Client struct {
	ID       string
	Role     Role
	Commands chan *Command
	Events   chan *Event

	// done is closed by the hub when the client is rejected or
	// unregistered; it stops the command pump for this client.
	done chan struct{}
}

// NewClient constructs a client with initialized channels.
func NewClient(id string, role Role) *Client {
	return &Client{
		ID:       id,
		Role:     role,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 32),
		done:     make(chan struct{}),
	}
}

// Done is closed once the hub has released the client.
func (c *Client) Done() <-chan struct{} {
	return c.done
}
