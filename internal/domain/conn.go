package domain

// Conn is the outbound half of a client connection. Send must not block;
// implementations queue the message and report a full queue as an error.
type Conn interface {
	Send(*Output) error
	Close()
}
