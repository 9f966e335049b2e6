package wire

import "github.com/cassia-project/compositor/internal/core"

// Handler decodes body itself (it knows its own request record type),
// executes the command, and returns an encoded response record plus any
// fds the response carries. fds are request fds already received by the
// transport (0 for everything but QUEUE's single sync fd).
type Handler func(body []byte, fds []int) (respBody []byte, respFds []int, err error)

type classDispatcher map[CommandType]Handler

// Dispatcher is the two-level (class, type) routing table. Unknown class
// or type is a protocol error: the caller must close the connection.
type Dispatcher struct {
	classes map[CommandClass]classDispatcher
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{classes: make(map[CommandClass]classDispatcher)}
}

// Register binds a handler to (class, type). Re-registering an existing
// pair replaces it.
func (d *Dispatcher) Register(class CommandClass, typ CommandType, h Handler) {
	sub, ok := d.classes[class]
	if !ok {
		sub = make(classDispatcher)
		d.classes[class] = sub
	}
	sub[typ] = h
}

// Dispatch routes one decoded command frame. Callers should treat
// core.ErrProtocol as fatal to the connection per the wire contract.
func (d *Dispatcher) Dispatch(class CommandClass, typ CommandType, body []byte, fds []int) ([]byte, []int, error) {
	sub, ok := d.classes[class]
	if !ok {
		return nil, nil, core.ErrProtocol
	}
	h, ok := sub[typ]
	if !ok {
		return nil, nil, core.ErrProtocol
	}
	return h(body, fds)
}
