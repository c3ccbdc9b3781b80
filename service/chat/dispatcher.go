package chat

import (
	"fmt"

	"LPChat/module/chat/frame"
)

type Dispatcher struct {
	handlers map[frame.Type]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[frame.Type]Handler)}
}

func (d *Dispatcher) Register(h Handler) { d.handlers[h.Type()] = h }

func (d *Dispatcher) Dispatch(ctx *ChatContext, f *frame.Frame, conn *WsConn) error {
	h, ok := d.handlers[f.Type]
	if !ok {
		return fmt.Errorf("no handler for type=%s", f.Type)
	}
	return h.Handle(ctx, f, conn)
}
