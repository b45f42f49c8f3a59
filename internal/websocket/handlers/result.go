package handlers

// EmitInstruction is one event the transport adapter should push back to the
// calling socket.
type EmitInstruction struct {
	event   string
	payload any
}

func emitToSelf(event string, payload any) EmitInstruction {
	return EmitInstruction{event: event, payload: payload}
}

// Event returns the event name.
func (e EmitInstruction) Event() string { return e.event }

// Payload returns the event payload.
func (e EmitInstruction) Payload() any { return e.payload }

// EventResult is the output of a handler invocation.
type EventResult struct {
	ack   any
	emits []EmitInstruction
}

// NewEventResult constructs a handler result.
func NewEventResult(ack any, emits []EmitInstruction) EventResult {
	return EventResult{ack: ack, emits: emits}
}

// Ack returns the ACK payload to send to the caller, if it asked for one.
func (r EventResult) Ack() any { return r.ack }

// Emits returns the events to push to the caller.
func (r EventResult) Emits() []EmitInstruction { return r.emits }
