package chat

import "errors"

var (
	// ErrEmptyMessage is returned when the trimmed input is empty.
	ErrEmptyMessage = errors.New("chat: empty message")
	// ErrBusy is returned while a previous send is still awaiting its reply.
	ErrBusy = errors.New("chat: response already in flight")
	// ErrSimulatedFailure is what a Responder returns when it cannot produce a
	// reply. The bundled Simulator never returns it.
	ErrSimulatedFailure = errors.New("chat: failed to get response")
	// ErrClosed is returned by Send after Close.
	ErrClosed = errors.New("chat: controller closed")
)
