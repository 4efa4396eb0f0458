package network

// PacketHandler receives one complete inbound datagram.
// Transports call it from their own read goroutine; the integration
// layer must marshal onto the goroutine driving Client.Update.
type PacketHandler func(data []byte)

// Transport is the unreliable datagram channel the engine writes to.
type Transport interface {
	// Send transmits one packet. The engine never retries.
	Send(b []byte, unreliable bool) error

	// MaxSinglePacketSize is the MTU the input assembler packs against.
	MaxSinglePacketSize(unreliable bool) uint16

	// TriggerUpdate hints the transport to flush buffered packets now.
	TriggerUpdate()

	Close() error
}
