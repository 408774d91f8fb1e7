package protocol

// MessageMax bounds a single encoded message, sized for the small,
// fixed-shape reports this module emits (endstop hits, step-rate
// diagnostics) rather than Klipper's general command dictionary.
const MessageMax = 128

// MessageDest is the Klipper wire-protocol sync/destination marker
// byte (see _examples/amken3d-gopper/protocol/transport.go).
const MessageDest = 0x10
