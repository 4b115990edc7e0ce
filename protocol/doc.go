// Package protocol provides the foundational message types for leaguemesh. It
// defines the core abstractions for:
//
//   - Envelope (the structured header wrapping every inter-agent call)
//   - Message type constants and typed payloads for each league method
//   - JSON-RPC 2.0 request/response wrappers used on the wire
//   - Structured protocol and auth errors with stable error codes
//
// The package intentionally keeps implementation concerns (transport, actor
// orchestration, persistence) out of scope, exposing plain data types so any
// backend can carry them. Every inbound call is validated against the envelope
// contract before it reaches business logic.
package protocol
