// Package logging provides a minimal logging interface and adapters for leaguemesh.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// so every actor can emit structured records without binding to a concrete
// backend. A slog based implementation and a no-op implementation are provided.
package logging
