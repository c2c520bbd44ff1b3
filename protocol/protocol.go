// Package protocol implements the operator text channel and the telemetry
// record format: decimal command lines in, fixed-width position records out.
package protocol

// Version represents the dcservo firmware version
const Version = "0.1.0"

// Command channel constants
const (
	MaxLine = 7 // Significant characters kept per command line

	charBackspace = 0x08
	charDelete    = 0x7f
)
