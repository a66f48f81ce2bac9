// Package memory provides in-process implementations of driven ports.
// They back tests and the "memory" vector backend, and hold nothing across restarts.
package memory
