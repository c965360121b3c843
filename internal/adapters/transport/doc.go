// Package transport opens the byte link to the device.
//
// Three links are supported: a serial port, a TCP connection to a
// serial-over-network bridge, and the process's own stdin/stdout.
package transport
