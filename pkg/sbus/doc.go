// Package sbus provides Futaba SBUS frame assembly and channel decoding.
package sbus

// SBUS is a one-way serial protocol from an RC receiver to a flight
// controller. It runs at 100000 baud, 8 data bits, even parity and 2 stop
// bits over an inverted line. Frames are 25 bytes:
//
//   | 0x0F | 22 bytes: 16 channels x 11 bits | flags | 0x00 |
//
// There is no checksum and no in-band resync. The Assembler recovers
// alignment from the start and end markers only: a frame whose 25th byte
// is not 0x00 is dropped and scanning restarts at the next 0x0F. A 0x0F
// inside the payload is data, so after a lost byte the stream realigns only
// when a real start marker lands on a frame boundary again. Bytes dropped
// by the serial driver before they reach the Assembler cannot be detected.
//
// Producer: RC receiver
// Consumer: flight controller / telemetry
