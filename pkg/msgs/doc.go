// Package msgs defines the messages an SBUS receiver publishes.
package msgs

// Messages are protobuf encoded and wrapped in Typed so a subscriber can
// tell them apart on a shared topic.
//
// Producer: sbusd
// Consumer: sbusmon, telemetry collectors
