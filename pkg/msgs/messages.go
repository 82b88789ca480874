package msgs

import (
	"encoding/json"
	"time"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/sbus.go/pkg/sbus"
)

// TypeIDs
const (
	ChannelsEventTypeID uint32 = GroupSBUS | TypeIDKindEvent | 0x0001
	StatsEventTypeID    uint32 = GroupSBUS | TypeIDKindEvent | 0x0002
)

// ChannelsEvent carries one decoded frame.
type ChannelsEvent struct {
	Seq uint64 `protobuf:"varint,1,opt,name=seq,proto3" json:"seq"`
	// Timestamp is in unix nanoseconds.
	Timestamp int64    `protobuf:"varint,2,opt,name=timestamp,proto3" json:"timestamp"`
	Raw       []uint32 `protobuf:"varint,3,rep,packed,name=raw,proto3" json:"raw"`
	Pulses    []int32  `protobuf:"varint,4,rep,packed,name=pulses,proto3" json:"pulses"`
	Flags     uint32   `protobuf:"varint,5,opt,name=flags,proto3" json:"flags"`
}

// EventFromFrame decodes f with scale.
func EventFromFrame(seq uint64, ts time.Time, f sbus.Frame, scale sbus.Scaler) *ChannelsEvent {
	ev := &ChannelsEvent{
		Seq:       seq,
		Timestamp: ts.UnixNano(),
		Raw:       make([]uint32, sbus.NumChannels),
		Pulses:    make([]int32, sbus.NumChannels),
		Flags:     uint32(f.Flags()),
	}
	for i, v := range f.Channels() {
		ev.Raw[i] = uint32(v)
		ev.Pulses[i] = int32(scale.Pulse(v))
	}
	return ev
}

// Time returns Timestamp as time.Time.
func (m *ChannelsEvent) Time() time.Time {
	return time.Unix(0, m.Timestamp)
}

// Frame re-encodes the raw channels.
func (m *ChannelsEvent) Frame() sbus.Frame {
	var raw [sbus.NumChannels]uint16
	for i := 0; i < len(raw) && i < len(m.Raw); i++ {
		raw[i] = uint16(m.Raw[i])
	}
	return sbus.NewFrame(raw, sbus.Flags(m.Flags))
}

// NewMessage implements SerializableMessage.
func (m *ChannelsEvent) NewMessage() SerializableMessage { return &ChannelsEvent{} }

// TypeID implements SerializableMessage.
func (m *ChannelsEvent) TypeID() uint32 { return ChannelsEventTypeID }

// ProtoMessage implements proto.Message.
func (m *ChannelsEvent) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ChannelsEvent) Reset() { *m = ChannelsEvent{} }

// String implements proto.Message.
func (m *ChannelsEvent) String() string { return proto.CompactTextString(m) }

// StatsEvent reports receiver counters.
type StatsEvent struct {
	Frames  uint64 `protobuf:"varint,1,opt,name=frames,proto3" json:"frames"`
	Dropped uint64 `protobuf:"varint,2,opt,name=dropped,proto3" json:"dropped"`
	Skipped uint64 `protobuf:"varint,3,opt,name=skipped,proto3" json:"skipped"`
	Bytes   uint64 `protobuf:"varint,4,opt,name=bytes,proto3" json:"bytes"`
	// IntervalUs is the time between the last two frames in microseconds.
	IntervalUs int64 `protobuf:"varint,5,opt,name=interval_us,json=intervalUs,proto3" json:"interval_us"`
}

// StatsFromReceiver converts a receiver snapshot.
func StatsFromReceiver(s sbus.ReceiverStats) *StatsEvent {
	return &StatsEvent{
		Frames:     s.Frames,
		Dropped:    s.Dropped,
		Skipped:    s.Skipped,
		Bytes:      s.Bytes,
		IntervalUs: s.Interval.Microseconds(),
	}
}

// NewMessage implements SerializableMessage.
func (m *StatsEvent) NewMessage() SerializableMessage { return &StatsEvent{} }

// TypeID implements SerializableMessage.
func (m *StatsEvent) TypeID() uint32 { return StatsEventTypeID }

// ProtoMessage implements proto.Message.
func (m *StatsEvent) ProtoMessage() {}

// Reset implements proto.Message.
func (m *StatsEvent) Reset() { *m = StatsEvent{} }

// String implements proto.Message.
func (m *StatsEvent) String() string { return proto.CompactTextString(m) }

// DeviceMeta is published retained so monitors can discover receivers.
type DeviceMeta struct {
	ID     string `json:"id"`
	Device string `json:"device,omitempty"`
	Scale  string `json:"scale,omitempty"`
}

// MarshalMeta encodes meta as JSON.
func MarshalMeta(meta *DeviceMeta) ([]byte, error) {
	return json.Marshal(meta)
}

// UnmarshalMeta decodes meta. Empty data means the device went away and
// returns nil.
func UnmarshalMeta(data []byte) (*DeviceMeta, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var meta DeviceMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}
