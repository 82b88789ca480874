package msgs

import (
	"errors"
	"fmt"

	"github.com/golang/protobuf/proto"
)

// TypeID masks
const (
	TypeIDMaskKind  uint32 = 0x80000000
	TypeIDMaskGroup uint32 = 0x7fff0000
	TypeIDMaskID    uint32 = 0x0000ffff
)

// Message Kinds
const (
	TypeIDKindCommand uint32 = 0x00000000
	TypeIDKindEvent   uint32 = 0x80000000
)

// GroupSBUS is the message group of this package.
const GroupSBUS uint32 = 0x00010000

// ErrUnknownType indicates unknown type id.
type ErrUnknownType struct {
	TypeID uint32
}

// Error implements error.
func (e *ErrUnknownType) Error() string {
	return fmt.Sprintf("unknown type: %x", e.TypeID)
}

var (
	// ErrNotSerializable indicates the message is not serializable.
	ErrNotSerializable = errors.New("not serializable message")
)

// SerializableMessage can be serialized over the wire.
type SerializableMessage interface {
	proto.Message
	TypeID() uint32
	NewMessage() SerializableMessage
}

// MessageTypes are predefined mapping of type ID to messages.
var MessageTypes = map[uint32]SerializableMessage{
	ChannelsEventTypeID: (*ChannelsEvent)(nil),
	StatsEventTypeID:    (*StatsEvent)(nil),
}

// Typed wraps an encoded message with its type.
type Typed struct {
	TypeID uint32 `protobuf:"varint,1,opt,name=type_id,json=typeId,proto3" json:"type_id,omitempty"`
	Data   []byte `protobuf:"bytes,2,opt,name=data,proto3" json:"data,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *Typed) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Typed) Reset() { *m = Typed{} }

// String implements proto.Message.
func (m *Typed) String() string { return proto.CompactTextString(m) }

// IsEvent tells if the message is an event.
func (m *Typed) IsEvent() bool {
	return m.TypeID&TypeIDMaskKind == TypeIDKindEvent
}

// Encode wraps msg in Typed and marshals it.
func Encode(msg SerializableMessage) ([]byte, error) {
	if msg == nil {
		return nil, ErrNotSerializable
	}
	data, err := proto.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(&Typed{TypeID: msg.TypeID(), Data: data})
}

// Decode unmarshals a Typed message and the message it carries.
func Decode(data []byte) (SerializableMessage, error) {
	var typed Typed
	if err := proto.Unmarshal(data, &typed); err != nil {
		return nil, err
	}
	known, ok := MessageTypes[typed.TypeID]
	if !ok {
		return nil, &ErrUnknownType{TypeID: typed.TypeID}
	}
	msg := known.NewMessage()
	if err := proto.Unmarshal(typed.Data, msg); err != nil {
		return nil, fmt.Errorf("decode %x: %w", typed.TypeID, err)
	}
	return msg, nil
}
