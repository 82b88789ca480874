package mqtt

import (
	"context"
	"strings"

	"github.com/golang/glog"

	"github.com/robotalks/sbus.go/pkg/msgs"
)

// EventHandler receives decoded events of a device.
type EventHandler func(id string, msg msgs.SerializableMessage)

// MetaHandler receives device meta. meta is nil when the device went away.
type MetaHandler func(id string, meta *msgs.DeviceMeta)

// Subscriber watches devices published by Publishers.
type Subscriber struct {
	Queue *Queue
	// ID selects a device. Empty watches all.
	ID      string
	OnEvent EventHandler
	OnMeta  MetaHandler
}

// NewSubscriber creates a Subscriber.
func NewSubscriber(brokerURL, id string) (*Subscriber, error) {
	q, err := NewQueueFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return &Subscriber{Queue: q, ID: id}, nil
}

// Run implements Runnable.
func (s *Subscriber) Run(ctx context.Context) error {
	id := s.ID
	if id == "" {
		id = "+"
	}
	subs := []*Subscription{
		s.Queue.Sub(DeviceTopic(id, TopicChannels), s.handleEvent),
		s.Queue.Sub(DeviceTopic(id, TopicStats), s.handleEvent),
		s.Queue.Sub(DeviceTopic(id, TopicMeta), s.handleMeta),
	}
	if token := s.Queue.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	<-ctx.Done()
	for _, sub := range subs {
		sub.Close()
	}
	s.Queue.Close()
	return nil
}

func deviceID(topic string) string {
	if n := strings.LastIndex(topic, "/"); n >= 0 {
		return topic[:n]
	}
	return topic
}

func (s *Subscriber) handleEvent(topic string, payload []byte) {
	msg, err := msgs.Decode(payload)
	if err != nil {
		glog.Warningf("%s: %v", topic, err)
		return
	}
	if h := s.OnEvent; h != nil {
		h(deviceID(topic), msg)
	}
}

func (s *Subscriber) handleMeta(topic string, payload []byte) {
	meta, err := msgs.UnmarshalMeta(payload)
	if err != nil {
		glog.Warningf("%s: %v", topic, err)
		return
	}
	if h := s.OnMeta; h != nil {
		h(deviceID(topic), meta)
	}
}
