package mqtt

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/sbus.go/pkg/msgs"
	"github.com/robotalks/sbus.go/pkg/sbus"
)

// Topic suffixes under <prefix><id>/.
const (
	TopicChannels = "channels"
	TopicStats    = "stats"
	TopicMeta     = "meta"
)

// DeviceTopic returns the topic of a device.
func DeviceTopic(id, suffix string) string {
	return id + "/" + suffix
}

// Publisher publishes received frames as msgs.ChannelsEvent.
// HandleFrame never blocks on the broker: when frames arrive faster than
// MinInterval only the latest is published.
type Publisher struct {
	Queue *Queue
	Meta  msgs.DeviceMeta
	Scale sbus.Scaler
	// MinInterval limits the channels publish rate. 0 publishes every frame.
	MinInterval time.Duration
	// Stats is polled every StatsInterval when both are set.
	Stats         func() sbus.ReceiverStats
	StatsInterval time.Duration

	lock     sync.Mutex
	seq      uint64
	latest   *msgs.ChannelsEvent
	notifyCh chan struct{}
	now      func() time.Time
}

// NewPublisher creates a Publisher connecting to brokerURL. The retained
// meta topic is cleared by the broker if the publisher disappears.
func NewPublisher(brokerURL string, meta msgs.DeviceMeta) (*Publisher, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+DeviceTopic(meta.ID, TopicMeta), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("sbus:" + meta.ID)
	}
	p := &Publisher{Meta: meta}
	p.Queue = NewQueue(opts, topicPrefix)
	p.Queue.OnConnect = func(*Queue) { p.publishMeta() }
	return p, nil
}

// HandleFrame implements sbus.FrameHandler.
func (p *Publisher) HandleFrame(ctx context.Context, f sbus.Frame) {
	scale := p.Scale
	if scale == nil {
		scale = sbus.DefaultScale
	}
	p.lock.Lock()
	p.seq++
	p.latest = msgs.EventFromFrame(p.seq, p.clock(), f, scale)
	notifyCh := p.notifyCh
	p.lock.Unlock()
	if notifyCh != nil {
		select {
		case notifyCh <- struct{}{}:
		default:
		}
	}
}

// Run implements Runnable.
func (p *Publisher) Run(ctx context.Context) error {
	p.lock.Lock()
	p.notifyCh = make(chan struct{}, 1)
	notifyCh := p.notifyCh
	p.lock.Unlock()

	if token := p.Queue.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	var throttle <-chan time.Time
	if p.MinInterval > 0 {
		ticker := time.NewTicker(p.MinInterval)
		defer ticker.Stop()
		throttle = ticker.C
		notifyCh = nil
	}
	var statsCh <-chan time.Time
	if p.Stats != nil && p.StatsInterval > 0 {
		ticker := time.NewTicker(p.StatsInterval)
		defer ticker.Stop()
		statsCh = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			p.Queue.PubWith(DeviceTopic(p.Meta.ID, TopicMeta), nil, 1, true).Wait()
			p.Queue.Close()
			return nil
		case <-notifyCh:
			p.publishLatest()
		case <-throttle:
			p.publishLatest()
		case <-statsCh:
			p.publish(TopicStats, msgs.StatsFromReceiver(p.Stats()))
		}
	}
}

func (p *Publisher) publishLatest() {
	p.lock.Lock()
	ev := p.latest
	p.latest = nil
	p.lock.Unlock()
	if ev != nil {
		p.publish(TopicChannels, ev)
	}
}

func (p *Publisher) publish(topic string, msg msgs.SerializableMessage) {
	data, err := msgs.Encode(msg)
	if err != nil {
		glog.Errorf("encode %s error: %v", topic, err)
		return
	}
	p.Queue.Pub(DeviceTopic(p.Meta.ID, topic), data)
}

func (p *Publisher) publishMeta() {
	data, err := msgs.MarshalMeta(&p.Meta)
	if err != nil {
		glog.Errorf("encode meta error: %v", err)
		return
	}
	p.Queue.PubWith(DeviceTopic(p.Meta.ID, TopicMeta), data, 1, true)
}

func (p *Publisher) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}
