package main

//go-build: CGO_ENABLED=0

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/sbus.go/pkg/config"
	fx "github.com/robotalks/sbus.go/pkg/framework"
	"github.com/robotalks/sbus.go/pkg/msgs"
	"github.com/robotalks/sbus.go/pkg/output/mqtt"
	"github.com/robotalks/sbus.go/pkg/output/web"
	"github.com/robotalks/sbus.go/pkg/record"
	"github.com/robotalks/sbus.go/pkg/sbus"
	"github.com/robotalks/sbus.go/pkg/serial"
)

func init() {
	config.SetupFlags()
}

type watcher []int

func (w watcher) log(f sbus.Frame) {
	if !glog.V(1) {
		return
	}
	var out bytes.Buffer
	for n, index := range w {
		if n > 0 {
			out.WriteByte(' ')
		}
		v, _ := f.Channel(index)
		fmt.Fprintf(&out, "%s=%d", sbus.ChannelLabel(index), v)
	}
	glog.Info(out.String())
}

func (w watcher) HandleFrame(ctx context.Context, f sbus.Frame) {
	w.log(f)
}

func reportStats(interval time.Duration, stats func() sbus.ReceiverStats) fx.Runnable {
	return fx.NamedFunc("stats", func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				s := stats()
				glog.Infof("frames=%d dropped=%d skipped=%d bytes=%d interval=%v",
					s.Frames, s.Dropped, s.Skipped, s.Bytes, s.Interval)
			}
		}
	})
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := config.MustLoad()
	if err := conf.Validate(); err != nil {
		log.Fatalln(err)
	}
	watch, _ := conf.Watch()

	var (
		handlers sbus.Handlers
		stats    func() sbus.ReceiverStats
		runner   = fx.NewRunner().HandleSignals()
		source   fx.Runnable
		port     serial.Port
	)

	if conf.Replay == "" {
		var err error
		if port, err = serial.Open(&conf.Serial); err != nil {
			log.Fatalln(err)
		}
		receiver := sbus.NewReceiver(port, &handlers)
		receiver.ReadTimeout = conf.Serial.ReadTimeout > 0
		if len(watch) > 0 {
			receiver.OnFrame = watcher(watch).log
		}
		stats = receiver.Stats
		source = fx.NamedFunc("receiver", func(ctx context.Context) error {
			return fx.RunWithContextCloser(ctx, port, func() error {
				return receiver.Run(ctx)
			})
		})
	} else {
		if len(watch) > 0 {
			handlers = append(handlers, watcher(watch))
		}
		source = fx.NamedRun("replay", &record.Player{
			Path:     conf.Replay,
			Handler:  &handlers,
			Realtime: conf.Realtime,
		})
	}

	var rec *record.Recorder
	if conf.Record != "" {
		var err error
		if rec, err = record.Create(conf.Record); err != nil {
			log.Fatalln(err)
		}
		handlers = append(handlers, rec)
		runner.Go(fx.NamedRun("record", rec))
	}

	if conf.WebAddr != "" {
		srv := web.NewServer(conf.WebAddr)
		srv.Scale, srv.Stats = conf.Scale, stats
		handlers = append(handlers, srv)
		runner.Go(fx.NamedRun("web", srv))
	}

	if conf.MQTTBrokerURL != "" {
		device := conf.Serial.Device
		if conf.Replay != "" {
			device = conf.Replay
		}
		pub, err := mqtt.NewPublisher(conf.MQTTBrokerURL, msgs.DeviceMeta{
			ID:     conf.ID,
			Device: device,
			Scale:  conf.Scale.String(),
		})
		if err != nil {
			log.Fatalln(err)
		}
		pub.Scale, pub.MinInterval = conf.Scale, conf.PublishInterval
		pub.Stats, pub.StatsInterval = stats, conf.StatsInterval
		handlers = append(handlers, pub)
		runner.Go(fx.NamedRun("mqtt", pub))
	}

	if stats != nil && conf.StatsInterval > 0 {
		runner.Go(reportStats(conf.StatsInterval, stats))
	}

	runner.Go(source)
	// Wait returns after the recorder has closed the capture.
	err := runner.Wait()
	if rec != nil {
		glog.Infof("%d frames recorded to %s", rec.Count(), conf.Record)
	}
	if err != nil {
		glog.Flush()
		log.Fatalln(err)
	}
}
