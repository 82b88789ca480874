package main

import (
	"flag"
	"log"
	"os"

	fx "github.com/robotalks/sbus.go/pkg/framework"
	"github.com/robotalks/sbus.go/pkg/msgs"
	"github.com/robotalks/sbus.go/pkg/output/mqtt"
)

var (
	mqttURL = "mqtt://localhost:1883/sbus/"
	id      string
	raw     bool
)

func init() {
	if val := os.Getenv("SBUS_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&id, "id", id, "Receiver ID, empty for all.")
	flag.BoolVar(&raw, "raw", raw, "Print raw channel values instead of pulses.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	sub, err := mqtt.NewSubscriber(mqttURL, id)
	if err != nil {
		log.Fatalln(err)
	}
	sub.OnMeta = func(id string, meta *msgs.DeviceMeta) {
		if meta == nil {
			log.Printf("%s: gone", id)
			return
		}
		log.Printf("%s: device=%s scale=%s", id, meta.Device, meta.Scale)
	}
	sub.OnEvent = func(id string, msg msgs.SerializableMessage) {
		switch ev := msg.(type) {
		case *msgs.ChannelsEvent:
			values := interface{}(ev.Pulses)
			if raw {
				values = ev.Raw
			}
			log.Printf("%s: #%d %v flags=%02x", id, ev.Seq, values, ev.Flags)
		case *msgs.StatsEvent:
			log.Printf("%s: frames=%d dropped=%d skipped=%d interval=%dus",
				id, ev.Frames, ev.Dropped, ev.Skipped, ev.IntervalUs)
		}
	}

	runner := fx.NewRunner().HandleSignals()
	runner.Go(fx.NamedRun("monitor", sub))
	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}
