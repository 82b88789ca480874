package main

import (
	"flag"
	"io"
	"log"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/sbus.go/pkg/config"
	fx "github.com/robotalks/sbus.go/pkg/framework"
	"github.com/robotalks/sbus.go/pkg/joystick"
	"github.com/robotalks/sbus.go/pkg/serial"
)

var (
	pattern = "sweep"
	steps   = 200
	count   int
)

func init() {
	config.SetupSerialFlags()
	joystick.SetupFlags()
	flag.StringVar(&pattern, "pattern", pattern, "Frame source [sweep|joystick]")
	flag.IntVar(&steps, "steps", steps, "Frames per sweep cycle")
	flag.IntVar(&count, "count", count, "Stop after that many frames, 0 runs forever")
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := config.MustLoad()
	jsConf := joystick.NewConfig()

	var out io.Writer = os.Stdout
	if dev := conf.Serial.Device; dev != "" && dev != "-" {
		port, err := serial.Open(&conf.Serial)
		if err != nil {
			log.Fatalln(err)
		}
		defer port.Close()
		out = port
	}

	runner := fx.NewRunner().HandleSignals()
	gen := &joystick.Generator{Writer: out, Period: jsConf.Period, Count: count}
	switch pattern {
	case "sweep":
		gen.Source = &joystick.Sweep{Steps: steps}
	case "joystick":
		src := joystick.NewSource(jsConf.Mapping)
		gen.Source = src
		runner.Go(fx.NamedRun("joystick", jsConf.NewController(src)))
	default:
		log.Fatalf("unknown pattern %q", pattern)
	}
	runner.Go(fx.NamedRun("generator", gen))
	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}
