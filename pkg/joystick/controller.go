package joystick

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/sbus.go/pkg/joystick/device"
)

// DefaultRetryInterval is how often a missing joystick is looked for.
const DefaultRetryInterval = time.Second

// Controller opens a joystick, keeps reopening it when it goes away and
// feeds its events into a Source.
type Controller struct {
	Source        *Source
	DeviceIndex   int
	Verbose       bool
	RetryInterval time.Duration
	Open          device.Opener
}

// NewController creates a Controller with the config.
func (c *Config) NewController(src *Source) *Controller {
	return &Controller{
		Source:        src,
		DeviceIndex:   c.DeviceIndex,
		Verbose:       c.Verbose,
		RetryInterval: DefaultRetryInterval,
		Open:          device.OpenAny,
	}
}

// Run implements Runnable.
func (c *Controller) Run(ctx context.Context) error {
	retry := c.RetryInterval
	if retry <= 0 {
		retry = DefaultRetryInterval
	}
	open := c.Open
	if open == nil {
		open = device.OpenAny
	}
	for {
		js, err := open(c.DeviceIndex)
		switch {
		case err != nil:
			glog.Warningf("open joystick %d error: %v", c.DeviceIndex, err)
		case js == nil:
			glog.V(1).Info("no joystick detected")
		default:
			glog.Infof("joystick %d %q opened, %d axes, %d buttons",
				js.Index(), js.Name(), js.AxisCount(), js.ButtonCount())
			c.Source.SetConnected(true)
			err = c.poll(ctx, js)
			c.Source.SetConnected(false)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			glog.Warningf("joystick %d lost: %v", js.Index(), err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry):
		}
	}
}

// poll reads events until the device fails or ctx is done. The device is
// closed on return; a read blocked in the driver may still deliver one
// late event.
func (c *Controller) poll(ctx context.Context, js device.Device) error {
	errCh := make(chan error, 1)
	go func() {
		for {
			ev, err := js.ReadEvent()
			if err != nil {
				errCh <- err
				return
			}
			if c.Verbose {
				switch e := ev.(type) {
				case device.AxisEvent:
					glog.Infof("axis %d: %d init=%v", e.Index(), e.Value(), e.IsInit())
				case device.ButtonEvent:
					glog.Infof("button %d: %v init=%v", e.Index(), e.Pressed(), e.IsInit())
				}
			}
			c.Source.Apply(ev)
		}
	}()
	select {
	case err := <-errCh:
		js.Close()
		return err
	case <-ctx.Done():
		js.Close()
		return ctx.Err()
	}
}
