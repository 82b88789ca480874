// Package sh provides the interactive shell of sbuscli.
package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/sbus.go/pkg/config"
	fx "github.com/robotalks/sbus.go/pkg/framework"
	"github.com/robotalks/sbus.go/pkg/sbus"
	"github.com/robotalks/sbus.go/pkg/serial"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoOpen    bool

	Shell   *ishell.Shell
	Config  *config.Config
	Session *Session
}

const (
	shellKey     = "$shell"
	closedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&OpenCmd,
		&CloseCmd,
		&StatsCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *config.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(closedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeOpen wraps command func requires an open source.
func MustBeOpen(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Session == nil {
			c.Err(fmt.Errorf("not open"))
			return
		}
		fn(c)
	}
}

// WithLatest wraps command func requires a received frame.
func WithLatest(fn func(c *ishell.Context, f sbus.Frame)) func(c *ishell.Context) {
	return MustBeOpen(func(c *ishell.Context) {
		f, ok := ShellFrom(c).Session.Latest()
		if !ok {
			c.Err(fmt.Errorf("no frame received"))
			return
		}
		fn(c, f)
	})
}

// Print prints v as JSON in JSON mode, or its text form.
func Print(c *ishell.Context, v interface{}, text string) {
	if ShellFrom(c).OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(text)
}

// WithAutoOpen sets AutoOpen.
func (s *Shell) WithAutoOpen(en bool) *Shell {
	s.AutoOpen = en
	return s
}

// Open opens a serial device or tcp://host:port and starts receiving.
func (s *Shell) Open(device string) error {
	cfg := s.Config.Serial
	cfg.Device = device
	port, err := serial.Open(&cfg)
	if err != nil {
		return err
	}
	s.Attach(device, port, cfg.ReadTimeout > 0)
	return nil
}

// Attach starts receiving from an opened port, replacing the current
// session.
func (s *Shell) Attach(name string, port io.ReadCloser, readTimeout bool) {
	s.Close()
	s.Session = startSession(name, port, readTimeout)
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", name))
}

// Close stops the current session.
func (s *Shell) Close() {
	if s.Session != nil {
		s.Session.Close()
		s.Session = nil
		s.Shell.SetPrompt(closedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoOpen && s.Config.Serial.Device != "" {
		if s.Interactive {
			s.Shell.Printf("Opening %s ...\n", s.Config.Serial.Device)
		}
		if err := s.Open(s.Config.Serial.Device); err != nil {
			log.Fatalf("open %q failed: %v", s.Config.Serial.Device, err)
		}
	}
	defer s.Close()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// Session receives frames in background and keeps the latest one.
type Session struct {
	Name     string
	Receiver *sbus.Receiver

	cancel func()
	doneCh chan struct{}
	lock   sync.RWMutex
	latest sbus.Frame
	has    bool
	err    error
}

func startSession(name string, port io.ReadCloser, readTimeout bool) *Session {
	ss := &Session{Name: name, doneCh: make(chan struct{})}
	ss.Receiver = sbus.NewReceiver(port, ss)
	ss.Receiver.ReadTimeout = readTimeout
	var ctx context.Context
	ctx, ss.cancel = context.WithCancel(context.Background())
	go func() {
		err := fx.RunWithContextCloser(ctx, port, func() error {
			return ss.Receiver.Run(ctx)
		})
		ss.lock.Lock()
		if err != context.Canceled {
			ss.err = err
		}
		ss.lock.Unlock()
		close(ss.doneCh)
	}()
	return ss
}

// HandleFrame implements sbus.FrameHandler.
func (ss *Session) HandleFrame(ctx context.Context, f sbus.Frame) {
	ss.lock.Lock()
	ss.latest, ss.has = f, true
	ss.lock.Unlock()
}

// Latest returns the last received frame.
func (ss *Session) Latest() (sbus.Frame, bool) {
	ss.lock.RLock()
	defer ss.lock.RUnlock()
	return ss.latest, ss.has
}

// Err returns why receiving stopped, nil while running or at end of stream.
func (ss *Session) Err() error {
	ss.lock.RLock()
	defer ss.lock.RUnlock()
	return ss.err
}

// Done is closed when receiving stopped.
func (ss *Session) Done() <-chan struct{} {
	return ss.doneCh
}

// Close stops receiving and closes the port.
func (ss *Session) Close() {
	ss.cancel()
	select {
	case <-ss.doneCh:
	case <-time.After(time.Second):
	}
}

var (
	// OpenCmd opens a byte source.
	OpenCmd = ishell.Cmd{
		Name:    "open",
		Aliases: []string{"o"},
		Help:    "DEVICE|tcp://HOST:PORT",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			device := s.Config.Serial.Device
			if len(c.Args) > 0 {
				device = c.Args[0]
			}
			if device == "" {
				ports, err := serial.Ports()
				if err != nil {
					c.Err(err)
					return
				}
				if len(ports) == 0 || !s.Interactive {
					c.Err(fmt.Errorf("device expected"))
					return
				}
				device = ports[s.Shell.MultiChoice(ports, "Which port to open?")]
			}
			if err := s.Open(device); err != nil {
				c.Err(err)
			}
		},
	}

	// CloseCmd closes the byte source.
	CloseCmd = ishell.Cmd{
		Name:    "close",
		Aliases: []string{"c"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Close()
		},
	}

	// StatsCmd prints receiver stats.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Help: "",
		Func: MustBeOpen(func(c *ishell.Context) {
			ss := ShellFrom(c).Session
			stats := ss.Receiver.Stats()
			text := FormatStats(stats)
			if err := ss.Err(); err != nil {
				text += fmt.Sprintf("\nstopped: %v", err)
			}
			Print(c, stats, text)
		}),
	}
)

// FormatStats prints stats into friendly string for display.
func FormatStats(s sbus.ReceiverStats) string {
	return fmt.Sprintf("frames=%d dropped=%d skipped=%d bytes=%d interval=%v",
		s.Frames, s.Dropped, s.Skipped, s.Bytes, s.Interval)
}

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(config.MustLoad()).WithAutoOpen(true).Run(flag.Args()...)
}
