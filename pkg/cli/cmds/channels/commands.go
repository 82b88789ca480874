// Package channels provides sbuscli commands to inspect frames.
package channels

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/sbus.go/pkg/cli/sh"
	"github.com/robotalks/sbus.go/pkg/sbus"
)

// ParseIndices parses channel indices. No args selects all channels.
func ParseIndices(args []string) ([]int, error) {
	if len(args) == 0 {
		indices := make([]int, sbus.NumChannels)
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}
	indices := make([]int, 0, len(args))
	for _, arg := range args {
		index, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid channel %q", arg)
		}
		indices = append(indices, index)
	}
	return indices, nil
}

// ChannelValues extracts the selected raw channels.
func ChannelValues(f sbus.Frame, indices []int) (map[int]uint16, error) {
	values := make(map[int]uint16, len(indices))
	for _, index := range indices {
		v, err := f.Channel(index)
		if err != nil {
			return nil, err
		}
		values[index] = v
	}
	return values, nil
}

// FormatChannels prints values in index order as "CHn=value".
func FormatChannels(indices []int, values map[int]uint16) string {
	var w bytes.Buffer
	for n, index := range indices {
		if n > 0 {
			w.WriteByte(' ')
		}
		fmt.Fprintf(&w, "%s=%d", sbus.ChannelLabel(index), values[index])
	}
	return w.String()
}

// FormatRaw prints all raw values.
func FormatRaw(f sbus.Frame) string {
	raw := f.Channels()
	strs := make([]string, len(raw))
	for i, v := range raw {
		strs[i] = strconv.Itoa(int(v))
	}
	return strings.Join(strs, " ")
}

// FormatPulses prints all pulse lengths.
func FormatPulses(pulses [sbus.NumChannels]int) string {
	strs := make([]string, len(pulses))
	for i, v := range pulses {
		strs[i] = strconv.Itoa(v) + "us"
	}
	return strings.Join(strs, " ")
}

// ParseHex parses a frame in hex, spaces allowed.
func ParseHex(args []string) (sbus.Frame, error) {
	data, err := hex.DecodeString(strings.Join(strings.Fields(strings.Join(args, " ")), ""))
	if err != nil {
		return sbus.Frame{}, err
	}
	return sbus.ParseFrame(data)
}

// ParseRaw parses up to 16 raw channel values, followed by an optional
// flags=N argument.
func ParseRaw(args []string) (sbus.Frame, error) {
	var raw [sbus.NumChannels]uint16
	var flags sbus.Flags
	n := 0
	for _, arg := range args {
		if strings.HasPrefix(arg, "flags=") {
			v, err := strconv.ParseUint(arg[6:], 0, 8)
			if err != nil {
				return sbus.Frame{}, fmt.Errorf("invalid flags %q", arg)
			}
			flags = sbus.Flags(v)
			continue
		}
		if n >= sbus.NumChannels {
			return sbus.Frame{}, &sbus.ChannelRangeError{Index: n}
		}
		v, err := strconv.ParseUint(arg, 0, 16)
		if err != nil || v > sbus.ChannelMax {
			return sbus.Frame{}, fmt.Errorf("invalid channel value %q", arg)
		}
		raw[n] = uint16(v)
		n++
	}
	return sbus.NewFrame(raw, flags), nil
}

func scaleOf(c *ishell.Context) sbus.Scaler {
	return sh.ShellFrom(c).Config.Scale
}

func printFrame(c *ishell.Context, f sbus.Frame) {
	pulses := f.PulsesWith(scaleOf(c))
	sh.Print(c, map[string]interface{}{
		"raw":    f.Channels(),
		"pulses": pulses,
		"flags":  f.Flags(),
	}, fmt.Sprintf("raw:    %s\npulses: %s\nflags:  %s", FormatRaw(f), FormatPulses(pulses), f.Flags()))
}

var (
	// ChCmd prints selected raw channels of the latest frame.
	ChCmd = ishell.Cmd{
		Name: "ch",
		Help: "INDEX...",
		Func: sh.WithLatest(func(c *ishell.Context, f sbus.Frame) {
			indices, err := ParseIndices(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			values, err := ChannelValues(f, indices)
			if err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, values, FormatChannels(indices, values))
		}),
	}

	// ChannelsCmd prints all raw channels of the latest frame.
	ChannelsCmd = ishell.Cmd{
		Name:    "channels",
		Aliases: []string{"raw"},
		Help:    "",
		Func: sh.WithLatest(func(c *ishell.Context, f sbus.Frame) {
			sh.Print(c, f.Channels(), FormatRaw(f))
		}),
	}

	// PulsesCmd prints all channels of the latest frame in microseconds.
	PulsesCmd = ishell.Cmd{
		Name: "pulses",
		Help: "",
		Func: sh.WithLatest(func(c *ishell.Context, f sbus.Frame) {
			pulses := f.PulsesWith(scaleOf(c))
			sh.Print(c, pulses, FormatPulses(pulses))
		}),
	}

	// FlagsCmd prints the flags of the latest frame.
	FlagsCmd = ishell.Cmd{
		Name: "flags",
		Help: "",
		Func: sh.WithLatest(func(c *ishell.Context, f sbus.Frame) {
			flags := f.Flags()
			sh.Print(c, map[string]bool{
				"ch17":     flags.Ch17(),
				"ch18":     flags.Ch18(),
				"lost":     flags.FrameLost(),
				"failsafe": flags.Failsafe(),
			}, flags.String())
		}),
	}

	// DecodeCmd decodes a frame given in hex.
	DecodeCmd = ishell.Cmd{
		Name: "decode",
		Help: "HEX",
		Func: func(c *ishell.Context) {
			f, err := ParseHex(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			printFrame(c, f)
		},
	}

	// EncodeCmd encodes raw values into a frame in hex.
	EncodeCmd = ishell.Cmd{
		Name: "encode",
		Help: "RAW... [flags=N]",
		Func: func(c *ishell.Context) {
			f, err := ParseRaw(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, f.String(), f.String())
		},
	}
)

func init() {
	sh.AddCmds(
		&ChCmd,
		&ChannelsCmd,
		&PulsesCmd,
		&FlagsCmd,
		&DecodeCmd,
		&EncodeCmd,
	)
}
