//go:build linux

package device

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"syscall"
	"unsafe"
)

const (
	iocGAXES    uint = 0x80016a11
	iocGBUTTONS uint = 0x80016a12
	iocGNAME    uint = 0x80ff6a13

	evBTN  uint8 = 0x01
	evAXIS uint8 = 0x02
	evINIT uint8 = 0x80

	// struct js_event
	eventSize = 8
)

type device struct {
	file        *os.File
	index       int
	name        string
	axisCount   uint8
	buttonCount uint8
	buf         [eventSize]byte
}

// Open opens /dev/input/js<index>.
func Open(index int) (Device, error) {
	f, err := os.OpenFile(fmt.Sprintf("/dev/input/js%d", index), os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	d := &device{file: f, index: index}
	var name [256]byte
	for _, req := range []struct {
		code uint
		ptr  unsafe.Pointer
	}{
		{iocGAXES, unsafe.Pointer(&d.axisCount)},
		{iocGBUTTONS, unsafe.Pointer(&d.buttonCount)},
		{iocGNAME, unsafe.Pointer(&name)},
	} {
		if errno := d.ioctl(req.code, req.ptr); errno != 0 {
			f.Close()
			return nil, fmt.Errorf("joystick %d ioctl %x: %w", index, req.code, errno)
		}
	}
	if pos := bytes.IndexByte(name[:], 0); pos >= 0 {
		d.name = string(name[:pos])
	} else {
		d.name = string(name[:])
	}
	return d, nil
}

// DetectAndOpen opens the first available device from startIndex.
func DetectAndOpen(startIndex int) (Device, error) {
	for index := startIndex; index < 32; index++ {
		d, err := Open(index)
		if os.IsNotExist(err) {
			continue
		}
		return d, err
	}
	return nil, nil
}

func (d *device) Close() error     { return d.file.Close() }
func (d *device) Index() int       { return d.index }
func (d *device) Name() string     { return d.name }
func (d *device) AxisCount() int   { return int(d.axisCount) }
func (d *device) ButtonCount() int { return int(d.buttonCount) }

// ReadEvent implements Device. Event types other than axis and button
// are returned as plain Events.
func (d *device) ReadEvent() (Event, error) {
	if _, err := d.file.Read(d.buf[:]); err != nil {
		return nil, err
	}
	return parseEvent(d.buf[:]), nil
}

func parseEvent(p []byte) Event {
	ev := rawEvent{
		value:  int16(binary.LittleEndian.Uint16(p[4:6])),
		typ:    p[6],
		number: p[7],
	}
	switch ev.typ &^ evINIT {
	case evBTN:
		return buttonEvent{ev}
	case evAXIS:
		return axisEvent{ev}
	}
	return ev
}

type rawEvent struct {
	value  int16
	typ    uint8
	number uint8
}

func (e rawEvent) IsInit() bool { return e.typ&evINIT != 0 }
func (e rawEvent) Index() int   { return int(e.number) }

type axisEvent struct{ rawEvent }

func (e axisEvent) Value() int { return int(e.value) }

type buttonEvent struct{ rawEvent }

func (e buttonEvent) Pressed() bool { return e.value != 0 }

func (d *device) ioctl(req uint, ptr unsafe.Pointer) syscall.Errno {
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, d.file.Fd(), uintptr(req), uintptr(ptr))
	return errno
}
