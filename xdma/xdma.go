/*Package xdma is the driver shim between the ThunderScope host core and the
Linux XDMA kernel driver's device nodes: positional reads/writes against the
BAR-mapped register node and the DMA-to-host streaming channel, plus device
discovery.

This package does not implement a kernel driver; it only opens and issues
pread/pwrite against the nodes the driver exposes, the way the teacher's comm
package wraps a TCP or serial transport without implementing TCP or serial
itself.
*/
package xdma

import (
	"os"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// ErrNotFound is returned by Open when the control node for the requested
// device path does not exist: the distinguishing signal between "no such
// device" and a transport failure against a device that is present.
var ErrNotFound = errors.New("xdma: device not found")

// Device holds the open file descriptors for a discovered XDMA device: the
// user-register BAR node (read/write) and the card-to-host DMA channel node
// (read-only).
type Device struct {
	path string

	user *os.File
	c2h  *os.File
}

// Open discovers and opens the XDMA device rooted at path (e.g.
// "/dev/xdma0"). It probes "<path>_control" for existence to distinguish a
// missing device from an I/O failure on a present one, then opens
// "<path>_user" and "<path>_c2h_0".
//
// Node opens are retried with exponential backoff, the same shape as the
// teacher's comm.RemoteDevice.Open: a device mid power-cycle may not have
// its nodes attached the instant the control node appears.
func Open(path string) (*Device, error) {
	controlPath := path + "_control"
	if _, err := os.Stat(controlPath); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "xdma: stat %s", controlPath)
	}

	d := &Device{path: path}
	op := func() error {
		user, err := os.OpenFile(path+"_user", os.O_RDWR, 0)
		if err != nil {
			return err
		}
		c2h, err := os.OpenFile(path+"_c2h_0", os.O_RDONLY, 0)
		if err != nil {
			user.Close()
			return err
		}
		d.user = user
		d.c2h = c2h
		return nil
	}
	bo := &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      3 * time.Second,
		Clock:               backoff.SystemClock,
	}
	if err := backoff.Retry(op, bo); err != nil {
		return nil, errors.Wrapf(err, "xdma: opening device nodes at %s", path)
	}
	return d, nil
}

// Close closes both device nodes.
func (d *Device) Close() error {
	var err error
	if d.user != nil {
		err = d.user.Close()
	}
	if d.c2h != nil {
		if cerr := d.c2h.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// ReadUser performs a positional read of len(buf) bytes from the
// user-register BAR node at byte offset addr.
func (d *Device) ReadUser(addr int64, buf []byte) error {
	n, err := d.user.ReadAt(buf, addr)
	if err != nil {
		return errors.Wrapf(err, "xdma: read_user at 0x%x", addr)
	}
	if n != len(buf) {
		return errors.Errorf("xdma: read_user at 0x%x: short read %d != %d", addr, n, len(buf))
	}
	return nil
}

// WriteUser performs a positional write of buf to the user-register BAR
// node at byte offset addr.
func (d *Device) WriteUser(addr int64, buf []byte) error {
	n, err := d.user.WriteAt(buf, addr)
	if err != nil {
		return errors.Wrapf(err, "xdma: write_user at 0x%x", addr)
	}
	if n != len(buf) {
		return errors.Errorf("xdma: write_user at 0x%x: short write %d != %d", addr, n, len(buf))
	}
	return nil
}

// ReadDMA performs a positional read of len(buf) bytes from the
// card-to-host DMA channel node at byte offset addr into the device-side
// circular memory.
func (d *Device) ReadDMA(addr int64, buf []byte) error {
	n, err := unix.Pread(int(d.c2h.Fd()), buf, addr)
	if err != nil {
		return errors.Wrapf(err, "xdma: read_dma at 0x%x", addr)
	}
	if n != len(buf) {
		return errors.Errorf("xdma: read_dma at 0x%x: short read %d != %d", addr, n, len(buf))
	}
	return nil
}
