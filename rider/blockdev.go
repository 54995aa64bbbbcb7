package rider

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/lucasjlepore/bryton-gps/buffer"
)

const (
	// BlockSize is the read unit of block-based generations.
	BlockSize = 4096

	blockCount40 = 0x1ff
	blockCount20 = 0x0ff
	blockCount35 = 0x0ff
)

// SerialReader is implemented by transports that can return the device
// serial number.
type SerialReader interface {
	ReadSerial() (string, error)
}

// BlockDevice reads fixed-size blocks from a raw device node or an image
// produced by Dump.
type BlockDevice struct {
	r        io.ReaderAt
	maxBlock int64
}

// NewBlockDevice wraps r. Blocks after maxBlock are never read.
func NewBlockDevice(r io.ReaderAt, maxBlock int64) *BlockDevice {
	return &BlockDevice{r: r, maxBlock: maxBlock}
}

func (d *BlockDevice) BlockSize() int { return BlockSize }

// ReadBlock reads block index. A short final block of an image is padded
// with zeros.
func (d *BlockDevice) ReadBlock(index int64) ([]byte, error) {
	if index < 0 || index > d.maxBlock {
		return nil, fmt.Errorf("block %d: %w", index, ErrReadPastEndOfDevice)
	}
	b := make([]byte, BlockSize)
	n, err := d.r.ReadAt(b, index*BlockSize)
	if err != nil && !(errors.Is(err, io.EOF) && n > 0) {
		return nil, err
	}
	return b, nil
}

// Cursor returns a lazily extended cursor at the absolute offset.
func (d *BlockDevice) Cursor(offset int64) (*buffer.Cursor, error) {
	return buffer.NewBlockCursor(d, offset)
}

// ReadSerial returns the serial number when the transport supports it.
func (d *BlockDevice) ReadSerial() (string, error) {
	if sr, ok := d.r.(SerialReader); ok {
		return sr.ReadSerial()
	}
	return "", ErrSerialUnavailable
}

// OpenBlockDevice opens a device node or image file for reading.
func OpenBlockDevice(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("failed to open device %q (permission denied): %w", path, err)
		}
		return nil, err
	}
	return f, nil
}

const deviceGlob = "/dev/disk/by-id/usb-BRYTON_MASS_STORAGE_*"

// FindDevice returns the single attached device node.
func FindDevice() (string, error) {
	return findDevice(deviceGlob)
}

func findDevice(pattern string) (string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", ErrDeviceNotFound
	case 1:
		return matches[0], nil
	}
	return "", fmt.Errorf("%w: %v", ErrMultipleDevices, matches)
}

// Dump copies blocks 0..maxBlock of the device to w.
func Dump(d *BlockDevice, w io.Writer) (int64, error) {
	var written int64
	for i := int64(0); i <= d.maxBlock; i++ {
		b, err := d.ReadBlock(i)
		if err != nil {
			return written, fmt.Errorf("dump block %d: %w", i, err)
		}
		n, err := w.Write(b)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
