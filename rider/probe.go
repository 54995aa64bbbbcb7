package rider

import (
	"bytes"
	"fmt"
	"io"

	"github.com/lucasjlepore/bryton-gps/track"
)

const (
	probeOffset = 6 * BlockSize
	probeLength = 512
	probeMagic  = "Hera Data"
)

// knownModels maps the model id found in the probe header.
var knownModels = map[string]Generation{
	"1504": Generation40,
	"1510": Generation40,
}

// ProbeResult describes a probed block device.
type ProbeResult struct {
	Model      string     `json:"model"`
	Generation Generation `json:"generation"`
}

// IdentifyHeader maps the header read at the probe address to a generation.
// Unknown model ids are reported to diag and treated as generation 40.
func IdentifyHeader(header []byte, diag track.Diagnostics) (ProbeResult, error) {
	if !bytes.HasPrefix(header, []byte(probeMagic)) || len(header) < 20 {
		return ProbeResult{}, ErrUnknownDevice
	}
	model := string(header[16:20])
	gen, ok := knownModels[model]
	if !ok {
		gen = Generation40
		newDecodeContext(gen, diag).warn(track.WarnUnknownModel, "unknown device model %q", model)
	}
	return ProbeResult{Model: model, Generation: gen}, nil
}

// Probe reads the header block of a raw device.
func Probe(r io.ReaderAt, diag track.Diagnostics) (ProbeResult, error) {
	header := make([]byte, probeLength)
	if _, err := r.ReadAt(header, probeOffset); err != nil && err != io.EOF {
		return ProbeResult{}, fmt.Errorf("read device header: %w", err)
	}
	return IdentifyHeader(header, diag)
}

var filesystemMarkers = []struct {
	dir string
	gen Generation
}{
	{galDir, Generation20Plus},
	{summaryDir310, Generation310},
	{tracelogDir, Generation50},
}

// DetectFilesystem picks the generation from the directory layout.
func DetectFilesystem(fsys *Filesystem) (Generation, error) {
	for _, m := range filesystemMarkers {
		if fsys.Exists(m.dir) {
			return m.gen, nil
		}
	}
	return 0, fmt.Errorf("%s: %w", fsys.Root, ErrUnknownDevice)
}

// OpenBlock returns the decoder for a block-based generation.
func OpenBlock(gen Generation, r io.ReaderAt) (Device, error) {
	switch gen {
	case Generation20:
		return NewRider20(NewBlockDevice(r, blockCount20)), nil
	case Generation35:
		return NewRider35(NewBlockDevice(r, blockCount35)), nil
	case Generation40:
		return NewRider40(NewBlockDevice(r, blockCount40)), nil
	}
	return nil, fmt.Errorf("%s is not read from a block device", gen)
}

// OpenFilesystem returns the decoder for a filesystem-based generation.
func OpenFilesystem(gen Generation, fsys *Filesystem) (Device, error) {
	switch gen {
	case Generation20Plus:
		return NewRider20p(fsys), nil
	case Generation310:
		return NewRider310(fsys), nil
	case Generation50:
		return NewRider50(fsys), nil
	}
	return nil, fmt.Errorf("%s is not read from a filesystem", gen)
}

// BlockCount returns the highest block index of a block-based generation.
func BlockCount(gen Generation) int64 {
	switch gen {
	case Generation20:
		return blockCount20
	case Generation35:
		return blockCount35
	}
	return blockCount40
}
