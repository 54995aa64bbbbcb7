package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/lucasjlepore/bryton-gps/log"
	"github.com/lucasjlepore/bryton-gps/rider"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openDevice resolves the configured device to a decoder. The returned
// closer releases the device node.
func openDevice() (rider.Device, io.Closer, error) {
	var gen rider.Generation
	if opts.Model != "" {
		g, err := rider.ParseGeneration(opts.Model)
		if err != nil {
			return nil, nil, err
		}
		gen = g
	}

	if opts.FS != "" {
		return openFilesystem(gen, opts.FS)
	}

	devPath := opts.Device
	if devPath == "" {
		p, err := rider.FindDevice()
		if err != nil {
			return nil, nil, err
		}
		devPath = p
	}
	log.Logger.Debug("using device", zap.String("path", devPath))

	if gen != 0 && !gen.BlockBased() {
		return openMounted(gen, devPath)
	}

	f, err := rider.OpenBlockDevice(devPath)
	if err != nil {
		return nil, nil, err
	}
	if gen == 0 {
		res, err := rider.Probe(f, diagnostics())
		if errors.Is(err, rider.ErrUnknownDevice) {
			_ = f.Close()
			return openMounted(0, devPath)
		}
		if err != nil {
			_ = f.Close()
			return nil, nil, err
		}
		log.Logger.Debug("probed device", zap.String("model", res.Model), zap.Stringer("generation", res.Generation))
		gen = res.Generation
	}
	dev, err := rider.OpenBlock(gen, f)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return dev, f, nil
}

func openMounted(gen rider.Generation, devPath string) (rider.Device, io.Closer, error) {
	root, err := rider.FindMountPoint(devPath)
	if err != nil {
		return nil, nil, err
	}
	return openFilesystem(gen, root)
}

func openFilesystem(gen rider.Generation, root string) (rider.Device, io.Closer, error) {
	if st, err := os.Stat(root); err != nil {
		return nil, nil, err
	} else if !st.IsDir() {
		return nil, nil, fmt.Errorf("%s is not a directory", root)
	}
	fsys := &rider.Filesystem{Root: root}
	if gen == 0 {
		g, err := rider.DetectFilesystem(fsys)
		if err != nil {
			return nil, nil, err
		}
		gen = g
	}
	log.Logger.Debug("using filesystem", zap.String("root", root), zap.Stringer("generation", gen))
	dev, err := rider.OpenFilesystem(gen, fsys)
	if err != nil {
		return nil, nil, err
	}
	return dev, nopCloser{}, nil
}
