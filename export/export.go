package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Write encodes r in format f.
func Write(w io.Writer, r *Ride, f Format, pretty bool) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, r, pretty)
	case FormatGPX:
		return WriteGPX(w, r, pretty)
	case FormatGPXX:
		return WriteGPXX(w, r, pretty)
	case FormatTCX:
		return WriteTCX(w, r, pretty)
	case FormatCSV:
		return WriteCSV(w, r)
	case FormatParquet:
		data, err := MarshalParquet(r)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	return fmt.Errorf("unsupported format %q", f)
}

// SaveFile writes r to dir/name and returns the path. An empty name is
// derived from the ride name.
func SaveFile(dir, name string, r *Ride, f Format, pretty bool) (string, error) {
	if name == "" {
		name = FileName(r.Name, f)
	}
	path := filepath.Join(dir, name)
	if f == FormatParquet {
		if err := WriteParquetFile(path, r); err != nil {
			return "", fmt.Errorf("write %s: %w", path, err)
		}
		return path, nil
	}

	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := Write(out, r, f, pretty); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, out.Close()
}
