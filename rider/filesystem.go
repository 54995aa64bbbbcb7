package rider

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/lucasjlepore/bryton-gps/buffer"
)

// Filesystem is the mounted storage of a filesystem-based generation.
// Paths passed to its methods use forward slashes relative to Root.
type Filesystem struct {
	Root string
}

func (f *Filesystem) abs(rel string) string {
	return filepath.Join(f.Root, filepath.FromSlash(rel))
}

// Exists reports whether rel exists.
func (f *Filesystem) Exists(rel string) bool {
	_, err := os.Stat(f.abs(rel))
	return err == nil
}

func (f *Filesystem) ReadFile(rel string) ([]byte, error) {
	return os.ReadFile(f.abs(rel))
}

// Open loads a whole file into a bounded cursor.
func (f *Filesystem) Open(rel string) (*buffer.Cursor, error) {
	data, err := f.ReadFile(rel)
	if err != nil {
		return nil, err
	}
	return buffer.New(data), nil
}

// ListDir returns the sorted relative paths of the entries in dir.
func (f *Filesystem) ListDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(f.abs(dir))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, path.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// Size returns the size of rel in bytes.
func (f *Filesystem) Size(rel string) (int64, error) {
	st, err := os.Stat(f.abs(rel))
	if err != nil {
		return 0, err
	}
	return st.Size(), nil
}

// Usage returns the total and available bytes of the filesystem.
func (f *Filesystem) Usage() (DeviceStorage, error) {
	total, free, err := statFilesystem(f.Root)
	if err != nil {
		return DeviceStorage{}, fmt.Errorf("statfs %s: %w", f.Root, err)
	}
	return DeviceStorage{Areas: []AreaUsage{{Name: "Total", Total: total, Left: free}}}, nil
}

var uuidPattern = regexp.MustCompile(`UUID=(\d+)`)

// readUUID extracts the serial number from an ini style file.
func (f *Filesystem) readUUID(rel string) (string, error) {
	data, err := f.ReadFile(rel)
	if err != nil {
		return "", fmt.Errorf("read serial: %w", err)
	}
	m := uuidPattern.FindSubmatch(data)
	if m == nil {
		return "", fmt.Errorf("%s: %w", rel, ErrSerialUnavailable)
	}
	return string(m[1]), nil
}

// FindMountPoint looks up where devPath is mounted.
func FindMountPoint(devPath string) (string, error) {
	f, err := os.Open("/proc/mounts")
	if err != nil {
		return "", err
	}
	defer f.Close()
	return findMountPoint(f, devPath)
}

func findMountPoint(mounts io.Reader, devPath string) (string, error) {
	candidates := []string{devPath}
	if resolved, err := filepath.EvalSymlinks(devPath); err == nil && resolved != devPath {
		candidates = append(candidates, resolved)
	}
	sc := bufio.NewScanner(mounts)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		for _, c := range candidates {
			if fields[0] == c {
				return fields[1], nil
			}
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("%w for %s (pass the mount point explicitly)", ErrMountNotFound, devPath)
}
