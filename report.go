// Package brytongps renders ride history, summaries and device storage as
// plain text reports.
package brytongps

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/lucasjlepore/bryton-gps/rider"
	"github.com/lucasjlepore/bryton-gps/track"
)

// Location is the time zone used for report timestamps.
var Location = time.Local

const summaryRule = "==================================================="

// FormatBytes renders a byte count with one decimal and a binary unit.
func FormatBytes(n int64) string {
	num := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if num < 1024 && num > -1024 {
			return fmt.Sprintf("%3.1f%s", num, unit)
		}
		num /= 1024
	}
	return fmt.Sprintf("%3.1f%s", num, "TB")
}

func formatTime(ts int64) string {
	return time.Unix(ts, 0).In(Location).Format("2006-01-02 15:04:05")
}

// formatRideTime renders seconds as H:MM:SS.
func formatRideTime(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func storageLine(t *track.Track) (string, error) {
	u, err := t.StorageUsage()
	if err != nil {
		return "", fmt.Errorf("storage usage of %q: %w", t.Name, err)
	}
	return fmt.Sprintf("Trackpoints %s  -  Logpoints %s", FormatBytes(u.Trackpoints), FormatBytes(u.Logpoints)), nil
}

// WriteHistory lists rides with their index. With storage set the space
// taken by each ride is appended.
func WriteHistory(w io.Writer, history []*track.Track, storage bool) error {
	if len(history) == 0 {
		_, err := fmt.Fprintln(w, "No tracks")
		return err
	}
	var b strings.Builder
	for i, t := range history {
		fmt.Fprintf(&b, "%2d : %s", i, t.Name)
		if storage {
			line, err := storageLine(t)
			if err != nil {
				return err
			}
			fmt.Fprintf(&b, " - %s", line)
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeAvgMax(b *strings.Builder, label, unit string, v *track.AvgMax) {
	if v == nil || v.Max <= 0 {
		return
	}
	fmt.Fprintf(b, "%7s: %s%s / %s%s (avg/max)\n", label, formatNumber(v.Avg), unit, formatNumber(v.Max), unit)
}

// BuildSummary renders the summary block of a ride.
func BuildSummary(t *track.Track, storage bool) (string, error) {
	s, err := t.Summary()
	if err != nil {
		return "", err
	}
	laps, err := t.LapSummaries()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(summaryRule + "\n")
	fmt.Fprintf(&b, "%s\n", formatTime(s.Start))
	fmt.Fprintf(&b, "%s - %s (%s)\n", formatTime(s.Start), formatTime(s.End), formatRideTime(s.RideTime))
	fmt.Fprintf(&b, "   Dist: %.2fKm\n", s.Distance/1000)
	fmt.Fprintf(&b, "    Cal: %d\n", s.Calories)
	fmt.Fprintf(&b, "    Alt: %sm / %sm (gain/loss)\n", formatNumber(s.AltitudeGain), formatNumber(s.AltitudeLoss))
	fmt.Fprintf(&b, "  Speed: %sKph / %sKph (avg/max)\n", formatNumber(s.Speed.Avg), formatNumber(s.Speed.Max))
	writeAvgMax(&b, "Hr", "bpm", s.Heartrate)
	writeAvgMax(&b, "Cad", "rpm", s.Cadence)
	writeAvgMax(&b, "Watts", "", s.Watts)

	if t.LapCount > 0 || len(laps) > 1 {
		fmt.Fprintf(&b, "   Laps: %d\n", len(laps))
	}
	if storage {
		line, err := storageLine(t)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "Storage: %s\n", line)
	}
	return b.String(), nil
}

// WriteSummaries writes the summary block of every ride.
func WriteSummaries(w io.Writer, tracks []*track.Track, storage bool) error {
	for _, t := range tracks {
		out, err := BuildSummary(t, storage)
		if err != nil {
			return fmt.Errorf("summary of %q: %w", t.Name, err)
		}
		if _, err := io.WriteString(w, out); err != nil {
			return err
		}
	}
	return nil
}

func percent(part, total int64) int64 {
	if total <= 0 {
		return 0
	}
	return 100 * part / total
}

// WriteStorage renders the storage table of a device. Areas whose free
// space is unknown show "?" for used and left.
func WriteStorage(w io.Writer, u rider.DeviceStorage) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%12s | %10s | %16s | %10s\n", "Type", "Total", "Used", "Left")
	fmt.Fprintf(&b, "%s|%s|%s|%s\n",
		strings.Repeat("-", 13), strings.Repeat("-", 12), strings.Repeat("-", 18), strings.Repeat("-", 17))
	for _, a := range u.Areas {
		used := a.Used()
		if used < 0 {
			fmt.Fprintf(&b, "%12s | %10s | %10s (%2s%%) | %10s (%2s%%)\n",
				a.Name, FormatBytes(a.Total), "?", "?", "?", "?")
			continue
		}
		p := percent(used, a.Total)
		fmt.Fprintf(&b, "%12s | %10s | %10s (%2d%%) | %10s (%2d%%)\n",
			a.Name, FormatBytes(a.Total), FormatBytes(used), p, FormatBytes(a.Left), 100-p)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
