package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	brytongps "github.com/lucasjlepore/bryton-gps"
	"github.com/lucasjlepore/bryton-gps/export"
	"github.com/lucasjlepore/bryton-gps/log"
	"github.com/lucasjlepore/bryton-gps/rider"
	"github.com/lucasjlepore/bryton-gps/track"
)

func withDevice(fn func(dev rider.Device) error) error {
	dev, closer, err := openDevice()
	if err != nil {
		return err
	}
	defer closer.Close()
	return fn(dev)
}

func withTracks(ids []string, fn func(tracks []*track.Track) error) error {
	return withDevice(func(dev rider.Device) error {
		history, err := brytongps.ReadHistory(dev, diagnostics())
		if err != nil {
			return err
		}
		tracks, err := brytongps.SelectTracks(history, ids)
		if err != nil {
			return err
		}
		return fn(tracks)
	})
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List rides, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDevice(func(dev rider.Device) error {
				history, err := brytongps.ReadHistory(dev, diagnostics())
				if err != nil {
					return err
				}
				return brytongps.WriteHistory(cmd.OutOrStdout(), history, opts.Storage)
			})
		},
	}
	cmd.Flags().BoolVar(&opts.Storage, "storage", false, "show the space taken by each ride")
	return cmd
}

func newSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary TRACK_ID...",
		Short: "Print the summary of rides",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracks(args, func(tracks []*track.Track) error {
				return brytongps.WriteSummaries(cmd.OutOrStdout(), tracks, opts.Storage)
			})
		},
	}
	cmd.Flags().BoolVar(&opts.Storage, "storage", false, "show the space taken by each ride")
	return cmd
}

func newStorageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "storage",
		Short: "Show storage usage of the device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDevice(func(dev rider.Device) error {
				u, err := dev.ReadStorageUsage()
				if err != nil {
					return err
				}
				return brytongps.WriteStorage(cmd.OutOrStdout(), u)
			})
		},
	}
}

func newSerialCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serial",
		Short: "Print the device serial number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDevice(func(dev rider.Device) error {
				serial, err := dev.ReadSerial()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), serial)
				return err
			})
		},
	}
}

var errOutNameMultiple = errors.New("--out-name can only be used with a single track")

func newExportCmd() *cobra.Command {
	var (
		format string
		tcx    bool
	)
	cmd := &cobra.Command{
		Use:   "export TRACK_ID...",
		Short: "Export rides as json, gpx, gpxx, tcx, csv or parquet",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if tcx {
				format = string(export.FormatTCX)
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			if opts.OutName != "" && len(args) > 1 {
				return errOutNameMultiple
			}
			var exportOpts export.Options
			if cmd.Flags().Changed("fix-elevation") {
				ele := opts.FixElevation
				exportOpts.FixElevation = &ele
			}
			exportOpts.StripElevation = opts.StripElevation

			return withTracks(args, func(tracks []*track.Track) error {
				for _, t := range tracks {
					r, err := export.Load(t, exportOpts)
					if err != nil {
						return err
					}
					if opts.SaveTo == "" && opts.OutName == "" {
						if err := export.Write(cmd.OutOrStdout(), r, f, opts.Pretty); err != nil {
							return err
						}
						continue
					}
					path, err := export.SaveFile(opts.SaveTo, opts.OutName, r, f, opts.Pretty)
					if err != nil {
						return err
					}
					log.Logger.Info("exported track", zap.String("track", t.Name), zap.String("path", path))
				}
				return nil
			})
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&format, "format", "f", string(export.FormatGPX),
		"output format ("+strings.Join(export.Formats(), "|")+")")
	fl.BoolVar(&tcx, "tcx", false, "export as tcx, overrides --format")
	fl.StringVarP(&opts.SaveTo, "save-to", "S", "", "directory to store exported files")
	fl.StringVarP(&opts.OutName, "out-name", "O", "", "file name to export to, single track only")
	fl.BoolVar(&opts.Pretty, "pretty", true, "indent json, gpx and tcx output")
	fl.Float64Var(&opts.FixElevation, "fix-elevation", 0,
		"set the elevation of the first trackpoint and shift the others by the same amount")
	fl.BoolVar(&opts.StripElevation, "strip-elevation", false, "set every elevation to 0")
	return cmd
}

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump FILE",
		Short: "Copy the blocks of a block based device to an image file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			devPath := opts.Device
			if devPath == "" {
				p, err := rider.FindDevice()
				if err != nil {
					return err
				}
				devPath = p
			}
			in, err := rider.OpenBlockDevice(devPath)
			if err != nil {
				return err
			}
			defer in.Close()

			gen := rider.Generation40
			if opts.Model != "" {
				if gen, err = rider.ParseGeneration(opts.Model); err != nil {
					return err
				}
			} else if res, err := rider.Probe(in, diagnostics()); err == nil {
				gen = res.Generation
			} else {
				return err
			}
			if !gen.BlockBased() {
				return fmt.Errorf("%s is not a block based device", gen)
			}

			out, err := os.Create(args[0])
			if err != nil {
				return err
			}
			n, err := rider.Dump(rider.NewBlockDevice(in, rider.BlockCount(gen)), out)
			if cerr := out.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			log.Logger.Info("dumped device", zap.String("path", args[0]), zap.Int64("bytes", n))
			return nil
		},
	}
}
