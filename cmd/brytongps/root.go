package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lucasjlepore/bryton-gps/log"
	"github.com/lucasjlepore/bryton-gps/track"
)

const envPrefix = "BRYTON"

type options struct {
	Device         string
	FS             string
	Model          string
	SaveTo         string
	OutName        string
	Pretty         bool
	Verbose        bool
	Storage        bool
	FixElevation   float64
	StripElevation bool
}

var (
	cfgFile string
	opts    options
	// warnings collects decode warnings of the running command.
	warnings = &track.Collector{}
)

var rootCmd = &cobra.Command{
	Use:           "brytongps",
	Short:         "Read ride history from Bryton bicycle computers",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if opts.Verbose {
			return log.InitDevelopmentLogger()
		}
		return log.InitProductionLogger()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if n := len(warnings.Warnings()); n > 0 {
			log.Logger.Info("decoded with warnings", zap.Int("count", n))
		}
		_ = log.Logger.Sync()
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.bryton-gps.yml)")
	pf.StringVarP(&opts.Device, "device", "D", "",
		"path to the device node or image, autodetected when empty")
	pf.StringVar(&opts.FS, "fs", "", "mount point of a filesystem based device")
	pf.StringVar(&opts.Model, "model", "",
		"device generation (20, 20p, 310, 35, 40, 50), probed when empty")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "development logging")

	rootCmd.AddCommand(
		newHistoryCmd(),
		newSummaryCmd(),
		newStorageCmd(),
		newSerialCmd(),
		newExportCmd(),
		newDumpCmd(),
	)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".bryton-gps")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	bindFlags(rootCmd, viper.GetViper())
	for _, cmd := range rootCmd.Commands() {
		bindFlags(cmd, viper.GetViper())
	}
}

// bindFlags applies config file and environment values to flags that were
// not set on the command line.
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	visit := func(f *pflag.Flag) {
		if strings.Contains(f.Name, "-") {
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			if err := v.BindEnv(f.Name,
				fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)); err != nil {
				fmt.Fprintf(os.Stderr, "Could not bind env var %s: %v\n", f.Name, err)
			}
		}
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := f.Value.Set(fmt.Sprintf("%v", val)); err != nil {
				fmt.Fprintf(os.Stderr, "Could not set flag value for %s: %v\n", f.Name, err)
				return
			}
			f.Changed = true
		}
	}
	cmd.Flags().VisitAll(visit)
	cmd.PersistentFlags().VisitAll(visit)
}

// diagnostics logs every decode warning and keeps it for the final count.
func diagnostics() track.Diagnostics {
	return log.Tee(log.NewSink(nil), warnings)
}
