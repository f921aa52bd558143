// Command gridsim runs the distributed heat diffusion on a structured grid.
//
// Ranks are separate processes connected by the mpi package's TCP transport:
//
//	gridsim run --config plate.deqn -mpi-addr=:5000 -mpi-alladdr=:5000,:5001
//	gridsim run --config plate.deqn -mpi-addr=:5001 -mpi-alladdr=:5000,:5001
//
// or goroutines in one process with --local N.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/halogrid/comm"
	"github.com/notargets/halogrid/config"
	"github.com/notargets/halogrid/driver"
	"github.com/notargets/halogrid/mesh"
	"github.com/notargets/halogrid/partitions"
)

var version = "dev"

var (
	cfgPath    string
	localRanks int
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "gridsim",
	Short:         "Distributed structured grid diffusion with halo exchange",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Values arrive through pflag; mark the go flag set parsed for the
		// transport
		return flag.CommandLine.Parse(nil)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd.Flags())
		if err != nil {
			return err
		}
		log := newLogger(verbose || s.Debug)
		for _, k := range s.Ignored {
			log.Warnf("ignoring unknown configuration key %s", k)
		}
		if localRanks > 0 {
			return runLocal(cmd, s, log)
		}
		return runNetwork(cmd, s, log)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate a configuration and print the decomposition",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd.Flags())
		if err != nil {
			return err
		}
		n := max(localRanks, 1)
		return printDecomposition(cmd, s, n)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "gridsim", version)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgPath, "config", "c", "", "configuration file (.deqn or .toml)")
	pf.IntVar(&localRanks, "local", 0, "run N ranks as goroutines instead of separate processes")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pf.String("name", "", "override the run name")
	pf.Float64("end-time", 0, "override end_time")
	pf.String("output-dir", "", "override output_dir")
	pf.AddGoFlagSet(flag.CommandLine)

	rootCmd.AddCommand(runCmd, checkCmd, versionCmd)
}

// overrides maps command line flags to configuration keys
var overrides = map[string]string{
	"name":       "name",
	"end-time":   "end_time",
	"output-dir": "output_dir",
}

func loadSettings(flags *pflag.FlagSet) (*config.Settings, error) {
	if cfgPath == "" {
		return nil, fmt.Errorf("%w: --config is required", config.ErrSetup)
	}
	f, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	for flagName, key := range overrides {
		if flags.Changed(flagName) {
			f.Set(key, flags.Lookup(flagName).Value.String())
		}
	}
	return config.NewSettings(f)
}

func newLogger(debug bool) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if debug {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

func runLocal(cmd *cobra.Command, s *config.Settings, log logrus.FieldLogger) error {
	results, err := driver.RunLocal(s, localRanks, log)
	if err != nil {
		return err
	}
	global, err := driver.Gather(results, s.Domain)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "rank\tsteps\ttime\ttotal")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%d\t%.6g\t%.8g\n", r.Rank, r.Steps, r.Time, r.Total)
	}
	w.Flush()
	fmt.Fprintf(cmd.OutOrStdout(), "global total %.8g\n", floats.Sum(global.RawMatrix().Data))
	return nil
}

func runNetwork(cmd *cobra.Command, s *config.Settings, log logrus.FieldLogger) error {
	net, err := comm.Open()
	if err != nil {
		return err
	}
	defer net.Close()
	d, err := driver.New(s, net, log)
	if err != nil {
		return err
	}
	defer d.Close()
	res, err := d.Run()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "rank %d: %d steps, t=%.6g, total %.8g\n",
		res.Rank, res.Steps, res.Time, res.Total)
	return nil
}

func printDecomposition(cmd *cobra.Command, s *config.Settings, n int) error {
	out := cmd.OutOrStdout()
	orientations := []partitions.Orientation{partitions.Prograde}
	if s.Decomposition == mesh.Dynamic {
		orientations = append(orientations, partitions.Retrograde)
	}
	grid, err := partitions.NewProcessGrid(n, 0, s.DimNodes)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrSetup, err)
	}
	fmt.Fprintf(out, "%s: %dx%d cells on a %dx%d process grid, %v decomposition, %v exchange\n",
		s.Name, s.Domain.Rows, s.Domain.Cols, grid.Rows, grid.Cols, s.Decomposition, s.Exchange)

	for _, o := range orientations {
		rows, err := grid.RowLayout(s.Domain.Rows, o)
		if err != nil {
			return fmt.Errorf("%w: %w", config.ErrSetup, err)
		}
		cols, err := grid.ColLayout(s.Domain.Cols, o)
		if err != nil {
			return fmt.Errorf("%w: %w", config.ErrSetup, err)
		}
		rs, cs := rows.PartitionStatistics(), cols.PartitionStatistics()
		fmt.Fprintf(out, "%v rows %v imbalance %.3f, cols %v imbalance %.3f\n",
			o, rows.Spans, rs.Imbalance, cols.Spans, cs.Imbalance)

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "rank\tcoord\tcore\toffset\torigin")
		for rank := 0; rank < n; rank++ {
			pg, err := partitions.NewProcessGrid(n, rank, s.DimNodes)
			if err != nil {
				return err
			}
			tile, err := mesh.NewTile(s.Domain, pg, o)
			if err != nil {
				return fmt.Errorf("%w: %w", config.ErrSetup, err)
			}
			fmt.Fprintf(w, "%d\t(%d,%d)\t%dx%d\t[%d,%d]\t(%.4g,%.4g)\n", rank, pg.Coord.Row, pg.Coord.Col,
				tile.CoreRows, tile.CoreCols, tile.RowOffset, tile.ColOffset, tile.OriginY, tile.OriginX)
		}
		w.Flush()
	}
	for _, k := range s.Ignored {
		fmt.Fprintf(out, "warning: unknown key %s\n", k)
	}
	return nil
}

// normalizeArgs lets the transport's single dash -mpi-* flags through the
// POSIX style parser
func normalizeArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if strings.HasPrefix(a, "-mpi-") {
			a = "-" + a
		}
		out[i] = a
	}
	return out
}

func main() {
	rootCmd.SetArgs(normalizeArgs(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "gridsim:", err)
		os.Exit(1)
	}
}
