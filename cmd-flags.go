package main

import (
	"flag"

	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"
)

// FlagVerbose and FlagVeryVerbose gate klog's verbosity level, the
// same -v knob klog itself exposes, surfaced as CLI flags so users
// don't need to pass raw klog flags through.
var (
	FlagVerbose = &cli.BoolFlag{
		Name:  "verbose",
		Usage: "enable verbose (klog -v=2) logging",
	}
	FlagVeryVerbose = &cli.BoolFlag{
		Name:  "very-verbose",
		Usage: "enable very verbose (klog -v=4) logging",
	}
)

// applyVerbosity maps the global --verbose/--very-verbose flags onto
// klog's own -v level before any subcommand runs.
func applyVerbosity(c *cli.Context) error {
	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fs)

	level := "0"
	switch {
	case c.Bool("very-verbose"):
		level = "4"
	case c.Bool("verbose"):
		level = "2"
	}
	return fs.Set("v", level)
}
