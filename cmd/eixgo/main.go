// Command eixgo is the interactive query tool: it loads the binary index
// eixgo-update produced, evaluates a Matchatom expression against it, and
// prints matching packages.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/kr/pretty"
	"github.com/ogier/pflag"
	"github.com/spf13/cobra"

	"github.com/eixgo/eixgo/internal/index"
	"github.com/eixgo/eixgo/internal/installed"
	"github.com/eixgo/eixgo/internal/match"
	"github.com/eixgo/eixgo/internal/query"
	"github.com/eixgo/eixgo/internal/rc"
	"github.com/eixgo/eixgo/internal/ui"
	"github.com/eixgo/eixgo/internal/userconfig"
	"github.com/eixgo/eixgo/internal/xmldump"
)

// options holds every flag value, consulted directly by the rest of main
// rather than threaded through a config object.
type options struct {
	rcPath          string
	xml             bool
	table           bool
	noColor         bool
	testNonMatching bool
	fuzzyMax        int
	stats           bool
	dump            string
}

func main() {
	root := &cobra.Command{
		Use:                "eixgo [flags] <matchatom tokens...>",
		Short:              "search the local Portage index",
		DisableFlagParsing: true,
		RunE:               run,
		SilenceUsage:       true,
	}
	if err := root.Execute(); err != nil {
		ui.ShowError(err)
		os.Exit(1)
	}
}

// run parses the outer GNU-style flags with ogier/pflag (cobra's own flag
// parsing is disabled above: a Matchatom token stream can legitimately
// contain strings that look like flags, e.g. "-s", "-e", "-I", and pflag
// would reject any of those as unrecognized before they ever reached the
// Matchatom parser). splitArgs pulls out exactly the registered outer flags
// first, leaving every dash-flag the Matchatom grammar owns untouched for
// match.ParsePostfix.
func run(cmd *cobra.Command, args []string) error {
	var opts options
	fs := pflag.NewFlagSet("eixgo", pflag.ContinueOnError)
	fs.StringVar(&opts.rcPath, "config", "/etc/eixgo/eixgorc", "path to the eixgorc configuration file")
	fs.BoolVar(&opts.xml, "xml", false, "emit results as XML instead of the default listing")
	fs.BoolVar(&opts.table, "table", false, "render results as a table")
	fs.BoolVar(&opts.noColor, "no-color", false, "disable ANSI color output")
	fs.BoolVarP(&opts.testNonMatching, "test-non-matching", "t", false, "report package.* entries matching no installed package")
	fs.IntVar(&opts.fuzzyMax, "fuzzy-distance", 2, "parsed but not used by matching: a fuzzy leaf takes its maximum edit distance from -f [k] (default 2)")
	fs.BoolVar(&opts.stats, "stats", false, "report decode+match latency and a fuzzy-distance sparkline on exit")
	fs.StringVar(&opts.dump, "dump", "", "dump the decoded header/packages instead of matching (\"debug\" for a Go-syntax pretty-print)")

	outerArgs, matchatomArgs := splitArgs(args)
	if err := fs.Parse(outerArgs); err != nil {
		return err
	}

	cfg, errs := rc.LoadFile(opts.rcPath)
	if len(errs) > 0 {
		for _, e := range errs {
			ui.ShowWarning(e.Error())
		}
		cfg = rc.Default()
	}

	matcher, err := match.ParsePostfix(matchatomArgs)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(cfg.Index().Path)
	if err != nil {
		return fmt.Errorf("can't open index %s (run eixgo-update first): %w", cfg.Index().Path, err)
	}
	file, err := index.OpenFile(data)
	if err != nil {
		return err
	}

	if opts.dump != "" {
		return dump(cmd, file, opts.dump)
	}

	instDB, err := installed.Load(cfg.Search().InstalledDBPath)
	if err != nil {
		return err
	}
	userCfg, err := userconfig.Load(cfg.Search().UserConfigDir)
	if err != nil {
		return err
	}

	var stats *ui.ScanStats
	queryOpts := query.Options{
		Matcher:         matcher,
		InstalledDB:     instDB,
		UserConfig:      userCfg,
		TestNonMatching: opts.testNonMatching,
	}
	if opts.stats {
		stats = ui.NewScanStats()
		queryOpts.Stats = stats // only set when non-nil: a typed-nil *ui.ScanStats would satisfy DurationRecorder and panic on Record
	}

	res, err := query.Run(file, queryOpts)
	if err != nil {
		return err
	}

	if err := render(cmd, res, opts, cfg); err != nil {
		return err
	}

	if opts.stats {
		stats.PrintReport(cmd.OutOrStdout())
		ui.PrintFuzzySparkline(cmd.OutOrStdout(), query.FuzzyDistances(res.Matches, matcher))
	}

	if opts.testNonMatching {
		for _, e := range res.UnusedEntries {
			fmt.Fprintln(cmd.OutOrStdout(), e)
		}
	}
	return nil
}

// outerFlagsWithValue lists the long flags above that consume a following
// argument, so splitArgs knows to carry that argument along with the flag
// rather than handing it to the Matchatom parser as a stray leaf token.
var outerFlagsWithValue = map[string]bool{
	"--config":         true,
	"--fuzzy-distance": true,
	"--dump":           true,
}

// splitArgs partitions the command line into the registered outer flags
// (long --name flags, plus the -t/--test-non-matching shorthand) and
// everything else, which is handed verbatim, in order, to
// match.ParsePostfix. A "--" token ends outer-flag scanning early: everything
// after it is Matchatom tokens, letting a pattern that happens to collide
// with an outer flag's name be escaped explicitly.
func splitArgs(args []string) (outer, matchatom []string) {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			matchatom = append(matchatom, args[i+1:]...)
			break
		}
		if a == "-t" || a == "--test-non-matching" {
			outer = append(outer, a)
			continue
		}
		if strings.HasPrefix(a, "--") {
			name, _, hasEq := strings.Cut(a, "=")
			if !isRegisteredLongFlag(name) {
				matchatom = append(matchatom, a)
				continue
			}
			outer = append(outer, a)
			if !hasEq && outerFlagsWithValue[name] && i+1 < len(args) {
				i++
				outer = append(outer, args[i])
			}
			continue
		}
		matchatom = append(matchatom, a)
	}
	return outer, matchatom
}

func isRegisteredLongFlag(name string) bool {
	switch name {
	case "--config", "--xml", "--table", "--no-color", "--test-non-matching",
		"--fuzzy-distance", "--stats", "--dump":
		return true
	}
	return false
}

// dump implements the `--dump` exclusive command: read the index and print
// its decoded structure instead of running a match. "debug" uses kr/pretty's
// Go-syntax pretty-printer, the developer-facing alternative to the XML dump
// (xmldump is the user-facing equivalent, built for --xml).
func dump(cmd *cobra.Command, file *index.File, mode string) error {
	if mode != "debug" {
		return fmt.Errorf("unknown --dump mode %q (want \"debug\")", mode)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%# v\n", pretty.Formatter(file.Header))
	for file.Reader.HasNext() {
		if err := file.Reader.Next(); err != nil {
			return err
		}
		if err := file.Reader.DecodeUpTo(index.StateAll); err != nil {
			return err
		}
		pkg := file.Reader.Package()
		fmt.Fprintf(out, "%# v\n", pretty.Formatter(pkg))
		if _, err := file.Reader.Release(); err != nil {
			return err
		}
	}
	return nil
}

func render(cmd *cobra.Command, res *query.Result, opts options, cfg *rc.Config) error {
	out := cmd.OutOrStdout()
	if opts.xml {
		xw := xmldump.NewWriter(out, xmldump.KeywordsEffective)
		if err := xw.WriteHeader(); err != nil {
			return err
		}
		for _, pkg := range res.Matches {
			if err := xw.WritePackage(pkg); err != nil {
				return err
			}
		}
		return xw.WriteFooter()
	}

	color := cfg.Output().Color && !opts.noColor
	printer := ui.NewPrinter(out, color)
	if opts.table {
		printer.PrintTable(res.Matches)
		return nil
	}
	for _, pkg := range res.Matches {
		printer.PrintPackage(pkg)
	}
	printer.PrintSummary(len(res.Matches), res.Searched)
	return nil
}
