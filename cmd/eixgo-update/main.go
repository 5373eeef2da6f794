// Command eixgo-update walks the configured cache backend(s), builds an
// in-memory package set, and writes the binary index eixgo reads.
package main

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/eixgo/eixgo/internal/cache"
	"github.com/eixgo/eixgo/internal/cache/ebuild"
	"github.com/eixgo/eixgo/internal/cache/flat"
	"github.com/eixgo/eixgo/internal/cache/sqlite"
	"github.com/eixgo/eixgo/internal/index"
	"github.com/eixgo/eixgo/internal/rc"
	"github.com/eixgo/eixgo/internal/ui"
)

// metrics mirrors darshanime-pebble's use of prometheus/client_golang: a
// private registry of counters this batch tool populates and then, on
// --metrics, renders as a one-shot text exposition rather than serving it
// over HTTP (this is a CLI tool, not a daemon).
type metrics struct {
	registry        *prometheus.Registry
	packagesWritten prometheus.Counter
	versionsWritten prometheus.Counter
	backendErrors   prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry:        prometheus.NewRegistry(),
		packagesWritten: prometheus.NewCounter(prometheus.CounterOpts{Name: "eixgo_update_packages_written_total"}),
		versionsWritten: prometheus.NewCounter(prometheus.CounterOpts{Name: "eixgo_update_versions_written_total"}),
		backendErrors:   prometheus.NewCounter(prometheus.CounterOpts{Name: "eixgo_update_backend_errors_total"}),
	}
	m.registry.MustRegister(m.packagesWritten, m.versionsWritten, m.backendErrors)
	return m
}

func main() {
	var (
		rcPath      string
		showStats   bool
		showMetrics bool
		compression string
	)

	root := &cobra.Command{
		Use:          "eixgo-update",
		Short:        "rebuild the local Portage binary index",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rcPath, showStats, showMetrics, compression)
		},
	}
	root.Flags().StringVar(&rcPath, "config", "/etc/eixgo/eixgorc", "path to the eixgorc configuration file")
	root.Flags().BoolVar(&showStats, "stats", false, "print a scan-latency report after indexing")
	root.Flags().BoolVar(&showMetrics, "metrics", false, "print a Prometheus text exposition after indexing")
	root.Flags().StringVar(&compression, "compression", "none", "package-record compression: none, snappy, or zstd")

	if err := root.Execute(); err != nil {
		ui.ShowError(err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, rcPath string, showStats, showMetrics bool, compressionFlag string) error {
	cfg, errs := rc.LoadFile(rcPath)
	if len(errs) > 0 {
		for _, e := range errs {
			ui.ShowWarning(e.Error())
		}
		cfg = rc.Default()
	}

	backend, err := selectBackend(cfg)
	if err != nil {
		return err
	}

	compression, err := parseCompression(compressionFlag)
	if err != nil {
		return err
	}

	m := newMetrics()
	stats := ui.NewScanStats()
	onError := func(err error) {
		m.backendErrors.Inc()
		ui.ShowWarning(err.Error())
	}

	categories, err := listCategories(cfg.Index().PortDir)
	if err != nil {
		return err
	}

	var raw []cache.RawPackage
	if backend.CanReadMultipleCategories() {
		start := time.Now()
		raw, err = backend.ReadCategories(categories, onError)
		if err != nil {
			return err
		}
		stats.Record(time.Since(start))
	} else {
		for _, category := range categories {
			start := time.Now()
			pkgs, err := backend.ReadCategories([]string{category}, onError)
			if err != nil {
				return err
			}
			stats.Record(time.Since(start))
			raw = append(raw, pkgs...)
		}
	}

	pkgs := buildPackages(raw)
	for range pkgs {
		m.packagesWritten.Inc()
	}
	for _, p := range pkgs {
		for range p.Versions {
			m.versionsWritten.Inc()
		}
	}

	overlays := []index.OverlayIdent{{Path: cfg.Index().PortDir, Label: "main"}}
	f, err := os.Create(cfg.Index().Path)
	if err != nil {
		return fmt.Errorf("can't create index %s: %w", cfg.Index().Path, err)
	}
	defer f.Close()

	if err := index.WriteFile(f, pkgs, overlays, compression); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d packages to %s\n", len(pkgs), cfg.Index().Path)

	if showStats {
		stats.PrintReport(cmd.OutOrStdout())
	}
	if showMetrics {
		return writeMetricsExposition(cmd, m)
	}
	return nil
}

func parseCompression(s string) (index.Compression, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return index.CompressionNone, nil
	case "snappy":
		return index.CompressionSnappy, nil
	case "zstd":
		return index.CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown --compression %q (want none, snappy, or zstd)", s)
	}
}

func selectBackend(cfg *rc.Config) (cache.Backend, error) {
	switch cfg.Cache().Backend {
	case "flat":
		return flat.New(cfg.Index().PortDir), nil
	case "sqlite":
		return sqlite.New(cfg.Cache().SQLitePath), nil
	case "ebuild":
		return ebuild.New(cfg.Index().PortDir), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache().Backend)
	}
}

func listCategories(portDir string) ([]string, error) {
	entries, err := os.ReadDir(portDir)
	if err != nil {
		return nil, fmt.Errorf("listing categories under %s: %w", portDir, err)
	}
	var categories []string
	for _, e := range entries {
		if e.IsDir() && strings.Contains(e.Name(), "-") {
			categories = append(categories, e.Name())
		}
	}
	sort.Strings(categories)
	return categories, nil
}

// buildPackages converts the cache backend's intermediate RawPackage shape
// into the index package's own Package/Version model, sorted the way
// index.BuildHeader requires (category-then-name, ascending version order).
func buildPackages(raw []cache.RawPackage) []index.Package {
	out := make([]index.Package, 0, len(raw))
	for _, rp := range raw {
		pkg := index.Package{
			Category: rp.Category, Name: rp.Name, Desc: rp.Desc,
			Homepage: rp.Homepage, Licenses: rp.Licenses, Provide: rp.Provide,
			HaveSameOverlayKey: true, OverlayKey: 0,
		}
		for _, rv := range rp.Versions {
			pkg.Versions = append(pkg.Versions, index.Version{
				FullVersion:       rv.FullVersion,
				SlotName:          firstNonEmpty(rv.Slot, "0"),
				FullKeywords:      rv.Keywords,
				EffectiveKeywords: rv.Keywords,
				Keywords:          index.KeywordsFlags{State: classifyKeywords(rv.Keywords)},
				IUse:              parseIUse(rv.IUse),
				Restrict:          parseRestrict(rv.Restrict),
				Properties:        parseProperties(rv.Properties),
			})
		}
		sort.SliceStable(pkg.Versions, func(i, j int) bool {
			return pkg.Versions[i].FullVersion < pkg.Versions[j].FullVersion
		})
		out = append(out, pkg)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Category+"/"+out[i].Name < out[j].Category+"/"+out[j].Name
	})
	return out
}

func firstNonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// classifyKeywords inspects the raw KEYWORDS string for this build's
// architecture (amd64) and reports its resolved state. A real deployment
// would thread the active ARCH through from eixrc; this reduced classifier
// covers the stable/unstable/missing cases the query driver depends on.
func classifyKeywords(raw string) index.KeywordsState {
	const arch = "amd64"
	for _, tok := range strings.Fields(raw) {
		switch tok {
		case arch:
			return index.KeywordsStable
		case "~" + arch:
			return index.KeywordsUnstable
		case "-" + arch:
			return index.KeywordsMinusKeyword
		case "-*":
			return index.KeywordsMinusAsterisk
		}
	}
	return index.KeywordsMissing
}

func parseIUse(raw string) []index.IUse {
	fields := strings.Fields(raw)
	out := make([]index.IUse, 0, len(fields))
	for _, f := range fields {
		flag := index.IUseNormal
		name := f
		switch {
		case strings.HasPrefix(f, "+"):
			flag, name = index.IUsePlus, f[1:]
		case strings.HasPrefix(f, "-"):
			flag, name = index.IUseMinus, f[1:]
		}
		out = append(out, index.IUse{Name: name, Flags: flag})
	}
	return out
}

var restrictTokens = map[string]index.RestrictFlags{
	"bindist":        index.RestrictBinDist,
	"fetch":          index.RestrictFetch,
	"installsources": index.RestrictInstallSources,
	"mirror":         index.RestrictMirror,
	"primaryuri":     index.RestrictPrimaryURI,
	"strip":          index.RestrictStrip,
	"test":           index.RestrictTest,
	"userpriv":       index.RestrictUserPriv,
	"parallel":       index.RestrictParallel,
	"binchecks":      index.RestrictBinChecks,
}

func parseRestrict(raw string) index.RestrictFlags {
	var flags index.RestrictFlags
	for _, tok := range strings.Fields(raw) {
		if f, ok := restrictTokens[strings.ToLower(tok)]; ok {
			flags |= f
		}
	}
	return flags
}

var propertiesTokens = map[string]index.PropertiesFlags{
	"interactive": index.PropertiesInteractive,
	"live":        index.PropertiesLive,
	"virtual":     index.PropertiesVirtual,
	"set":         index.PropertiesSet,
}

func parseProperties(raw string) index.PropertiesFlags {
	var flags index.PropertiesFlags
	for _, tok := range strings.Fields(raw) {
		if f, ok := propertiesTokens[strings.ToLower(tok)]; ok {
			flags |= f
		}
	}
	return flags
}

func writeMetricsExposition(cmd *cobra.Command, m *metrics) error {
	mfs, err := m.registry.Gather()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	_, err = cmd.OutOrStdout().Write(buf.Bytes())
	return err
}
