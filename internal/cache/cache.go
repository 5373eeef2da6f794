// Package cache defines the capability-set interface eixgo-update uses to
// read package metadata from whichever backend a Portage tree's
// metadata/cache is stored in, plus the adapters under cache/flat,
// cache/sqlite and cache/ebuild.
//
// The interface shape — a capability flag plus one read entry point plus a
// type tag — replaces a virtual-inheritance base-class hierarchy with a
// thin, explicit Go interface dispatched by a plain driver loop.
package cache

import "github.com/cockroachdb/errors"

// BackendError wraps a non-fatal per-file problem a Backend reported via its
// ErrorCallback; eixgo-update logs it and continues unless the backend
// itself could not recover.
var BackendError = errors.New("cache backend error")

// ErrorCallback receives one non-fatal problem encountered while reading a
// category; the backend decides whether to keep going (most callers do,
// skipping just the one bad record).
type ErrorCallback func(error)

// RawVersion is one version's metadata as read from a cache backend, before
// it is resolved against user config and written into an index.Version.
type RawVersion struct {
	FullVersion string
	Slot        string
	Keywords    string
	IUse        string
	Restrict    string
	Properties  string
	Depend      string
	RDepend     string
	PDepend     string
}

// RawPackage is one package's metadata as read from a cache backend: enough
// to build an index.Package plus its index.Version slice, but not yet
// resolved against user config (that happens later, in the query driver).
type RawPackage struct {
	Category string
	Name     string
	Desc     string
	Homepage string
	Licenses string
	Provide  string
	Versions []RawVersion
}

// Backend is the capability set every cache adapter implements.
type Backend interface {
	// Type names the backend for diagnostics ("flat", "sqlite", "ebuild").
	Type() string
	// CanReadMultipleCategories reports whether ReadCategories can be called
	// once with every category, rather than once per category. SQLite and
	// ebuild-tree backends can; the flat-file backend reads one category
	// directory per call, so a driver iterating over many categories against
	// a flat backend must call ReadCategories once per category instead.
	CanReadMultipleCategories() bool
	// ReadCategories reads every package under the named categories,
	// reporting non-fatal problems through onError and returning a fatal
	// error only when the backend itself cannot continue.
	ReadCategories(categories []string, onError ErrorCallback) ([]RawPackage, error)
}
