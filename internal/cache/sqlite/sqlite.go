// Package sqlite implements the SQLite-backed metadata cache adapter,
// grounded on original_source/src/portage/cache/sqlite/sqlite.h's
// SqliteCache: can_read_multiple_categories() == true, one readCategories
// call covers every requested category via a single query.
//
// Uses modernc.org/sqlite, a pure-Go SQLite driver, so eixgo-update needs no
// cgo toolchain to read a portage-utils-style metadata cache database.
package sqlite

import (
	"database/sql"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"

	"github.com/eixgo/eixgo/internal/cache"
)

// schema is the metadata cache table layout this backend expects: one row
// per package version, mirroring the column set portage-utils' `q` cache
// writer produces (category, package, version, slot and the ebuild
// metadata.xml-adjacent fields this tool needs for matching).
const schema = `
CREATE TABLE IF NOT EXISTS portage_metadata (
	category    TEXT NOT NULL,
	package     TEXT NOT NULL,
	version     TEXT NOT NULL,
	slot        TEXT NOT NULL DEFAULT '0',
	homepage    TEXT NOT NULL DEFAULT '',
	licenses    TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	keywords    TEXT NOT NULL DEFAULT '',
	iuse        TEXT NOT NULL DEFAULT '',
	restrict_   TEXT NOT NULL DEFAULT '',
	properties  TEXT NOT NULL DEFAULT '',
	depend      TEXT NOT NULL DEFAULT '',
	rdepend     TEXT NOT NULL DEFAULT '',
	pdepend     TEXT NOT NULL DEFAULT ''
)`

// Backend reads package metadata from a SQLite database at Path.
type Backend struct {
	Path string
}

// New builds a Backend over the database at path. The database is opened
// lazily, once per ReadCategories call, matching SqliteCache's own
// per-readCategories connection lifetime.
func New(path string) *Backend { return &Backend{Path: path} }

// Type implements cache.Backend.
func (b *Backend) Type() string { return "sqlite" }

// CanReadMultipleCategories implements cache.Backend: true, per
// SqliteCache::can_read_multiple_categories.
func (b *Backend) CanReadMultipleCategories() bool { return true }

// ReadCategories runs one SELECT covering every requested category,
// mirroring SqliteCache::readCategories's single-query behavior, and builds
// a RawPackage per distinct (category, package) pair, in row order.
func (b *Backend) ReadCategories(categories []string, onError cache.ErrorCallback) ([]cache.RawPackage, error) {
	db, err := sql.Open("sqlite", b.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "sqlite: opening %s", b.Path)
	}
	defer db.Close()

	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Wrap(err, "sqlite: ensuring schema")
	}

	query, args := buildCategoryQuery(categories)
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite: querying portage_metadata")
	}
	defer rows.Close()

	byName := make(map[string]*cache.RawPackage)
	var order []string
	for rows.Next() {
		var category, name, version, slot, homepage, licenses, desc string
		var keywords, iuse, restr, props, depend, rdepend, pdepend string
		if err := rows.Scan(&category, &name, &version, &slot, &homepage, &licenses, &desc,
			&keywords, &iuse, &restr, &props, &depend, &rdepend, &pdepend); err != nil {
			onError(errors.Wrapf(cache.BackendError, "sqlite: scanning row: %v", err))
			continue
		}

		key := category + "/" + name
		pkg, ok := byName[key]
		if !ok {
			pkg = &cache.RawPackage{Category: category, Name: name, Desc: desc, Homepage: homepage, Licenses: licenses}
			byName[key] = pkg
			order = append(order, key)
		}
		pkg.Versions = append(pkg.Versions, cache.RawVersion{
			FullVersion: version, Slot: slot, Keywords: keywords, IUse: iuse,
			Restrict: restr, Properties: props, Depend: depend, RDepend: rdepend, PDepend: pdepend,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "sqlite: iterating rows")
	}

	out := make([]cache.RawPackage, 0, len(order))
	for _, key := range order {
		out = append(out, *byName[key])
	}
	return out, nil
}

func buildCategoryQuery(categories []string) (string, []interface{}) {
	if len(categories) == 0 {
		return "SELECT category, package, version, slot, homepage, licenses, description, " +
			"keywords, iuse, restrict_, properties, depend, rdepend, pdepend FROM portage_metadata " +
			"ORDER BY category, package, version", nil
	}
	placeholders := ""
	args := make([]interface{}, len(categories))
	for i, c := range categories {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += "?"
		args[i] = c
	}
	query := "SELECT category, package, version, slot, homepage, licenses, description, " +
		"keywords, iuse, restrict_, properties, depend, rdepend, pdepend FROM portage_metadata " +
		"WHERE category IN (" + placeholders + ") ORDER BY category, package, version"
	return query, args
}
