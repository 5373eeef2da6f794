package sqlite

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func seedDB(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(schema)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO portage_metadata
		(category, package, version, slot, homepage, licenses, description, keywords, iuse, restrict_, properties, depend, rdepend, pdepend)
		VALUES
		('app-editors', 'vim', '9.0', '0', 'https://vim.org', 'vim', 'the vim editor', 'amd64 x86', '+acl nls', '', '', '', '', ''),
		('app-editors', 'vim', '9.1', '0', 'https://vim.org', 'vim', 'the vim editor', '~amd64', '', 'test', '', '', '', ''),
		('dev-lang', 'go', '1.22', '0', 'https://go.dev', 'BSD', 'the go language', 'amd64', '', '', '', '', '', '')`)
	require.NoError(t, err)
}

func TestReadCategoriesFiltersAndGroupsByPackage(t *testing.T) {
	path := "file:" + t.TempDir() + "/cache.sqlite"
	seedDB(t, path)

	b := New(path)
	require.Equal(t, "sqlite", b.Type())
	require.True(t, b.CanReadMultipleCategories())

	var errs []error
	pkgs, err := b.ReadCategories([]string{"app-editors"}, func(e error) { errs = append(errs, e) })
	require.NoError(t, err)
	require.Empty(t, errs)
	require.Len(t, pkgs, 1)
	require.Equal(t, "vim", pkgs[0].Name)
	require.Len(t, pkgs[0].Versions, 2)
}

func TestReadCategoriesEmptyListReadsEverything(t *testing.T) {
	path := "file:" + t.TempDir() + "/cache.sqlite"
	seedDB(t, path)

	b := New(path)
	pkgs, err := b.ReadCategories(nil, func(error) {})
	require.NoError(t, err)
	require.Len(t, pkgs, 2)
}

func TestBuildCategoryQuery(t *testing.T) {
	query, args := buildCategoryQuery([]string{"app-editors", "dev-lang"})
	require.Contains(t, query, "WHERE category IN (?, ?)")
	require.Equal(t, []interface{}{"app-editors", "dev-lang"}, args)

	query, args = buildCategoryQuery(nil)
	require.NotContains(t, query, "WHERE")
	require.Nil(t, args)
}
