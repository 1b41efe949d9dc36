package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/docrect/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filePaths(files []imageFile) []string {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return paths
}

func TestDiscoverImageFiles_EmptyArgs(t *testing.T) {
	files, err := discoverImageFiles([]string{}, false, []string{"*.png"}, nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDiscoverImageFiles_ExplicitFiles(t *testing.T) {
	tempDir := t.TempDir()
	pngFile := testutil.WriteFile(t, tempDir, "test.png", []byte("fake png"))
	txtFile := testutil.WriteFile(t, tempDir, "notes.txt", []byte("text"))

	// named files are taken as given, the decoder decides later
	files, err := discoverImageFiles([]string{pngFile, txtFile, pngFile}, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{pngFile, txtFile}, filePaths(files))

	files, err = discoverImageFiles([]string{pngFile, txtFile}, false, nil, []string{"*.txt"})
	require.NoError(t, err)
	assert.Equal(t, []string{pngFile}, filePaths(files))
}

func TestDiscoverImageFiles_DirectoryDefaultsToImages(t *testing.T) {
	tempDir := t.TempDir()
	pngFile := testutil.WriteFile(t, tempDir, "b.png", []byte("png"))
	jpgFile := testutil.WriteFile(t, tempDir, "a.JPG", []byte("jpg"))
	testutil.WriteFile(t, tempDir, "notes.txt", []byte("text"))

	files, err := discoverImageFiles([]string{tempDir}, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{jpgFile, pngFile}, filePaths(files))
}

func TestDiscoverImageFiles_Recursive(t *testing.T) {
	tempDir := t.TempDir()
	rootPng := testutil.WriteFile(t, tempDir, "root.png", []byte("root"))
	subPng := testutil.WriteFile(t, tempDir, filepath.Join("subdir", "sub.png"), []byte("sub"))
	testutil.WriteFile(t, tempDir, filepath.Join("subdir", "sub.txt"), []byte("txt"))

	files, err := discoverImageFiles([]string{tempDir}, true, []string{"*.png"}, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{rootPng, subPng}, filePaths(files))

	files, err = discoverImageFiles([]string{tempDir}, false, []string{"*.png"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{rootPng}, filePaths(files))
}

func TestDiscoverImageFiles_Roots(t *testing.T) {
	tempDir := t.TempDir()
	dirPng := testutil.WriteFile(t, tempDir, filepath.Join("scans", "a", "id.png"), []byte("a"))
	named := testutil.WriteFile(t, tempDir, "cover.png", []byte("c"))
	root := filepath.Join(tempDir, "scans")

	files, err := discoverImageFiles([]string{root, named, dirPng}, true, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []imageFile{{Path: dirPng, Root: root}, {Path: named}}, files)
}

func TestDiscoverImageFiles_IncludeExcludePatterns(t *testing.T) {
	tempDir := t.TempDir()
	test1 := testutil.WriteFile(t, tempDir, "test1.png", []byte("1"))
	test2 := testutil.WriteFile(t, tempDir, "test2.png", []byte("2"))
	testutil.WriteFile(t, tempDir, "exclude.png", []byte("x"))

	files, err := discoverImageFiles([]string{tempDir}, false, []string{"*.png"}, []string{"*exclude*"})
	require.NoError(t, err)
	assert.Equal(t, []string{test1, test2}, filePaths(files))
}

func TestDiscoverImageFiles_NonExistent(t *testing.T) {
	files, err := discoverImageFiles([]string{filepath.Join(t.TempDir(), "missing")}, false, nil, nil)
	require.Error(t, err)
	assert.Nil(t, files)
	assert.Contains(t, err.Error(), "cannot access")
}

func TestDiscoverInDirectory_Empty(t *testing.T) {
	files, err := discoverInDirectory(t.TempDir(), false, []string{"*.png"}, nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDiscoverInDirectory_Unreadable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	tempDir := t.TempDir()
	locked := filepath.Join(tempDir, "locked")
	require.NoError(t, os.Mkdir(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o750) }) //nolint:gosec

	_, err := discoverInDirectory(tempDir, true, nil, nil)
	assert.Error(t, err)
}

func TestMatchesAnyPattern(t *testing.T) {
	testCases := []struct {
		path     string
		patterns []string
		expected bool
	}{
		{"test.png", nil, false},
		{"test.png", []string{"*.png"}, true},
		{"dir/test.png", []string{"*.png"}, true},
		{"test.jpg", []string{"*.png"}, false},
		{"test.PNG", []string{"*.png"}, false}, // case sensitive
		{"test.png", []string{"test.*"}, true},
		{"special.gif", []string{"*.png", "special.*"}, true},
		{"test.png", []string{"["}, false}, // malformed pattern never matches
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, matchesAnyPattern(tc.path, tc.patterns), "path=%s patterns=%v", tc.path, tc.patterns)
	}
}

func TestShouldIncludeFile(t *testing.T) {
	assert.True(t, shouldIncludeFile("a.webp", nil, nil))
	assert.False(t, shouldIncludeFile("a.pdf", nil, nil))
	assert.True(t, shouldIncludeFile("a.pdf", []string{"*.pdf"}, nil))
	assert.False(t, shouldIncludeFile("a.png", []string{"*.png"}, []string{"a.*"}))
}
