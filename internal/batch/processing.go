package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/MeKo-Tech/docrect/internal/pipeline"
	"github.com/MeKo-Tech/docrect/internal/utils"
)

// OutputPath names the corrected image for src: <stem><suffix>.<ext> inside
// outDir, or next to src when outDir is empty. The extension follows the
// output format, so a .bmp input produces a .png output.
func OutputPath(src, outDir, suffix, format string) string {
	base := filepath.Base(src)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	dir := outDir
	if dir == "" {
		dir = filepath.Dir(src)
	}
	return filepath.Join(dir, stem+suffix+utils.Extension(format))
}

// isOwnOutput reports whether path looks like a file a previous run wrote,
// so re-running over a directory does not rectify its own results.
func isOwnOutput(path, suffix string) bool {
	if suffix == "" {
		return false
	}
	base := filepath.Base(path)
	return strings.HasSuffix(strings.TrimSuffix(base, filepath.Ext(base)), suffix)
}

// outputPathFor is OutputPath with the input's position below its directory
// argument mirrored under outDir, so equal base names in different
// subdirectories stay apart.
func outputPathFor(f imageFile, outDir, suffix, format string) string {
	if outDir != "" && f.Root != "" {
		if rel, err := filepath.Rel(f.Root, filepath.Dir(f.Path)); err == nil && rel != "." {
			outDir = filepath.Join(outDir, rel)
		}
	}
	return OutputPath(f.Path, outDir, suffix, format)
}

// outputClaims records which input owns each output path.
type outputClaims struct {
	mu     sync.Mutex
	owners map[string]string
}

// claim assigns dst to src. It fails when another input already owns dst.
func (c *outputClaims) claim(dst, src string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.owners == nil {
		c.owners = make(map[string]string)
	}
	if owner, ok := c.owners[dst]; ok && owner != src {
		return fmt.Errorf("%w: %s is also the output of %s", ErrOutputConflict, dst, owner)
	}
	c.owners[dst] = src
	return nil
}

// writeOutput stores out at dst, creating the directory as needed.
func writeOutput(dst string, out *pipeline.Output) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(dst, out.Data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return nil
}
