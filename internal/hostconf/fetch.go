package hostconf

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// SourceFetcher retrieves an interpreter source archive and extracts it into
// a directory. Implementations do not retry and do not verify checksums; a
// failed fetch is fatal to the run.
type SourceFetcher interface {
	Fetch(ctx context.Context, url, destDir string) error
}

// HTTPFetcher downloads release tarballs over plain HTTP(S). The archive is
// kept on disk next to the extracted tree, mirroring what a manual
// download-and-untar would leave behind.
type HTTPFetcher struct {
	Client *http.Client
	Logger *slog.Logger
}

// Fetch downloads url into destDir and extracts the gzip-compressed tarball
// it points at.
func (f *HTTPFetcher) Fetch(ctx context.Context, url, destDir string) error {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download %s: %s", url, resp.Status)
	}

	archivePath := filepath.Join(destDir, path.Base(url))
	archive, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(archive, resp.Body); err != nil {
		archive.Close()
		return fmt.Errorf("failed to save %s: %w", archivePath, err)
	}
	if err := archive.Close(); err != nil {
		return err
	}
	logger.Debug("downloaded archive", slog.String("path", archivePath))

	in, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer in.Close()
	return Untar(in, destDir)
}

// Untar reads the gzip-compressed tar stream from r and writes it into dir.
// Entries escaping dir are rejected.
func Untar(r io.Reader, dir string) error {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("requires gzip-compressed body: %w", err)
	}
	tr := tar.NewReader(zr)
	madeDir := map[string]bool{}

	for {
		f, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("tar error: %w", err)
		}
		if !validRelPath(f.Name) {
			return fmt.Errorf("tar contained invalid name %q", f.Name)
		}
		abs := filepath.Join(dir, filepath.FromSlash(f.Name))

		fi := f.FileInfo()
		mode := fi.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(abs, 0o755); err != nil {
				return err
			}
			madeDir[abs] = true
		case mode.IsRegular():
			if !madeDir[filepath.Dir(abs)] {
				if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
					return err
				}
				madeDir[filepath.Dir(abs)] = true
			}
			out, err := os.OpenFile(abs, os.O_RDWR|os.O_CREATE|os.O_TRUNC, mode.Perm())
			if err != nil {
				return err
			}
			n, err := io.Copy(out, tr)
			if closeErr := out.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				return fmt.Errorf("error writing %s: %w", abs, err)
			}
			if n != f.Size {
				return fmt.Errorf("only wrote %d bytes to %s; expected %d", n, abs, f.Size)
			}
		case f.Typeflag == tar.TypeSymlink:
			if err := os.Symlink(f.Linkname, abs); err != nil {
				return err
			}
		default:
			// Other entry kinds (fifos, devices) have no business in a
			// source release.
			return fmt.Errorf("tar file entry %s contained unsupported file type %v", f.Name, mode)
		}
	}
	return nil
}

func validRelPath(p string) bool {
	if p == "" || strings.Contains(p, `\`) || strings.HasPrefix(p, "/") || strings.Contains(p, "../") {
		return false
	}
	return true
}
