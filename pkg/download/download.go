package download

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/autobrr/autobrr/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/autobrr/freeleech/pkg/logger"
)

var (
	ErrInvalidPath     = errors.New("invalid download path")
	ErrFilenameMissing = errors.New("response has no filename")
)

type Downloader struct {
	http *http.Client
	log  *logrus.Entry
}

func New(client *http.Client) *Downloader {
	return &Downloader{
		http: client,
		log:  logger.GetLogger("download"),
	}
}

// ValidateDir returns ErrInvalidPath unless dir is an existing directory.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	fi, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInvalidPath, dir)
	}
	return nil
}

// Download streams rawURL into dir and returns the path written. The name
// comes from the Content-Disposition header and falls back to
// fallbackName.torrent when the header carries no usable filename.
func (d *Downloader) Download(ctx context.Context, rawURL, dir, fallbackName string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", errors.Wrap(err, "could not create request")
	}

	res, err := d.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "download request failed")
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", errors.New("unexpected status: %v", res.StatusCode)
	}

	if ct := res.Header.Get("Content-Type"); strings.HasPrefix(ct, "text/html") {
		return "", errors.New("unexpected content type: %s", ct)
	}

	filename, err := FilenameFromHeader(res.Header.Get("Content-Disposition"))
	if err != nil {
		filename = fallbackFilename(fallbackName)
		d.log.WithError(err).Debugf("Using fallback filename %q", filename)
	}

	dst := filepath.Join(dir, filename)
	if err := writeFile(dst, res.Body); err != nil {
		return "", errors.Wrap(err, "could not write torrent file")
	}

	d.log.Tracef("Wrote %s", dst)
	return dst, nil
}

// FilenameFromHeader extracts a safe base filename from a Content-Disposition
// value.
func FilenameFromHeader(header string) (string, error) {
	if header == "" {
		return "", ErrFilenameMissing
	}

	var name string
	if _, params, err := mime.ParseMediaType(header); err == nil {
		name = params["filename"]
	} else if _, after, ok := strings.Cut(header, "filename="); ok {
		// trackers sometimes send unquoted names with spaces
		name = strings.Trim(strings.TrimSpace(after), `"`)
	}

	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	switch name {
	case "", ".", "..", "/":
		return "", ErrFilenameMissing
	}

	return name, nil
}

func fallbackFilename(name string) string {
	name = filepath.Base(name)
	if name == "" || name == "." || name == ".." || name == "/" {
		name = "download"
	}
	if !strings.HasSuffix(strings.ToLower(name), ".torrent") {
		name += ".torrent"
	}
	return name
}

// writeFile copies r into dst through a temporary file so a failed transfer
// never leaves a truncated torrent behind.
func writeFile(dst string, r io.Reader) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".download-*.part")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	closed := false

	defer func() {
		if !closed {
			tmp.Close()
		}
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = io.Copy(tmp, r); err != nil {
		return err
	}
	closed = true
	if err = tmp.Close(); err != nil {
		return err
	}

	if err = os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, dst)
}
