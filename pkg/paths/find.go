package paths

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/autobrr/freeleech/pkg/logger"
)

type Path struct {
	Path         string
	FileName     string
	Directory    string
	Size         int64
	ModifiedTime time.Time
}

var log = logger.GetLogger("paths")

// TorrentFiles returns the .torrent files below folder sorted by
// modification time, newest first, and their combined size.
func TorrentFiles(folder string) ([]Path, uint64, error) {
	return InFolder(folder, func(p string) bool {
		return strings.EqualFold(filepath.Ext(p), ".torrent")
	})
}

// InFolder walks folder in parallel and returns every regular file accepted
// by acceptFn. A nil acceptFn accepts everything.
func InFolder(folder string, acceptFn func(string) bool) ([]Path, uint64, error) {
	var (
		mu    sync.Mutex
		paths []Path
		size  uint64
	)

	if _, err := os.Stat(folder); err != nil {
		return nil, 0, err
	}

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.WithError(err).Warnf("Failed walking %s", path)
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if acceptFn != nil && !acceptFn(path) {
			log.Tracef("Skipping rejected path: %s", path)
			return nil
		}

		info, err := d.Info()
		if err != nil {
			log.WithError(err).Warnf("Failed to get file info for %s", path)
			return nil
		}

		mu.Lock()
		paths = append(paths, Path{
			Path:         path,
			FileName:     info.Name(),
			Directory:    filepath.Dir(path),
			Size:         info.Size(),
			ModifiedTime: info.ModTime(),
		})
		size += uint64(info.Size())
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sort.Slice(paths, func(i, j int) bool {
		if paths[i].ModifiedTime.Equal(paths[j].ModifiedTime) {
			return paths[i].Path < paths[j].Path
		}
		return paths[i].ModifiedTime.After(paths[j].ModifiedTime)
	})

	return paths, size, nil
}
