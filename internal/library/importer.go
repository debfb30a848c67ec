package library

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/levijay/huntarr/internal/models"
	"github.com/levijay/huntarr/internal/parser"
)

var videoExtensions = map[string]bool{
	".mkv": true,
	".mp4": true,
	".avi": true,
	".m4v": true,
	".ts":  true,
}

// FileImporter moves completed downloads into a flat library layout
// under rootPath, one directory per movie or series.
type FileImporter struct {
	rootPath string
	logger   *logrus.Logger
}

// NewFileImporter creates a filesystem importer rooted at rootPath
func NewFileImporter(rootPath string, logger *logrus.Logger) *FileImporter {
	return &FileImporter{rootPath: rootPath, logger: logger}
}

// Import locates the video payload under sourcePath and moves it into the
// library. For episodes the file must parse to the item's season and
// episode numbers. Returns the destination path of the imported file.
func (im *FileImporter) Import(ctx context.Context, item *models.WantedItem, sourcePath string) (string, error) {
	files, err := findVideoFiles(sourcePath)
	if err != nil {
		return "", fmt.Errorf("failed to scan %s: %w", sourcePath, err)
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no video files found under %s", sourcePath)
	}

	src, err := im.selectFile(item, files)
	if err != nil {
		return "", err
	}

	destDir := filepath.Join(im.rootPath, itemDirectory(item))
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", destDir, err)
	}

	dest := filepath.Join(destDir, filepath.Base(src))
	if err := moveFile(src, dest); err != nil {
		return "", fmt.Errorf("failed to move %s: %w", src, err)
	}

	im.logger.WithFields(logrus.Fields{
		"title": item.Title,
		"file":  dest,
	}).Info("Imported file")
	return dest, nil
}

// selectFile picks the video file belonging to the wanted item. Movies
// take the largest file; episodes require a season/episode match.
func (im *FileImporter) selectFile(item *models.WantedItem, files []string) (string, error) {
	if item.MediaType == models.MediaTypeMovie {
		return largestFile(files), nil
	}

	for _, f := range files {
		ep := parser.ParseEpisode(filepath.Base(f))
		if ep != nil && ep.Season == item.Season && ep.Episode == item.Episode {
			return f, nil
		}
	}
	return "", fmt.Errorf("no file matching S%02dE%02d among %d candidates", item.Season, item.Episode, len(files))
}

func itemDirectory(item *models.WantedItem) string {
	name := item.Title
	if item.MediaType == models.MediaTypeMovie && item.Year > 0 {
		name = fmt.Sprintf("%s (%d)", item.Title, item.Year)
	}
	return sanitizeName(name)
}

func sanitizeName(name string) string {
	replacer := strings.NewReplacer("/", " ", "\\", " ", ":", " ", "*", "", "?", "", "\"", "", "<", "", ">", "", "|", "")
	return strings.Join(strings.Fields(replacer.Replace(name)), " ")
}

func findVideoFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if videoExtensions[strings.ToLower(filepath.Ext(root))] {
			return []string{root}, nil
		}
		return nil, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && videoExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func largestFile(files []string) string {
	best := files[0]
	var bestSize int64 = -1
	for _, f := range files {
		if info, err := os.Stat(f); err == nil && info.Size() > bestSize {
			best = f
			bestSize = info.Size()
		}
	}
	return best
}

// moveFile renames, falling back to copy and delete across filesystems
func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
