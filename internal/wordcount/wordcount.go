// Package wordcount counts words in text files below a directory.
package wordcount

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/panjf2000/ants/v2"

	"github.com/p4th0r/ipsift/internal/logging"
)

// DefaultExt is the file extension counted when none is given.
const DefaultExt = ".md"

// DefaultWorkers is the default pool size.
const DefaultWorkers = 4

// wordRe matches a maximal run of Unicode letters, digits and underscores.
var wordRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// ErrInvalidUTF8 is reported for files that are not valid UTF-8.
var ErrInvalidUTF8 = errors.New("file is not valid UTF-8")

// CountWords returns the number of words in text after lowercasing.
func CountWords(text string) int {
	return len(wordRe.FindAllStringIndex(strings.ToLower(text), -1))
}

// FileError is a file that could not be counted.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Result is the outcome of a walk.
type Result struct {
	Total   int
	Files   int
	PerFile map[string]int
	Errors  []FileError
}

// Counter walks a tree and counts words in matching files on a bounded
// worker pool.
type Counter struct {
	ext     string
	workers int
	log     *logging.StderrLogger
}

// NewCounter creates a Counter.
func NewCounter(ext string, workers int, log *logging.StderrLogger) *Counter {
	if ext == "" {
		ext = DefaultExt
	}
	if workers < 1 {
		workers = DefaultWorkers
	}
	return &Counter{ext: ext, workers: workers, log: log}
}

// Count walks root. A missing or unreadable root is fatal; per-file
// errors are logged, collected in Result.Errors and skipped.
func (c *Counter) Count(root string) (*Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	pool, err := ants.NewPool(c.workers)
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Release()

	res := &Result{PerFile: make(map[string]int)}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	fail := func(path string, err error) {
		mu.Lock()
		res.Errors = append(res.Errors, FileError{Path: path, Err: err})
		mu.Unlock()
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			fail(path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), c.ext) {
			return nil
		}

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			n, err := countFile(path)
			if err != nil {
				fail(path, err)
				return
			}
			mu.Lock()
			res.Total += n
			res.Files++
			res.PerFile[path] = n
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			fail(path, submitErr)
		}
		return nil
	})
	wg.Wait()

	if walkErr != nil {
		return nil, fmt.Errorf("walking %s: %w", root, walkErr)
	}

	sort.Slice(res.Errors, func(i, j int) bool { return res.Errors[i].Path < res.Errors[j].Path })
	for _, fe := range res.Errors {
		c.log.Error("%v", fe)
	}
	c.log.Debug("Counted %d files with %d workers", res.Files, c.workers)
	return res, nil
}

func countFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	if !utf8.Valid(data) {
		return 0, ErrInvalidUTF8
	}
	return CountWords(string(data)), nil
}
