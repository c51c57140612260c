package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/p4th0r/ipsift/internal/exclusion"
)

const (
	// DefaultLocalFile is the local exclusion file read from the working
	// directory when no other path is given.
	DefaultLocalFile = "knownvpn_datacenter.txt"
	// LocalFileName is the origin name of the local exclusion file.
	LocalFileName = "local-file"
)

// ErrFileNotFound is returned by File.Tokens when the file does not exist.
var ErrFileNotFound = errors.New("file not found")

// File is a local exclusion file of addresses and CIDR ranges.
type File struct {
	path string
	name string
}

// NewFile creates a file origin for path.
func NewFile(path string) *File {
	return &File{path: path, name: LocalFileName}
}

// Name returns the origin name.
func (f *File) Name() string { return f.name }

// Location returns the file path.
func (f *File) Location() string { return f.path }

// Tokens reads the file. A missing file yields ErrFileNotFound.
func (f *File) Tokens(_ context.Context) ([]exclusion.Token, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, f.path)
		}
		return nil, fmt.Errorf("opening %s: %w", f.path, err)
	}
	defer fh.Close()

	tokens, err := scanTokens(fh, f.name, exclusion.ModeAddressOrRange)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.path, err)
	}
	return tokens, nil
}
