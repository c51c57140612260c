// Package lines reads newline-delimited text of any line length.
package lines

import (
	"bufio"
	"io"
	"strings"
)

// MaxLen is the number of bytes kept of a single line. The rest of a
// longer line is read and discarded.
const MaxLen = 4096

// Scan calls fn for every line of r with its 1-based line number and the
// line without its line ending. A line longer than MaxLen is cut to MaxLen
// bytes and passed with long set. Scan only fails on read errors.
func Scan(r io.Reader, fn func(num int, line string, long bool)) error {
	br := bufio.NewReaderSize(r, MaxLen)
	num := 0

	for {
		chunk, err := br.ReadSlice('\n')
		line := string(chunk)
		long := false
		for err == bufio.ErrBufferFull {
			long = true
			_, err = br.ReadSlice('\n')
		}
		if err != nil && err != io.EOF {
			return err
		}
		if line == "" && err == io.EOF {
			return nil
		}

		num++
		if !long {
			line = strings.TrimRight(line, "\r\n")
		}
		fn(num, line, long)

		if err == io.EOF {
			return nil
		}
	}
}
