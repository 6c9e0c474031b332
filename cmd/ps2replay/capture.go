package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// parseCapture reads whitespace separated hex bytes. A '#' starts a
// comment that runs to the end of the line. Bytes may carry a 0x prefix.
func parseCapture(r io.Reader) ([]byte, error) {
	var out []byte
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		for _, f := range strings.Fields(text) {
			f = strings.TrimPrefix(strings.TrimPrefix(f, "0x"), "0X")
			v, err := strconv.ParseUint(f, 16, 8)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid byte %q", line, f)
			}
			out = append(out, byte(v))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read capture: %w", err)
	}
	return out, nil
}
