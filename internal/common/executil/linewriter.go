package executil

import "bytes"

// LineWriter splits a byte stream into lines and hands each complete line
// (without the trailing newline or carriage return) to fn.
type LineWriter struct {
	buf []byte
	fn  func(string)
}

func NewLineWriter(fn func(string)) *LineWriter { return &LineWriter{fn: fn} }

func (lw *LineWriter) Write(p []byte) (int, error) {
	lw.buf = append(lw.buf, p...)
	for {
		idx := bytes.IndexByte(lw.buf, '\n')
		if idx < 0 {
			break
		}
		lw.emit(lw.buf[:idx])
		lw.buf = lw.buf[idx+1:]
	}
	return len(p), nil
}

// Flush emits any buffered partial line.
func (lw *LineWriter) Flush() {
	if len(lw.buf) > 0 {
		lw.emit(lw.buf)
		lw.buf = nil
	}
}

func (lw *LineWriter) emit(b []byte) {
	line := string(bytes.TrimRight(b, "\r"))
	if line != "" {
		lw.fn(line)
	}
}
