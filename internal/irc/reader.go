package irc

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// LineReader splits a byte stream into protocol lines, buffering
// partial lines until a terminator arrives and enforcing the frame
// budget so a hostile peer cannot grow the buffer without bound.
type LineReader struct {
	r       *bufio.Reader
	maxLine int
}

// NewLineReader wraps r with a frame budget of maxLine bytes.
// maxLine <= 0 selects the protocol default of 512.
func NewLineReader(r io.Reader, maxLine int) *LineReader {
	if maxLine <= 0 {
		maxLine = MaxLineLen
	}
	return &LineReader{
		r:       bufio.NewReaderSize(r, maxLine),
		maxLine: maxLine,
	}
}

// ReadLine returns the next line without its terminator. An oversized
// frame is consumed and reported as ErrFrameTooLarge; the stream stays
// usable and the next call returns the following frame. Any other
// error is a transport failure.
func (lr *LineReader) ReadLine() (string, error) {
	slice, err := lr.r.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		if discardErr := lr.discardLine(); discardErr != nil {
			return "", discardErr
		}
		return "", ErrFrameTooLarge
	}
	if err != nil {
		// A final unterminated fragment at EOF is dropped: IRC frames
		// are only valid once terminated.
		return "", err
	}
	line := strings.TrimRight(string(slice), "\r\n")
	return line, nil
}

// discardLine consumes the remainder of an oversized frame up to and
// including its terminator.
func (lr *LineReader) discardLine() error {
	for {
		_, err := lr.r.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return err
	}
}

// SplitText breaks completion text into chunks that fit the protocol
// frame budget when wrapped in a PRIVMSG, preferring to break at word
// boundaries. Blank chunks are dropped.
func SplitText(text string, maxChunk int) []string {
	if maxChunk <= 0 {
		maxChunk = 400
	}
	var chunks []string
	for _, paragraph := range strings.Split(text, "\n") {
		paragraph = strings.TrimSpace(paragraph)
		for paragraph != "" {
			if len(paragraph) <= maxChunk {
				chunks = append(chunks, paragraph)
				break
			}
			cut := strings.LastIndexByte(paragraph[:maxChunk], ' ')
			if cut <= 0 {
				cut = maxChunk
			}
			chunk := strings.TrimSpace(paragraph[:cut])
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
			paragraph = strings.TrimSpace(paragraph[cut:])
		}
	}
	return chunks
}
