// Package frame implements the length-prefixed JSON framing spoken by the DaZeus core.
//
// Every message in both directions is an ASCII decimal byte count immediately followed by that
// many bytes of UTF-8 encoded JSON:
//
//	38{"do":"join","params":["net","#chan"]}
//
// There is no separator and no terminator. The decoder tolerates stray carriage returns and
// newlines before and among the length digits.
package frame

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"
)

// DefaultMaxSize is the largest payload a Decoder accepts unless configured otherwise.
const DefaultMaxSize = 16 << 20

const readChunk = 1024

var (
	// ErrInvalidUTF8 is returned when a frame payload is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("frame: payload is not valid UTF-8")
	// ErrInvalidJSON is returned when a frame payload is not a JSON document.
	ErrInvalidJSON = errors.New("frame: payload is not valid JSON")
	// ErrMalformedPrefix is returned when payload bytes follow a zero length prefix.
	ErrMalformedPrefix = errors.New("frame: payload without length prefix")
	// ErrFrameTooLarge is returned when a length prefix exceeds the decoder's maximum size.
	ErrFrameTooLarge = errors.New("frame: length prefix exceeds maximum frame size")
)

// Decoder turns a byte stream into complete frame payloads.
//
// A Decoder is not safe for concurrent use; the owning connection has exactly one reader.
type Decoder struct {
	r       io.Reader
	buf     []byte
	maxSize int
	chunk   []byte
}

// NewDecoder returns a Decoder reading from r. r may be nil when bytes are supplied with Feed.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, maxSize: DefaultMaxSize}
}

// SetMaxSize limits the accepted payload length. Values <= 0 restore DefaultMaxSize.
func (d *Decoder) SetMaxSize(n int) {
	if n <= 0 {
		n = DefaultMaxSize
	}
	d.maxSize = n
}

// Buffered returns the number of bytes held but not yet consumed.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Feed appends bytes received from the transport.
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// scan walks the length prefix from the start of the buffer. It reports the payload offset, the
// declared length, and whether the scan stopped on a payload byte.
func (d *Decoder) scan() (offset, length int, reachedPayload bool, err error) {
	for offset < len(d.buf) {
		b := d.buf[offset]
		switch {
		case b >= '0' && b <= '9':
			length = length*10 + int(b-'0')
			if length > d.maxSize {
				return 0, 0, false, fmt.Errorf("%w: more than %d bytes", ErrFrameTooLarge, d.maxSize)
			}
			offset++
		case b == '\n' || b == '\r':
			offset++
		default:
			return offset, length, true, nil
		}
	}
	return offset, length, false, nil
}

// Next extracts the next complete payload from the buffered bytes. It returns (nil, nil) when
// more bytes are needed. Consumed bytes are dropped before the payload is validated, so errors
// never leave a half-consumed frame behind; they are nevertheless fatal for the stream.
func (d *Decoder) Next() ([]byte, error) {
	offset, length, reachedPayload, err := d.scan()
	if err != nil {
		return nil, err
	}
	if length == 0 {
		if reachedPayload {
			return nil, fmt.Errorf("%w: found %q", ErrMalformedPrefix, d.buf[offset])
		}
		return nil, nil
	}
	end := offset + length
	if len(d.buf) < end {
		return nil, nil
	}

	payload := make([]byte, length)
	copy(payload, d.buf[offset:end])

	rest := copy(d.buf, d.buf[end:])
	d.buf = d.buf[:rest]

	if !utf8.Valid(payload) {
		return nil, ErrInvalidUTF8
	}
	if !json.Valid(payload) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidJSON, truncate(payload, 64))
	}
	return payload, nil
}

// ReadFrame returns the next payload, reading from the underlying reader as needed.
// A stream that ends in the middle of a frame yields io.ErrUnexpectedEOF.
func (d *Decoder) ReadFrame() ([]byte, error) {
	if d.r == nil {
		return nil, errors.New("frame: decoder has no reader")
	}
	if d.chunk == nil {
		d.chunk = make([]byte, readChunk)
	}
	for {
		payload, err := d.Next()
		if err != nil || payload != nil {
			return payload, err
		}

		n, err := d.r.Read(d.chunk)
		if n > 0 {
			d.Feed(d.chunk[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if n > 0 {
					continue
				}
				if len(bytes.Trim(d.buf, "\r\n")) > 0 {
					return nil, io.ErrUnexpectedEOF
				}
			}
			return nil, err
		}
	}
}

// Encode returns the wire form of an already serialized JSON payload.
func Encode(payload []byte) []byte {
	return Append(nil, payload)
}

// Append appends the wire form of payload to dst.
func Append(dst, payload []byte) []byte {
	dst = strconv.AppendInt(dst, int64(len(payload)), 10)
	return append(dst, payload...)
}

// Marshal serializes v as JSON and returns its wire form. HTML characters are not escaped, since
// IRC text routinely contains them.
func Marshal(v any) ([]byte, error) {
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return Encode(bytes.TrimSuffix(body.Bytes(), []byte("\n"))), nil
}

// Writer writes frames to an underlying stream.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer that frames payloads onto w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteFrame writes a single frame carrying payload. The length prefix and payload are written
// in one call so a concurrent peer never observes a prefix without its body.
func (w *Writer) WriteFrame(payload []byte) error {
	_, err := w.w.Write(Encode(payload))
	return err
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
