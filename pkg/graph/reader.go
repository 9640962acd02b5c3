package graph

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/flashmobwalk/flashmob/pkg/types"
)

// EdgeReader yields the raw (src, dst) pairs of a graph in its original
// (pre-compaction) vertex naming. Load consumes an EdgeReader fully.
type EdgeReader interface {
	// Next returns the next edge. ok is false once the reader is
	// exhausted; err is non-nil only on a genuine read/parse failure.
	Next() (src, dst uint32, ok bool, err error)
}

// binaryReader reads the original engine's packed little-endian u32,u32
// edge-list format, matching include/io.hpp's read_binary_graph.
type binaryReader struct {
	r   io.Reader
	buf [8]byte
}

// NewBinaryReader wraps r as a binary EdgeReader.
func NewBinaryReader(r io.Reader) EdgeReader { return &binaryReader{r: r} }

func (b *binaryReader) Next() (uint32, uint32, bool, error) {
	_, err := io.ReadFull(b.r, b.buf[:])
	if err == io.EOF {
		return 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, false, fmt.Errorf("%w: reading binary edge: %v", types.ErrInvalidInput, err)
	}
	src := binary.LittleEndian.Uint32(b.buf[0:4])
	dst := binary.LittleEndian.Uint32(b.buf[4:8])
	return src, dst, true, nil
}

// textReader reads whitespace-separated "src dst" lines, skipping blank
// lines and lines beginning with '#', matching include/io.hpp's
// read_text_graph.
type textReader struct {
	sc *bufio.Scanner
}

// NewTextReader wraps r as a text EdgeReader.
func NewTextReader(r io.Reader) EdgeReader {
	return &textReader{sc: bufio.NewScanner(r)}
}

func (t *textReader) Next() (uint32, uint32, bool, error) {
	for t.sc.Scan() {
		line := strings.TrimSpace(t.sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0, 0, false, fmt.Errorf("%w: malformed edge line %q", types.ErrInvalidInput, line)
		}
		src, err := strconv.ParseUint(fields[0], 10, 32)
		if err != nil {
			return 0, 0, false, fmt.Errorf("%w: %v", types.ErrInvalidInput, err)
		}
		dst, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return 0, 0, false, fmt.Errorf("%w: %v", types.ErrInvalidInput, err)
		}
		return uint32(src), uint32(dst), true, nil
	}
	if err := t.sc.Err(); err != nil {
		return 0, 0, false, fmt.Errorf("%w: %v", types.ErrInvalidInput, err)
	}
	return 0, 0, false, nil
}

// WriteBinary streams edges to w in the binary format, used by
// cmd/fmobfmt to convert between formats.
func WriteBinary(w io.Writer, src, dst uint32) error {
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[0:4], src)
	binary.LittleEndian.PutUint32(buf[4:8], dst)
	_, err := w.Write(buf[:])
	return err
}

// WriteText streams an edge to w in the text format.
func WriteText(w io.Writer, src, dst uint32) error {
	_, err := fmt.Fprintf(w, "%d %d\n", src, dst)
	return err
}
