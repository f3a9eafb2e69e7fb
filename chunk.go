package kvfs

import (
	"bytes"
	"io"
)

// ChunkSize is the fixed chunk width the engine lays chunks out at. Every
// chunk a save produces is exactly ChunkSize bytes except possibly the
// last, which may be shorter. No chunk is ever empty: empty input yields
// no chunks at all.
const ChunkSize = 65536

// ChunkReader turns a byte stream into a sequence of fixed-size chunks,
// filling each one with repeated reads so a reader's natural short reads
// never produce misaligned chunks.
type ChunkReader struct {
	r   io.Reader
	buf []byte
	err error
}

// NewChunkReader wraps r.
func NewChunkReader(r io.Reader) *ChunkReader {
	return &ChunkReader{r: r, buf: make([]byte, ChunkSize)}
}

// Next returns the next chunk, or io.EOF once the stream is exhausted. The
// returned slice is reused on the next call to Next and must be copied by
// the caller if it needs to outlive that call.
func (c *ChunkReader) Next() ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}

	n, err := io.ReadFull(c.r, c.buf)
	switch {
	case err == nil:
		return c.buf, nil
	case err == io.ErrUnexpectedEOF:
		// a short final chunk; remember that the stream is now done
		c.err = io.EOF
		return c.buf[:n], nil
	case err == io.EOF:
		c.err = io.EOF
		return nil, io.EOF
	default:
		c.err = err
		return nil, err
	}
}

// ChunkBytes slices b at ChunkSize boundaries.
func ChunkBytes(b []byte) [][]byte {
	if len(b) == 0 {
		return [][]byte{}
	}
	chunks := make([][]byte, 0, (len(b)+ChunkSize-1)/ChunkSize)
	for off := 0; off < len(b); off += ChunkSize {
		end := off + ChunkSize
		if end > len(b) {
			end = len(b)
		}
		chunks = append(chunks, b[off:end])
	}
	return chunks
}

// ChunkString UTF-8 encodes s and slices it the same way ChunkBytes does.
func ChunkString(s string) [][]byte {
	return ChunkBytes([]byte(s))
}

// chunkReaderFromContent normalizes Content into an io.Reader the save
// pipeline can pull fixed-size chunks from uniformly, regardless of
// whether the caller supplied a string, a byte slice, or a stream.
func chunkReaderFromContent(c Content) io.Reader {
	switch v := c.(type) {
	case StringContent:
		return bytes.NewReader([]byte(v))
	case BytesContent:
		return bytes.NewReader([]byte(v))
	case StreamContent:
		return v.Reader
	default:
		return bytes.NewReader(nil)
	}
}
