package kvfs

import "io"

// ReadStream drains r to a byte slice. r is typically the ContentReader
// returned by Engine.Read.
func ReadStream(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}

// ReadStreamAsString drains r and decodes it as UTF-8.
func ReadStreamAsString(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
