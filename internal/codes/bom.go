package codes

import (
	"bufio"
	"bytes"
	"io"
)

// utf8BOM is the byte order mark some Windows editors put in front of UTF-8
// files. encoding/json rejects it as an invalid character.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// skipBOM returns a reader positioned after the UTF-8 BOM, if r starts with one.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}
