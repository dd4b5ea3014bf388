// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package export

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"strings"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// sniffLen is how much of a file the text sniffer looks at
const sniffLen = 8000

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
)

func hasBOM(b []byte) bool {
	return bytes.HasPrefix(b, bomUTF8) || bytes.HasPrefix(b, bomUTF16BE) || bytes.HasPrefix(b, bomUTF16LE)
}

// sniffText reports whether the file looks like text: a byte order mark, or
// no NUL byte and a text content type in its first bytes
func sniffText(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, errors.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, errors.Errorf("reading %s: %w", path, err)
	}
	buf = buf[:n]

	if n == 0 {
		return true, nil
	}
	if hasBOM(buf) {
		return true, nil
	}
	if bytes.IndexByte(buf, 0) >= 0 {
		return false, nil
	}
	return strings.HasPrefix(http.DetectContentType(buf), "text/"), nil
}

// decodeText returns the content as UTF-8 and whether it carried a byte order
// mark. Content without a mark is passed through untouched.
func decodeText(data []byte) (string, bool, error) {
	bom := hasBOM(data)
	decoded, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), data)
	if err != nil {
		return "", false, errors.Errorf("decoding text: %w", err)
	}
	return string(decoded), bom, nil
}

// copyText reads the whole file, applies the replacements in order and writes
// it back as UTF-8. A byte order mark on the source is kept as a UTF-8 one.
func (p *pipeline) copyText(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return errors.Errorf("reading %s: %w", src, err)
	}

	content, bom, err := decodeText(data)
	if err != nil {
		return errors.Errorf("%s: %w", src, err)
	}

	translated, n := p.translator.TranslateCount(content)
	p.logger.Debug().Str("path", src).Int("replacements", n).Msg("text copy")

	out := []byte(translated)
	if bom {
		out = append(append([]byte(nil), bomUTF8...), out...)
	}
	if err := os.WriteFile(dst, out, 0o644); err != nil {
		return errors.Errorf("writing %s: %w", dst, err)
	}
	return nil
}
