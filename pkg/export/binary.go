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
	"crypto/sha256"
	"io"
	"os"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/walteh/exportsrc/pkg/log"
)

// maxMismatches is how many consecutive failed verifications are tolerated
// before an export is aborted
const maxMismatches = 5

// copyFunc duplicates the bytes of src into dst
type copyFunc func(src, dst string) error

func copyBytes(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Errorf("creating %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Errorf("copying %s to %s: %w", src, dst, err)
	}
	if err := out.Close(); err != nil {
		return errors.Errorf("closing %s: %w", dst, err)
	}
	return nil
}

// 🔒 copyBinary copies src to dst opaquely and, when hashing is on, verifies
// the copy and recopies on mismatch. Mismatches are counted across the whole
// export; a successful verification resets the count.
func (p *pipeline) copyBinary(src, dst string) error {
	for {
		if err := p.copier(src, dst); err != nil {
			return err
		}
		if !p.settings.ComputeHash {
			return nil
		}

		same, err := sameContent(src, dst)
		if err != nil {
			return err
		}
		if same {
			p.mismatches = 0
			p.sink.Emit(log.VerifyEvent{Path: dst, OK: true})
			return nil
		}

		if p.mismatches > maxMismatches {
			return errors.Errorf("%w: copying %s to %s", ErrIntegrity, src, dst)
		}
		p.mismatches++
		p.sink.Emit(log.VerifyEvent{Path: dst, OK: false, Mismatches: p.mismatches})
		p.logger.Warn().Str("source", src).Str("destination", dst).Int("mismatches", p.mismatches).Msg("digest mismatch, copying again")
	}
}

// sameContent compares the SHA-256 digests of both files, computed concurrently
func sameContent(a, b string) (bool, error) {
	var sumA, sumB []byte

	var g errgroup.Group
	g.Go(func() error {
		var err error
		sumA, err = digest(a)
		return err
	})
	g.Go(func() error {
		var err error
		sumB, err = digest(b)
		return err
	})
	if err := g.Wait(); err != nil {
		return false, err
	}

	return bytes.Equal(sumA, sumB), nil
}

func digest(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Errorf("opening %s for hashing: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, errors.Errorf("hashing %s: %w", path, err)
	}
	return h.Sum(nil), nil
}
