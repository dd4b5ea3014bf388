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
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"gitlab.com/tozd/go/errors"
)

// 🔐 destinationLock keeps two exports out of one destination. The lock file
// lives in the temp directory so nothing extra appears in the exported tree.
type destinationLock struct {
	flock *flock.Flock
	path  string
}

func lockPath(destination string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(destination)))
	return filepath.Join(os.TempDir(), "exportsrc-"+hex.EncodeToString(sum[:8])+".lock")
}

// lockDestination takes the lock without waiting
func lockDestination(destination string) (*destinationLock, error) {
	l := &destinationLock{path: lockPath(destination)}
	l.flock = flock.New(l.path)

	acquired, err := l.flock.TryLock()
	if err != nil {
		return nil, errors.Errorf("locking %s: %w", l.path, err)
	}
	if !acquired {
		return nil, errors.Errorf("%w: %s", ErrLocked, destination)
	}
	return l, nil
}

// Unlock releases the lock and removes the lock file
func (l *destinationLock) Unlock() error {
	if err := l.flock.Unlock(); err != nil {
		return errors.Errorf("releasing lock %s: %w", l.path, err)
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Errorf("removing lock %s: %w", l.path, err)
	}
	return nil
}
