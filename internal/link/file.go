// SPDX-License-Identifier: MIT
package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sync"
	"time"

	applog "audiolink/internal/log"

	"github.com/spf13/afero"
)

var errLinkClosed = errors.New("link: closed")

// FileConnector replays a raw capture as if it came from a device: every
// Interval at most ChunkSize bytes become readable. At the end of the file
// reads fail with io.EOF unless Loop is set. Writes are accepted and
// dropped.
type FileConnector struct {
	Fs        afero.Fs
	Path      string
	ChunkSize int
	Interval  time.Duration
	Loop      bool
}

func (c FileConnector) Connect(ctx context.Context) (Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fsys := c.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	f, err := fsys.Open(c.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, c.Path)
		}
		return nil, fmt.Errorf("link: open %s: %w", c.Path, err)
	}

	chunk := c.ChunkSize
	if chunk <= 0 {
		chunk = 128
	}
	l := &fileLink{
		file:  f,
		chunk: chunk,
		loop:  c.Loop,
		done:  make(chan struct{}),
	}
	if c.Interval > 0 {
		l.ticker = time.NewTicker(c.Interval)
	}
	applog.Infof("Link: Replaying %s (chunk %d bytes, every %s)", c.Path, chunk, c.Interval)
	return l, nil
}

type fileLink struct {
	file   afero.File
	chunk  int
	loop   bool
	ticker *time.Ticker

	done      chan struct{}
	closeOnce sync.Once
}

func (l *fileLink) Read(p []byte) (int, error) {
	if l.ticker != nil {
		select {
		case <-l.done:
			return 0, errLinkClosed
		case <-l.ticker.C:
		}
	} else {
		select {
		case <-l.done:
			return 0, errLinkClosed
		default:
		}
	}

	if len(p) > l.chunk {
		p = p[:l.chunk]
	}
	n, err := l.file.Read(p)
	if errors.Is(err, io.EOF) && n == 0 && l.loop {
		if _, serr := l.file.Seek(0, io.SeekStart); serr != nil {
			return 0, serr
		}
		return l.file.Read(p)
	}
	return n, err
}

func (l *fileLink) Write(p []byte) (int, error) {
	select {
	case <-l.done:
		return 0, errLinkClosed
	default:
		return len(p), nil
	}
}

func (l *fileLink) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.done)
		if l.ticker != nil {
			l.ticker.Stop()
		}
		err = l.file.Close()
	})
	return err
}
