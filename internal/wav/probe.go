// SPDX-License-Identifier: MIT
package wav

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var errNotWav = errors.New("wav: not a valid wav file")

// Info summarizes a decoded recording.
type Info struct {
	Format
	DataBytes int64
	Duration  time.Duration
}

func (i Info) String() string {
	return fmt.Sprintf("%d Hz, %d ch, %d bit, %d data bytes, %s",
		i.SampleRate, i.Channels, i.BitsPerSample, i.DataBytes, i.Duration)
}

// Probe reads the header of a wav file.
func Probe(r io.ReadSeeker) (Info, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return Info{}, errNotWav
	}
	if err := d.FwdToPCM(); err != nil {
		return Info{}, fmt.Errorf("wav: locating data chunk: %w", err)
	}

	info := Info{
		Format: Format{
			SampleRate:    int(d.SampleRate),
			Channels:      int(d.NumChans),
			BitsPerSample: int(d.BitDepth),
		},
		DataBytes: d.PCMLen(),
	}
	if rate := info.ByteRate(); rate > 0 {
		info.Duration = time.Duration(float64(info.DataBytes) / float64(rate) * float64(time.Second))
	}
	return info, nil
}

// Decode reads the whole PCM payload as integer samples.
func Decode(r io.ReadSeeker) (*audio.IntBuffer, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, errNotWav
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wav: decoding pcm: %w", err)
	}
	return buf, nil
}
