// Package audiodump sinks SPU output samples to a 16-bit stereo WAV
// file, for tests and offline debugging of the audio pipeline.
package audiodump

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/kestrel-dev/go-psrx/psrx/spu"
)

const sampleRate = 44100

// Sink drains spu.Sample values into a WAV file on disk.
type Sink struct {
	file    *os.File
	encoder *wav.Encoder
}

// Create opens path and prepares a 16-bit stereo 44.1kHz WAV encoder.
func Create(path string) (*Sink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("audiodump: create %s: %w", path, err)
	}
	enc := wav.NewEncoder(f, sampleRate, 16, 2, 1)
	return &Sink{file: f, encoder: enc}, nil
}

// WriteSamples appends the given SPU samples as interleaved L/R frames.
func (s *Sink) WriteSamples(samples []spu.Sample) error {
	if len(samples) == 0 {
		return nil
	}
	data := make([]int, 0, len(samples)*2)
	for _, smp := range samples {
		data = append(data, int(smp.Left), int(smp.Right))
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	return s.encoder.Write(buf)
}

// Close finalizes the WAV header and closes the underlying file.
func (s *Sink) Close() error {
	if err := s.encoder.Close(); err != nil {
		s.file.Close()
		return fmt.Errorf("audiodump: finalize wav: %w", err)
	}
	return s.file.Close()
}
