package audio

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// DefaultMaxSampleBytes bounds a single encoded sample file.
const DefaultMaxSampleBytes = 8 << 20

type codec int

const (
	codecUnknown codec = iota
	codecWAV
	codecVorbis
	codecMP3
)

func (c codec) String() string {
	switch c {
	case codecWAV:
		return "wav"
	case codecVorbis:
		return "vorbis"
	case codecMP3:
		return "mp3"
	}
	return "unknown"
}

// detectCodec picks a decoder from the file extension, falling back to the
// leading magic bytes.
func detectCodec(name string, head []byte) codec {
	switch strings.ToLower(path.Ext(name)) {
	case ".wav", ".wave":
		return codecWAV
	case ".ogg", ".oga":
		return codecVorbis
	case ".mp3":
		return codecMP3
	}

	switch {
	case len(head) >= 12 && string(head[0:4]) == "RIFF" && string(head[8:12]) == "WAVE":
		return codecWAV
	case len(head) >= 4 && string(head[0:4]) == "OggS":
		return codecVorbis
	case len(head) >= 3 && string(head[0:3]) == "ID3":
		return codecMP3
	case len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		return codecMP3
	}
	return codecUnknown
}

// decodeSample reads an encoded file fully and decodes it into a buffer at
// its native sample rate.
func decodeSample(name string, r io.Reader, maxBytes int64) (*beep.Buffer, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read sample: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("sample larger than %d bytes", maxBytes)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)

	c := detectCodec(name, data)
	switch c {
	case codecWAV:
		streamer, format, err = wav.Decode(bytes.NewReader(data))
	case codecVorbis:
		streamer, format, err = vorbis.Decode(io.NopCloser(bytes.NewReader(data)))
	case codecMP3:
		streamer, format, err = mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	default:
		return nil, fmt.Errorf("unsupported audio format: %s", path.Ext(name))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", c, err)
	}
	defer func() { _ = streamer.Close() }()

	buffer := beep.NewBuffer(format)
	buffer.Append(streamer)
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", c, err)
	}
	if buffer.Len() == 0 {
		return nil, fmt.Errorf("%s sample has no frames", c)
	}

	return buffer, nil
}
