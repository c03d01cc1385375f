package playback

import (
	"fmt"
	"io"
	"os"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

// OpenWAV decodes a WAV file into a StreamSource. The returned closer
// releases the file.
func OpenWAV(path string, opts ...StreamOption) (*StreamSource, beep.Format, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, nil, err
	}

	stream, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, beep.Format{}, nil, fmt.Errorf("decode %s: %w", path, err)
	}

	src, err := NewStreamSource(stream, format.SampleRate, opts...)
	if err != nil {
		stream.Close()
		return nil, beep.Format{}, nil, err
	}
	return src, format, stream, nil
}
