package export

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/ivlev/sketchcast/internal/video"
)

// PNGSink writes frame_00000.png, frame_00001.png, ... into a directory.
type PNGSink struct {
	Dir     string
	encoder png.Encoder
}

func NewPNGSink(dir string) (*PNGSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create frame directory: %w", err)
	}
	return &PNGSink{Dir: dir, encoder: png.Encoder{CompressionLevel: png.BestSpeed}}, nil
}

// FramePath is where frame i is written.
func (s *PNGSink) FramePath(i int) string {
	return filepath.Join(s.Dir, fmt.Sprintf("frame_%05d.png", i))
}

func (s *PNGSink) WriteFrame(i int, img *image.RGBA) error {
	f, err := os.Create(s.FramePath(i))
	if err != nil {
		return err
	}
	if err := s.encoder.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *PNGSink) Close() error { return nil }

// VideoSink streams frames into a video encoder.
type VideoSink struct {
	stream video.Stream
}

func NewVideoSink(ctx context.Context, enc video.VideoEncoder, params video.EncodeParams) (*VideoSink, error) {
	stream, err := enc.Open(ctx, params)
	if err != nil {
		return nil, err
	}
	return &VideoSink{stream: stream}, nil
}

func (s *VideoSink) WriteFrame(_ int, img *image.RGBA) error {
	return s.stream.WriteFrame(img)
}

func (s *VideoSink) Close() error {
	return s.stream.Close()
}
