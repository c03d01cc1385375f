package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os/exec"
)

// EncodeParams describes one continuous video made of raw frames.
type EncodeParams struct {
	Width, Height int
	FPS           int
	Encoder       string // ffmpeg video encoder name
	Quality       int    // 0 picks DefaultQuality(Encoder)
	AudioPath     string // optional narration, muxed and trimmed to the video
	Output        string
}

// Stream accepts frames in presentation order.
type Stream interface {
	WriteFrame(img image.Image) error
	// Close flushes the encoder and waits for it to finish.
	Close() error
}

type VideoEncoder interface {
	Open(ctx context.Context, params EncodeParams) (Stream, error)
}

type FFmpegEncoder struct{}

// Open starts ffmpeg reading raw RGBA frames from stdin.
func (e *FFmpegEncoder) Open(ctx context.Context, params EncodeParams) (Stream, error) {
	if params.Width <= 0 || params.Height <= 0 || params.FPS <= 0 {
		return nil, fmt.Errorf("invalid encode params %dx%d@%d", params.Width, params.Height, params.FPS)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", buildFFmpegArgs(params)...)
	s := &ffmpegStream{cmd: cmd, width: params.Width, height: params.Height}
	cmd.Stdout = &s.out
	cmd.Stderr = &s.out

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}
	s.stdin = stdin

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}
	return s, nil
}

// DefaultQuality is a sensible quality value per encoder: a bitrate factor
// for VideoToolbox (Q*100 kbit/s), CQ for NVENC, CRF for x264.
func DefaultQuality(encoder string) int {
	switch encoder {
	case "h264_videotoolbox":
		return 75
	case "h264_nvenc":
		return 28
	default:
		return 23
	}
}

func qualityArgs(encoder string, quality int) []string {
	if quality <= 0 {
		quality = DefaultQuality(encoder)
	}
	switch encoder {
	case "h264_videotoolbox":
		// VideoToolbox ignores -q:v on some versions, use a bitrate
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return []string{"-cq", fmt.Sprintf("%d", quality)}
	default: // libx264
		return []string{"-crf", fmt.Sprintf("%d", quality), "-preset", "medium"}
	}
}

func buildFFmpegArgs(params EncodeParams) []string {
	encoder := params.Encoder
	if encoder == "" {
		encoder = "libx264"
	}

	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", params.Width, params.Height),
		"-framerate", fmt.Sprintf("%d", params.FPS),
		"-i", "-",
	}
	if params.AudioPath != "" {
		args = append(args, "-i", params.AudioPath, "-map", "0:v", "-map", "1:a", "-c:a", "aac", "-shortest")
	}

	args = append(args, "-pix_fmt", "yuv420p", "-c:v", encoder)
	args = append(args, qualityArgs(encoder, params.Quality)...)
	args = append(args, "-movflags", "+faststart", params.Output)
	return args
}

type ffmpegStream struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	out    bytes.Buffer
	width  int
	height int
	frames int
}

func (s *ffmpegStream) WriteFrame(img image.Image) error {
	if b := img.Bounds(); b.Dx() != s.width || b.Dy() != s.height {
		return fmt.Errorf("frame %d is %dx%d, stream is %dx%d", s.frames, b.Dx(), b.Dy(), s.width, s.height)
	}
	if err := writeRawRGBA(s.stdin, img); err != nil {
		return fmt.Errorf("write raw error at frame %d: %w", s.frames, err)
	}
	s.frames++
	return nil
}

func (s *ffmpegStream) Close() error {
	s.stdin.Close()
	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg wait error: %w, output: %s", err, s.out.String())
	}
	return nil
}

func writeRawRGBA(w io.Writer, img image.Image) error {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || rgba.Rect.Min.X != 0 || rgba.Rect.Min.Y != 0 {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	_, err := w.Write(rgba.Pix)
	return err
}
