package video

import (
	"bytes"
	"image"
	"image/color"
	"strings"
	"testing"
)

func TestBuildFFmpegArgs(t *testing.T) {
	tests := []struct {
		name   string
		params EncodeParams
		want   []string
		absent []string
	}{
		{
			name:   "silent x264",
			params: EncodeParams{Width: 1200, Height: 675, FPS: 30, Encoder: "libx264", Output: "out.mp4"},
			want:   []string{"-video_size 1200x675", "-framerate 30", "-c:v libx264", "-crf 23", "out.mp4"},
			absent: []string{"-shortest", "-map"},
		},
		{
			name:   "narrated nvenc",
			params: EncodeParams{Width: 640, Height: 360, FPS: 25, Encoder: "h264_nvenc", Quality: 30, AudioPath: "voice.wav", Output: "o.mp4"},
			want:   []string{"-i voice.wav", "-map 0:v", "-map 1:a", "-shortest", "-cq 30"},
		},
		{
			name:   "videotoolbox bitrate",
			params: EncodeParams{Width: 640, Height: 360, FPS: 25, Encoder: "h264_videotoolbox", Output: "o.mp4"},
			want:   []string{"-b:v 7500k"},
		},
		{
			name:   "default encoder",
			params: EncodeParams{Width: 640, Height: 360, FPS: 25, Output: "o.mp4"},
			want:   []string{"-c:v libx264"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			joined := strings.Join(buildFFmpegArgs(tt.params), " ")
			for _, w := range tt.want {
				if !strings.Contains(joined, w) {
					t.Errorf("Expected %q in %q", w, joined)
				}
			}
			for _, a := range tt.absent {
				if strings.Contains(joined, a) {
					t.Errorf("Did not expect %q in %q", a, joined)
				}
			}
			if !strings.HasSuffix(joined, tt.params.Output) {
				t.Errorf("Output must be the last argument: %q", joined)
			}
		})
	}
}

func TestWriteRawRGBA(t *testing.T) {
	// A sub-image has a non-zero origin and a wider stride, so it is copied first
	parent := image.NewRGBA(image.Rect(0, 0, 4, 4))
	parent.Set(2, 2, color.RGBA{R: 9, G: 8, B: 7, A: 255})
	sub := parent.SubImage(image.Rect(2, 2, 4, 4))

	var buf bytes.Buffer
	if err := writeRawRGBA(&buf, sub); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 2*2*4 {
		t.Fatalf("Expected 16 bytes, got %d", buf.Len())
	}
	if got := buf.Bytes()[:4]; !bytes.Equal(got, []byte{9, 8, 7, 255}) {
		t.Errorf("First pixel = %v", got)
	}
}
