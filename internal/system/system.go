package system

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/ivlev/sketchcast/internal/logger"
	"github.com/ivlev/sketchcast/internal/render"
)

// AudioExtensions are the narration formats ffmpeg can mux.
var AudioExtensions = []string{".wav", ".mp3", ".m4a", ".ogg", ".aac", ".flac"}

// SceneExtensions are the scene file formats scene.ReadScene decodes.
var SceneExtensions = []string{".json", ".yaml", ".yml"}

// FindLatestScene returns the most recently modified scene file in dir.
func FindLatestScene(dir string) (string, error) {
	return findLatest(dir, SceneExtensions, "scene")
}

// FindLatestAudio returns the most recently modified audio file in dir.
func FindLatestAudio(dir string) (string, error) {
	return findLatest(dir, AudioExtensions, "audio")
}

// FindLatestWAV is FindLatestAudio restricted to files the player can decode.
func FindLatestWAV(dir string) (string, error) {
	return findLatest(dir, []string{".wav"}, "WAV")
}

func findLatest(dir string, extensions []string, what string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !hasExtension(f.Name(), extensions) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("no %s files found in %s", what, dir)
	}

	return latestFile, nil
}

func hasExtension(name string, extensions []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// GetAudioDuration asks ffprobe for the length of an audio file in seconds.
func GetAudioDuration(path string) (float64, error) {
	cmd := exec.Command("ffprobe", "-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var duration float64
	_, err = fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &duration)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: unexpected output %q: %w", path, out, err)
	}

	return duration, nil
}

var (
	encoderOnce sync.Once
	encoderName string
)

// GetBestH264Encoder picks a hardware H.264 encoder when ffmpeg offers one,
// libx264 otherwise. The check runs once per process.
func GetBestH264Encoder() string {
	encoderOnce.Do(func() {
		encoderName = "libx264"

		out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").CombinedOutput()
		if err != nil {
			logger.Debugf("ffmpeg -encoders: %v", err)
			return
		}
		// macOS VideoToolbox first, then NVIDIA
		for _, name := range []string{"h264_videotoolbox", "h264_nvenc"} {
			if strings.Contains(string(out), name) {
				encoderName = name
				return
			}
		}
	})
	return encoderName
}

// frameWorkingSet is how many RGBA frames one export worker keeps alive:
// its surface plus frames queued for the encoder.
const frameWorkingSet = 4

// SuggestWorkers sizes the export worker pool from the logical CPU count,
// capped so that the frames in flight fit in half of the available memory.
func SuggestWorkers(size render.Size) int {
	workers, err := cpu.Counts(true)
	if err != nil || workers < 1 {
		workers = runtime.NumCPU()
	}

	frameBytes := uint64(size.Width) * uint64(size.Height) * 4 * frameWorkingSet
	if vm, err := mem.VirtualMemory(); err == nil && frameBytes > 0 {
		if byMem := int(vm.Available / 2 / frameBytes); byMem < workers {
			logger.Debugf("limiting export workers to %d by available memory (%d MiB)", byMem, vm.Available>>20)
			workers = byMem
		}
	}

	if workers < 1 {
		workers = 1
	}
	return workers
}

// OutputName builds output/<name>_<timestamp><ext> from the scene or audio
// file the export is named after.
func OutputName(dir, nameSource, ext string, now time.Time) string {
	baseName := filepath.Base(nameSource)
	nameOnly := strings.TrimSuffix(baseName, filepath.Ext(baseName))
	cleanName := strings.ReplaceAll(nameOnly, " ", "_")
	if cleanName == "" || cleanName == "." {
		cleanName = "scene"
	}
	timestamp := now.Format("2006-01-02_15-04-05")
	return filepath.Join(dir, fmt.Sprintf("%s_%s%s", cleanName, timestamp, ext))
}
