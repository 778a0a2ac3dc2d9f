package testsupport

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// Tools holds resolved media binaries for integration tests.
type Tools struct {
	FFmpeg  string
	FFprobe string
}

// RequireFFmpeg skips the test unless ffmpeg and ffprobe are on PATH and the
// ffmpeg build has every listed encoder and filter.
func RequireFFmpeg(t testing.TB, encoders []string, filters []string) Tools {
	t.Helper()

	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not available")
	}
	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		t.Skip("ffprobe not available")
	}
	if len(encoders) > 0 {
		out, err := exec.Command(ffmpegPath, "-hide_banner", "-encoders").Output()
		if err != nil {
			t.Skipf("ffmpeg -encoders failed: %v", err)
		}
		for _, name := range encoders {
			if !strings.Contains(string(out), " "+name+" ") {
				t.Skipf("ffmpeg lacks encoder %s", name)
			}
		}
	}
	if len(filters) > 0 {
		out, err := exec.Command(ffmpegPath, "-hide_banner", "-filters").Output()
		if err != nil {
			t.Skipf("ffmpeg -filters failed: %v", err)
		}
		for _, name := range filters {
			if !strings.Contains(string(out), " "+name+" ") {
				t.Skipf("ffmpeg lacks filter %s", name)
			}
		}
	}
	return Tools{FFmpeg: ffmpegPath, FFprobe: ffprobePath}
}

// Tone writes a stereo sine tone of the given frequency and length.
func (tt Tools) Tone(t testing.TB, path string, freq int, length time.Duration) string {
	t.Helper()

	src := fmt.Sprintf("sine=frequency=%d:sample_rate=48000:duration=%s", freq, seconds(length))
	tt.generate(t, path, "-f", "lavfi", "-i", src, "-ac", "2", "-c:a", "pcm_s16le")
	return path
}

// TestPattern writes a small H.264 test-pattern clip without audio.
func (tt Tools) TestPattern(t testing.TB, path string, length time.Duration) string {
	t.Helper()

	src := fmt.Sprintf("testsrc=size=320x240:rate=10:duration=%s", seconds(length))
	tt.generate(t, path, "-f", "lavfi", "-i", src, "-c:v", "libx264", "-preset", "ultrafast", "-pix_fmt", "yuv420p")
	return path
}

func (tt Tools) generate(t testing.TB, path string, args ...string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	full := append([]string{"-hide_banner", "-nostdin", "-y", "-loglevel", "error"}, args...)
	full = append(full, path)
	if out, err := exec.CommandContext(ctx, tt.FFmpeg, full...).CombinedOutput(); err != nil {
		t.Fatalf("generate %s: %v: %s", path, err, strings.TrimSpace(string(out)))
	}
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}
