package ffmpeg

import (
	"context"
	"errors"
	"strings"
	"testing"

	"demoforge/internal/services"
)

func TestRunWrapsFailures(t *testing.T) {
	runner := New("").WithExec(func(_ context.Context, binary string, args ...string) ([]byte, []byte, error) {
		if binary != "ffmpeg" {
			t.Fatalf("binary = %q", binary)
		}
		if args[0] != "-hide_banner" || args[1] != "-nostdin" {
			t.Fatalf("missing preamble: %v", args)
		}
		return nil, []byte("line one\n\n[libx264] Unknown encoder 'libx264'\n"), errors.New("exit status 1")
	})
	err := runner.Run(context.Background(), "-i", "in.mp4", "out.mp4")
	var ffErr *Error
	if !errors.As(err, &ffErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatal("expected external tool marker")
	}
	if !strings.Contains(ffErr.Tail(), "Unknown encoder") || strings.Contains(ffErr.Tail(), " |  | ") {
		t.Fatalf("unexpected tail %q", ffErr.Tail())
	}
	if !strings.Contains(ffErr.Hint(), "libx264") {
		t.Fatalf("unexpected hint %q", ffErr.Hint())
	}
}

func TestRunReportsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := New("ffmpeg").WithExec(func(context.Context, string, ...string) ([]byte, []byte, error) {
		return nil, nil, errors.New("signal: killed")
	})
	err := runner.Run(ctx, "-version")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestParseVolume(t *testing.T) {
	stderr := `[Parsed_volumedetect_0 @ 0x1] n_samples: 96000
[Parsed_volumedetect_0 @ 0x1] mean_volume: -21.3 dB
[Parsed_volumedetect_0 @ 0x1] max_volume: -18.1 dB`
	vol, err := ParseVolume(stderr)
	if err != nil {
		t.Fatalf("ParseVolume: %v", err)
	}
	if vol.MeanDB != -21.3 || vol.MaxDB != -18.1 {
		t.Fatalf("unexpected volume %+v", vol)
	}
	silent, err := ParseVolume("mean_volume: -inf dB\nmax_volume: -inf dB")
	if err != nil || silent.MeanDB != -144 {
		t.Fatalf("silence = %+v, %v", silent, err)
	}
	if _, err := ParseVolume("nothing here"); err == nil {
		t.Fatal("expected parse failure")
	}
}

func TestMeanVolumeBuildsChain(t *testing.T) {
	var got []string
	runner := New("ffmpeg").WithExec(func(_ context.Context, _ string, args ...string) ([]byte, []byte, error) {
		got = args
		return nil, []byte("mean_volume: -30.0 dB\nmax_volume: -20.0 dB\n"), nil
	})
	vol, err := runner.MeanVolume(context.Background(), "mix.mp4", "bandpass=f=440")
	if err != nil {
		t.Fatalf("MeanVolume: %v", err)
	}
	if vol.MeanDB != -30 {
		t.Fatalf("mean = %v", vol.MeanDB)
	}
	joined := strings.Join(got, " ")
	if !strings.Contains(joined, "-af bandpass=f=440,volumedetect") {
		t.Fatalf("unexpected args %q", joined)
	}
}

func TestCapabilities(t *testing.T) {
	encoders := `Encoders:
 V..... = Video
 A..... = Audio
 ------
 V....D libx264              libx264 H.264 / AVC / MPEG-4 AVC
 A....D aac                  AAC (Advanced Audio Coding)
`
	filters := `Filters:
  T.. = Timeline support
  A = Audio input/output
 ... amix              N->A       Audio mixing.
 ... apad              A->A       Pad audio with silence.
`
	runner := New("ffmpeg").WithExec(func(_ context.Context, _ string, args ...string) ([]byte, []byte, error) {
		switch args[len(args)-1] {
		case "-encoders":
			return []byte(encoders), nil, nil
		case "-filters":
			return []byte(filters), nil, nil
		}
		return nil, nil, errors.New("unexpected")
	})
	caps, err := runner.Capabilities(context.Background())
	if err != nil {
		t.Fatalf("Capabilities: %v", err)
	}
	if !caps.Encoders["libx264"] || !caps.Encoders["aac"] || caps.Encoders["="] {
		t.Fatalf("unexpected encoders %v", caps.Encoders)
	}
	missing := caps.Missing([]string{"libx264"}, []string{"amix", "ass"})
	if len(missing) != 1 || missing[0] != "filter ass" {
		t.Fatalf("missing = %v", missing)
	}
}
