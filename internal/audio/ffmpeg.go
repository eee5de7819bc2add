package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

// M4A carries AAC inside an MP4 container, for which no maintained pure
// Go decoder exists. Decoding shells out to ffmpeg, asking for raw
// s16le PCM at the stream's native rate and channel count so the rest
// of the pipeline treats it like every other format. The container is
// probed first because MP4 cannot reliably be parsed from a pipe.

// decodeM4A decodes an MP4/AAC payload via the ffmpeg and ffprobe
// binaries on PATH.
func decodeM4A(ctx context.Context, payload []byte) ([]float32, int, int, error) {
	tmp, err := os.CreateTemp("", "upload-*.m4a")
	if err != nil {
		return nil, 0, 0, fmt.Errorf("m4a: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return nil, 0, 0, fmt.Errorf("m4a: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, 0, 0, fmt.Errorf("m4a: %w", err)
	}

	sampleRate, channels, err := probeStream(ctx, tmp.Name())
	if err != nil {
		return nil, 0, 0, err
	}

	raw, err := runFFmpegPCM(ctx, tmp.Name())
	if err != nil {
		return nil, 0, 0, err
	}

	return pcm16BytesToFloat32(raw), sampleRate, channels, nil
}

// probeStream returns the sample rate and channel count of the first
// audio stream in the file.
func probeStream(ctx context.Context, path string) (int, int, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_streams",
		"-of", "json",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, 0, fmt.Errorf("ffprobe: %w: %s", err, stderr.String())
	}

	var probe struct {
		Streams []struct {
			CodecType  string `json:"codec_type"`
			SampleRate string `json:"sample_rate"`
			Channels   int    `json:"channels"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &probe); err != nil {
		return 0, 0, fmt.Errorf("ffprobe: %w", err)
	}

	for _, s := range probe.Streams {
		if s.CodecType != "audio" {
			continue
		}
		rate, err := strconv.Atoi(s.SampleRate)
		if err != nil || rate <= 0 || s.Channels <= 0 {
			return 0, 0, fmt.Errorf("ffprobe: invalid audio stream parameters")
		}
		return rate, s.Channels, nil
	}

	return 0, 0, fmt.Errorf("ffprobe: no audio stream found")
}

// runFFmpegPCM decodes the file to raw interleaved s16le PCM at the
// stream's native rate and channel count.
func runFFmpegPCM(ctx context.Context, path string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner",
		"-v", "error",
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, stderr.String())
	}

	return stdout.Bytes(), nil
}
