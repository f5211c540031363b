package media

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"reelconnect_service/pkg/logger"

	"go.uber.org/zap"
)

const (
	// ThumbnailMaxWidth 縮圖最大寬度
	ThumbnailMaxWidth = 400
	// ThumbnailContentType thumbnails are jpeg
	ThumbnailContentType = "image/jpeg"
)

// runFunc execute a command and return stdout
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// FFmpegThumbnailer extract one still frame from a video with ffprobe + ffmpeg
type FFmpegThumbnailer struct {
	FFmpegPath  string
	FFprobePath string
	TempDir     string

	run runFunc
}

// NewFFmpegThumbnailer create thumbnailer, empty paths fall back to PATH lookup
func NewFFmpegThumbnailer(ffmpegPath, ffprobePath string) *FFmpegThumbnailer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegThumbnailer{
		FFmpegPath:  ffmpegPath,
		FFprobePath: ffprobePath,
		run:         execRun,
	}
}

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s 錯誤: %w, output: %s", name, err, stderr.String())
	}
	return out, nil
}

// FrameOffset seek position, a quarter of the duration capped at one second
func FrameOffset(duration float64) float64 {
	if duration <= 0 || math.IsNaN(duration) {
		return 0
	}
	return math.Min(0.25*duration, 1)
}

// Thumbnail decode one frame of video and return it as jpeg
func (t *FFmpegThumbnailer) Thumbnail(ctx context.Context, video []byte) ([]byte, error) {
	tmp, err := os.CreateTemp(t.TempDir, "chat-video-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(video); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	duration, err := t.probeDuration(ctx, tmp.Name())
	if err != nil {
		// 取不到長度時從第 0 秒截圖
		logger.Log.Warn("ffprobe duration failed", zap.Error(err))
	}

	args := []string{
		"-ss", strconv.FormatFloat(FrameOffset(duration), 'f', 3, 64),
		"-i", tmp.Name(),
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale='min(%d,iw)':-2", ThumbnailMaxWidth),
		"-f", "image2",
		"-c:v", "mjpeg",
		"pipe:1",
	}
	out, err := t.run(ctx, t.FFmpegPath, args...)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("ffmpeg produced no frame")
	}
	return out, nil
}

func (t *FFmpegThumbnailer) probeDuration(ctx context.Context, file string) (float64, error) {
	out, err := t.run(ctx, t.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		file,
	)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
}
