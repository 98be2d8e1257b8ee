// Package clipwriter turns a rolling-buffer snapshot into a persisted
// alarm clip: frames are piped through FFmpeg into a temporary AVI,
// transcoded to the final MP4, and an alarm record is inserted. It
// runs detached from the owning Control's cancellation context; only
// ffmpegTimeout bounds it, so a clip finishes writing even after the
// Control that triggered it has been stopped.
package clipwriter

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"videoanalyzer/internal/alarmstore"
	"videoanalyzer/internal/behavior"
	"videoanalyzer/internal/ffmpegcmd"
	"videoanalyzer/internal/frame"
)

// Params bundles one clip-write invocation.
type Params struct {
	Code          string
	Frames        []frame.Frame
	FPS           float64
	Width, Height int
	AlarmData     *behavior.AlarmData
	Timestamp     time.Time // injected so tests don't depend on wall clock

	TempDir       string
	ClipDir       string
	FFmpegTimeout time.Duration

	Store *alarmstore.Store

	// OnComplete is always invoked exactly once, regardless of
	// outcome, so the Detector can clear its debounce flags.
	OnComplete func()
}

// Run writes the clip and inserts its alarm record. Errors are logged,
// never panicked: a failed clip write must not take down the Control.
func Run(ctx context.Context, p Params) {
	defer func() {
		if p.OnComplete != nil {
			p.OnComplete()
		}
	}()

	if len(p.Frames) == 0 {
		log.Printf("[ClipWriter %s] no frames buffered, skipping clip write", p.Code)
		return
	}

	// A timestamp alone collides if the same control fires two events in
	// the same second; the uuid suffix keeps alarm_id unique without
	// giving up the readable code/time prefix.
	alarmID := fmt.Sprintf("%s_%s_%s", p.Code, p.Timestamp.Format("20060102_150405"), uuid.NewString()[:8])
	tempPath := filepath.Join(p.TempDir, alarmID+"_temp.avi")
	finalName := alarmID + "_annotated.mp4"
	finalPath := filepath.Join(p.ClipDir, finalName)

	if err := writeAVI(ctx, tempPath, p.Frames, p.FPS, p.Width, p.Height, p.FFmpegTimeout); err != nil {
		log.Printf("[ClipWriter %s] writing temp AVI failed: %v", p.Code, err)
		return
	}

	transcodeErr := transcodeToMP4(ctx, tempPath, finalPath, p.FFmpegTimeout)

	if err := os.Remove(tempPath); err != nil && !os.IsNotExist(err) {
		log.Printf("[ClipWriter %s] failed to remove temp file %s: %v", p.Code, tempPath, err)
	}

	if transcodeErr != nil {
		log.Printf("[ClipWriter %s] transcode failed: %v", p.Code, transcodeErr)
		return
	}

	alarmData := p.AlarmData
	if alarmData == nil {
		alarmData = &behavior.AlarmData{Desc: "behavior triggered with no description", State: 0}
	}

	var imagePath string
	if alarmData.ImagePath != "" {
		imagePath = p.Store.RelativePath(alarmData.ImagePath)
	}

	record := alarmstore.Record{
		AlarmID:           alarmID,
		VideoPath:         p.Store.RelativePath(finalPath),
		VideoAbsolutePath: finalPath,
		ImagePath:         imagePath,
		Desc:              alarmData.Desc,
		State:             alarmData.State,
		CreateTime:        p.Timestamp,
	}

	if err := p.Store.Insert(ctx, record); err != nil {
		log.Printf("[ClipWriter %s] inserting alarm record failed: %v", p.Code, err)
	}
}

// writeAVI pipes raw BGR24 frames into an ffmpeg process that encodes
// them as an XVID-tagged MPEG-4 AVI, the Go-native analogue of
// cv2.VideoWriter(fourcc='XVID').
func writeAVI(ctx context.Context, outPath string, frames []frame.Frame, fps float64, width, height int, timeout time.Duration) error {
	if fps < 1.0 {
		fps = 1.0
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{
		"-y",
		"-f", "rawvideo",
		"-vcodec", "rawvideo",
		"-pix_fmt", "bgr24",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", strconv.FormatFloat(fps, 'f', -1, 64),
		"-i", "-",
		"-c:v", "mpeg4",
		"-vtag", "xvid",
		outPath,
	}

	cmd := exec.CommandContext(runCtx, "ffmpeg", args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("opening ffmpeg stdin: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting ffmpeg: %w", err)
	}

	for _, f := range frames {
		if _, err := stdin.Write(f.Pix); err != nil {
			stdin.Close()
			cmd.Wait()
			return fmt.Errorf("writing frame: %w", err)
		}
	}
	stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg avi encode: %w", err)
	}
	return nil
}

func transcodeToMP4(ctx context.Context, inputPath, outputPath string, timeout time.Duration) error {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := ffmpegcmd.TranscodeArgs(inputPath, outputPath)
	cmd := exec.CommandContext(runCtx, "ffmpeg", args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg transcode: %w", err)
	}
	return nil
}
