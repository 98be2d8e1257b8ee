// Package config loads process-wide configuration from the environment.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds every setting the video-analysis core needs to run.
type Config struct {
	// Filesystem roots
	VideoRoot   string // root directory under which alarm clips are written
	ClipSubDir  string // subdirectory of VideoRoot holding finished clips (default "alarm_videos")
	TempSubDir  string // subdirectory of VideoRoot holding in-progress AVI temp files (default "tmp")

	// Database
	DatabaseURL string // Postgres connection string, consumed by alarmstore via pgx

	// Queues
	QueueCapacity int // RawQ / AnnotatedQ capacity (default 60)

	// Timeouts
	JoinTimeout           time.Duration // graceful worker shutdown window (default 10s)
	StreamReconnectDelay  time.Duration // delay between reconnect attempts (default 5s)
	DetectorQueueTimeout  time.Duration // Detector's RawQ receive timeout (default 10ms)
	PusherQueueTimeout    time.Duration // Pusher's AnnotatedQ receive timeout (default 10ms)
	ManagerCheckInterval  time.Duration // Manager's worker-liveness poll interval (default 500ms)
	FPSUpdateInterval     time.Duration // Detector's rolling-fps recompute interval (default 1s)
	FFmpegTimeout         time.Duration // clip transcode subprocess timeout (default 60s)
	ClipDurationSeconds   float64       // target dwell/clip duration, used for rolling-buffer sizing (default 3s)

	// Model configuration
	BehaviorModelMap map[string]string   // behaviorCode -> model path
	BehaviorClassMap map[string][]string // behaviorCode -> class allow-list (open-vocabulary models)
	DefaultModelPath string

	// HTTP control API
	APIAddr string // e.g. ":8080"
}

// Load reads configuration from the environment, collecting every
// missing required variable before returning a combined error (the
// relay's all-at-once reporting style, not fail-fast on first miss).
func Load() (*Config, error) {
	var missing []string
	var errs []string

	videoRoot := os.Getenv("VIDEO_ROOT")
	if videoRoot == "" {
		missing = append(missing, "VIDEO_ROOT")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	apiAddr := os.Getenv("API_ADDR")
	if apiAddr == "" {
		missing = append(missing, "API_ADDR")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %v", missing)
	}

	clipSubDir := envOrDefault("VIDEO_CLIP_SUBDIR", "alarm_videos")
	tempSubDir := envOrDefault("VIDEO_TEMP_SUBDIR", "tmp")

	queueCapacity := envIntOrDefault("QUEUE_CAPACITY", 60, &errs)
	joinTimeout := envSecondsOrDefault("JOIN_TIMEOUT_SECONDS", 10, &errs)
	reconnectDelay := envSecondsOrDefault("STREAM_RECONNECT_DELAY_SECONDS", 5, &errs)
	detectorTimeout := envMillisOrDefault("DETECTOR_QUEUE_TIMEOUT_MS", 10, &errs)
	pusherTimeout := envMillisOrDefault("PUSHER_QUEUE_TIMEOUT_MS", 10, &errs)
	managerInterval := envMillisOrDefault("MANAGER_CHECK_INTERVAL_MS", 500, &errs)
	fpsInterval := envSecondsOrDefault("FPS_UPDATE_INTERVAL_SECONDS", 1, &errs)
	ffmpegTimeout := envSecondsOrDefault("FFMPEG_TIMEOUT_SECONDS", 60, &errs)
	clipDuration := envFloatOrDefault("CLIP_DURATION_SECONDS", 3.0, &errs)

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation errors: %v", errs)
	}

	cfg := &Config{
		VideoRoot:            videoRoot,
		ClipSubDir:           clipSubDir,
		TempSubDir:           tempSubDir,
		DatabaseURL:          databaseURL,
		QueueCapacity:        queueCapacity,
		JoinTimeout:          joinTimeout,
		StreamReconnectDelay: reconnectDelay,
		DetectorQueueTimeout: detectorTimeout,
		PusherQueueTimeout:   pusherTimeout,
		ManagerCheckInterval: managerInterval,
		FPSUpdateInterval:    fpsInterval,
		FFmpegTimeout:        ffmpegTimeout,
		ClipDurationSeconds:  clipDuration,
		BehaviorModelMap: map[string]string{
			"ZHOUJIERUQIN": "yolov8n.pt",
			"RENSHUTONGJI": "yolov8s-worldv2.pt",
			"INSULATOR":    "insulator.pt",
		},
		BehaviorClassMap: map[string][]string{
			"RENSHUTONGJI": {"person"},
		},
		DefaultModelPath: "yolov8n.pt",
		APIAddr:          apiAddr,
	}

	log.Printf("[Config] Loaded configuration:")
	log.Printf("[Config]   VIDEO_ROOT: %s", cfg.VideoRoot)
	log.Printf("[Config]   CLIP_SUBDIR: %s", cfg.ClipSubDir)
	log.Printf("[Config]   DATABASE_URL: %s", redactDSN(cfg.DatabaseURL))
	log.Printf("[Config]   QUEUE_CAPACITY: %d", cfg.QueueCapacity)
	log.Printf("[Config]   JOIN_TIMEOUT: %v", cfg.JoinTimeout)
	log.Printf("[Config]   API_ADDR: %s", cfg.APIAddr)

	return cfg, nil
}

// ClipDir returns the absolute directory finished clips are written to.
func (c *Config) ClipDir() string {
	return filepath.Join(c.VideoRoot, c.ClipSubDir)
}

// TempDir returns the absolute directory in-progress AVI temp files live in.
func (c *Config) TempDir() string {
	return filepath.Join(c.VideoRoot, c.TempSubDir)
}

// EnsureDirs creates ClipDir/TempDir if they do not already exist.
func (c *Config) EnsureDirs() error {
	if err := os.MkdirAll(c.ClipDir(), 0o755); err != nil {
		return fmt.Errorf("creating clip dir: %w", err)
	}
	if err := os.MkdirAll(c.TempDir(), 0o755); err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int, errs *[]string) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		*errs = append(*errs, fmt.Sprintf("%s must be a positive number, got: %s", key, v))
		return def
	}
	return parsed
}

func envFloatOrDefault(key string, def float64, errs *[]string) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil || parsed <= 0 {
		*errs = append(*errs, fmt.Sprintf("%s must be a positive number, got: %s", key, v))
		return def
	}
	return parsed
}

func envSecondsOrDefault(key string, def int, errs *[]string) time.Duration {
	return time.Duration(envIntOrDefault(key, def, errs)) * time.Second
}

func envMillisOrDefault(key string, def int, errs *[]string) time.Duration {
	return time.Duration(envIntOrDefault(key, def, errs)) * time.Millisecond
}

func redactDSN(dsn string) string {
	if i := strings.Index(dsn, "@"); i != -1 {
		return "***" + dsn[i:]
	}
	return dsn
}
