package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("VIDEO_ROOT", "/data/video")
	t.Setenv("DATABASE_URL", "postgres://user:pass@db:5432/video")
	t.Setenv("API_ADDR", ":8080")
}

func TestLoadFailsWithMissingRequiredVars(t *testing.T) {
	_, err := Load()
	require.Error(t, err)
}

func TestLoadCollectsAllMissingRequiredVarsAtOnce(t *testing.T) {
	_, err := Load()
	require.ErrorContains(t, err, "VIDEO_ROOT")
	require.ErrorContains(t, err, "DATABASE_URL")
	require.ErrorContains(t, err, "API_ADDR")
}

func TestLoadAppliesDefaultsWhenOptionalVarsAbsent(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "alarm_videos", cfg.ClipSubDir)
	require.Equal(t, "tmp", cfg.TempSubDir)
	require.Equal(t, 60, cfg.QueueCapacity)
	require.Equal(t, 10*time.Second, cfg.JoinTimeout)
	require.Equal(t, 3.0, cfg.ClipDurationSeconds)
}

func TestLoadHonorsOptionalOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("QUEUE_CAPACITY", "120")
	t.Setenv("CLIP_DURATION_SECONDS", "5.5")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 120, cfg.QueueCapacity)
	require.Equal(t, 5.5, cfg.ClipDurationSeconds)
}

func TestLoadRejectsNonPositiveOverride(t *testing.T) {
	setRequired(t)
	t.Setenv("QUEUE_CAPACITY", "-5")

	_, err := Load()
	require.ErrorContains(t, err, "QUEUE_CAPACITY")
}

func TestLoadSeedsBehaviorModelAndClassMaps(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "yolov8n.pt", cfg.BehaviorModelMap["ZHOUJIERUQIN"])
	require.Equal(t, []string{"person"}, cfg.BehaviorClassMap["RENSHUTONGJI"])
	require.Nil(t, cfg.BehaviorClassMap["ZHOUJIERUQIN"])
}

func TestClipDirAndTempDirJoinVideoRoot(t *testing.T) {
	cfg := &Config{VideoRoot: "/data/video", ClipSubDir: "alarm_videos", TempSubDir: "tmp"}
	require.Equal(t, "/data/video/alarm_videos", cfg.ClipDir())
	require.Equal(t, "/data/video/tmp", cfg.TempDir())
}

func TestRedactDSNHidesCredentials(t *testing.T) {
	require.Equal(t, "***@db:5432/video", redactDSN("postgres://user:pass@db:5432/video"))
	require.Equal(t, "no-at-sign-here", redactDSN("no-at-sign-here"))
}
