package alarmstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRelativePathStripsVideoRootAndUsesForwardSlashes(t *testing.T) {
	s := &Store{videoRoot: "/data/video"}
	rel := s.RelativePath("/data/video/clips/2026/07/cam-1_20260731_120000.mp4")
	require.Equal(t, "clips/2026/07/cam-1_20260731_120000.mp4", rel)
}

func TestRelativePathFallsBackToSlashedAbsoluteOutsideRoot(t *testing.T) {
	s := &Store{videoRoot: "/data/video"}
	rel := s.RelativePath("/elsewhere/clip.mp4")
	require.Equal(t, "/elsewhere/clip.mp4", rel)
}

func TestIsDuplicateErrorRecognizesPostgresVariants(t *testing.T) {
	require.True(t, isDuplicateError(errors.New(`duplicate key value violates unique constraint "av_alarm_pkey"`)))
	require.True(t, isDuplicateError(errors.New("ERROR: duplicate key value (SQLSTATE 23505)")))
	require.True(t, isDuplicateError(errors.New("UNIQUE CONSTRAINT failed")))
}

func TestIsDuplicateErrorRejectsUnrelatedErrors(t *testing.T) {
	require.False(t, isDuplicateError(errors.New("connection refused")))
	require.False(t, isDuplicateError(errors.New("relation \"av_alarm\" does not exist")))
}
