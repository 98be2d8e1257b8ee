// Package puller implements stream ingestion: open the input URL,
// decode it to raw BGR24 frames, and feed them non-blocking into
// RawQ, retrying a failed open forever. Backed by go2rtc (RTSP
// session negotiation) and go-gst (decode).
package puller

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"videoanalyzer/internal/frame"
)

// conn is the narrow interface both transport implementations
// (RTSP-via-go2rtc and the generic GStreamer uridecodebin path)
// satisfy.
type conn interface {
	Geometry() (width, height int, fps float64)
	Close()
}

// Params bundles one Puller run's dependencies.
type Params struct {
	Code      string
	StreamURL string
	RawQ      chan<- frame.Frame

	ReconnectDelay time.Duration

	// OnGeometry is called once per successful (re)connect with the
	// resolved width/height/inputFPS. inputFPS defaults to 25 if the
	// backend reports a non-positive value.
	OnGeometry func(width, height int, inputFPS float64)
}

// Run pulls frames until ctx is cancelled. It never returns a non-nil
// error: a failed open is retried forever after ReconnectDelay, and it
// only returns once ctx is done.
func Run(ctx context.Context, p Params) error {
	defer drain(p.RawQ)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		c, err := open(p.StreamURL, func(f frame.Frame) {
			select {
			case p.RawQ <- f:
			default:
				// RawQ full: drop, never block the Puller.
			}
		})
		if err != nil {
			log.Printf("[Puller %s] open failed: %v, retrying in %v", p.Code, err, p.ReconnectDelay)
			if !sleepOrDone(ctx, p.ReconnectDelay) {
				return nil
			}
			continue
		}

		geometryPublished := false
		for {
			select {
			case <-ctx.Done():
				c.Close()
				return nil
			default:
			}

			width, height, fps := c.Geometry()
			if !geometryPublished && width > 0 && height > 0 {
				if fps <= 0 {
					fps = 25
				}
				if p.OnGeometry != nil {
					p.OnGeometry(width, height, fps)
				}
				geometryPublished = true
			}

			// The decode pipeline pushes frames asynchronously via its
			// own callback; this loop only publishes geometry and
			// watches for cancellation on a short cadence. It does not
			// detect a stream that stops delivering frames after a
			// successful open, so such a connection is not reopened.
			if !sleepOrDone(ctx, 200*time.Millisecond) {
				c.Close()
				return nil
			}
		}
	}
}

func open(streamURL string, onFrame func(frame.Frame)) (conn, error) {
	switch {
	case strings.HasPrefix(streamURL, "rtsp://"):
		return openRTSP(streamURL, onFrame)
	case strings.HasPrefix(streamURL, "rtmp://"), strings.HasPrefix(streamURL, "http://"), strings.HasPrefix(streamURL, "https://"):
		dp, err := newGenericDecodePipeline(streamURL)
		if err != nil {
			return nil, err
		}
		dp.setOnFrame(onFrame)
		return dp, nil
	default:
		return nil, fmt.Errorf("unsupported stream URL scheme: %s", streamURL)
	}
}

func drain(q chan<- frame.Frame) {
	// q is send-only from this package's point of view, so draining is
	// a no-op here: frames already queued stay in RawQ after the Puller
	// exits, and the Detector does not drain them either.
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
