package puller

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-gst/go-gst/gst"
	"github.com/go-gst/go-gst/gst/app"

	"videoanalyzer/internal/frame"
)

// decodedPipeline wraps a running GStreamer pipeline that ends in an
// appsink emitting raw BGR frames. One decodedPipeline exists per
// Puller connection attempt; it is torn down and rebuilt on every
// reconnect.
type decodedPipeline struct {
	pipeline *gst.Pipeline
	sink     *app.Sink

	mu            sync.Mutex
	width, height int
	fps           float64

	onFrame func(frame.Frame)
}

// newGenericDecodePipeline builds a uridecodebin-based pipeline for
// any URI GStreamer understands directly (rtmp://, http://, a local
// test file). RTSP is handled separately via go2rtc (see rtsp.go):
// pinning the transport to TCP is simplest through go2rtc's own client
// rather than uridecodebin's negotiated transport.
func newGenericDecodePipeline(uri string) (*decodedPipeline, error) {
	desc := fmt.Sprintf(
		"uridecodebin uri=%s ! videoconvert ! video/x-raw,format=BGR ! appsink name=sink sync=false max-buffers=2 drop=true",
		gstQuote(uri),
	)
	return buildPipeline(desc)
}

// newAppsrcDecodePipeline builds a pipeline that accepts raw RTP H.264
// packets pushed in by the caller (see rtsp.go, which feeds it from a
// go2rtc receiver) and decodes them to BGR frames.
func newAppsrcDecodePipeline() (*decodedPipeline, *app.Source, error) {
	desc := "appsrc name=src format=time is-live=true do-timestamp=true " +
		"caps=application/x-rtp,media=video,encoding-name=H264,clock-rate=90000 ! " +
		"rtph264depay ! h264parse ! avdec_h264 ! videoconvert ! video/x-raw,format=BGR ! " +
		"appsink name=sink sync=false max-buffers=2 drop=true"

	dp, err := buildPipeline(desc)
	if err != nil {
		return nil, nil, err
	}

	srcElem, err := dp.pipeline.GetElementByName("src")
	if err != nil {
		dp.Close()
		return nil, nil, fmt.Errorf("locating appsrc element: %w", err)
	}
	src := app.SrcFromElement(srcElem)
	return dp, src, nil
}

func buildPipeline(desc string) (*decodedPipeline, error) {
	pipeline, err := gst.NewPipelineFromString(desc)
	if err != nil {
		return nil, fmt.Errorf("building gstreamer pipeline: %w", err)
	}

	sinkElem, err := pipeline.GetElementByName("sink")
	if err != nil {
		return nil, fmt.Errorf("locating appsink element: %w", err)
	}
	sink := app.SinkFromElement(sinkElem)

	dp := &decodedPipeline{pipeline: pipeline, sink: sink}

	sink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(s *app.Sink) gst.FlowReturn {
			sample := s.PullSample()
			if sample == nil {
				return gst.FlowEOS
			}
			buf := sample.GetBuffer()
			if buf == nil {
				return gst.FlowOK
			}

			caps := sample.GetCaps()
			width, height := capsDimensions(caps)
			fps := capsFrameRate(caps)

			dp.mu.Lock()
			dp.width, dp.height, dp.fps = width, height, fps
			dp.mu.Unlock()

			pix := buf.Bytes()
			if dp.onFrame != nil && width > 0 && height > 0 {
				dp.onFrame(frame.Frame{
					Pix:        append([]byte(nil), pix...),
					Width:      width,
					Height:     height,
					CapturedAt: time.Now(),
				})
			}
			return gst.FlowOK
		},
	})

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return nil, fmt.Errorf("starting gstreamer pipeline: %w", err)
	}

	return dp, nil
}

// onFrame is set by the caller right after construction; kept as a
// plain field rather than a constructor argument so buildPipeline can
// wire the appsink callback before the caller has a dp reference to
// close over.
func (dp *decodedPipeline) setOnFrame(f func(frame.Frame)) {
	dp.onFrame = f
}

func (dp *decodedPipeline) Geometry() (width, height int, fps float64) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	return dp.width, dp.height, dp.fps
}

func (dp *decodedPipeline) Close() {
	if dp.pipeline != nil {
		dp.pipeline.SetState(gst.StateNull)
	}
}

func gstQuote(uri string) string {
	if strings.ContainsAny(uri, " \t") {
		return "\"" + uri + "\""
	}
	return uri
}

func capsDimensions(caps *gst.Caps) (int, int) {
	if caps == nil || caps.GetSize() == 0 {
		return 0, 0
	}
	s := caps.GetStructureAt(0)
	width, _ := s.GetValue("width")
	height, _ := s.GetValue("height")
	w, _ := width.(int)
	h, _ := height.(int)
	return w, h
}

func capsFrameRate(caps *gst.Caps) float64 {
	if caps == nil || caps.GetSize() == 0 {
		return 0
	}
	s := caps.GetStructureAt(0)
	v, err := s.GetValue("framerate")
	if err != nil {
		return 0
	}
	fr, ok := v.(*gst.Fraction)
	if !ok || fr.Denom == 0 {
		return 0
	}
	return float64(fr.Num) / float64(fr.Denom)
}
