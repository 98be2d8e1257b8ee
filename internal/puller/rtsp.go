package puller

import (
	"fmt"

	"github.com/AlexxIT/go2rtc/pkg/core"
	"github.com/AlexxIT/go2rtc/pkg/rtsp"
	"github.com/go-gst/go-gst/gst"
	"github.com/pion/rtp"

	"videoanalyzer/internal/frame"
)

// rtspConn pins together a go2rtc RTSP client, used only to negotiate
// the session over TCP transport and hand back raw RTP video packets,
// and the GStreamer pipeline that decodes those packets to BGR frames.
type rtspConn struct {
	client   *rtsp.Conn
	pipeline *decodedPipeline
}

func openRTSP(streamURL string, onFrame func(frame.Frame)) (*rtspConn, error) {
	client := rtsp.NewClient(streamURL)
	client.Transport = "tcp"

	if err := client.Dial(); err != nil {
		return nil, fmt.Errorf("RTSP dial: %w", err)
	}
	if err := client.Describe(); err != nil {
		client.Close()
		return nil, fmt.Errorf("RTSP describe: %w", err)
	}

	medias := client.GetMedias()
	if len(medias) == 0 {
		client.Close()
		return nil, fmt.Errorf("RTSP: no media streams advertised")
	}

	var receiver *core.Receiver
	for _, media := range medias {
		if media.Kind != core.KindVideo {
			continue
		}
		for _, codec := range media.Codecs {
			r, err := client.GetTrack(media, codec)
			if err != nil {
				continue
			}
			receiver = r
			break
		}
		if receiver != nil {
			break
		}
	}
	if receiver == nil {
		client.Close()
		return nil, fmt.Errorf("RTSP: no usable video track")
	}

	pipeline, src, err := newAppsrcDecodePipeline()
	if err != nil {
		client.Close()
		return nil, err
	}
	pipeline.setOnFrame(onFrame)

	receiver.Handler = func(pkt *rtp.Packet) {
		raw, err := pkt.Marshal()
		if err != nil {
			return
		}
		buf := gst.NewBufferFromBytes(raw)
		src.PushBuffer(buf)
	}

	if err := client.Play(); err != nil {
		pipeline.Close()
		client.Close()
		return nil, fmt.Errorf("RTSP play: %w", err)
	}

	return &rtspConn{client: client, pipeline: pipeline}, nil
}

func (c *rtspConn) Geometry() (width, height int, fps float64) {
	return c.pipeline.Geometry()
}

func (c *rtspConn) Close() {
	if c.client != nil {
		c.client.Stop()
	}
	if c.pipeline != nil {
		c.pipeline.Close()
	}
}
