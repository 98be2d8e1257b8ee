// Command videoanalyzed runs the multi-stream video-analysis core: the
// Control registry, the per-stream pipelines it supervises, and the
// HTTP control API.
package main

import (
	"log"

	"github.com/go-gst/go-gst/gst"

	"videoanalyzer/internal/alarmstore"
	"videoanalyzer/internal/config"
	"videoanalyzer/internal/controlapi"
	"videoanalyzer/internal/detector"
	"videoanalyzer/internal/pipeline"
)

func main() {
	gst.Init(nil)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[videoanalyzed] config: %v", err)
	}

	if err := cfg.EnsureDirs(); err != nil {
		log.Fatalf("[videoanalyzed] preparing video directories: %v", err)
	}

	store, err := alarmstore.Open(cfg.DatabaseURL, cfg.VideoRoot)
	if err != nil {
		log.Fatalf("[videoanalyzed] alarm store: %v", err)
	}
	defer store.Close()

	modelCache := detector.NewCache(detector.NewStubLoader())

	manager := pipeline.New(pipeline.Config{
		RawQueueCap:          cfg.QueueCapacity,
		AnnQueueCap:          cfg.QueueCapacity,
		JoinTimeout:          cfg.JoinTimeout,
		ReconnectDelay:       cfg.StreamReconnectDelay,
		ManagerCheckInterval: cfg.ManagerCheckInterval,
		FPSUpdateInterval:    cfg.FPSUpdateInterval,
		DetectorQueueTimeout: cfg.DetectorQueueTimeout,
		PusherQueueTimeout:   cfg.PusherQueueTimeout,
		ClipDurationSeconds:  cfg.ClipDurationSeconds,
		FFmpegTimeout:        cfg.FFmpegTimeout,
		TempDir:              cfg.TempDir(),
		ClipDir:              cfg.ClipDir(),
		BehaviorModelMap:     cfg.BehaviorModelMap,
		BehaviorClassMap:     cfg.BehaviorClassMap,
		DefaultModelPath:     cfg.DefaultModelPath,
	}, pipeline.Deps{
		ModelCache: modelCache,
		AlarmStore: store,
	})

	svc := pipeline.NewService(manager)

	controlapi.Start(cfg.APIAddr, svc)

	log.Printf("[videoanalyzed] ready, API on %s", cfg.APIAddr)
	select {}
}
