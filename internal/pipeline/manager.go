// Package pipeline implements the Manager: the per-Control
// orchestrator that starts the Puller, Detector and (optionally)
// Pusher workers, watches them for death, and tears the Control down
// on stop or fault, built around context.Context cancellation and
// sync.WaitGroup.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"videoanalyzer/internal/alarmstore"
	"videoanalyzer/internal/behavior"
	"videoanalyzer/internal/clipwriter"
	"videoanalyzer/internal/detector"
	"videoanalyzer/internal/frame"
	"videoanalyzer/internal/pusher"
	"videoanalyzer/internal/puller"
	"videoanalyzer/internal/registry"
)

// Config bundles the per-process timing, queue, and filesystem
// parameters every Control's pipeline is built from.
type Config struct {
	RawQueueCap          int
	AnnQueueCap          int
	JoinTimeout          time.Duration
	ReconnectDelay       time.Duration
	ManagerCheckInterval time.Duration
	FPSUpdateInterval    time.Duration
	DetectorQueueTimeout time.Duration
	PusherQueueTimeout   time.Duration
	ClipDurationSeconds  float64
	FFmpegTimeout        time.Duration
	TempDir              string
	ClipDir              string

	BehaviorModelMap map[string]string
	BehaviorClassMap map[string][]string
	DefaultModelPath string
}

// ModelPathFor resolves the model path configured for behaviorCode,
// falling back to DefaultModelPath for behaviors with no specific
// entry in BehaviorModelMap.
func (c Config) ModelPathFor(behaviorCode string) string {
	if path, ok := c.BehaviorModelMap[behaviorCode]; ok {
		return path
	}
	return c.DefaultModelPath
}

// ClassesFor resolves the open-vocabulary class allow-list configured
// for behaviorCode. Behaviors backed by a fixed-class model (no entry
// in BehaviorClassMap) get nil, which Model implementations treat as
// "no filtering".
func (c Config) ClassesFor(behaviorCode string) []string {
	return c.BehaviorClassMap[behaviorCode]
}

// Deps bundles the shared collaborators every Manager needs.
type Deps struct {
	ModelCache *detector.Cache
	AlarmStore *alarmstore.Store
}

// workers holds the three worker-launch functions Manager.run spawns.
// It defaults to the real puller.Run/detector.Run/pusher.Run in New;
// tests substitute fakes here instead of driving real GStreamer/FFmpeg
// subprocesses.
type workers struct {
	runPuller   func(ctx context.Context, p puller.Params) error
	runDetector func(ctx context.Context, p detector.Params) error
	runPusher   func(ctx context.Context, p pusher.Params) error
}

// Manager runs one Control's pipeline to completion.
type Manager struct {
	cfg     Config
	deps    Deps
	workers workers
}

// New builds a Manager.
func New(cfg Config, deps Deps) *Manager {
	return &Manager{
		cfg:  cfg,
		deps: deps,
		workers: workers{
			runPuller:   puller.Run,
			runDetector: detector.Run,
			runPusher:   pusher.Run,
		},
	}
}

// ResolveModel synchronously loads (or fetches from cache) the model
// configured for behaviorCode, along with its class allow-list. It
// must be called and checked before Start, so a model that fails to
// load is reported to the caller of add instead of surfacing only
// later on the Control's error field.
func (m *Manager) ResolveModel(behaviorCode string) (detector.Model, []string, error) {
	classes := m.cfg.ClassesFor(behaviorCode)
	model, err := m.deps.ModelCache.Get(m.cfg.ModelPathFor(behaviorCode), classes)
	if err != nil {
		return nil, nil, err
	}
	return model, classes, nil
}

// Start launches the Control's workers in background goroutines and
// returns immediately; the Control transitions to "stopped" and is
// removed from reg once finalisation completes. ctx cancellation (via
// ctrl.Cancel, wired by the caller) requests graceful shutdown. model
// and classes must already be resolved via ResolveModel.
func (m *Manager) Start(ctx context.Context, reg *registry.Registry, ctrl *registry.Control, model detector.Model, classes []string) {
	go m.run(ctx, reg, ctrl, model, classes)
}

func (m *Manager) run(ctx context.Context, reg *registry.Registry, ctrl *registry.Control, model detector.Model, classes []string) {
	defer close(ctrl.Done)
	defer reg.Remove(ctrl.Code)

	plugin := behavior.New(ctrl.BehaviorCode, ctrl.Code, classes, m.cfg.ClipDurationSeconds)
	if plugin == nil {
		ctrl.SetError(fmt.Errorf("unknown behavior code: %s", ctrl.BehaviorCode))
		return
	}
	state := behavior.NewState()

	rawQ := make(chan frame.Frame, m.cfg.RawQueueCap)
	annQ := make(chan frame.Frame, m.cfg.AnnQueueCap)

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	var wg sync.WaitGroup
	errCh := make(chan error, 3)

	wg.Add(1)
	go func() {
		defer wg.Done()
		err := m.workers.runPuller(workerCtx, puller.Params{
			Code:           ctrl.Code,
			StreamURL:      ctrl.StreamURL,
			RawQ:           rawQ,
			ReconnectDelay: m.cfg.ReconnectDelay,
			OnGeometry:     ctrl.SetGeometry,
		})
		if err != nil {
			errCh <- fmt.Errorf("puller: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		err := m.workers.runDetector(workerCtx, detector.Params{
			Code:                  ctrl.Code,
			Model:                 model,
			Plugin:                plugin,
			State:                 state,
			RawQ:                  rawQ,
			AnnotatedQ:            annQ,
			StreamInfo:            func() detector.StreamInfo { w, h, fps := ctrl.Geometry(); return detector.StreamInfo{Width: w, Height: h, InputFPS: fps} },
			ClipDurationSeconds:   m.cfg.ClipDurationSeconds,
			QueueGetTimeout:       m.cfg.DetectorQueueTimeout,
			FPSUpdateInterval:     m.cfg.FPSUpdateInterval,
			WaitStreamInfoTimeout: m.cfg.JoinTimeout,
			OnFPSUpdate:           ctrl.SetCheckFPS,
			OnEvent: func(snapshot []frame.Frame, fps float64, width, height int, alarmData *behavior.AlarmData) {
				m.spawnClipWriter(ctrl, state, snapshot, fps, width, height, alarmData)
			},
		})
		if err != nil {
			errCh <- fmt.Errorf("detector: %w", err)
		}
	}()

	if ctrl.PushStream {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.workers.runPusher(workerCtx, pusher.Params{
				Code:                  ctrl.Code,
				DestURL:               ctrl.PushStreamURL,
				AnnotatedQ:            annQ,
				StreamInfo:            func() detector.StreamInfo { w, h, fps := ctrl.Geometry(); return detector.StreamInfo{Width: w, Height: h, InputFPS: fps} },
				WaitStreamInfoTimeout: m.cfg.JoinTimeout,
				QueueGetTimeout:       m.cfg.PusherQueueTimeout,
				StopTimeout:           m.cfg.JoinTimeout,
			})
			if err != nil {
				errCh <- fmt.Errorf("pusher: %w", err)
			}
		}()
	}

	ctrl.SetStatus(registry.StatusRunning)

	ticker := time.NewTicker(m.cfg.ManagerCheckInterval)
	defer ticker.Stop()

	allDone := make(chan struct{})
	go func() { wg.Wait(); close(allDone) }()

monitor:
	for {
		select {
		case <-ctx.Done():
			ctrl.SetStatus(registry.StatusStopping)
			break monitor
		case werr := <-errCh:
			log.Printf("[Manager %s] worker fault: %v", ctrl.Code, werr)
			ctrl.SetError(werr)
			break monitor
		case <-allDone:
			break monitor
		case <-ticker.C:
		}
	}

	cancelWorkers()

	select {
	case <-allDone:
	case <-time.After(m.cfg.JoinTimeout):
		log.Printf("[Manager %s] workers did not exit within %v, forcing cleanup", ctrl.Code, m.cfg.JoinTimeout)
	}

	if ctrl.Snapshot().Status == registry.StatusStopping {
		ctrl.SetStatus(registry.StatusStopped)
	}
}

func (m *Manager) spawnClipWriter(ctrl *registry.Control, state *behavior.State, snapshot []frame.Frame, fps float64, width, height int, alarmData *behavior.AlarmData) {
	go clipwriter.Run(context.Background(), clipwriter.Params{
		Code:          ctrl.Code,
		Frames:        snapshot,
		FPS:           fps,
		Width:         width,
		Height:        height,
		AlarmData:     alarmData,
		Timestamp:     time.Now(),
		TempDir:       m.cfg.TempDir,
		ClipDir:       m.cfg.ClipDir,
		FFmpegTimeout: m.cfg.FFmpegTimeout,
		Store:         m.deps.AlarmStore,
		OnComplete: func() {
			state.SetClipInProgress(false)
			state.SetClipWriterActive(false)
		},
	})
}
