package detector

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"videoanalyzer/internal/behavior"
)

type countingModel struct{ id int }

func (m *countingModel) Detect(ctx context.Context, pix []byte, width, height int) ([]byte, []behavior.Detection, error) {
	return pix, nil, nil
}

func TestCacheLoadsOnceAndReusesForSameKey(t *testing.T) {
	var loads int32
	cache := NewCache(func(modelPath string, classes []string) (Model, error) {
		n := atomic.AddInt32(&loads, 1)
		return &countingModel{id: int(n)}, nil
	})

	m1, err := cache.Get("yolov8.onnx", []string{"person", "car"})
	require.NoError(t, err)
	m2, err := cache.Get("yolov8.onnx", []string{"person", "car"})
	require.NoError(t, err)

	require.Same(t, m1, m2)
	require.Equal(t, int32(1), atomic.LoadInt32(&loads))
}

func TestCacheKeyIgnoresClassOrder(t *testing.T) {
	var loads int32
	cache := NewCache(func(modelPath string, classes []string) (Model, error) {
		atomic.AddInt32(&loads, 1)
		return &countingModel{}, nil
	})

	_, err := cache.Get("m.onnx", []string{"car", "person"})
	require.NoError(t, err)
	_, err = cache.Get("m.onnx", []string{"person", "car"})
	require.NoError(t, err)

	require.Equal(t, int32(1), atomic.LoadInt32(&loads), "class list order must not affect the cache key")
}

func TestCacheDistinguishesModelPathsAndClassLists(t *testing.T) {
	var loads int32
	cache := NewCache(func(modelPath string, classes []string) (Model, error) {
		atomic.AddInt32(&loads, 1)
		return &countingModel{}, nil
	})

	_, _ = cache.Get("a.onnx", []string{"person"})
	_, _ = cache.Get("b.onnx", []string{"person"})
	_, _ = cache.Get("a.onnx", []string{"person", "car"})

	require.Equal(t, int32(3), atomic.LoadInt32(&loads))
}

func TestCachePropagatesLoadError(t *testing.T) {
	cache := NewCache(func(modelPath string, classes []string) (Model, error) {
		return nil, errors.New("model file missing")
	})

	_, err := cache.Get("missing.onnx", nil)
	require.Error(t, err)
}

func TestCacheIsSafeForConcurrentFirstAccess(t *testing.T) {
	var loads int32
	cache := NewCache(func(modelPath string, classes []string) (Model, error) {
		atomic.AddInt32(&loads, 1)
		return &countingModel{}, nil
	})

	var wg sync.WaitGroup
	results := make([]Model, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := cache.Get("shared.onnx", []string{"person"})
			require.NoError(t, err)
			results[i] = m
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(results); i++ {
		require.Same(t, results[0], results[i])
	}
}
