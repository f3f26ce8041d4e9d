package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticSource(t *testing.T) {
	p := Default()
	p.Aperture.EdgeCount = 7
	assert.Equal(t, p, StaticSource(p).Current())
}

func TestMutableSource_ConcurrentUpdates(t *testing.T) {
	src := NewMutableSource(Default())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			src.Update(func(p *Params) { p.Aperture.ArcPoints++ })
		}()
	}
	wg.Wait()

	assert.Equal(t, Default().Aperture.ArcPoints+50, src.Current().Aperture.ArcPoints)
}

func TestMutableSource_SetClamps(t *testing.T) {
	src := NewMutableSource(Default())
	p := Default()
	p.Aperture.EdgeCount = 0
	src.Set(p)
	assert.Equal(t, MinEdgeCount, src.Current().Aperture.EdgeCount)
}

func TestFileSource_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.toml")
	p := Default()
	require.NoError(t, Save(path, p))

	src, err := NewFileSource(path)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, p, src.Current())

	p.Aperture.EdgeCount = 8
	require.NoError(t, Save(path, p))

	assert.Eventually(t, func() bool {
		return src.Current().Aperture.EdgeCount == 8
	}, 5*time.Second, 10*time.Millisecond)
}

func TestFileSource_KeepsLastGoodOnParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.json")
	p := Default()
	p.Aperture.EdgeCount = 5
	require.NoError(t, Save(path, p))

	src, err := NewFileSource(path)
	require.NoError(t, err)
	defer src.Close()

	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0644))

	assert.Eventually(t, func() bool { return src.Err() != nil }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 5, src.Current().Aperture.EdgeCount)
}

func TestNewFileSource_MissingFile(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
