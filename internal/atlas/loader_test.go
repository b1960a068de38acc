package atlas

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/any-hub/any-content/internal/contenterr"
	"github.com/any-hub/any-content/internal/pathresolver"
	"github.com/any-hub/any-content/internal/texture"
)

const (
	atlasDir = "/content/Atlas"
	heroJSON = `[
  {"Name": "walk", "Bounds": {"X": 32, "Y": 0, "Width": 32, "Height": 48}, "FrameIndex": 1},
  {"Name": "walk", "Bounds": {"X": 0, "Y": 0, "Width": 32, "Height": 48}, "FrameIndex": 0},
  {"Name": "idle", "Bounds": {"X": 64, "Y": 0, "Width": 32, "Height": 48}, "FrameIndex": 0}
]`
)

type countingDecoder struct {
	calls int32
	inner Decoder
}

func (d *countingDecoder) Decode(data []byte) ([]SubTextureData, error) {
	atomic.AddInt32(&d.calls, 1)
	return d.inner.Decode(data)
}

type fixture struct {
	fs       afero.Fs
	decoder  *countingDecoder
	textures *texture.Cache
	creates  int32
	loader   *Loader
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		fs:      afero.NewMemMapFs(),
		decoder: &countingDecoder{inner: JSONDecoder{}},
	}
	resolver, err := pathresolver.NewAtlasResolver(f.fs, "/content", "Atlas")
	require.NoError(t, err)
	fileFactory, err := texture.NewFileFactory(f.fs)
	require.NoError(t, err)

	f.textures = texture.NewCache(resolver, nil)
	f.loader, err = NewLoader(Deps{
		Textures: f.textures,
		TextureFactory: texture.FactoryFunc(func(path string) (*texture.Texture, error) {
			atomic.AddInt32(&f.creates, 1)
			return fileFactory.Create(path)
		}),
		Resolver:  resolver,
		Decoder:   f.decoder,
		Assembler: DefaultAssembler{},
		FS:        f.fs,
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(f.fs, path, []byte(content), 0o644))
}

func (f *fixture) writeAtlas(t *testing.T, name string) {
	t.Helper()
	f.write(t, atlasDir+"/"+name+".json", heroJSON)
	f.write(t, atlasDir+"/"+name+".png", "png-bytes")
}

func TestLoadValidIdentifiers(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{"logical name", "MyAtlas"},
		{"rooted image path", atlasDir + "/MyAtlas.png"},
		{"rooted data path", atlasDir + "/MyAtlas.json"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.writeAtlas(t, "MyAtlas")

			atlas, err := f.loader.Load(tc.input)
			require.NoError(t, err)
			assert.Equal(t, "MyAtlas", atlas.Name)
			assert.Equal(t, atlasDir, atlas.DirPath)
			assert.Equal(t, atlasDir+"/MyAtlas.png", atlas.FilePath)
			assert.Equal(t, 3, atlas.Len())
			require.NotNil(t, atlas.Texture)
			assert.Equal(t, "MyAtlas", atlas.Texture.Name)
		})
	}
}

func TestLoadLogicalNameWithExtension(t *testing.T) {
	for _, input := range []string{"MyAtlas.json", "MyAtlas.png", "MyAtlas.JSON"} {
		f := newFixture(t)
		f.writeAtlas(t, "MyAtlas")

		atlas, err := f.loader.Load(input)
		require.NoError(t, err, input)
		assert.Equal(t, input, atlas.Name)
		assert.Equal(t, atlasDir+"/MyAtlas.png", atlas.FilePath, input)
	}
}

func TestLoadDistinctCasingsKeepSeparateTextures(t *testing.T) {
	f := newFixture(t)
	f.write(t, atlasDir+"/Hero.json", heroJSON)
	f.write(t, atlasDir+"/Hero.png", "UPPER-bytes")
	f.write(t, atlasDir+"/hero.json", `[{"Name":"solo","Bounds":{"X":0,"Y":0,"Width":8,"Height":8},"FrameIndex":0}]`)
	f.write(t, atlasDir+"/hero.png", "lower-bytes-different")

	upper, err := f.loader.Load("Hero")
	require.NoError(t, err)
	lower, err := f.loader.Load("hero")
	require.NoError(t, err)

	assert.NotSame(t, upper.Texture, lower.Texture)
	assert.Equal(t, atlasDir+"/Hero.png", upper.Texture.FilePath)
	assert.Equal(t, atlasDir+"/hero.png", lower.Texture.FilePath)
	assert.Equal(t, int64(len("lower-bytes-different")), lower.Texture.SizeBytes)
	assert.Equal(t, 1, lower.Len())
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.creates))

	assert.True(t, f.loader.Unload("hero"))
	assert.True(t, lower.Texture.Released())
	assert.False(t, upper.Texture.Released())
}

func TestLoadMatchesCompanionFilesIgnoringCase(t *testing.T) {
	f := newFixture(t)
	f.write(t, atlasDir+"/Hero.JSON", heroJSON)
	f.write(t, atlasDir+"/hero.png", "png-bytes")

	atlas, err := f.loader.Load("HERO")
	require.NoError(t, err)
	assert.Equal(t, atlasDir+"/hero.png", atlas.FilePath)
	assert.True(t, f.textures.Contains("Hero"))

	assert.True(t, f.loader.Unload("Hero"))
	assert.True(t, atlas.Texture.Released())
}

func TestLoadRejectsEscapingLogicalNames(t *testing.T) {
	for _, input := range []string{"../../secret/leak", "../Atlas/Hero", "ui/../../secret/leak"} {
		f := newFixture(t)
		f.writeAtlas(t, "Hero")
		f.write(t, "/secret/leak.json", heroJSON)
		f.write(t, "/secret/leak.png", "png-bytes")

		_, err := f.loader.Load(input)
		require.Error(t, err, input)
		assert.True(t, contenterr.IsKind(err, contenterr.KindValidation), input)
		assert.Equal(t, int32(0), atomic.LoadInt32(&f.creates), input)
	}
}

func TestLoadInvalidRootedExtensions(t *testing.T) {
	for _, input := range []string{atlasDir + "/MyAtlas", atlasDir + "/MyAtlas.txt"} {
		f := newFixture(t)
		f.writeAtlas(t, "MyAtlas")

		_, err := f.loader.Load(input)
		require.Error(t, err, input)
		assert.True(t, contenterr.IsKind(err, contenterr.KindLoadAtlas), input)
		assert.Contains(t, err.Error(), ".png")
		assert.Contains(t, err.Error(), ".json")
		assert.Equal(t, int32(0), atomic.LoadInt32(&f.decoder.calls))
	}
}

func TestLoadMissingImageNamesImagePath(t *testing.T) {
	f := newFixture(t)
	f.write(t, atlasDir+"/Hero.json", heroJSON)

	_, err := f.loader.Load("Hero")
	require.Error(t, err)
	assert.True(t, contenterr.IsKind(err, contenterr.KindLoadAtlas))
	assert.True(t, contenterr.IsKind(err, contenterr.KindNotFound))
	assert.Contains(t, err.Error(), atlasDir+"/Hero.png")
	assert.NotContains(t, err.Error(), "Hero.json'")
}

func TestLoadMissingDataNamesDataPath(t *testing.T) {
	f := newFixture(t)
	f.write(t, atlasDir+"/Hero.png", "png-bytes")

	_, err := f.loader.Load(atlasDir + "/Hero.png")
	require.Error(t, err)
	assert.True(t, contenterr.IsKind(err, contenterr.KindLoadAtlas))
	assert.Contains(t, err.Error(), atlasDir+"/Hero.json")

	var ce *contenterr.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, atlasDir, ce.Dir)
}

func TestLoadCorruptIsDistinctFromMissing(t *testing.T) {
	testCases := []struct {
		name    string
		payload string
	}{
		{"null payload", "null"},
		{"syntax error", "{not json"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.write(t, atlasDir+"/Hero.json", tc.payload)
			f.write(t, atlasDir+"/Hero.png", "png-bytes")

			_, err := f.loader.Load("Hero")
			require.Error(t, err)
			assert.True(t, contenterr.IsKind(err, contenterr.KindCorrupt))
			assert.False(t, contenterr.IsKind(err, contenterr.KindNotFound))
			assert.Contains(t, err.Error(), atlasDir+"/Hero.json")
			assert.False(t, f.textures.Contains("Hero"))
		})
	}
}

func TestLoadEmptyIdentifier(t *testing.T) {
	f := newFixture(t)
	_, err := f.loader.Load("")
	assert.True(t, contenterr.IsKind(err, contenterr.KindValidation))
}

func TestLoadCreatesMissingContentDirectory(t *testing.T) {
	f := newFixture(t)

	_, err := f.loader.Load("Hero")
	require.Error(t, err)
	assert.True(t, contenterr.IsKind(err, contenterr.KindLoadAtlas))

	exists, err := afero.DirExists(f.fs, atlasDir)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLoadTwiceReusesTexture(t *testing.T) {
	f := newFixture(t)
	f.writeAtlas(t, "Hero")

	first, err := f.loader.Load("Hero")
	require.NoError(t, err)
	second, err := f.loader.Load("Hero")
	require.NoError(t, err)

	assert.Equal(t, first.SubTextures(), second.SubTextures())
	assert.Same(t, first.Texture, second.Texture)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.creates))
	// metadata is never cached
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.decoder.calls))
}

func TestLoadConcurrentSharesTexture(t *testing.T) {
	f := newFixture(t)
	f.writeAtlas(t, "Hero")

	const callers = 16
	var wg sync.WaitGroup
	textures := make([]*texture.Texture, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := f.loader.Load("Hero")
			if err != nil {
				t.Errorf("load failed: %v", err)
				return
			}
			textures[i] = a.Texture
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&f.creates))
	for _, tex := range textures {
		assert.Same(t, textures[0], tex)
	}
}

func TestUnloadUsesSameIdentifier(t *testing.T) {
	for _, id := range []string{"Hero", atlasDir + "/Hero.json"} {
		f := newFixture(t)
		f.writeAtlas(t, "Hero")

		atlas, err := f.loader.Load(id)
		require.NoError(t, err)
		require.True(t, f.textures.Contains(id))

		assert.True(t, f.loader.Unload(id), id)
		assert.False(t, f.textures.Contains(id), id)
		assert.True(t, atlas.Texture.Released(), id)

		assert.False(t, f.loader.Unload(id), id)

		_, err = f.loader.Load(id)
		require.NoError(t, err)
		assert.Equal(t, int32(2), atomic.LoadInt32(&f.creates), id)
	}
}

func TestLoadTextureFailureNotCached(t *testing.T) {
	f := newFixture(t)
	f.writeAtlas(t, "Hero")
	resolver, err := pathresolver.NewAtlasResolver(f.fs, "/content", "Atlas")
	require.NoError(t, err)

	boom := errors.New("gpu upload failed")
	loader, err := NewLoader(Deps{
		Textures: f.textures,
		TextureFactory: texture.FactoryFunc(func(string) (*texture.Texture, error) {
			return nil, boom
		}),
		Resolver:  resolver,
		Decoder:   JSONDecoder{},
		Assembler: DefaultAssembler{},
		FS:        f.fs,
	})
	require.NoError(t, err)

	_, err = loader.Load("Hero")
	assert.ErrorIs(t, err, boom)
	assert.False(t, f.textures.Contains("Hero"))

	_, err = f.loader.Load("Hero")
	assert.NoError(t, err)
}

func TestNewLoaderNamesMissingDependency(t *testing.T) {
	fs := afero.NewMemMapFs()
	resolver, err := pathresolver.NewAtlasResolver(fs, "/content", "Atlas")
	require.NoError(t, err)
	full := Deps{
		Textures:       texture.NewCache(resolver, nil),
		TextureFactory: &texture.FileFactory{FS: fs},
		Resolver:       resolver,
		Decoder:        JSONDecoder{},
		Assembler:      DefaultAssembler{},
		FS:             fs,
	}

	testCases := []struct {
		param  string
		mutate func(*Deps)
	}{
		{"textureCache", func(d *Deps) { d.Textures = nil }},
		{"textureFactory", func(d *Deps) { d.TextureFactory = nil }},
		{"atlasDataPathResolver", func(d *Deps) { d.Resolver = nil }},
		{"decoder", func(d *Deps) { d.Decoder = nil }},
		{"atlasAssembler", func(d *Deps) { d.Assembler = nil }},
		{"fs", func(d *Deps) { d.FS = nil }},
	}
	for _, tc := range testCases {
		t.Run(tc.param, func(t *testing.T) {
			deps := full
			tc.mutate(&deps)
			_, err := NewLoader(deps)
			require.Error(t, err)
			assert.True(t, contenterr.IsKind(err, contenterr.KindValidation))

			var ce *contenterr.Error
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.param, ce.Name)
		})
	}

	entries, err := afero.ReadDir(fs, "/")
	require.NoError(t, err)
	assert.Empty(t, entries, "construction must not touch the filesystem")
}

func TestAtlasFrames(t *testing.T) {
	f := newFixture(t)
	f.writeAtlas(t, "Hero")

	atlas, err := f.loader.Load("Hero")
	require.NoError(t, err)

	assert.Equal(t, []string{"walk", "idle"}, atlas.Names())
	walk, ok := atlas.Frames("walk")
	require.True(t, ok)
	require.Len(t, walk, 2)
	assert.Equal(t, 0, walk[0].FrameIndex)
	assert.Equal(t, 1, walk[1].FrameIndex)

	_, ok = atlas.Frames("run")
	assert.False(t, ok)

	w, h := atlas.Extent()
	assert.Equal(t, 96, w)
	assert.Equal(t, 48, h)
}
