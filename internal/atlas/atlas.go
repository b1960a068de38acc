package atlas

import (
	"sort"

	"github.com/any-hub/any-content/internal/texture"
)

// Rect 是图集图片中的源矩形。
type Rect struct {
	X      int `json:"X"`
	Y      int `json:"Y"`
	Width  int `json:"Width"`
	Height int `json:"Height"`
}

// SubTextureData 对应元数据文件中的一项：名称、源矩形与动画帧序号。
type SubTextureData struct {
	Name       string `json:"Name"`
	Bounds     Rect   `json:"Bounds"`
	FrameIndex int    `json:"FrameIndex"`
}

// AtlasData 是加载完成的图集：子纹理描述 + 共享纹理 + 来源目录与逻辑名称。
type AtlasData struct {
	Name     string
	DirPath  string
	FilePath string
	Texture  *texture.Texture

	subTextures []SubTextureData
	names       []string
	frames      map[string][]SubTextureData
}

func newAtlasData(subTextures []SubTextureData, dirPath, name, filePath string, tex *texture.Texture) *AtlasData {
	a := &AtlasData{
		Name:        name,
		DirPath:     dirPath,
		FilePath:    filePath,
		Texture:     tex,
		subTextures: append([]SubTextureData(nil), subTextures...),
		frames:      make(map[string][]SubTextureData),
	}
	for _, st := range a.subTextures {
		if _, seen := a.frames[st.Name]; !seen {
			a.names = append(a.names, st.Name)
		}
		a.frames[st.Name] = append(a.frames[st.Name], st)
	}
	for _, frames := range a.frames {
		sort.SliceStable(frames, func(i, j int) bool {
			return frames[i].FrameIndex < frames[j].FrameIndex
		})
	}
	return a
}

// Len 返回子纹理条目数。
func (a *AtlasData) Len() int { return len(a.subTextures) }

// SubTextures 按元数据文件中的顺序返回子纹理副本。
func (a *AtlasData) SubTextures() []SubTextureData {
	return append([]SubTextureData(nil), a.subTextures...)
}

// Names 返回去重后的子纹理名称，保持首次出现的顺序。
func (a *AtlasData) Names() []string {
	return append([]string(nil), a.names...)
}

// Frames 返回指定名称的全部帧，按 FrameIndex 升序。
func (a *AtlasData) Frames(name string) ([]SubTextureData, bool) {
	frames, ok := a.frames[name]
	if !ok {
		return nil, false
	}
	return append([]SubTextureData(nil), frames...), true
}

// Extent 返回覆盖全部子纹理的最小宽高。
func (a *AtlasData) Extent() (width, height int) {
	for _, st := range a.subTextures {
		if right := st.Bounds.X + st.Bounds.Width; right > width {
			width = right
		}
		if bottom := st.Bounds.Y + st.Bounds.Height; bottom > height {
			height = bottom
		}
	}
	return width, height
}
