package atlas

import (
	"errors"

	"github.com/goccy/go-json"

	"github.com/any-hub/any-content/internal/texture"
)

// errNullPayload 表示元数据可以解析但结果为空（例如文件内容为 null）。
var errNullPayload = errors.New("atlas data deserialized to null")

// Decoder 将元数据文件内容反序列化为子纹理序列；返回 nil 切片表示内容为空。
type Decoder interface {
	Decode(data []byte) ([]SubTextureData, error)
}

// JSONDecoder 使用 goccy/go-json 解析 <name>.json。
type JSONDecoder struct{}

func (JSONDecoder) Decode(data []byte) ([]SubTextureData, error) {
	var out []SubTextureData
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Assembler 把解析后的子纹理、目录、名称与纹理组装为 AtlasData。
type Assembler interface {
	Assemble(subTextures []SubTextureData, dirPath, name string, tex *texture.Texture) (*AtlasData, error)
}

// DefaultAssembler 按名称聚合帧序列。
type DefaultAssembler struct{}

func (DefaultAssembler) Assemble(subTextures []SubTextureData, dirPath, name string, tex *texture.Texture) (*AtlasData, error) {
	filePath := ""
	if tex != nil {
		filePath = tex.FilePath
	}
	return newAtlasData(subTextures, dirPath, name, filePath, tex), nil
}
