// Package contenterr defines the error taxonomy shared by the content
// loaders. Every failure surfaced by resolvers, caches and loaders is an
// *Error tagged with a Kind, so callers can tell a missing asset from a
// damaged one without parsing messages.
package contenterr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind 区分错误类别，调用方据此决定回退或直接上报。
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindCorrupt    Kind = "content_corrupt"
	KindLoadAtlas  Kind = "load_atlas"
)

// 与 Kind 一一对应的哨兵错误，配合 errors.Is 使用。
var (
	ErrValidation = errors.New("invalid content argument")
	ErrNotFound   = errors.New("content not found")
	ErrCorrupt    = errors.New("content corrupt")
	ErrLoadAtlas  = errors.New("load atlas failed")
)

// Error 携带错误类别与上下文字段（操作、名称、路径、目录），便于构造可操作的提示。
type Error struct {
	Kind   Kind
	Op     string
	Name   string
	Path   string
	Dir    string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Name != "" {
		fmt.Fprintf(&b, " (name=%q)", e.Name)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " (path=%q)", e.Path)
	}
	if e.Dir != "" {
		fmt.Fprintf(&b, " (dir=%q)", e.Dir)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 让 errors.Is(err, ErrNotFound) 等判断沿错误链生效。
func (e *Error) Is(target error) bool {
	return target == sentinel(e.Kind)
}

func sentinel(kind Kind) error {
	switch kind {
	case KindValidation:
		return ErrValidation
	case KindNotFound:
		return ErrNotFound
	case KindCorrupt:
		return ErrCorrupt
	case KindLoadAtlas:
		return ErrLoadAtlas
	default:
		return nil
	}
}

// IsKind 判断错误链中是否存在指定类别。
func IsKind(err error, kind Kind) bool {
	target := sentinel(kind)
	if err == nil || target == nil {
		return false
	}
	return errors.Is(err, target)
}

// KindOf 返回错误链中最外层 *Error 的类别；非 *Error 返回空字符串。
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// Validation 用于空参数、非法名称与缺失依赖，均在任何 IO 之前返回。
func Validation(op, name, reason string) error {
	return &Error{Kind: KindValidation, Op: op, Name: name, Reason: reason}
}

// MissingDependency 标识构造函数缺失的协作者，Name 即参数名。
func MissingDependency(op, param string) error {
	return &Error{Kind: KindValidation, Op: op, Name: param, Reason: "value cannot be nil"}
}

// NotFound 记录被检索的文件路径与目录。
func NotFound(op, path, dir string) error {
	return &Error{Kind: KindNotFound, Op: op, Path: path, Dir: dir, Reason: "file does not exist"}
}

// Corrupt 表示文件存在但无法反序列化为有效结构。
func Corrupt(op, path string, cause error) error {
	return &Error{Kind: KindCorrupt, Op: op, Path: path, Reason: "unable to deserialize content", Err: cause}
}

// LoadAtlas 表示图集加载约束被违反，cause 可以是 NotFound 以便调用方按缺失处理。
func LoadAtlas(op, name, dir, reason string, cause error) error {
	return &Error{Kind: KindLoadAtlas, Op: op, Name: name, Dir: dir, Reason: reason, Err: cause}
}
