package entity

import (
	"encoding/binary"
	"math"
)

type ID uint16

// InvalidID 空引用的id 本地实体id分配失败时也返回它
const InvalidID ID = 0xFFFF

// Ref 非持有的实体引用 线上3字节 永远通过实体表解析 不持有指针
type Ref struct {
	ID      ID
	Version uint8
}

const RefSize = 3

func (r Ref) IsValid() bool {
	return r.ID != InvalidID
}

// Synced 引擎托管的实体 业务实体内嵌Base获得默认实现
type Synced interface {
	Data() *Base
	Update()
	VisualUpdate(progress float32)
}

// Base 实体公共部分 字段以字节镜像保存 访问器按偏移读写
type Base struct {
	id      ID
	version uint8
	class   *ClassData
	image   []byte

	syncables []Syncable

	isLocal            bool
	isLocalControlled  bool
	isServerControlled bool
	destroyed          bool
}

func (b *Base) Data() *Base            { return b }
func (b *Base) Update()                {}
func (b *Base) VisualUpdate(_ float32) {}

func (b *Base) ID() ID                   { return b.id }
func (b *Base) Version() uint8           { return b.version }
func (b *Base) Class() *ClassData        { return b.class }
func (b *Base) Image() []byte            { return b.image }
func (b *Base) IsDestroyed() bool        { return b.destroyed }
func (b *Base) IsLocal() bool            { return b.isLocal }
func (b *Base) IsLocalControlled() bool  { return b.isLocalControlled }
func (b *Base) IsServerControlled() bool { return b.isServerControlled }

// Init 分配活动镜像 由引擎在创建实体时调用
func (b *Base) Init(class *ClassData, id ID, version uint8) {
	b.class = class
	b.id = id
	b.version = version
	if cap(b.image) < class.DataSize {
		b.image = make([]byte, class.DataSize)
	} else {
		b.image = b.image[:class.DataSize]
	}
}

// BindSyncables 构造函数里把具体的聚合对象按声明序挂上
func (b *Base) BindSyncables(ss ...Syncable) {
	b.syncables = ss
}

func (b *Base) SyncableAt(i int) Syncable {
	if i < 0 || i >= len(b.syncables) {
		return nil
	}
	return b.syncables[i]
}

func (b *Base) SetLocal() {
	b.isLocal = true
	b.isLocalControlled = true
	b.isServerControlled = false
}

func (b *Base) SetLocalControlled(v bool) {
	b.isLocalControlled = v
	if !b.isLocal {
		b.isServerControlled = !v
	}
}

func (b *Base) SetServerControlled() {
	b.isLocal = false
	b.isLocalControlled = false
	b.isServerControlled = true
}

func (b *Base) MarkDestroyed() {
	b.destroyed = true
}

// FieldData 统一的字段寻址原语 返回从字段起始处开始的切片
// syncable变量多间接一层 聚合未绑定时返回nil
func (b *Base) FieldData(f *Field) []byte {
	if f.Kind == KindSyncableVar {
		s := b.SyncableAt(f.SyncableIndex)
		if s == nil {
			return nil
		}
		blob := s.Blob()
		if f.Offset+f.Size > len(blob) {
			return nil
		}
		return blob[f.Offset:]
	}
	if f.Offset+f.Size > len(b.image) {
		return nil
	}
	return b.image[f.Offset:]
}

// 字节镜像访问器 所有字段值一律大端 与外层协议一致

func GetUint8(b []byte, off int) uint8 {
	return b[off]
}

func PutUint8(b []byte, off int, v uint8) {
	b[off] = v
}

func GetUint16(b []byte, off int) uint16 {
	return binary.BigEndian.Uint16(b[off:])
}

func PutUint16(b []byte, off int, v uint16) {
	binary.BigEndian.PutUint16(b[off:], v)
}

func GetUint32(b []byte, off int) uint32 {
	return binary.BigEndian.Uint32(b[off:])
}

func PutUint32(b []byte, off int, v uint32) {
	binary.BigEndian.PutUint32(b[off:], v)
}

func GetFloat32(b []byte, off int) float32 {
	return math.Float32frombits(binary.BigEndian.Uint32(b[off:]))
}

func PutFloat32(b []byte, off int, v float32) {
	binary.BigEndian.PutUint32(b[off:], math.Float32bits(v))
}

func GetRef(b []byte, off int) Ref {
	return Ref{
		ID:      ID(binary.BigEndian.Uint16(b[off:])),
		Version: b[off+2],
	}
}

func PutRef(b []byte, off int, r Ref) {
	binary.BigEndian.PutUint16(b[off:], uint16(r.ID))
	b[off+2] = r.Version
}
