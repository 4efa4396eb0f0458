package entity

import (
	"fmt"

	"github.com/Logerfo/LiteEntitySystem/protocol"
)

type ClassID uint16

// Kind 字段如何落地
type Kind uint8

const (
	// KindValue 普通值字段 按字节镜像拷贝
	KindValue Kind = iota
	// KindEntityRef 实体引用 线上是 id+version 访问时查表解析
	KindEntityRef
	// KindSyncableVar syncable聚合字段内部的变量 拷贝时多一层间接
	KindSyncableVar
)

type Flags uint8

const (
	// FlagOnlyForRemote 回滚重置时跳过该字段
	FlagOnlyForRemote Flags = 1 << 0
)

// Interpolator 对一个字段的字节镜像做插值 prev/next/dst都从字段起始处切片
type Interpolator func(prev, next, dst []byte, t float32)

// OnSync 字段值变化回调 prev为变化前的字节镜像
type OnSync func(e Synced, prev []byte)

// RemoteCall 实体级RPC端点
type RemoteCall func(e Synced, count int, r *protocol.Reader)

// Field 字段描述符 Offset指向活动镜像 FixedOffset指向扁平布局(插值字段在前)
type Field struct {
	Name   string
	Size   int
	Kind   Kind
	Flags  Flags
	Interp Interpolator
	OnSync OnSync

	// KindSyncableVar时 Offset是syncable自身blob内的偏移 SyncableIndex指向所属聚合
	Offset        int
	FixedOffset   int
	SyncableIndex int
}

// ClassData 实体类的只读元数据 注册后不再变化
type ClassData struct {
	ID   ClassID
	Name string

	Fields      []Field
	RemoteCalls []RemoteCall

	SyncableCount          int
	InterpolatedCount      int
	InterpolatedFieldsSize int
	FixedFieldsSize        int
	FieldsFlagsSize        int
	DataSize               int

	IsUpdateable   bool
	UpdateOnClient bool

	Constructor func() Synced

	finalized bool
}

func NewClass(id ClassID, name string, ctor func() Synced) *ClassData {
	return &ClassData{
		ID:          id,
		Name:        name,
		Constructor: ctor,
	}
}

// AddField 按声明序追加一个字段 偏移在Register时统一计算
// KindSyncableVar的字段需要调用方预填Offset和SyncableIndex
func (c *ClassData) AddField(f Field) int {
	c.Fields = append(c.Fields, f)
	return len(c.Fields) - 1
}

// AddRemoteCall 追加实体级RPC rpcID就是追加顺序
func (c *ClassData) AddRemoteCall(fn RemoteCall) int {
	c.RemoteCalls = append(c.RemoteCalls, fn)
	return len(c.RemoteCalls) - 1
}

// SetUpdateable 标记实体有逻辑tick更新 onClient为true时服务器权威实体也在客户端更新
func (c *ClassData) SetUpdateable(onClient bool) {
	c.IsUpdateable = true
	c.UpdateOnClient = onClient
}

// SetSyncableCount 声明syncable聚合字段个数 全量记录按此数量读取blob
func (c *ClassData) SetSyncableCount(n int) {
	c.SyncableCount = n
}

// Field 按名字找描述符 找不到返回nil
func (c *ClassData) Field(name string) *Field {
	for i := range c.Fields {
		if c.Fields[i].Name == name {
			return &c.Fields[i]
		}
	}
	return nil
}

// finalize 计算所有偏移和尺寸 插值字段在扁平布局里排最前
func (c *ClassData) finalize() error {
	if c.finalized {
		return nil
	}

	fixed := 0
	for i := range c.Fields {
		f := &c.Fields[i]
		if f.Size <= 0 {
			return fmt.Errorf("class %s field %s has size %d", c.Name, f.Name, f.Size)
		}
		if f.Kind == KindSyncableVar && f.Interp != nil {
			return fmt.Errorf("class %s field %s: syncable var cannot interpolate", c.Name, f.Name)
		}
		if f.Interp != nil {
			f.FixedOffset = fixed
			fixed += f.Size
			c.InterpolatedCount++
		}
	}
	c.InterpolatedFieldsSize = fixed

	for i := range c.Fields {
		f := &c.Fields[i]
		if f.Interp == nil {
			f.FixedOffset = fixed
			fixed += f.Size
		}
		if f.Kind != KindSyncableVar {
			f.Offset = c.DataSize
			c.DataSize += f.Size
		} else if f.SyncableIndex < 0 || f.SyncableIndex >= c.SyncableCount {
			return fmt.Errorf("class %s field %s: syncable index %d out of range", c.Name, f.Name, f.SyncableIndex)
		}
	}
	c.FixedFieldsSize = fixed
	c.FieldsFlagsSize = (len(c.Fields) + 7) / 8

	c.finalized = true
	return nil
}

// Registry 类元数据表 启动时注册 之后只读
type Registry struct {
	classes map[ClassID]*ClassData
}

func NewRegistry() *Registry {
	return &Registry{classes: make(map[ClassID]*ClassData)}
}

func (r *Registry) Register(c *ClassData) error {
	if nil == c.Constructor {
		return fmt.Errorf("class %s has no constructor", c.Name)
	}
	if _, ok := r.classes[c.ID]; ok {
		return fmt.Errorf("class id %d already registered", c.ID)
	}
	if err := c.finalize(); err != nil {
		return err
	}
	r.classes[c.ID] = c
	return nil
}

func (r *Registry) Get(id ClassID) *ClassData {
	return r.classes[id]
}
