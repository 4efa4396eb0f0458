package entity

import "github.com/Logerfo/LiteEntitySystem/protocol"

// Syncable 实体内的聚合字段 自带全量序列化和RPC端点
// 差分路径不走这里 差分里syncable变量以KindSyncableVar字段出现
type Syncable interface {
	// Blob 聚合自身变量的活动镜像
	Blob() []byte
	// FullSyncRead 读取服务器下发的自序列化blob
	FullSyncRead(r *protocol.Reader, size int)
	// OnRemoteCall 处理打到该聚合的RPC
	OnRemoteCall(id uint8, count int, r *protocol.Reader)
}

// SyncableBase 默认实现 blob即镜像原样收发 具体聚合按需覆盖
type SyncableBase struct {
	blob []byte
}

func (s *SyncableBase) InitBlob(size int) {
	if cap(s.blob) < size {
		s.blob = make([]byte, size)
	} else {
		s.blob = s.blob[:size]
	}
}

func (s *SyncableBase) Blob() []byte {
	return s.blob
}

func (s *SyncableBase) FullSyncRead(r *protocol.Reader, size int) {
	b := r.ReadBytes(size)
	if b == nil {
		return
	}
	if size > len(s.blob) {
		size = len(s.blob)
	}
	copy(s.blob[:size], b)
}

func (s *SyncableBase) OnRemoteCall(_ uint8, _ int, _ *protocol.Reader) {}
