package client

import (
	l4g "github.com/alecthomas/log4go"

	"github.com/Logerfo/LiteEntitySystem/entity"
	"github.com/Logerfo/LiteEntitySystem/protocol"
)

type interpCache struct {
	field        *entity.Field
	readerOffset int
}

// preloadEntry 快照里一条实体记录的解析索引
// fieldsOffset为-1表示全量记录 差分记录的实体已知时指向bitfield之后的首个字段字节 未知时指向bitfield起始
type preloadEntry struct {
	entityID     entity.ID
	totalSize    int
	dataOffset   int
	fieldsOffset int
	interpCaches []interpCache
}

type remoteCallCache struct {
	tick     uint16
	entityID entity.ID
	fieldID  uint8
	rpcID    uint8
	count    int
	offset   int
	size     int
}

// serverState 一个逻辑tick的服务器快照 从池里取 用完回池
type serverState struct {
	tick       uint16
	isBaseline bool

	data []byte
	size int

	processedTick    uint16
	lastReceivedTick uint16
	partsCount       int

	preload            []preloadEntry
	remoteCalls        []remoteCallCache
	interpolatedFields []int
}

func (s *serverState) reset() {
	s.tick = 0
	s.isBaseline = false
	s.data = s.data[:0]
	s.size = 0
	s.processedTick = 0
	s.lastReceivedTick = 0
	s.partsCount = 0
	s.preload = s.preload[:0]
	s.remoteCalls = s.remoteCalls[:0]
	s.interpolatedFields = s.interpolatedFields[:0]
}

func (s *serverState) ensureData(n int) {
	if cap(s.data) < n {
		s.data = make([]byte, n)
	} else {
		s.data = s.data[:n]
	}
}

// preloadState 对照当前已知实体扫描快照 建立实体偏移/插值缓存/RPC缓存
func (c *Client) preloadState(s *serverState) {
	s.preload = s.preload[:0]
	s.remoteCalls = s.remoteCalls[:0]
	s.interpolatedFields = s.interpolatedFields[:0]

	r := protocol.NewReader(s.data[:s.size])
	s.processedTick = r.ReadUint16()
	s.lastReceivedTick = r.ReadUint16()

	rpcCount := int(r.ReadUint16())
	for i := 0; i < rpcCount && r.IsValid(); i++ {
		rc := remoteCallCache{
			entityID: entity.ID(r.ReadUint16()),
			fieldID:  r.ReadUint8(),
			rpcID:    r.ReadUint8(),
			tick:     r.ReadUint16(),
			count:    int(r.ReadUint16()),
		}
		rc.size = int(r.ReadUint16())
		rc.offset = r.Pos()
		r.Skip(rc.size)
		if !r.IsValid() {
			l4g.Error("[client] state %d rpc record truncated", s.tick)
			return
		}
		s.remoteCalls = append(s.remoteCalls, rc)
	}

	for r.IsValid() && r.Remaining() >= protocol.EntityRecordHeaderSize {
		start := r.Pos()
		total := int(r.ReadUint16())
		id := entity.ID(r.ReadUint16())
		flags := r.ReadUint8()

		if total < protocol.EntityRecordHeaderSize || start+total > s.size {
			l4g.Error("[client] state %d entity record size %d invalid", s.tick, total)
			return
		}
		if int(id) >= MaxSyncedEntityCount {
			l4g.Error("[client] state %d entity id %d out of range", s.tick, id)
			return
		}

		pe := preloadEntry{
			entityID:     id,
			totalSize:    total,
			dataOffset:   r.Pos(),
			fieldsOffset: -1,
		}

		if flags&protocol.RecordFlagFullSync == 0 {
			pe.fieldsOffset = pe.dataOffset
			if e := c.entities[id]; e != nil {
				cd := e.Data().Class()
				recordEnd := start + total
				if pe.dataOffset+cd.FieldsFlagsSize > recordEnd {
					l4g.Error("[client] state %d diff record for entity %d too short", s.tick, id)
					return
				}
				pe.fieldsOffset = pe.dataOffset + cd.FieldsFlagsSize
				bits := s.data[pe.dataOffset : pe.dataOffset+cd.FieldsFlagsSize]
				off := pe.fieldsOffset
				for fi := range cd.Fields {
					if bits[fi>>3]&(1<<(fi&7)) == 0 {
						continue
					}
					f := &cd.Fields[fi]
					if off+f.Size > recordEnd {
						l4g.Error("[client] state %d diff record for entity %d truncated", s.tick, id)
						return
					}
					if f.Interp != nil {
						pe.interpCaches = append(pe.interpCaches, interpCache{field: f, readerOffset: off})
					}
					off += f.Size
				}
			}
		}

		if len(pe.interpCaches) > 0 {
			s.interpolatedFields = append(s.interpolatedFields, len(s.preload))
		}
		s.preload = append(s.preload, pe)
		r.SetPos(start + total)
	}
}
