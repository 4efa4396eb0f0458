package client

import (
	"bytes"

	l4g "github.com/alecthomas/log4go"

	"github.com/Logerfo/LiteEntitySystem/entity"
	"github.com/Logerfo/LiteEntitySystem/protocol"
)

type onSyncEntry struct {
	e     entity.Synced
	field *entity.Field
	pos   int
}

func (c *Client) readFullSyncEntry(s *serverState, pe *preloadEntry) {
	r := protocol.NewReader(s.data[:s.size])
	r.SetPos(pe.dataOffset)
	c.fullSyncRead(s, r, uint16(pe.entityID))
}

// fullSyncRead 读取一条全量记录 version不同先销毁旧实体再建新实体
func (c *Client) fullSyncRead(s *serverState, r *protocol.Reader, id uint16) {
	if int(id) >= MaxSyncedEntityCount {
		l4g.Error("[client] full sync entity id %d out of range", id)
		r.Poison()
		return
	}
	version := r.ReadUint8()
	classID := entity.ClassID(r.ReadUint16())
	if !r.IsValid() {
		return
	}

	e := c.entities[id]
	if e != nil && (e.Data().Version() != version || e.Data().Class().ID != classID) {
		c.destroyEntity(e)
		e = nil
	}
	if e == nil {
		e = c.createEntity(entity.ID(id), version, classID)
		if e == nil {
			r.Poison()
			return
		}
	}

	b := e.Data()
	cd := b.Class()
	for fi := range cd.Fields {
		f := &cd.Fields[fi]
		srcPos := r.Pos()
		if r.ReadBytes(f.Size) == nil {
			return
		}
		c.applyField(s, e, f, srcPos, true)
	}

	for si := 0; si < cd.SyncableCount; si++ {
		blobLen := int(r.ReadUint16())
		if !r.IsValid() {
			return
		}
		sy := b.SyncableAt(si)
		if sy == nil {
			l4g.Error("[client] class %s syncable %d not bound", cd.Name, si)
			r.Skip(blobLen)
			continue
		}
		end := r.Pos() + blobLen
		sy.FullSyncRead(r, blobLen)
		if !r.IsValid() {
			return
		}
		r.SetPos(end)
	}
}

// readDiffEntry 读取一条差分记录 bitfield标出在场字段
func (c *Client) readDiffEntry(s *serverState, pe *preloadEntry) {
	e := c.entities[pe.entityID]
	if e == nil {
		return
	}
	b := e.Data()
	cd := b.Class()

	bits := s.data[pe.dataOffset : pe.dataOffset+cd.FieldsFlagsSize]
	off := pe.fieldsOffset
	end := pe.dataOffset - protocol.EntityRecordHeaderSize + pe.totalSize
	for fi := range cd.Fields {
		if bits[fi>>3]&(1<<(fi&7)) == 0 {
			continue
		}
		f := &cd.Fields[fi]
		if off+f.Size > end {
			l4g.Error("[client] state %d diff record for entity %d truncated", s.tick, pe.entityID)
			return
		}
		c.applyField(s, e, f, off, false)
		off += f.Size
	}
}

// applyField 统一的字段落地路径
// 值变化且有OnSync时 新旧字节互换 回调延后到整个快照应用完成后触发
func (c *Client) applyField(s *serverState, e entity.Synced, f *entity.Field, srcPos int, fullSync bool) {
	src := s.data[srcPos : srcPos+f.Size]
	b := e.Data()

	dst := b.FieldData(f)
	if dst != nil {
		dst = dst[:f.Size]
		if !fullSync && f.OnSync != nil && !bytes.Equal(dst, src) {
			for i := range src {
				dst[i], src[i] = src[i], dst[i]
			}
			c.onSyncQueue = append(c.onSyncQueue, onSyncEntry{e: e, field: f, pos: srcPos})
		} else {
			copy(dst, src)
		}
	} else {
		return
	}

	if f.Interp != nil && (fullSync || b.IsServerControlled()) {
		if buf := c.interpInitial[b.ID()]; buf != nil {
			copy(buf[f.FixedOffset:f.FixedOffset+f.Size], dst)
		}
	}
	if b.IsLocalControlled() && !b.IsLocal() {
		img := c.ensurePredictedImage(b.ID(), b.Class())
		copy(img[f.FixedOffset:f.FixedOffset+f.Size], dst)
	}
}

// flushOnSyncQueue 每个回调带着变化前的字节触发一次 随后把快照里的旧字节换回新值
func (c *Client) flushOnSyncQueue(s *serverState) {
	for _, q := range c.onSyncQueue {
		f := q.field
		prev := s.data[q.pos : q.pos+f.Size]
		f.OnSync(q.e, prev)
		if cur := q.e.Data().FieldData(f); cur != nil {
			copy(prev, cur[:f.Size])
		}
	}
	c.onSyncQueue = c.onSyncQueue[:0]
}
