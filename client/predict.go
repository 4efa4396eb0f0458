package client

import (
	"github.com/Logerfo/LiteEntitySystem/entity"
	"github.com/Logerfo/LiteEntitySystem/pkg/seq"
	"github.com/Logerfo/LiteEntitySystem/protocol"
)

type pendingSpawn struct {
	tick uint16
	e    entity.Synced
}

// rollbackAndReplay 快照落地后调用
// 预测实体先回到权威镜像 再按队列重放所有未确认输入
func (c *Client) rollbackAndReplay() {
	// 服务器已消费到生成时刻的输入 乐观副本让位给权威副本
	for len(c.pendingSpawns) > 0 && seq.Diff(c.stateA.processedTick, c.pendingSpawns[0].tick) >= 0 {
		c.destroyEntity(c.pendingSpawns[0].e)
		c.pendingSpawns = c.pendingSpawns[1:]
	}

	for _, e := range c.entityList {
		b := e.Data()
		if !b.IsLocalControlled() || b.IsLocal() {
			continue
		}
		img := c.predictedImages[b.ID()]
		if img == nil {
			continue
		}
		cd := b.Class()
		for fi := range cd.Fields {
			f := &cd.Fields[fi]
			if f.Flags&entity.FlagOnlyForRemote != 0 {
				continue
			}
			dst := b.FieldData(f)
			if dst == nil {
				continue
			}
			copy(dst[:f.Size], img[f.FixedOffset:f.FixedOffset+f.Size])
		}
	}

	c.mode = ModePredictionRollback
	for _, in := range c.inputCommands {
		r := protocol.NewReader(in.w.Data())
		r.SetPos(protocol.InputPacketHeaderSize)
		for _, ctrl := range c.controllers {
			ctrl.ReadInput(r)
		}
		for _, e := range c.entityList {
			b := e.Data()
			if !b.IsLocalControlled() || b.IsLocal() || !b.Class().IsUpdateable {
				continue
			}
			e.Update()
		}
	}
	c.mode = ModeNormal

	for _, e := range c.entityList {
		b := e.Data()
		if !b.IsLocalControlled() || b.IsLocal() {
			continue
		}
		if buf := c.interpInitial[b.ID()]; buf != nil {
			c.captureInterpolated(e, buf)
		}
	}
}
