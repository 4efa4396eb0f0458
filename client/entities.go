package client

import (
	l4g "github.com/alecthomas/log4go"

	"github.com/Logerfo/LiteEntitySystem/entity"
)

func (c *Client) createEntity(id entity.ID, version uint8, classID entity.ClassID) entity.Synced {
	cd := c.registry.Get(classID)
	if cd == nil {
		l4g.Error("[client] unknown class id %d for entity %d", classID, id)
		return nil
	}
	e := cd.Constructor()
	b := e.Data()
	b.Init(cd, id, version)
	b.SetServerControlled()

	c.entities[id] = e
	c.entityList = append(c.entityList, e)
	c.ensureScratch(id, cd)
	return e
}

func (c *Client) destroyEntity(e entity.Synced) {
	b := e.Data()
	id := b.ID()
	if id != entity.InvalidID && int(id) < MaxEntityCount && c.entities[id] == e {
		c.entities[id] = nil
	}
	for i, le := range c.entityList {
		if le == e {
			c.entityList = append(c.entityList[:i], c.entityList[i+1:]...)
			break
		}
	}
	b.MarkDestroyed()
}

// TakeControl 把一个服务器同步实体标记为本端控制 此后该实体走预测+回滚
// 当前字段值作为第一份权威镜像
func (c *Client) TakeControl(id entity.ID) bool {
	e := c.EntityByID(id)
	if e == nil || int(id) >= MaxSyncedEntityCount {
		return false
	}
	b := e.Data()
	b.SetLocalControlled(true)
	cd := b.Class()
	img := c.ensurePredictedImage(id, cd)
	for fi := range cd.Fields {
		f := &cd.Fields[fi]
		src := b.FieldData(f)
		if src == nil {
			continue
		}
		copy(img[f.FixedOffset:f.FixedOffset+f.Size], src[:f.Size])
	}
	c.ensureScratch(id, cd)
	if buf := c.interpInitial[id]; buf != nil {
		c.captureInterpolated(e, buf)
	}
	if buf := c.interpPrev[id]; buf != nil {
		c.captureInterpolated(e, buf)
	}
	return true
}

// AddLocalEntity 纯本地实体 永不与服务器同步
func (c *Client) AddLocalEntity(classID entity.ClassID) entity.Synced {
	cd := c.registry.Get(classID)
	if cd == nil {
		l4g.Error("[client] unknown class id %d for local entity", classID)
		return nil
	}
	id := c.allocLocalID()
	if id == entity.InvalidID {
		l4g.Error("[client] local entity slots exhausted")
		return nil
	}
	e := cd.Constructor()
	b := e.Data()
	b.Init(cd, id, 0)
	b.SetLocal()

	c.entities[id] = e
	c.entityList = append(c.entityList, e)
	// 插值基准推迟到第一次逻辑tick捕获 此时字段才有业务赋的初值
	return e
}

// AddPredictedEntity 乐观生成 实体立即参与本地模拟
// 服务器确认到生成时刻的输入后本地副本被销毁 权威副本由快照下发
func (c *Client) AddPredictedEntity(classID entity.ClassID) entity.Synced {
	e := c.AddLocalEntity(classID)
	if e == nil {
		return nil
	}
	c.pendingSpawns = append(c.pendingSpawns, pendingSpawn{tick: c.tick, e: e})
	return e
}

func (c *Client) allocLocalID() entity.ID {
	for n := 0; n < MaxEntityCount-MaxSyncedEntityCount; n++ {
		id := c.localIDCursor
		c.localIDCursor++
		if c.localIDCursor >= MaxEntityCount {
			c.localIDCursor = MaxSyncedEntityCount
		}
		if c.entities[id] == nil {
			return entity.ID(id)
		}
	}
	return entity.InvalidID
}

func (c *Client) ensureScratch(id entity.ID, cd *entity.ClassData) {
	if cd.InterpolatedFieldsSize == 0 {
		return
	}
	c.interpInitial[id] = ensureSize(c.interpInitial[id], cd.InterpolatedFieldsSize)
	c.interpPrev[id] = ensureSize(c.interpPrev[id], cd.InterpolatedFieldsSize)
}

func (c *Client) ensurePredictedImage(id entity.ID, cd *entity.ClassData) []byte {
	c.predictedImages[id] = ensureSize(c.predictedImages[id], cd.FixedFieldsSize)
	return c.predictedImages[id]
}

// ensureSize 扩容不缩容
func ensureSize(b []byte, n int) []byte {
	if cap(b) < n {
		nb := make([]byte, n)
		copy(nb, b)
		return nb
	}
	return b[:n]
}
