package client

import (
	"math"

	l4g "github.com/alecthomas/log4go"

	"github.com/Logerfo/LiteEntitySystem/entity"
	"github.com/Logerfo/LiteEntitySystem/network"
	"github.com/Logerfo/LiteEntitySystem/pkg/seq"
	"github.com/Logerfo/LiteEntitySystem/protocol"
)

const (
	// MaxSyncedEntityCount 服务器可同步实体id上限
	MaxSyncedEntityCount = 8192
	// MaxEntityCount 含本地实体的总上限 本地实体id从MaxSyncedEntityCount开始分配
	MaxEntityCount = MaxSyncedEntityCount + 1024

	// MaxSavedStateDiff 重组表和快照池的上限 也是单次发送的输入条数上限
	MaxSavedStateDiff = 30
	// InterpolateBufferSize 插值缓冲的快照上限
	InterpolateBufferSize = 10
	// InputBufferSize 未确认输入的安全上限 超过即整队清空
	InputBufferSize = 128

	jitterSamplesCount = 10
)

// Mode 引擎当前所处的更新模式 实体代码可据此区分正常tick和回滚重放
type Mode int

const (
	ModeNormal Mode = iota
	ModePredictionRollback
)

// HumanController 人类输入控制器 生成和消费的字节对引擎不透明
type HumanController interface {
	GenerateInput(w *protocol.Writer)
	ReadInput(r *protocol.Reader)
}

type Options struct {
	// TickRate 逻辑tick频率 必须与服务器一致
	TickRate int
}

func (o *Options) applyDefaults() {
	if o.TickRate <= 0 {
		o.TickRate = 30
	}
}

// Client 客户端实体引擎 严格单线程 收包和帧更新必须来自同一个goroutine
type Client struct {
	opts      Options
	deltaTime float64

	transport network.Transport
	registry  *entity.Registry

	entities   []entity.Synced
	entityList []entity.Synced

	controllers []HumanController

	stateA *serverState
	stateB *serverState

	lerpBuffer     []*serverState
	receivedStates map[uint16]*serverState
	statesPool     []*serverState

	lerpTimer           float64
	lerpDuration        float64
	adaptiveMiddlePoint float64

	jitterTimer   float64
	jitterSamples [jitterSamplesCount]float64
	jitterCount   int
	jitterIndex   int

	inputCommands []*inputCommand
	inputPool     []*inputCommand
	sendWriter    *protocol.Writer

	predictedImages [][]byte
	interpInitial   [][]byte
	interpPrev      [][]byte

	pendingSpawns []pendingSpawn
	onSyncQueue   []onSyncEntry

	tick                  uint16
	lastFlushTick         int32
	accumulator           float64
	mode                  Mode
	remoteCallsTick       uint16
	lastReceivedInputTick uint16
	internalPlayerID      uint8
	localIDCursor         int
}

func NewClient(transport network.Transport, registry *entity.Registry, opts Options) *Client {
	opts.applyDefaults()
	return &Client{
		opts:                opts,
		deltaTime:           1.0 / float64(opts.TickRate),
		transport:           transport,
		registry:            registry,
		entities:            make([]entity.Synced, MaxEntityCount),
		receivedStates:      make(map[uint16]*serverState),
		predictedImages:     make([][]byte, MaxEntityCount),
		interpInitial:       make([][]byte, MaxEntityCount),
		interpPrev:          make([][]byte, MaxEntityCount),
		sendWriter:          protocol.NewWriter(protocol.MaxUnreliableDataSize),
		adaptiveMiddlePoint: 3.0,
		lastFlushTick:       -1,
		localIDCursor:       MaxSyncedEntityCount,
	}
}

func (c *Client) Mode() Mode              { return c.mode }
func (c *Client) Tick() uint16            { return c.tick }
func (c *Client) InternalPlayerID() uint8 { return c.internalPlayerID }

// RawTargetTick 当前插值目标快照的tick 没有目标时返回基准快照的
func (c *Client) RawTargetTick() uint16 {
	if c.stateB != nil {
		return c.stateB.tick
	}
	if c.stateA != nil {
		return c.stateA.tick
	}
	return 0
}

func (c *Client) AddController(ctrl HumanController) {
	c.controllers = append(c.controllers, ctrl)
}

// EntityByID 查同步实体表 越界或空槽返回nil
func (c *Client) EntityByID(id entity.ID) entity.Synced {
	if int(id) >= MaxEntityCount {
		return nil
	}
	return c.entities[id]
}

// EntityByRef 解析引用 version不匹配说明引用指向已死亡的实体
func (c *Client) EntityByRef(r entity.Ref) entity.Synced {
	if !r.IsValid() {
		return nil
	}
	e := c.EntityByID(r.ID)
	if e == nil || e.Data().Version() != r.Version {
		return nil
	}
	return e
}

// Update 每视觉帧调用一次 dt为真实经过秒数
func (c *Client) Update(dt float64) {
	c.jitterTimer += dt

	c.accumulator += dt
	for c.accumulator >= c.deltaTime {
		c.logicTick()
		c.accumulator -= c.deltaTime
	}

	if c.stateA != nil {
		if c.stateB == nil {
			c.preloadNextState()
		}
		if c.stateB != nil {
			c.lerpTimer += dt
			if c.lerpTimer >= c.lerpDuration {
				c.goToNextState(true)
			}
		}
	}

	if int32(c.tick) != c.lastFlushTick {
		c.flushInputs()
		c.lastFlushTick = int32(c.tick)
	}

	c.interpolateFrame()

	progress := float32(c.accumulator / c.deltaTime)
	for _, e := range c.entityList {
		e.VisualUpdate(progress)
	}
}

func (c *Client) logicTick() {
	c.tick++

	if c.stateB != nil && c.lerpDuration > 0 {
		c.executeRemoteCalls()
	}

	// 本地插值基准翻页 先把活动字段恢复成本tick真实值
	for _, e := range c.entityList {
		b := e.Data()
		if !b.IsLocal() && !b.IsLocalControlled() {
			continue
		}
		id := b.ID()
		if c.interpInitial[id] == nil {
			continue
		}
		c.restoreInterpolated(e, c.interpInitial[id])
		c.interpPrev[id], c.interpInitial[id] = c.interpInitial[id], c.interpPrev[id]
	}

	if c.stateA != nil {
		c.buildInput()
	}

	for _, e := range c.entityList {
		b := e.Data()
		cd := b.Class()
		if !cd.IsUpdateable {
			continue
		}
		if b.IsLocalControlled() || b.IsLocal() || cd.UpdateOnClient {
			e.Update()
		}
	}

	for _, e := range c.entityList {
		b := e.Data()
		if !b.IsLocal() && !b.IsLocalControlled() {
			continue
		}
		cd := b.Class()
		if cd.InterpolatedFieldsSize == 0 {
			continue
		}
		id := b.ID()
		buf := c.interpInitial[id]
		if buf == nil {
			buf = make([]byte, cd.InterpolatedFieldsSize)
			c.interpInitial[id] = buf
		}
		c.captureInterpolated(e, buf)
	}
}

// executeRemoteCalls tick序精确重放RPC 每条至多触发一次
func (c *Client) executeRemoteCalls() {
	logicLerp := c.lerpTimer / c.lerpDuration
	if logicLerp > 1 {
		logicLerp = 1
	} else if logicLerp < 0 {
		logicLerp = 0
	}
	serverTick := c.stateA.tick + uint16(math.Round(float64(seq.Diff(c.stateB.tick, c.stateA.tick))*logicLerp))

	maxTick := c.remoteCallsTick
	fired := false
	for i := range c.stateB.remoteCalls {
		rc := &c.stateB.remoteCalls[i]
		if seq.Diff(rc.tick, c.remoteCallsTick) <= 0 || seq.Diff(rc.tick, serverTick) > 0 {
			continue
		}
		c.dispatchRemoteCall(rc)
		if !fired || seq.Diff(rc.tick, maxTick) > 0 {
			maxTick = rc.tick
			fired = true
		}
	}
	if fired {
		c.remoteCallsTick = maxTick
	}
}

func (c *Client) dispatchRemoteCall(rc *remoteCallCache) {
	e := c.EntityByID(rc.entityID)
	if e == nil {
		return
	}
	r := protocol.NewReader(c.stateB.data[rc.offset : rc.offset+rc.size])
	b := e.Data()
	if rc.fieldID == protocol.RPCTargetEntity {
		calls := b.Class().RemoteCalls
		if int(rc.rpcID) >= len(calls) {
			l4g.Error("[client] rpc id %d out of range for class %s", rc.rpcID, b.Class().Name)
			return
		}
		calls[rc.rpcID](e, rc.count, r)
		return
	}
	s := b.SyncableAt(int(rc.fieldID))
	if s == nil {
		l4g.Error("[client] rpc field %d not bound on class %s", rc.fieldID, b.Class().Name)
		return
	}
	s.OnRemoteCall(rc.rpcID, rc.count, r)
}

// interpolateFrame 远端实体A->B插值 本地实体prev->current插值
func (c *Client) interpolateFrame() {
	if c.stateB != nil && c.lerpDuration > 0 {
		fTimer := float32(c.lerpTimer / c.lerpDuration)
		if fTimer > 1 {
			fTimer = 1
		}
		for _, pi := range c.stateB.interpolatedFields {
			pe := &c.stateB.preload[pi]
			e := c.EntityByID(pe.entityID)
			if e == nil || !e.Data().IsServerControlled() {
				continue
			}
			initial := c.interpInitial[pe.entityID]
			if initial == nil {
				continue
			}
			for _, ic := range pe.interpCaches {
				f := ic.field
				dst := e.Data().FieldData(f)
				if dst == nil {
					continue
				}
				f.Interp(
					initial[f.FixedOffset:f.FixedOffset+f.Size],
					c.stateB.data[ic.readerOffset:ic.readerOffset+f.Size],
					dst[:f.Size],
					fTimer,
				)
			}
		}
	}

	progress := float32(c.accumulator / c.deltaTime)
	for _, e := range c.entityList {
		b := e.Data()
		if !b.IsLocal() && !b.IsLocalControlled() {
			continue
		}
		id := b.ID()
		prev := c.interpPrev[id]
		cur := c.interpInitial[id]
		if prev == nil || cur == nil {
			continue
		}
		cd := b.Class()
		for fi := range cd.Fields {
			f := &cd.Fields[fi]
			if f.Interp == nil {
				continue
			}
			dst := b.FieldData(f)
			if dst == nil {
				continue
			}
			f.Interp(
				prev[f.FixedOffset:f.FixedOffset+f.Size],
				cur[f.FixedOffset:f.FixedOffset+f.Size],
				dst[:f.Size],
				progress,
			)
		}
	}
}

func (c *Client) captureInterpolated(e entity.Synced, buf []byte) {
	b := e.Data()
	cd := b.Class()
	for fi := range cd.Fields {
		f := &cd.Fields[fi]
		if f.Interp == nil {
			continue
		}
		src := b.FieldData(f)
		if src == nil {
			continue
		}
		copy(buf[f.FixedOffset:f.FixedOffset+f.Size], src[:f.Size])
	}
}

func (c *Client) restoreInterpolated(e entity.Synced, buf []byte) {
	b := e.Data()
	cd := b.Class()
	for fi := range cd.Fields {
		f := &cd.Fields[fi]
		if f.Interp == nil {
			continue
		}
		dst := b.FieldData(f)
		if dst == nil {
			continue
		}
		copy(dst[:f.Size], buf[f.FixedOffset:f.FixedOffset+f.Size])
	}
}
