package client

import (
	"testing"

	"github.com/Logerfo/LiteEntitySystem/entity"
	"github.com/Logerfo/LiteEntitySystem/protocol"
)

// 测试环境 伪传输+手搓服务器包

const (
	classBox   entity.ClassID = 7
	classChest entity.ClassID = 8

	boxOffX    = 0
	boxOffHP   = 4
	boxOffTgt  = 6
	boxOffAura = 9

	maskX    = 1 << 0
	maskHP   = 1 << 1
	maskTgt  = 1 << 2
	maskAura = 1 << 3

	maskGold = 1 << 0
)

type boxEnt struct {
	entity.Base
}

func (b *boxEnt) X() float32       { return entity.GetFloat32(b.Image(), boxOffX) }
func (b *boxEnt) SetX(v float32)   { entity.PutFloat32(b.Image(), boxOffX, v) }
func (b *boxEnt) HP() uint16       { return entity.GetUint16(b.Image(), boxOffHP) }
func (b *boxEnt) SetHP(v uint16)   { entity.PutUint16(b.Image(), boxOffHP, v) }
func (b *boxEnt) Aura() uint8      { return entity.GetUint8(b.Image(), boxOffAura) }
func (b *boxEnt) SetAura(v uint8)  { entity.PutUint8(b.Image(), boxOffAura, v) }
func (b *boxEnt) Tgt() entity.Ref  { return entity.GetRef(b.Image(), boxOffTgt) }

type inventory struct {
	entity.SyncableBase

	rpcID    uint8
	rpcCount int
}

func (s *inventory) OnRemoteCall(id uint8, count int, r *protocol.Reader) {
	s.rpcID = id
	s.rpcCount++
}

type chestEnt struct {
	entity.Base
	inv inventory
}

func (c *chestEnt) Gold() uint16 {
	return entity.GetUint16(c.inv.Blob(), 0)
}

// boxController 输入是x的增量 回放同一串输入必然得到同一个x
type boxController struct {
	controlled *boxEnt
	delta      float32
}

func (ct *boxController) GenerateInput(w *protocol.Writer) {
	var buf [4]byte
	entity.PutFloat32(buf[:], 0, ct.delta)
	w.PutBytes(buf[:])
}

func (ct *boxController) ReadInput(r *protocol.Reader) {
	b := r.ReadBytes(4)
	if b == nil || ct.controlled == nil {
		return
	}
	ct.controlled.SetX(ct.controlled.X() + entity.GetFloat32(b, 0))
}

type fakeTransport struct {
	sent     [][]byte
	mtu      uint16
	triggers int
}

func (f *fakeTransport) Send(b []byte, _ bool) error {
	c := make([]byte, len(b))
	copy(c, b)
	f.sent = append(f.sent, c)
	return nil
}

func (f *fakeTransport) MaxSinglePacketSize(_ bool) uint16 {
	if f.mtu == 0 {
		return protocol.MaxUnreliableDataSize
	}
	return f.mtu
}

func (f *fakeTransport) TriggerUpdate() { f.triggers++ }
func (f *fakeTransport) Close() error   { return nil }

type env struct {
	c  *Client
	tr *fakeTransport

	syncPrevHP []uint16
	rpcRadii   []float32
}

func newEnv(t *testing.T) *env {
	t.Helper()
	v := &env{tr: &fakeTransport{}}

	reg := entity.NewRegistry()

	box := entity.NewClass(classBox, "box", func() entity.Synced { return &boxEnt{} })
	box.AddField(entity.Field{Name: "x", Size: 4, Kind: entity.KindValue, Interp: entity.LerpFloat32})
	box.AddField(entity.Field{Name: "hp", Size: 2, Kind: entity.KindValue, OnSync: func(e entity.Synced, prev []byte) {
		v.syncPrevHP = append(v.syncPrevHP, entity.GetUint16(prev, 0))
	}})
	box.AddField(entity.Field{Name: "tgt", Size: entity.RefSize, Kind: entity.KindEntityRef})
	box.AddField(entity.Field{Name: "aura", Size: 1, Kind: entity.KindValue, Flags: entity.FlagOnlyForRemote})
	box.AddRemoteCall(func(e entity.Synced, count int, r *protocol.Reader) {
		v.rpcRadii = append(v.rpcRadii, entity.GetFloat32(r.ReadBytes(4), 0))
	})
	if err := reg.Register(box); nil != err {
		t.Fatal(err)
	}

	chest := entity.NewClass(classChest, "chest", func() entity.Synced {
		e := &chestEnt{}
		e.inv.InitBlob(4)
		e.BindSyncables(&e.inv)
		return e
	})
	chest.SetSyncableCount(1)
	chest.AddField(entity.Field{Name: "gold", Size: 2, Kind: entity.KindSyncableVar, Offset: 0, SyncableIndex: 0})
	if err := reg.Register(chest); nil != err {
		t.Fatal(err)
	}

	v.c = NewClient(v.tr, reg, Options{TickRate: 30})
	return v
}

func (v *env) box(id entity.ID) *boxEnt {
	e, _ := v.c.EntityByID(id).(*boxEnt)
	return e
}

func (v *env) chest(id entity.ID) *chestEnt {
	e, _ := v.c.EntityByID(id).(*chestEnt)
	return e
}

// ---- 包构造 ----

// lz4LiteralBlock 纯literal的合法lz4块 测试载荷太短 CompressBlock会拒压
func lz4LiteralBlock(src []byte) []byte {
	out := make([]byte, 0, len(src)+4)
	n := len(src)
	if n < 15 {
		out = append(out, byte(n)<<4)
	} else {
		out = append(out, 15<<4)
		rem := n - 15
		for rem >= 255 {
			out = append(out, 255)
			rem -= 255
		}
		out = append(out, byte(rem))
	}
	return append(out, src...)
}

func record(id uint16, flags uint8, body []byte) []byte {
	w := protocol.NewWriter(protocol.EntityRecordHeaderSize + len(body))
	w.PutUint16(uint16(protocol.EntityRecordHeaderSize + len(body)))
	w.PutUint16(id)
	w.PutUint8(flags)
	w.PutBytes(body)
	return w.Data()
}

func fullBoxRecord(id uint16, version uint8, x float32, hp uint16, tgt entity.Ref, aura uint8) []byte {
	w := protocol.NewWriter(16)
	w.PutUint8(version)
	w.PutUint16(uint16(classBox))
	var f [4]byte
	entity.PutFloat32(f[:], 0, x)
	w.PutBytes(f[:])
	w.PutUint16(hp)
	var rb [entity.RefSize]byte
	entity.PutRef(rb[:], 0, tgt)
	w.PutBytes(rb[:])
	w.PutUint8(aura)
	return record(id, protocol.RecordFlagFullSync, w.Data())
}

func fullChestRecord(id uint16, version uint8, gold uint16, blob []byte) []byte {
	w := protocol.NewWriter(16)
	w.PutUint8(version)
	w.PutUint16(uint16(classChest))
	w.PutUint16(gold)
	w.PutUint16(uint16(len(blob)))
	w.PutBytes(blob)
	return record(id, protocol.RecordFlagFullSync, w.Data())
}

func diffRecord(id uint16, mask uint8, fields []byte) []byte {
	body := append([]byte{mask}, fields...)
	return record(id, 0, body)
}

func rpcRecord(entityID uint16, fieldID, rpcID uint8, tick uint16, count uint16, payload []byte) []byte {
	w := protocol.NewWriter(protocol.RPCRecordHeaderSize + len(payload))
	w.PutUint16(entityID)
	w.PutUint8(fieldID)
	w.PutUint8(rpcID)
	w.PutUint16(tick)
	w.PutUint16(count)
	w.PutUint16(uint16(len(payload)))
	w.PutBytes(payload)
	return w.Data()
}

func baselinePacket(tick uint16, playerID uint8, records ...[]byte) []byte {
	payload := protocol.NewWriter(64)
	payload.PutUint16(tick)
	for _, r := range records {
		payload.PutBytes(r)
	}

	w := protocol.NewWriter(64)
	w.PutUint8(protocol.HeaderByte)
	w.PutUint8(protocol.KindBaselineSync)
	w.PutUint32(uint32(payload.Len()))
	w.PutUint8(playerID)
	w.PutBytes(lz4LiteralBlock(payload.Data()))
	return w.Data()
}

func diffPayload(processedTick, lastReceivedTick uint16, rpcs [][]byte, records ...[]byte) []byte {
	w := protocol.NewWriter(64)
	w.PutUint16(processedTick)
	w.PutUint16(lastReceivedTick)
	w.PutUint16(uint16(len(rpcs)))
	for _, r := range rpcs {
		w.PutBytes(r)
	}
	for _, r := range records {
		w.PutBytes(r)
	}
	return w.Data()
}

func diffFragment(tick uint16, last bool, fragment []byte) []byte {
	w := protocol.NewWriter(protocol.DiffHeaderSize + len(fragment))
	w.PutUint8(protocol.HeaderByte)
	if last {
		w.PutUint8(protocol.KindDiffSyncLast)
	} else {
		w.PutUint8(protocol.KindDiffSync)
	}
	w.PutUint16(tick)
	w.PutBytes(fragment)
	return w.Data()
}

// diffPacket 单分片的完整差分
func diffPacket(tick, processedTick uint16, rpcs [][]byte, records ...[]byte) []byte {
	return diffFragment(tick, true, diffPayload(processedTick, processedTick, rpcs, records...))
}

func floatBytes(v float32) []byte {
	var b [4]byte
	entity.PutFloat32(b[:], 0, v)
	return b[:]
}

func uint16Bytes(v uint16) []byte {
	var b [2]byte
	entity.PutUint16(b[:], 0, v)
	return b[:]
}

// advanceOnce 手动把插值目标落地 等价于计时器走满一段
func (v *env) advanceOnce(t *testing.T) {
	t.Helper()
	if v.c.stateB == nil && !v.c.preloadNextState() {
		t.Fatal("no state to advance to")
	}
	v.c.lerpTimer = v.c.lerpDuration
	v.c.goToNextState(true)
}
