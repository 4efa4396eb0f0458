package client

import (
	l4g "github.com/alecthomas/log4go"
	"github.com/pierrec/lz4/v4"

	"github.com/Logerfo/LiteEntitySystem/pkg/seq"
	"github.com/Logerfo/LiteEntitySystem/protocol"
)

// Receive 投递一个完整的入站数据报 必须与Update同goroutine调用
// 任何畸形输入都只丢弃和打日志 不向上抛
func (c *Client) Receive(packet []byte) {
	if len(packet) < 2 || packet[0] != protocol.HeaderByte {
		return
	}
	r := protocol.NewReader(packet)
	r.Skip(1)
	switch r.ReadUint8() {
	case protocol.KindBaselineSync:
		c.readBaseline(r)
	case protocol.KindDiffSync:
		c.readDiff(r, false)
	case protocol.KindDiffSyncLast:
		c.readDiff(r, true)
	default:
		l4g.Warn("[client] unknown packet kind %d", packet[1])
	}
}

// maxBaselineSize 基线解压尺寸的理智上限 防止畸形包让客户端分配内存
const maxBaselineSize = 1 << 20

func (c *Client) readBaseline(r *protocol.Reader) {
	decompressedSize := int(r.ReadUint32())
	playerID := r.ReadUint8()
	if !r.IsValid() || decompressedSize <= 0 || decompressedSize > maxBaselineSize {
		l4g.Error("[client] baseline header invalid, size=%d", decompressedSize)
		return
	}
	compressed := r.ReadBytes(r.Remaining())

	s := c.stateFromPool()
	s.ensureData(decompressedSize)
	n, err := lz4.UncompressBlock(compressed, s.data)
	if nil != err || n != decompressedSize {
		l4g.Error("[client] baseline lz4 decode mismatch: got %d want %d err=%v", n, decompressedSize, err)
		c.poolState(s)
		return
	}
	s.size = n

	br := protocol.NewReader(s.data[:s.size])
	tick := br.ReadUint16()
	if !br.IsValid() {
		l4g.Error("[client] baseline payload truncated")
		c.poolState(s)
		return
	}

	s.tick = tick
	s.isBaseline = true
	s.processedTick = tick
	s.lastReceivedTick = tick

	if c.stateB != nil {
		c.poolState(c.stateB)
		c.stateB = nil
	}
	if c.stateA != nil {
		c.poolState(c.stateA)
	}
	c.stateA = s

	// 缓冲里比基线旧的快照已无意义
	kept := c.lerpBuffer[:0]
	for _, bs := range c.lerpBuffer {
		if seq.Diff(bs.tick, tick) > 0 {
			kept = append(kept, bs)
		} else {
			c.poolState(bs)
		}
	}
	c.lerpBuffer = kept

	for tk, rs := range c.receivedStates {
		if seq.Diff(tk, tick) <= 0 {
			c.poolState(rs)
			delete(c.receivedStates, tk)
		}
	}

	c.clearInputQueue()
	c.internalPlayerID = playerID
	c.jitterTimer = 0
	c.lerpTimer = 0
	c.lerpDuration = 0
	c.remoteCallsTick = tick
	c.lastReceivedInputTick = tick
	c.tick = tick

	for br.IsValid() && br.Remaining() >= protocol.EntityRecordHeaderSize {
		start := br.Pos()
		total := int(br.ReadUint16())
		id := br.ReadUint16()
		flags := br.ReadUint8()
		if total < protocol.EntityRecordHeaderSize || start+total > s.size {
			l4g.Error("[client] baseline entity record size %d invalid", total)
			break
		}
		if flags&protocol.RecordFlagFullSync == 0 {
			l4g.Error("[client] baseline carries non-fullsync record for entity %d", id)
			break
		}
		c.fullSyncRead(s, br, id)
		if !br.IsValid() {
			break
		}
		br.SetPos(start + total)
	}
	c.flushOnSyncQueue(s)

	l4g.Info("[client] baseline installed tick=%d player=%d entities=%d", tick, playerID, len(c.entityList))
}

func (c *Client) readDiff(r *protocol.Reader, last bool) {
	packetTick := r.ReadUint16()
	if !r.IsValid() {
		return
	}
	if c.stateA == nil {
		// 基线之前的差分无从应用
		return
	}
	if seq.Diff(packetTick, c.stateA.tick) <= 0 {
		return
	}

	c.pushJitterSample(c.jitterTimer)
	c.jitterTimer = 0

	s := c.receivedStates[packetTick]
	if s == nil {
		if len(c.receivedStates) >= MaxSavedStateDiff {
			oldest := packetTick
			first := true
			for t := range c.receivedStates {
				if first || seq.Diff(t, oldest) < 0 {
					oldest = t
					first = false
				}
			}
			if seq.Diff(packetTick, oldest) <= 0 {
				return
			}
			l4g.Warn("[client] reassembly full, evicting tick %d for %d", oldest, packetTick)
			c.poolState(c.receivedStates[oldest])
			delete(c.receivedStates, oldest)
		}
		s = c.stateFromPool()
		s.tick = packetTick
		c.receivedStates[packetTick] = s
	}

	frag := r.ReadBytes(r.Remaining())
	s.data = append(s.data[:s.size], frag...)
	s.size = len(s.data)
	s.partsCount++

	if last {
		delete(c.receivedStates, packetTick)
		c.onStateComplete(s)
	}
}

// onStateComplete 完整快照进入插值缓冲 缓冲满且来者更新时强制推进一次
func (c *Client) onStateComplete(s *serverState) {
	if c.stateA != nil && seq.Diff(s.tick, c.stateA.tick) <= 0 {
		c.poolState(s)
		return
	}
	if len(c.lerpBuffer) < InterpolateBufferSize {
		c.insertLerpState(s)
		return
	}
	if seq.Diff(s.tick, c.lerpBuffer[0].tick) > 0 {
		if c.stateB == nil {
			c.preloadNextState()
		}
		if c.stateB != nil {
			c.lerpTimer = c.lerpDuration
			c.goToNextState(false)
		}
		c.insertLerpState(s)
	} else {
		c.poolState(s)
	}
}

func (c *Client) insertLerpState(s *serverState) {
	at := len(c.lerpBuffer)
	for i, bs := range c.lerpBuffer {
		d := seq.Diff(s.tick, bs.tick)
		if d == 0 {
			c.poolState(s)
			return
		}
		if d < 0 {
			at = i
			break
		}
	}
	c.lerpBuffer = append(c.lerpBuffer, nil)
	copy(c.lerpBuffer[at+1:], c.lerpBuffer[at:])
	c.lerpBuffer[at] = s
}

func (c *Client) stateFromPool() *serverState {
	n := len(c.statesPool)
	if n == 0 {
		return &serverState{}
	}
	s := c.statesPool[n-1]
	c.statesPool = c.statesPool[:n-1]
	return s
}

func (c *Client) poolState(s *serverState) {
	s.reset()
	if len(c.statesPool) < MaxSavedStateDiff {
		c.statesPool = append(c.statesPool, s)
	}
}
