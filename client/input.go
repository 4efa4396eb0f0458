package client

import (
	l4g "github.com/alecthomas/log4go"

	"github.com/Logerfo/LiteEntitySystem/pkg/seq"
	"github.com/Logerfo/LiteEntitySystem/protocol"
)

type inputCommand struct {
	tick uint16
	w    *protocol.Writer
}

// buildInput 每逻辑tick构造一条输入 固定头+各控制器的载荷 并立即在本地应用
func (c *Client) buildInput() {
	if len(c.controllers) == 0 {
		return
	}

	in := c.inputFromPool()
	in.tick = c.tick
	w := in.w
	w.Reset()

	h := protocol.InputPacketHeader{
		StateATick: c.stateA.tick,
		StateBTick: c.stateA.tick,
		LerpMsec:   uint16(c.lerpTimer * 1000),
	}
	if c.stateB != nil {
		h.StateBTick = c.stateB.tick
	}
	h.WriteTo(w)

	for _, ctrl := range c.controllers {
		mark := w.Len()
		ctrl.GenerateInput(w)
		if w.Len() > protocol.MaxUnreliableDataSize-2 {
			l4g.Error("[client] tick %d input payload overflow (%d bytes), rest skipped", c.tick, w.Len())
			w.Truncate(mark)
			break
		}
	}

	r := protocol.NewReader(w.Data())
	r.SetPos(protocol.InputPacketHeaderSize)
	for _, ctrl := range c.controllers {
		ctrl.ReadInput(r)
	}

	c.inputCommands = append(c.inputCommands, in)
	if len(c.inputCommands) > InputBufferSize {
		l4g.Warn("[client] input buffer overflow (%d), clearing queue", len(c.inputCommands))
		c.clearInputQueue()
	}
}

// flushInputs 未确认输入从旧到新打包 超过MTU就切包 整体最多MaxSavedStateDiff条
func (c *Client) flushInputs() {
	if c.transport == nil || len(c.inputCommands) == 0 {
		return
	}
	mtu := int(c.transport.MaxSinglePacketSize(true))
	w := c.sendWriter

	startPacket := func() {
		w.Reset()
		w.PutUint8(protocol.HeaderByte)
		w.PutUint8(protocol.KindClientSync)
		w.PutUint16(0)
	}
	emit := func(startTick uint16) {
		if w.Len() <= protocol.ClientSyncHeaderSize {
			return
		}
		w.SetUint16At(2, startTick)
		if err := c.transport.Send(w.Data(), true); nil != err {
			l4g.Error("[client] input send failed: %v", err)
		}
	}

	startPacket()
	var startTick uint16
	started := false
	packed := 0
	for _, in := range c.inputCommands {
		if packed >= MaxSavedStateDiff {
			break
		}
		if seq.Diff(in.tick, c.lastReceivedInputTick) <= 0 {
			continue
		}
		need := 2 + in.w.Len()
		if started && w.Len()+need > mtu {
			emit(startTick)
			startPacket()
			started = false
		}
		if !started {
			startTick = in.tick
			started = true
		}
		w.PutUint16(uint16(in.w.Len()))
		w.PutBytes(in.w.Data())
		packed++
	}
	if started {
		emit(startTick)
	}
	c.transport.TriggerUpdate()
}

// trimAckedInputs 预载新目标后丢掉已被服务器消费的输入
func (c *Client) trimAckedInputs(processedTick uint16) {
	n := 0
	for _, in := range c.inputCommands {
		if seq.Diff(in.tick, processedTick) <= 0 {
			c.poolInput(in)
			continue
		}
		c.inputCommands[n] = in
		n++
	}
	c.inputCommands = c.inputCommands[:n]
}

func (c *Client) clearInputQueue() {
	for _, in := range c.inputCommands {
		c.poolInput(in)
	}
	c.inputCommands = c.inputCommands[:0]
}

func (c *Client) inputFromPool() *inputCommand {
	n := len(c.inputPool)
	if n == 0 {
		return &inputCommand{w: protocol.NewWriter(64)}
	}
	in := c.inputPool[n-1]
	c.inputPool = c.inputPool[:n-1]
	return in
}

func (c *Client) poolInput(in *inputCommand) {
	in.w.Reset()
	if len(c.inputPool) < InputBufferSize {
		c.inputPool = append(c.inputPool, in)
	}
}
