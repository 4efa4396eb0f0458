package client

import (
	"math"

	"github.com/Logerfo/LiteEntitySystem/pkg/seq"
)

// preloadNextState 缓冲最小tick出队成为插值目标 并重算本段插值时长
func (c *Client) preloadNextState() bool {
	if c.stateB != nil || len(c.lerpBuffer) == 0 || c.stateA == nil {
		return false
	}

	c.stateB = c.lerpBuffer[0]
	copy(c.lerpBuffer, c.lerpBuffer[1:])
	c.lerpBuffer = c.lerpBuffer[:len(c.lerpBuffer)-1]

	c.updateAdaptiveMiddlePoint()

	tickDelta := float64(seq.Diff(c.stateB.tick, c.stateA.tick))
	c.lerpDuration = tickDelta * c.deltaTime *
		(1 - (float64(len(c.lerpBuffer))-c.adaptiveMiddlePoint)*0.02)

	c.preloadState(c.stateB)

	c.trimAckedInputs(c.stateB.processedTick)
	if seq.Diff(c.stateB.lastReceivedTick, c.lastReceivedInputTick) > 0 {
		c.lastReceivedInputTick = c.stateB.lastReceivedTick
	}
	return true
}

// updateAdaptiveMiddlePoint 抖动中点 突增立即跟上 回落缓慢衰减 下限1
func (c *Client) updateAdaptiveMiddlePoint() {
	if c.jitterCount < 2 {
		return
	}
	fps := 1.0 / c.deltaTime

	maxJitter := 0.0
	sum := 0.0
	n := 0
	for i := 0; i+1 < c.jitterCount; i++ {
		j := math.Abs(c.jitterSamples[i]-c.jitterSamples[i+1]) * fps
		if j > maxJitter {
			maxJitter = j
		}
		sum += j
		n++
	}

	if maxJitter > c.adaptiveMiddlePoint {
		c.adaptiveMiddlePoint = maxJitter
		return
	}
	target := math.Max(1, sum/float64(n))
	c.adaptiveMiddlePoint += (target - c.adaptiveMiddlePoint) * 0.05
}

func (c *Client) pushJitterSample(v float64) {
	c.jitterSamples[c.jitterIndex] = v
	c.jitterIndex = (c.jitterIndex + 1) % jitterSamplesCount
	if c.jitterCount < jitterSamplesCount {
		c.jitterCount++
	}
}

// goToNextState 把stateB落地成新的stateA 应用记录 回滚重放 预载下一个目标
func (c *Client) goToNextState(preloadAfter bool) {
	if c.stateB == nil {
		return
	}
	prevDuration := c.lerpDuration

	old := c.stateA
	c.stateA = c.stateB
	c.stateB = nil
	if old != nil {
		c.poolState(old)
	}

	s := c.stateA
	for i := range s.preload {
		pe := &s.preload[i]
		if pe.fieldsOffset < 0 {
			c.readFullSyncEntry(s, pe)
		} else {
			c.readDiffEntry(s, pe)
		}
	}
	c.flushOnSyncQueue(s)

	c.lerpTimer -= prevDuration

	c.rollbackAndReplay()

	if preloadAfter && c.preloadNextState() && c.lerpDuration > 0 {
		c.lerpTimer *= prevDuration / c.lerpDuration
	}
}
