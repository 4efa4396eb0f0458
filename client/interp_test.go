package client

import (
	"math"
	"testing"

	"github.com/Logerfo/LiteEntitySystem/entity"
)

func Test_AdaptiveMiddlePointDecay(t *testing.T) {

	v := newEnv(t)
	// 均匀到包 抖动为0 中点从3慢慢衰到下限1
	for i := 0; i < jitterSamplesCount; i++ {
		v.c.pushJitterSample(0.033)
	}

	prev := v.c.adaptiveMiddlePoint
	for i := 0; i < 500; i++ {
		v.c.updateAdaptiveMiddlePoint()
		if v.c.adaptiveMiddlePoint < 1 {
			t.Fatal("adaptiveMiddlePoint < 1")
		}
		if v.c.adaptiveMiddlePoint > prev {
			t.Fatal("midpoint rose without jitter")
		}
		prev = v.c.adaptiveMiddlePoint
	}
	if math.Abs(v.c.adaptiveMiddlePoint-1) > 0.01 {
		t.Errorf("midpoint = %f, want ~1", v.c.adaptiveMiddlePoint)
	}
}

func Test_AdaptiveMiddlePointAttack(t *testing.T) {

	v := newEnv(t)
	// 间隔在0和0.2之间跳 抖动 = 0.2*30 = 6 必须立即跟上
	for i := 0; i < jitterSamplesCount; i++ {
		if i%2 == 0 {
			v.c.pushJitterSample(0.2)
		} else {
			v.c.pushJitterSample(0)
		}
	}
	v.c.updateAdaptiveMiddlePoint()

	if math.Abs(v.c.adaptiveMiddlePoint-6) > 1e-9 {
		t.Errorf("midpoint = %f, want 6 (attack-immediate)", v.c.adaptiveMiddlePoint)
	}
}

func Test_LerpDurationFormula(t *testing.T) {

	v := newEnv(t)
	v.c.Receive(baselinePacket(100, 1))
	v.c.Receive(diffPacket(103, 100, nil))

	if !v.c.preloadNextState() {
		t.Fatal("preload failed")
	}

	// 3个tick * (1/30) * (1 - (0-3)*0.02) 中点样本不足 保持3.0
	want := 3.0 * v.c.deltaTime * 1.06
	if math.Abs(v.c.lerpDuration-want) > 1e-9 {
		t.Errorf("lerpDuration = %f, want %f", v.c.lerpDuration, want)
	}
}

func Test_RemoteInterpolation(t *testing.T) {

	v := newEnv(t)
	v.c.Receive(baselinePacket(100, 1, fullBoxRecord(1, 0, 0, 10, entity.Ref{ID: entity.InvalidID}, 0)))
	v.c.Receive(diffPacket(101, 100, nil, diffRecord(1, maskX, floatBytes(10))))

	if !v.c.preloadNextState() {
		t.Fatal("preload failed")
	}
	if len(v.c.stateB.interpolatedFields) != 1 {
		t.Fatal("interp cache not built")
	}

	v.c.lerpTimer = v.c.lerpDuration / 2
	v.c.interpolateFrame()
	if v.box(1).X() != 5 {
		t.Errorf("x = %f, want 5 at half lerp", v.box(1).X())
	}

	v.c.lerpTimer = v.c.lerpDuration
	v.c.interpolateFrame()
	if v.box(1).X() != 10 {
		t.Errorf("x = %f, want 10 at full lerp", v.box(1).X())
	}
}

func Test_LocalInterpolation(t *testing.T) {

	v := newEnv(t)
	ctrl := &boxController{delta: 3}
	v.c.AddController(ctrl)
	v.c.Receive(baselinePacket(100, 1, fullBoxRecord(1, 0, 0, 10, entity.Ref{ID: entity.InvalidID}, 0)))
	ctrl.controlled = v.box(1)
	v.c.TakeControl(1)

	// 两个tick x从0到3再到6 半帧处应显示4.5
	v.c.Update(v.c.deltaTime)
	v.c.Update(v.c.deltaTime / 2)
	v.c.Update(v.c.deltaTime)

	// 此刻accumulator=deltaTime/2 prev=3 current=6
	if math.Abs(float64(v.box(1).X())-4.5) > 1e-6 {
		t.Errorf("x = %f, want 4.5 at half frame", v.box(1).X())
	}
}

func Test_LerpBufferOrdered(t *testing.T) {

	v := newEnv(t)
	v.c.Receive(baselinePacket(100, 1))

	// 乱序到达 缓冲必须按tick升序
	for _, tick := range []uint16{105, 101, 103, 102, 104} {
		v.c.Receive(diffPacket(tick, 100, nil))
	}
	if len(v.c.lerpBuffer) != 5 {
		t.Fatalf("lerpBuffer len = %d, want 5", len(v.c.lerpBuffer))
	}
	for i, s := range v.c.lerpBuffer {
		if s.tick != uint16(101+i) {
			t.Errorf("lerpBuffer[%d].tick = %d, want %d", i, s.tick, 101+i)
		}
	}

	// 重复tick直接回池
	v.c.Receive(diffPacket(103, 100, nil))
	if len(v.c.lerpBuffer) != 5 {
		t.Error("duplicate tick entered the buffer")
	}
}

func Test_FragmentReassembly(t *testing.T) {

	v := newEnv(t)
	v.c.Receive(baselinePacket(100, 1, fullBoxRecord(1, 0, 0, 10, entity.Ref{ID: entity.InvalidID}, 0)))

	payload := diffPayload(100, 100, nil, diffRecord(1, maskX, floatBytes(77)))
	half := len(payload) / 2

	v.c.Receive(diffFragment(101, false, payload[:half]))
	if len(v.c.lerpBuffer) != 0 {
		t.Fatal("incomplete snapshot entered the buffer")
	}
	if v.c.receivedStates[101] == nil {
		t.Fatal("reassembly record missing")
	}

	v.c.Receive(diffFragment(101, true, payload[half:]))
	if len(v.c.lerpBuffer) != 1 {
		t.Fatal("completed snapshot not buffered")
	}
	if v.c.receivedStates[101] != nil {
		t.Fatal("reassembly record not removed on completion")
	}
	if v.c.lerpBuffer[0].partsCount != 2 {
		t.Error("partsCount != 2")
	}

	v.advanceOnce(t)
	if v.box(1).X() != 77 {
		t.Errorf("x = %f, want 77 after reassembled diff", v.box(1).X())
	}
}
