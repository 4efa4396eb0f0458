package cube

import (
	l4g "github.com/alecthomas/log4go"

	"github.com/Logerfo/LiteEntitySystem/entity"
	"github.com/Logerfo/LiteEntitySystem/protocol"
)

// 演示用的实体和控制器 服务器端按同样的类元数据下发

const (
	ClassCube entity.ClassID = 1

	tickDelta = 1.0 / 30
)

var (
	fieldX      *entity.Field
	fieldY      *entity.Field
	fieldHP     *entity.Field
	fieldTarget *entity.Field
)

// Cube 一个会动的方块 位置插值 血量变化有回调
type Cube struct {
	entity.Base

	// 速度来自输入 不参与同步 回放时由ReadInput重建
	VelX, VelY float32
}

func (c *Cube) X() float32 {
	return entity.GetFloat32(c.Image(), fieldX.Offset)
}

func (c *Cube) SetX(v float32) {
	entity.PutFloat32(c.Image(), fieldX.Offset, v)
}

func (c *Cube) Y() float32 {
	return entity.GetFloat32(c.Image(), fieldY.Offset)
}

func (c *Cube) SetY(v float32) {
	entity.PutFloat32(c.Image(), fieldY.Offset, v)
}

func (c *Cube) HP() uint16 {
	return entity.GetUint16(c.Image(), fieldHP.Offset)
}

func (c *Cube) Target() entity.Ref {
	return entity.GetRef(c.Image(), fieldTarget.Offset)
}

func (c *Cube) Update() {
	c.SetX(c.X() + c.VelX*tickDelta)
	c.SetY(c.Y() + c.VelY*tickDelta)
}

// Register 注册演示类 客户端与服务器启动时各调一次
func Register(reg *entity.Registry) error {
	cd := entity.NewClass(ClassCube, "cube", func() entity.Synced { return &Cube{} })
	cd.AddField(entity.Field{Name: "x", Size: 4, Kind: entity.KindValue, Interp: entity.LerpFloat32})
	cd.AddField(entity.Field{Name: "y", Size: 4, Kind: entity.KindValue, Interp: entity.LerpFloat32})
	cd.AddField(entity.Field{Name: "hp", Size: 2, Kind: entity.KindValue, OnSync: onHPSync})
	cd.AddField(entity.Field{Name: "target", Size: entity.RefSize, Kind: entity.KindEntityRef})
	cd.SetUpdateable(false)
	cd.AddRemoteCall(onExplode)

	if err := reg.Register(cd); nil != err {
		return err
	}

	fieldX = cd.Field("x")
	fieldY = cd.Field("y")
	fieldHP = cd.Field("hp")
	fieldTarget = cd.Field("target")
	return nil
}

func onHPSync(e entity.Synced, prev []byte) {
	c := e.(*Cube)
	l4g.Info("[cube] entity %d hp %d -> %d", c.ID(), entity.GetUint16(prev, 0), c.HP())
}

func onExplode(e entity.Synced, _ int, r *protocol.Reader) {
	radius := entity.GetFloat32(r.ReadBytes(4), 0)
	l4g.Info("[cube] entity %d exploded radius=%f", e.Data().ID(), radius)
}

// Controller 把方向输入写进输入流 回放时同一段字节驱动同一个方块
type Controller struct {
	Controlled *Cube

	// 本帧要发出的输入 由外层(键盘/演示AI)写入
	InputX, InputY float32
}

func (ct *Controller) GenerateInput(w *protocol.Writer) {
	var buf [8]byte
	entity.PutFloat32(buf[:], 0, ct.InputX)
	entity.PutFloat32(buf[:], 4, ct.InputY)
	w.PutBytes(buf[:])
}

func (ct *Controller) ReadInput(r *protocol.Reader) {
	b := r.ReadBytes(8)
	if b == nil || ct.Controlled == nil {
		return
	}
	ct.Controlled.VelX = entity.GetFloat32(b, 0)
	ct.Controlled.VelY = entity.GetFloat32(b, 4)
}
