package entity

// 常用插值函数 都是纯函数 不持有状态

// LerpFloat32 4字节float线性插值
func LerpFloat32(prev, next, dst []byte, t float32) {
	a := GetFloat32(prev, 0)
	b := GetFloat32(next, 0)
	PutFloat32(dst, 0, a+(b-a)*t)
}

// LerpVec2 两个连续float32
func LerpVec2(prev, next, dst []byte, t float32) {
	LerpFloat32(prev, next, dst, t)
	LerpFloat32(prev[4:], next[4:], dst[4:], t)
}

// StepLatest 不插值 直接取目标值 用于必须逐tick跳变的字段
func StepLatest(prev, next, dst []byte, t float32) {
	_ = prev
	copy(dst[:len(next)], next)
}
