package protocol

/*

包的外层结构(大端)

s->c 基线包
|--header(uint8)--|--kind(uint8)--|--decompressedSize(uint32)--|--playerID(uint8)--|--lz4Block--|

s->c 差分分片包(DiffSync / DiffSyncLast)
|--header(uint8)--|--kind(uint8)--|--tick(uint16)--|--fragment--|

c->s 输入包
|--header(uint8)--|--kind(uint8)--|--startTick(uint16)--|[--length(uint16)--|--InputPacketHeader--|--payload--]*

基线包解压后的内容
|--tick(uint16)--|--entityRecord--|--entityRecord--|...

差分包重组后的内容
|--processedTick(uint16)--|--lastReceivedTick(uint16)--|--rpcCount(uint16)--|--rpcRecord*--|--entityRecord*--|

实体记录
|--size(uint16)--|--entityID(uint16)--|--flags(uint8)--|--body--|
全量: body = version(uint8) | classID(uint16) | 所有字段(声明序) | [blobLen(uint16) blob]*
差分: body = bitfield[ceil(fieldCount/8)] | 置位字段(声明序)

rpc记录
|--entityID(uint16)--|--fieldID(uint8)--|--rpcID(uint8)--|--tick(uint16)--|--count(uint16)--|--size(uint16)--|--payload--|

*/

const (
	// HeaderByte 本协议所有包的第一个字节
	HeaderByte = 0xB5

	KindBaselineSync = 1
	KindDiffSync     = 2
	KindDiffSyncLast = 3
	KindClientSync   = 4
)

const (
	// MaxUnreliableDataSize 单个不可靠包携带数据的上限
	MaxUnreliableDataSize = 1024

	BaselineHeaderSize   = 2 + 4 + 1
	DiffHeaderSize       = 2 + 2
	ClientSyncHeaderSize = 2 + 2

	EntityRecordHeaderSize = 2 + 2 + 1
	RPCRecordHeaderSize    = 2 + 1 + 1 + 2 + 2 + 2
)

const (
	// RecordFlagFullSync 实体记录为全量同步
	RecordFlagFullSync = 1 << 0
)

// RPCTargetEntity RPC直接打到实体而不是syncable字段
const RPCTargetEntity = 0xFF

// InputPacketHeaderSize 每条输入前的固定头长度
const InputPacketHeaderSize = 6

// InputPacketHeader 输入的固定头 客户端每个逻辑tick写一个
type InputPacketHeader struct {
	StateATick uint16
	StateBTick uint16
	LerpMsec   uint16
}

func (h InputPacketHeader) WriteTo(w *Writer) {
	w.PutUint16(h.StateATick)
	w.PutUint16(h.StateBTick)
	w.PutUint16(h.LerpMsec)
}

func ReadInputPacketHeader(r *Reader) InputPacketHeader {
	return InputPacketHeader{
		StateATick: r.ReadUint16(),
		StateBTick: r.ReadUint16(),
		LerpMsec:   r.ReadUint16(),
	}
}
