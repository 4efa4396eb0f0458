package replaylog

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Record 一条入站数据报 Data经json编码为base64
type Record struct {
	T    time.Time `json:"t"`
	Data []byte    `json:"data"`
}

// Writer 把收到的包按JSONL写进zstd压缩文件 供离线回放定位同步问题
type Writer struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if nil != err {
		return nil, err
	}
	enc, err := zstd.NewWriter(f)
	if nil != err {
		f.Close()
		return nil, err
	}
	return &Writer{
		f:   f,
		enc: enc,
		w:   bufio.NewWriterSize(enc, 64*1024),
	}, nil
}

func (w *Writer) Write(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	b, err := json.Marshal(Record{T: time.Now().UTC(), Data: data})
	if nil != err {
		return err
	}
	if _, err := w.w.Write(b); nil != err {
		return err
	}
	return w.w.WriteByte('\n')
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.w.Flush(); nil != err {
		return err
	}
	if err := w.enc.Close(); nil != err {
		return err
	}
	return w.f.Close()
}

// Reader 顺序读回一份抓包文件
type Reader struct {
	f   *os.File
	dec *zstd.Decoder
	sc  *bufio.Scanner
}

func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if nil != err {
		return nil, err
	}
	dec, err := zstd.NewReader(f)
	if nil != err {
		f.Close()
		return nil, err
	}
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Reader{f: f, dec: dec, sc: sc}, nil
}

// Next 读下一条记录 文件读尽返回io.EOF
func (r *Reader) Next() (Record, error) {
	if !r.sc.Scan() {
		if err := r.sc.Err(); nil != err {
			return Record{}, err
		}
		return Record{}, io.EOF
	}
	var rec Record
	if err := json.Unmarshal(r.sc.Bytes(), &rec); nil != err {
		return Record{}, err
	}
	return rec, nil
}

func (r *Reader) Close() error {
	r.dec.Close()
	return r.f.Close()
}
