package log4gox

import (
	"fmt"
	"io"
	"os"

	l4g "github.com/alecthomas/log4go"
)

/*
前景色 30黑 31红 32绿 33黄 34蓝 35紫 36青 37白
*/
var (
	levelColor   = [...]int{30, 30, 32, 37, 37, 33, 31, 34}
	levelStrings = [...]string{"FNST", "FINE", "DEBG", "TRAC", "INFO", "WARN", "EROR", "CRIT"}
)

const colorSymbol = 0x1B

// ColorConsoleLogWriter 按级别着色的控制台输出
type ColorConsoleLogWriter chan *l4g.LogRecord

func NewColorConsoleLogWriter() ColorConsoleLogWriter {
	return NewColorWriter(os.Stdout)
}

func NewColorWriter(out io.Writer) ColorConsoleLogWriter {
	records := make(ColorConsoleLogWriter, l4g.LogBufferLength)
	go records.run(out)
	return records
}

func (w ColorConsoleLogWriter) run(out io.Writer) {
	var timestr string
	var timestrAt int64

	for rec := range w {
		if at := rec.Created.UnixNano() / 1e9; at != timestrAt {
			timestr, timestrAt = rec.Created.Format("01/02/06 15:04:05"), at
		}
		fmt.Fprintf(out, "%c[%dm[%s] [%s] (%s) %s\n%c[0m",
			colorSymbol,
			levelColor[rec.Level],
			timestr,
			levelStrings[rec.Level],
			rec.Source,
			rec.Message,
			colorSymbol)
	}
}

func (w ColorConsoleLogWriter) LogWrite(rec *l4g.LogRecord) {
	w <- rec
}

func (w ColorConsoleLogWriter) Close() {
	close(w)
}
