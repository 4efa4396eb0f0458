package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	l4g "github.com/alecthomas/log4go"

	"github.com/Logerfo/LiteEntitySystem/client"
	"github.com/Logerfo/LiteEntitySystem/entity"
	"github.com/Logerfo/LiteEntitySystem/example/cube"
	"github.com/Logerfo/LiteEntitySystem/pkg/replaylog"
)

var (
	capture  = flag.String("capture", "", "capture file written by example_client")
	tickRate = flag.Int("tick_rate", 30, "tick rate the capture was recorded at")
)

// 离线回放一份抓包 按录制时刻的间隔驱动引擎 用于复现同步问题
func main() {
	flag.Parse()

	l4g.AddFilter("stdout", l4g.DEBUG, l4g.NewConsoleLogWriter())
	defer l4g.Global.Close()

	if len(*capture) == 0 {
		fmt.Fprintln(os.Stderr, "missing -capture")
		os.Exit(2)
	}

	r, err := replaylog.NewReader(*capture)
	if nil != err {
		panic(err)
	}
	defer r.Close()

	reg := entity.NewRegistry()
	if err := cube.Register(reg); nil != err {
		panic(err)
	}

	c := client.NewClient(nil, reg, client.Options{TickRate: *tickRate})

	count := 0
	havePrev := false
	var prev replaylog.Record
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if nil != err {
			panic(err)
		}

		if havePrev {
			if dt := rec.T.Sub(prev.T).Seconds(); dt > 0 {
				c.Update(dt)
			}
		}
		c.Receive(rec.Data)
		prev, havePrev = rec, true
		count++
	}

	l4g.Info("[replay] %d packets, final tick=%d target=%d", count, c.Tick(), c.RawTargetTick())
	l4g.Global.Close()
}
