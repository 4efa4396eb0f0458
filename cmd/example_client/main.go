package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	l4g "github.com/alecthomas/log4go"

	"github.com/Logerfo/LiteEntitySystem/client"
	"github.com/Logerfo/LiteEntitySystem/entity"
	"github.com/Logerfo/LiteEntitySystem/example/cube"
	"github.com/Logerfo/LiteEntitySystem/network"
	"github.com/Logerfo/LiteEntitySystem/pkg/kcp_client"
	"github.com/Logerfo/LiteEntitySystem/pkg/log4gox"
	"github.com/Logerfo/LiteEntitySystem/pkg/replaylog"
	"github.com/Logerfo/LiteEntitySystem/pkg/ws_client"
	"github.com/Logerfo/LiteEntitySystem/util"
)

var (
	configFile = flag.String("config", "", "yaml config file (flags win)")
	addr       = flag.String("addr", "127.0.0.1:10086", "server address")
	transport  = flag.String("transport", "kcp", "kcp|ws")
	controlID  = flag.Uint("control", 0, "entity id to take control of")
	capture    = flag.String("capture", "", "write received packets to this file")
)

type config struct {
	Addr      string `yaml:"addr"`
	Transport string `yaml:"transport"`
	TickRate  int    `yaml:"tick_rate"`
}

func main() {
	flag.Parse()

	l4g.AddFilter("stdout", l4g.INFO, log4gox.NewColorConsoleLogWriter())
	defer l4g.Global.Close()

	cfg := config{Addr: *addr, Transport: *transport, TickRate: 30}
	if len(*configFile) > 0 {
		if err := util.LoadConfig(*configFile, &cfg); nil != err {
			panic(fmt.Sprintf("[main] load config %v fail: %v", *configFile, err))
		}
		// 命令行显式给出的参数覆盖配置文件
		flag.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "addr":
				cfg.Addr = *addr
			case "transport":
				cfg.Transport = *transport
			}
		})
	}

	var capW *replaylog.Writer
	if len(*capture) > 0 {
		var err error
		if capW, err = replaylog.NewWriter(*capture); nil != err {
			panic(err)
		}
		defer capW.Close()
	}

	// 传输层自己的goroutine收包 经通道汇入主循环 引擎本身单线程
	inbox := make(chan []byte, 1024)
	handler := func(data []byte) {
		b := make([]byte, len(data))
		copy(b, data)
		select {
		case inbox <- b:
		default:
			l4g.Warn("[main] inbox full, packet dropped")
		}
	}

	var (
		tr  network.Transport
		err error
	)
	switch cfg.Transport {
	case "ws":
		tr, err = ws_client.Dial("ws://"+cfg.Addr, handler)
	default:
		tr, err = kcp_client.Dial(cfg.Addr, handler)
	}
	if nil != err {
		panic(err)
	}
	defer tr.Close()
	l4g.Info("[main] connected addr=[%s] transport=[%s]", cfg.Addr, cfg.Transport)

	reg := entity.NewRegistry()
	if err := cube.Register(reg); nil != err {
		panic(err)
	}

	c := client.NewClient(tr, reg, client.Options{TickRate: cfg.TickRate})
	ctrl := &cube.Controller{}
	c.AddController(ctrl)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	frame := time.NewTicker(time.Second / 60)
	defer frame.Stop()

	last := time.Now()
	elapsed := 0.0
	for {
		select {
		case sig := <-sigs:
			l4g.Info("[main] signal: %s", sig.String())
			return
		case data := <-inbox:
			if capW != nil {
				capW.Write(data)
			}
			c.Receive(data)
		case now := <-frame.C:
			dt := now.Sub(last).Seconds()
			last = now
			elapsed += dt

			if ctrl.Controlled == nil {
				if e, ok := c.EntityByID(entity.ID(*controlID)).(*cube.Cube); ok {
					if c.TakeControl(entity.ID(*controlID)) {
						ctrl.Controlled = e
						l4g.Info("[main] took control of entity %d", *controlID)
					}
				}
			}

			// 演示输入 绕圈走
			ctrl.InputX = float32(math.Cos(elapsed)) * 3
			ctrl.InputY = float32(math.Sin(elapsed)) * 3

			c.Update(dt)

			if ctrl.Controlled != nil && c.Tick()%60 == 0 {
				l4g.Debug("[main] tick=%d pos=(%f,%f) hp=%d",
					c.Tick(), ctrl.Controlled.X(), ctrl.Controlled.Y(), ctrl.Controlled.HP())
			}
		}
	}
}
