package network

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrConnClosing   = errors.New("use of closed network connection")
	ErrWriteBlocking = errors.New("write packet was blocking")
	ErrPacketTooBig  = errors.New("the size of packet is larger than the limit")
)

type Config struct {
	PacketSendChanLimit uint32        // the limit of packet send channel
	ConnReadTimeout     time.Duration // read timeout, zero means no deadline
	ConnWriteTimeout    time.Duration // write timeout
	MaxPacketSize       uint16        // refuse inbound frames above this
}

/*

stream framing (both directions)

|--length(uint16)--|--------------packet--------------|

*/

// Conn wraps a stream connection into framed packets. One read and one
// write goroutine per connection; inbound packets go to the handler.
type Conn struct {
	conn      net.Conn
	config    *Config
	handler   PacketHandler
	sendChan  chan []byte
	exitChan  chan struct{}
	closeOnce sync.Once
	closeFlag int32
	waitGroup *sync.WaitGroup
}

func NewConn(conn net.Conn, config *Config, handler PacketHandler) *Conn {
	if config.PacketSendChanLimit == 0 {
		config.PacketSendChanLimit = 1024
	}
	if config.MaxPacketSize == 0 {
		config.MaxPacketSize = 4096
	}
	return &Conn{
		conn:      conn,
		config:    config,
		handler:   handler,
		sendChan:  make(chan []byte, config.PacketSendChanLimit),
		exitChan:  make(chan struct{}),
		waitGroup: &sync.WaitGroup{},
	}
}

// Start launches the read and write loops.
func (c *Conn) Start() {
	c.waitGroup.Add(2)
	go c.readLoop()
	go c.writeLoop()
}

func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		atomic.StoreInt32(&c.closeFlag, 1)
		close(c.exitChan)
		c.conn.Close()
	})
}

func (c *Conn) IsClosed() bool {
	return atomic.LoadInt32(&c.closeFlag) == 1
}

// AsyncWritePacket queues one packet for sending. Never blocks longer
// than the timeout; zero timeout fails immediately when the queue is full.
func (c *Conn) AsyncWritePacket(b []byte, timeout time.Duration) error {
	if c.IsClosed() {
		return ErrConnClosing
	}

	framed := make([]byte, 2+len(b))
	binary.BigEndian.PutUint16(framed, uint16(len(b)))
	copy(framed[2:], b)

	if timeout == 0 {
		select {
		case c.sendChan <- framed:
			return nil
		case <-c.exitChan:
			return ErrConnClosing
		default:
			return ErrWriteBlocking
		}
	}

	select {
	case c.sendChan <- framed:
		return nil
	case <-c.exitChan:
		return ErrConnClosing
	case <-time.After(timeout):
		return ErrWriteBlocking
	}
}

func (c *Conn) readLoop() {
	defer func() {
		c.waitGroup.Done()
		c.Close()
	}()

	head := make([]byte, 2)
	for {
		select {
		case <-c.exitChan:
			return
		default:
		}

		if c.config.ConnReadTimeout > 0 {
			c.conn.SetReadDeadline(time.Now().Add(c.config.ConnReadTimeout))
		}

		if _, err := io.ReadFull(c.conn, head); nil != err {
			return
		}
		length := binary.BigEndian.Uint16(head)
		if length > c.config.MaxPacketSize {
			return
		}

		body := make([]byte, length)
		if _, err := io.ReadFull(c.conn, body); nil != err {
			return
		}

		c.handler(body)
	}
}

func (c *Conn) writeLoop() {
	defer func() {
		c.waitGroup.Done()
		c.Close()
	}()

	for {
		select {
		case <-c.exitChan:
			return
		case b := <-c.sendChan:
			if c.config.ConnWriteTimeout > 0 {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.ConnWriteTimeout))
			}
			if _, err := c.conn.Write(b); nil != err {
				return
			}
		}
	}
}
