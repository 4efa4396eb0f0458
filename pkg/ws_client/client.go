package ws_client

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Logerfo/LiteEntitySystem/network"
	"github.com/Logerfo/LiteEntitySystem/protocol"
)

// Client websocket传输 一条二进制消息就是一个包 不需要再分帧
type Client struct {
	conn      *websocket.Conn
	sendChan  chan []byte
	exitChan  chan struct{}
	closeOnce sync.Once
}

func Dial(url string, handler network.PacketHandler) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if nil != err {
		return nil, err
	}

	c := &Client{
		conn:     conn,
		sendChan: make(chan []byte, 1024),
		exitChan: make(chan struct{}),
	}
	go c.readLoop(handler)
	go c.writeLoop()
	return c, nil
}

func (c *Client) readLoop(handler network.PacketHandler) {
	defer c.Close()
	for {
		t, data, err := c.conn.ReadMessage()
		if nil != err {
			return
		}
		if t != websocket.BinaryMessage {
			continue
		}
		handler(data)
	}
}

func (c *Client) writeLoop() {
	defer c.Close()
	for {
		select {
		case <-c.exitChan:
			return
		case b := <-c.sendChan:
			if err := c.conn.WriteMessage(websocket.BinaryMessage, b); nil != err {
				return
			}
		}
	}
}

func (c *Client) Send(b []byte, _ bool) error {
	if len(b) == 0 {
		return nil
	}
	msg := make([]byte, len(b))
	copy(msg, b)
	select {
	case c.sendChan <- msg:
		return nil
	case <-c.exitChan:
		return network.ErrConnClosing
	default:
		return network.ErrWriteBlocking
	}
}

func (c *Client) MaxSinglePacketSize(_ bool) uint16 {
	return protocol.MaxUnreliableDataSize
}

func (c *Client) TriggerUpdate() {}

func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.exitChan)
		c.conn.Close()
	})
	return nil
}
