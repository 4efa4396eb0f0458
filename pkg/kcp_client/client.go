package kcp_client

import (
	"time"

	"github.com/xtaci/kcp-go"

	"github.com/Logerfo/LiteEntitySystem/network"
	"github.com/Logerfo/LiteEntitySystem/protocol"
)

// Client KCP传输 流模式+长度分帧
type Client struct {
	sess *kcp.UDPSession
	conn *network.Conn
}

func Dial(addr string, handler network.PacketHandler) (*Client, error) {
	sess, err := kcp.DialWithOptions(addr, nil, 0, 0)
	if nil != err {
		return nil, err
	}

	// 极速模式
	sess.SetNoDelay(1, 10, 2, 1)
	sess.SetStreamMode(true)
	sess.SetWindowSize(4096, 4096)
	sess.SetReadBuffer(4 * 1024 * 1024)
	sess.SetWriteBuffer(4 * 1024 * 1024)
	sess.SetACKNoDelay(true)

	c := &Client{
		sess: sess,
		conn: network.NewConn(sess, &network.Config{
			PacketSendChanLimit: 1024,
			ConnWriteTimeout:    time.Second * 5,
		}, handler),
	}
	c.conn.Start()
	return c, nil
}

func (c *Client) Send(b []byte, _ bool) error {
	return c.conn.AsyncWritePacket(b, 0)
}

func (c *Client) MaxSinglePacketSize(_ bool) uint16 {
	return protocol.MaxUnreliableDataSize
}

// TriggerUpdate kcp自己的定时器负责冲刷 这里无事可做
func (c *Client) TriggerUpdate() {}

func (c *Client) Close() error {
	c.conn.Close()
	return nil
}
