// Package netffi carries length-framed messages over TCP.
//
// Message format on the wire: u64 dataLen ++ data.
package netffi

import (
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/tchajed/marshal"
)

// MaxMessageSize bounds the length prefix a receiver will accept.
const MaxMessageSize = uint64(64 * 1024 * 1024)

type Listener struct {
	l net.Listener
}

func Listen(addr string) (*Listener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("netffi: listen on %s: %w", addr, err)
	}
	return &Listener{l: l}, nil
}

func (l *Listener) Accept() (*Connection, error) {
	conn, err := l.l.Accept()
	if err != nil {
		return nil, err
	}
	return makeConnection(conn), nil
}

func (l *Listener) Addr() net.Addr {
	return l.l.Addr()
}

func (l *Listener) Close() error {
	return l.l.Close()
}

type Connection struct {
	conn    net.Conn
	send_mu *sync.Mutex // guarding *sending* on `conn`
	recv_mu *sync.Mutex // guarding *receiving* on `conn`
}

func makeConnection(conn net.Conn) *Connection {
	return &Connection{conn: conn, send_mu: new(sync.Mutex), recv_mu: new(sync.Mutex)}
}

func Connect(addr string) (*Connection, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return makeConnection(conn), nil
}

func (c *Connection) Send(data []byte) error {
	e := marshal.NewEnc(8 + uint64(len(data)))
	e.PutInt(uint64(len(data)))
	e.PutBytes(data)
	msg := e.Finish()

	c.send_mu.Lock()
	defer c.send_mu.Unlock()

	// Writing in a single call is faster than 2 calls despite the copy.
	_, err := c.conn.Write(msg)
	if err != nil {
		// there might have been a partial write; never use this conn again
		c.conn.Close()
	}
	return err
}

func (c *Connection) Receive() ([]byte, error) {
	c.recv_mu.Lock()
	defer c.recv_mu.Unlock()

	header := make([]byte, 8)
	if _, err := io.ReadFull(c.conn, header); err != nil {
		// The other side may have hung up. Either way we lost track of where
		// in the stream we are.
		c.conn.Close()
		return nil, err
	}
	d := marshal.NewDec(header)
	dataLen := d.GetInt()
	if dataLen > MaxMessageSize {
		c.conn.Close()
		return nil, fmt.Errorf("netffi: message of %d bytes exceeds limit", dataLen)
	}

	data := make([]byte, dataLen)
	if _, err := io.ReadFull(c.conn, data); err != nil {
		c.conn.Close()
		return nil, err
	}
	return data, nil
}

func (c *Connection) Close() error {
	return c.conn.Close()
}
