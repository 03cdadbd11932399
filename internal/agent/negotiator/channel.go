package negotiator

import (
	"sync"

	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"

	"github.com/pion/webrtc/v4"
)

// Channel wraps a data channel opened by the browser.
// Ready is closed once the channel is open; Done once it is closed.
type Channel struct {
	dc DataChannel

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	doneOnce  sync.Once
	frames    chan string
}

func newChannel(dc DataChannel, buffer int, onOpen func()) *Channel {
	if buffer <= 0 {
		buffer = 16
	}
	ch := &Channel{
		dc:     dc,
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
		frames: make(chan string, buffer),
	}
	dc.OnOpen(func() {
		ch.readyOnce.Do(func() {
			close(ch.ready)
			if onOpen != nil {
				onOpen()
			}
		})
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		select {
		case ch.frames <- string(msg.Data):
		case <-ch.done:
		}
	})
	dc.OnClose(ch.markDone)
	return ch
}

func (c *Channel) Label() string { return c.dc.Label() }

// Ready is closed when the remote side has opened the channel.
func (c *Channel) Ready() <-chan struct{} { return c.ready }

// Frames yields inbound text frames in arrival order.
func (c *Channel) Frames() <-chan string { return c.frames }

// Done is closed when the channel or its peer link goes away.
func (c *Channel) Done() <-chan struct{} { return c.done }

// SendText writes one text frame.
func (c *Channel) SendText(s string) error {
	select {
	case <-c.done:
		return appErr.New(appErr.ChannelClosed)
	default:
	}
	if err := c.dc.SendText(s); err != nil {
		return appErr.Wrapf(err, appErr.ChannelClosed, "send on data channel failed")
	}
	return nil
}

// Close closes the underlying channel and releases waiters.
func (c *Channel) Close() error {
	c.markDone()
	return c.dc.Close()
}

func (c *Channel) markDone() {
	c.doneOnce.Do(func() { close(c.done) })
}
