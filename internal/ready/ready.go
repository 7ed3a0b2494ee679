package ready

import "sync"

// Gate is a one-way latch that holds background work until the frontend
// has finished its load handshake.
type Gate struct {
	once sync.Once
	done chan struct{}
}

func NewGate() *Gate {
	return &Gate{done: make(chan struct{})}
}

// MarkReady 打开闸门并唤醒所有等待者，可重复调用
func (g *Gate) MarkReady() {
	g.once.Do(func() { close(g.done) })
}

// Wait blocks until MarkReady has been called.
func (g *Gate) Wait() {
	<-g.done
}

// Done returns a channel that is closed once the gate opens. Callers that
// also need to observe shutdown select on it together with their own stop
// signal instead of blocking in Wait.
func (g *Gate) Done() <-chan struct{} {
	return g.done
}

func (g *Gate) IsReady() bool {
	select {
	case <-g.done:
		return true
	default:
		return false
	}
}
