package proxy

import (
	"container/list"
	"sync"
	"time"

	"github.com/jpillora/sizestr"
	"github.com/relaytun/revtun/internal/cryptotun"
	"github.com/relaytun/revtun/internal/netutil"
	"github.com/relaytun/revtun/internal/tunlog"
)

// dispatcher is the matching engine from spec.md §4.3: two FIFO queues,
// at most one of which is ever non-empty, under a single mutex so
// offerRequest/offerTunnel are atomic with respect to each other
// (spec.md §5, "exactly one pairing occurs and neither queue grows").
type dispatcher struct {
	mu      sync.Mutex
	idle    *list.List // of *tunnel
	waiting *list.List // of *request

	logger     *tunlog.Logger
	encryption cryptotun.Params
	metrics    *metrics

	onAppConnected    func()
	onAppDisconnected func()
}

func newDispatcher(logger *tunlog.Logger, encryption cryptotun.Params, m *metrics, onConnected, onDisconnected func()) *dispatcher {
	return &dispatcher{
		idle:              list.New(),
		waiting:           list.New(),
		logger:            logger,
		encryption:        encryption,
		metrics:           m,
		onAppConnected:    onConnected,
		onAppDisconnected: onDisconnected,
	}
}

// offerRequest implements spec.md §4.3: pair immediately against the head
// of the idle queue, or else join the waiting queue.
func (d *dispatcher) offerRequest(r *request) {
	d.mu.Lock()
	elem := d.idle.Front()
	if elem == nil {
		r.elem = d.waiting.PushBack(r)
		d.metrics.waitingRequests.Set(float64(d.waiting.Len()))
		d.mu.Unlock()
		return
	}
	t := d.idle.Remove(elem).(*tunnel)
	t.elem = nil
	becameEmpty := d.idle.Len() == 0
	d.metrics.idleTunnels.Set(float64(d.idle.Len()))
	d.mu.Unlock()
	if becameEmpty {
		d.appDisconnected()
	}
	d.pair(r, t)
}

// offerTunnel implements spec.md §4.3: pair immediately against the head
// of the waiting queue, or else join the idle queue.
func (d *dispatcher) offerTunnel(t *tunnel) {
	d.mu.Lock()
	elem := d.waiting.Front()
	if elem == nil {
		wasEmpty := d.idle.Len() == 0
		t.elem = d.idle.PushBack(t)
		d.metrics.idleTunnels.Set(float64(d.idle.Len()))
		d.mu.Unlock()
		if wasEmpty {
			d.appConnected()
		}
		return
	}
	r := d.waiting.Remove(elem).(*request)
	r.elem = nil
	d.metrics.waitingRequests.Set(float64(d.waiting.Len()))
	d.mu.Unlock()
	d.pair(r, t)
}

// retire removes entity from whichever queue holds it. Absence is benign
// (spec.md §4.3).
func (d *dispatcher) retire(entity interface{}) {
	switch v := entity.(type) {
	case *tunnel:
		d.mu.Lock()
		if v.elem == nil {
			d.mu.Unlock()
			return
		}
		d.idle.Remove(v.elem)
		v.elem = nil
		becameEmpty := d.idle.Len() == 0
		d.metrics.idleTunnels.Set(float64(d.idle.Len()))
		d.mu.Unlock()
		if becameEmpty {
			d.appDisconnected()
		}
	case *request:
		d.mu.Lock()
		if v.elem == nil {
			d.mu.Unlock()
			return
		}
		d.waiting.Remove(v.elem)
		v.elem = nil
		d.metrics.waitingRequests.Set(float64(d.waiting.Len()))
		d.mu.Unlock()
	}
}

func (d *dispatcher) appConnected() {
	d.logger.Infof("app connected")
	if d.onAppConnected != nil {
		d.onAppConnected()
	}
}

func (d *dispatcher) appDisconnected() {
	d.logger.Infof("app disconnected")
	if d.onAppDisconnected != nil {
		d.onAppDisconnected()
	}
}

// pair implements spec.md §4.3/§4.4: install splicing (raw or encrypted)
// between r and t, and never return either to a queue — closure of either
// side destroys both (handled inside netutil.Splice via lifecycle.Pair).
func (d *dispatcher) pair(r *request, t *tunnel) {
	r.markPaired()
	t.markPaired()

	reqSide := r.spliceSide()
	var tunSide netutil.Conn = t.spliceSide()
	if d.encryption.Configured() {
		enc, err := cryptotun.NewConn(tunSide, d.encryption)
		if err != nil {
			d.logger.Errorf("pair: encryption setup failed: %s", err)
			_ = r.conn().Close()
			_ = t.conn().Close()
			return
		}
		tunSide = enc
	}

	reqCounted := netutil.NewCountingConn(reqSide)
	tunCounted := netutil.NewCountingConn(tunSide)

	d.metrics.pairsEstablished.Inc()
	start := time.Now()
	go func() {
		netutil.Splice(reqCounted, tunCounted)
		d.metrics.pairDuration.Observe(time.Since(start).Seconds())
		d.logger.Debugf(
			"pair closed: request->tunnel %s, tunnel->request %s",
			sizestr.ToString(tunCounted.Stats.Sent()),
			sizestr.ToString(reqCounted.Stats.Sent()),
		)
	}()
}
