package discovery

import (
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/hashicorp/memberlist"

	"DistCount/internal/logger"
)

// Pool is a gossip group the driver and worker processes join so the driver's
// status endpoint can report which processes are alive. It is observability
// only: the scheduler never consults membership, the task timeout sweep
// remains the sole liveness mechanism.
type Pool struct {
	ml     *memberlist.Memberlist
	logger *logger.Logger

	mu      sync.RWMutex
	members map[string]string // name -> address:port
}

// Config for joining the pool.
type Config struct {
	Name      string   // unique process name
	BindAddr  string   // address to bind gossip to
	BindPort  int      // port to bind gossip to
	JoinAddrs []string // existing members to contact ("host:port")
}

type eventDelegate struct {
	pool *Pool
}

func (d *eventDelegate) NotifyJoin(n *memberlist.Node) {
	d.pool.track(n)
}

func (d *eventDelegate) NotifyLeave(n *memberlist.Node) {
	d.pool.forget(n)
}

func (d *eventDelegate) NotifyUpdate(n *memberlist.Node) {
	d.pool.track(n)
}

// Join binds a gossip listener and contacts any existing members.
func Join(cfg Config) (*Pool, error) {
	lg := logger.New("INFO")

	p := &Pool{
		logger:  lg,
		members: make(map[string]string),
	}

	mlc := memberlist.DefaultLocalConfig()
	mlc.Name = cfg.Name
	mlc.BindAddr = cfg.BindAddr
	mlc.BindPort = cfg.BindPort
	mlc.AdvertisePort = cfg.BindPort
	mlc.Events = &eventDelegate{pool: p}
	mlc.LogOutput = io.Discard

	ml, err := memberlist.Create(mlc)
	if err != nil {
		return nil, fmt.Errorf("failed to create memberlist: %w", err)
	}
	p.ml = ml

	if len(cfg.JoinAddrs) > 0 {
		if _, err := ml.Join(cfg.JoinAddrs); err != nil {
			lg.Warn("Failed to join pool: %v (continuing alone)", err)
		}
	}

	lg.Info("Joined pool: name=%s addr=%s:%d members=%d", cfg.Name, cfg.BindAddr, cfg.BindPort, ml.NumMembers())
	return p, nil
}

func (p *Pool) track(n *memberlist.Node) {
	addr := net.JoinHostPort(n.Addr.String(), fmt.Sprintf("%d", n.Port))
	p.mu.Lock()
	p.members[n.Name] = addr
	p.mu.Unlock()
	p.logger.Info("Pool member up: name=%s addr=%s", n.Name, addr)
}

func (p *Pool) forget(n *memberlist.Node) {
	p.mu.Lock()
	delete(p.members, n.Name)
	p.mu.Unlock()
	p.logger.Info("Pool member down: name=%s", n.Name)
}

// Members returns a snapshot of the known members.
func (p *Pool) Members() map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snapshot := make(map[string]string, len(p.members))
	for name, addr := range p.members {
		snapshot[name] = addr
	}
	return snapshot
}

// Leave announces departure and shuts the gossip listener down.
func (p *Pool) Leave(timeout time.Duration) error {
	if err := p.ml.Leave(timeout); err != nil {
		return err
	}
	return p.ml.Shutdown()
}
