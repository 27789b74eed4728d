package subnet_pool

import (
	"net"
	"sync"
)

// Subnet is one /30 carved out of the pool's range: a host address, a
// container address, and the network they share.
type Subnet struct {
	ipNet *net.IPNet

	hostIP      net.IP
	containerIP net.IP
}

func NewSubnet(ipNet *net.IPNet, hostIP, containerIP net.IP) *Subnet {
	return &Subnet{
		ipNet:       ipNet,

		hostIP:      hostIP,
		containerIP: containerIP,
	}
}

func (s Subnet) String() string {
	return s.ipNet.String()
}

func (s Subnet) IP() net.IP {
	return s.ipNet.IP
}

func (s Subnet) IPNet() *net.IPNet {
	return s.ipNet
}

func (s Subnet) HostIP() net.IP {
	return s.hostIP
}

func (s Subnet) ContainerIP() net.IP {
	return s.containerIP
}

type SubnetPool interface {
	Acquire() (*Subnet, error)
	Release(*Subnet)
	Network() *net.IPNet
}

type RealSubnetPool struct {
	ipNet *net.IPNet

	pool []*Subnet

	sync.Mutex
}

type PoolExhaustedError struct{}

func (e PoolExhaustedError) Error() string {
	return "subnet pool is exhausted"
}

// New carves the given range into /30 subnets, each yielding a host/
// container address pair for one container's link.
func New(ipNet *net.IPNet) *RealSubnetPool {
	pool := []*Subnet{}

	_, startNet, err := net.ParseCIDR(ipNet.IP.String() + "/30")
	if err != nil {
		panic(err)
	}

	for subnet := startNet; ipNet.Contains(subnet.IP); subnet = nextSubnet(subnet) {
		pool = append(pool, subnetFor(subnet))
	}

	return &RealSubnetPool{
		ipNet: ipNet,

		pool: pool,
	}
}

func (p *RealSubnetPool) Acquire() (*Subnet, error) {
	p.Lock()
	defer p.Unlock()

	if len(p.pool) == 0 {
		return nil, PoolExhaustedError{}
	}

	acquired := p.pool[0]
	p.pool = p.pool[1:]

	return acquired, nil
}

func (p *RealSubnetPool) Release(subnet *Subnet) {
	if !p.ipNet.Contains(subnet.IP()) {
		return
	}

	p.Lock()
	defer p.Unlock()

	p.pool = append(p.pool, subnet)
}

func (p *RealSubnetPool) Network() *net.IPNet {
	return p.ipNet
}

func subnetFor(ipNet *net.IPNet) *Subnet {
	return NewSubnet(
		ipNet,
		nextIP(ipNet.IP),
		nextIP(nextIP(ipNet.IP)),
	)
}

func nextSubnet(ipNet *net.IPNet) *net.IPNet {
	next := net.ParseIP(ipNet.IP.String())

	inc(next)
	inc(next)
	inc(next)
	inc(next)

	_, nextNet, err := net.ParseCIDR(next.String() + "/30")
	if err != nil {
		panic(err)
	}

	return nextNet
}

func nextIP(ip net.IP) net.IP {
	next := net.ParseIP(ip.String())
	inc(next)
	return next
}

func inc(ip net.IP) {
	for j := len(ip) - 1; j >= 0; j-- {
		ip[j]++
		if ip[j] > 0 {
			break
		}
	}
}
