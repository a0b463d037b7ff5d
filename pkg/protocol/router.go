package protocol

import (
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/taurusgroup/cmp-keygen/internal/round"
	"github.com/taurusgroup/cmp-keygen/pkg/party"
)

// LocalRouter connects the Networks of parties running in the same process.
// Messages are only delivered to Networks which exist when they are sent.
//
// Every message sent is encoded and decoded again, so that the parties do not share memory.
type LocalRouter struct {
	mtx      sync.Mutex
	networks map[party.ID]*Network
	opts     []NetworkOption
	// Intercept, if set, may modify a message before it is delivered to a party.
	Intercept func(to party.ID, msg *round.Message)
}

// NewLocalRouter creates a router whose Networks are created with opts.
func NewLocalRouter(opts ...NetworkOption) *LocalRouter {
	return &LocalRouter{
		networks: make(map[party.ID]*Network),
		opts:     opts,
	}
}

// Network returns the Network of id, creating it if needed.
func (lr *LocalRouter) Network(id party.ID) *Network {
	lr.mtx.Lock()
	defer lr.mtx.Unlock()
	if n, ok := lr.networks[id]; ok {
		return n
	}
	n := NewNetwork(id, lr.broadcast, lr.opts...)
	lr.networks[id] = n
	return n
}

func (lr *LocalRouter) broadcast(msg *round.Message) error {
	data, err := cbor.Marshal(msg)
	if err != nil {
		return err
	}

	lr.mtx.Lock()
	networks := make(map[party.ID]*Network, len(lr.networks))
	for id, n := range lr.networks {
		networks[id] = n
	}
	intercept := lr.Intercept
	lr.mtx.Unlock()

	var result *multierror.Error
	for id, n := range networks {
		if id == msg.From {
			continue
		}
		var delivered round.Message
		if err = cbor.Unmarshal(data, &delivered); err != nil {
			return err
		}
		if intercept != nil {
			intercept(id, &delivered)
		}
		if err = n.OnReceive(&delivered); err != nil {
			result = multierror.Append(result, fmt.Errorf("deliver to %s: %w", id, err))
		}
	}
	return result.ErrorOrNil()
}
