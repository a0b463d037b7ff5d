package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/taurusgroup/cmp-keygen/pkg/paillier"
	"github.com/taurusgroup/cmp-keygen/pkg/party"
	"github.com/taurusgroup/cmp-keygen/pkg/pool"
	"github.com/taurusgroup/cmp-keygen/pkg/protocol"
	"github.com/taurusgroup/cmp-keygen/pkg/store"
	"github.com/taurusgroup/cmp-keygen/protocols/cmp/config"
	"github.com/taurusgroup/cmp-keygen/protocols/cmp/keygen"
)

// runner executes a keygen between parties simulated in this process.
type runner struct {
	cfg KeygenConfig
	log zerolog.Logger
	// paillier returns the Paillier key of the i-th party, if not nil.
	paillier func(i int) *paillier.SecretKey
}

func (r *runner) partyIDs() []party.ID {
	ids := make([]party.ID, 0, r.cfg.N())
	for _, id := range r.cfg.PartyIDs {
		ids = append(ids, party.ID(id))
	}
	for i := len(ids); i < r.cfg.N(); i++ {
		ids = append(ids, party.ID(fmt.Sprintf("party-%d", i+1)))
	}
	return party.NewIDSlice(ids)
}

// run returns the configs of all parties, sorted by party ID.
func (r *runner) run(ctx context.Context) ([]*config.Config, error) {
	ids := r.partyIDs()
	router := protocol.NewLocalRouter(
		protocol.WithTimeout(r.cfg.Timeout),
		protocol.WithLogger(r.log),
	)

	pl := pool.NewPool(0)
	defer pl.TearDown()

	sessions := make([]*keygen.Session, len(ids))
	for i, id := range ids {
		kc := keygen.Config{
			SelfID:    id,
			PartyIDs:  ids,
			Threshold: r.cfg.Threshold,
			Network:   router.Network(id),
			Logger:    &r.log,
			Pool:      pl,
		}
		if r.paillier != nil {
			kc.PaillierSecret = r.paillier(i)
		}
		s, err := keygen.NewSession(kc)
		if err != nil {
			return nil, err
		}
		sessions[i] = s
	}

	var mtx sync.Mutex
	configs := make([]*config.Config, len(ids))
	eg, ctx := errgroup.WithContext(ctx)
	for i, s := range sessions {
		i, s := i, s
		eg.Go(func() error {
			c, err := s.Run(ctx)
			if err != nil {
				return fmt.Errorf("party %s: %w", s.SelfID(), err)
			}
			mtx.Lock()
			configs[i] = c
			mtx.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return configs, nil
}

// runAndStore runs the keygen and saves every config in the store at path.
func (r *runner) runAndStore(ctx context.Context, path string) ([]*config.Config, error) {
	configs, err := r.run(ctx)
	if err != nil {
		return nil, err
	}

	s, err := store.Open(path, r.log)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	for _, c := range configs {
		if err = s.Save(c); err != nil {
			return nil, err
		}
	}
	return configs, nil
}
