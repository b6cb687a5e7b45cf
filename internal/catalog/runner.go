package catalog

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/charmbracelet/log"
)

type requestKey struct {
	endpoint string
	page     int
}

type inflight struct {
	id     uint64
	cancel context.CancelFunc
}

// Runner issues page requests and tracks at most one in-flight request per
// (endpoint, page). Issuing a request for a key that is already in flight
// aborts the older one. Aborted requests resolve to a placeholder page rather
// than an error.
type Runner struct {
	getter Getter
	logger *log.Logger

	mu       sync.Mutex
	seq      uint64
	inflight map[requestKey]inflight
}

// NewRunner builds a Runner on top of getter.
func NewRunner(getter Getter, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{
		getter:   getter,
		logger:   logger,
		inflight: make(map[requestKey]inflight),
	}
}

// Run fetches one page of endpoint described by q.
func (r *Runner) Run(ctx context.Context, endpoint string, q Query) (RawPage, error) {
	return r.RunIf(ctx, endpoint, q, nil)
}

// RunIf is Run guarded by current. current is called under the runner lock
// right before the request is registered; when it reports false the call
// resolves to a placeholder without a request and without aborting the one
// already in flight for the key.
func (r *Runner) RunIf(ctx context.Context, endpoint string, q Query, current func() bool) (RawPage, error) {
	values, err := q.Values()
	if err != nil {
		return RawPage{}, err
	}

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	key := requestKey{endpoint: endpoint, page: q.Page}
	id, ok := r.track(key, cancel, current)
	if !ok {
		r.logger.Debug("request outdated before start", "endpoint", endpoint, "page", q.Page)
		return Placeholder[json.RawMessage](), nil
	}
	defer r.untrack(key, id)

	var page RawPage
	err = r.getter.GetJSON(reqCtx, endpoint, values, &page)

	// A request superseded after its body was read is still stale.
	if reqCtx.Err() != nil {
		r.logger.Debug("request canceled", "endpoint", endpoint, "page", q.Page)
		return Placeholder[json.RawMessage](), nil
	}
	if err != nil {
		return RawPage{}, err
	}
	if page.Data == nil {
		page.Data = []json.RawMessage{}
	}
	return page, nil
}

// CancelEndpoint aborts every in-flight request for endpoint, across pages.
func (r *Runner) CancelEndpoint(endpoint string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, req := range r.inflight {
		if key.endpoint != endpoint {
			continue
		}
		req.cancel()
		delete(r.inflight, key)
	}
}

// InFlight returns how many requests are tracked for endpoint.
func (r *Runner) InFlight(endpoint string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for key := range r.inflight {
		if key.endpoint == endpoint {
			n++
		}
	}
	return n
}

func (r *Runner) track(key requestKey, cancel context.CancelFunc, current func() bool) (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current != nil && !current() {
		return 0, false
	}
	if prev, ok := r.inflight[key]; ok {
		prev.cancel()
	}
	r.seq++
	r.inflight[key] = inflight{id: r.seq, cancel: cancel}
	return r.seq, true
}

func (r *Runner) untrack(key requestKey, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.inflight[key]; ok && cur.id == id {
		delete(r.inflight, key)
	}
}
