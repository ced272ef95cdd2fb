package client

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// QueryState is the observable lifecycle of a cached query.
type QueryState struct {
	Data      json.RawMessage
	Loading   bool
	Err       error
	FetchedAt time.Time
}

type cachedQuery struct {
	path  string
	input json.RawMessage
	state QueryState
}

// queryCache keys entries by procedure path plus canonicalized input, so the
// same read with the same parameters shares one state slot.
type queryCache struct {
	mu      sync.RWMutex
	entries map[string]*cachedQuery
}

func newQueryCache() *queryCache {
	return &queryCache{entries: make(map[string]*cachedQuery)}
}

// queryKey canonicalizes the input so JSON field ordering does not split
// cache entries.
func queryKey(path string, input json.RawMessage) string {
	if len(input) == 0 {
		return path
	}

	var decoded any
	if err := json.Unmarshal(input, &decoded); err != nil {
		return path + "?" + string(input)
	}

	canonical, err := json.Marshal(decoded)
	if err != nil {
		return path + "?" + string(input)
	}

	return path + "?" + string(canonical)
}

func (qc *queryCache) markLoading(key, path string, input json.RawMessage) {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	entry, ok := qc.entries[key]
	if !ok {
		entry = &cachedQuery{path: path, input: input}
		qc.entries[key] = entry
	}
	entry.state.Loading = true
	entry.state.Err = nil
}

func (qc *queryCache) markData(key string, data json.RawMessage) {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	entry, ok := qc.entries[key]
	if !ok {
		return
	}
	entry.state = QueryState{Data: data, FetchedAt: time.Now().UTC()}
}

func (qc *queryCache) markError(key string, err error) {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	entry, ok := qc.entries[key]
	if !ok {
		return
	}
	entry.state.Loading = false
	entry.state.Err = err
}

func (qc *queryCache) get(key string) (QueryState, bool) {
	qc.mu.RLock()
	defer qc.mu.RUnlock()

	entry, ok := qc.entries[key]
	if !ok {
		return QueryState{}, false
	}
	return entry.state, true
}

// invalidateNamespace drops cached data for every key under the namespace and
// returns the entries so the caller can refetch them.
func (qc *queryCache) invalidateNamespace(namespace string) []cachedQuery {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	var stale []cachedQuery
	for _, entry := range qc.entries {
		if namespace != "" && !strings.HasPrefix(entry.path, namespace+".") {
			continue
		}
		entry.state.Loading = true
		stale = append(stale, cachedQuery{path: entry.path, input: entry.input})
	}

	return stale
}
