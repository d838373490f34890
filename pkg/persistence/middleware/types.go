package middleware

import "github.com/aretw0/switchboard/pkg/ports"

// Middleware allows wrapping a LeadStore to add behavior.
type Middleware func(ports.LeadStore) ports.LeadStore

// Chain wraps store with mws. The first middleware is the outermost.
func Chain(store ports.LeadStore, mws ...Middleware) ports.LeadStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
