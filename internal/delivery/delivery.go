// Package delivery selects how finalized messages reach clients: pushed over
// a WebSocket, pulled by polling, or both.
package delivery

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

const (
	ModePush = "push"
	ModePull = "pull"
	ModeBoth = "both"
)

const (
	PushPath = "/ws"
	PullPath = "/api/v1/messages"
)

// Strategy mounts the routes of one delivery mechanism on an
// authenticated router
type Strategy interface {
	Name() string
	Mount(r chi.Router)
}

// Push streams messages to subscribed WebSocket clients
type Push struct {
	connect http.HandlerFunc
}

func NewPush(connect http.HandlerFunc) *Push {
	return &Push{connect: connect}
}

func (p *Push) Name() string { return ModePush }

func (p *Push) Mount(r chi.Router) {
	r.Get(PushPath, p.connect)
}

// Pull serves the snapshot clients poll on an interval
type Pull struct {
	snapshot http.HandlerFunc
}

func NewPull(snapshot http.HandlerFunc) *Pull {
	return &Pull{snapshot: snapshot}
}

func (p *Pull) Name() string { return ModePull }

func (p *Pull) Mount(r chi.Router) {
	r.Get(PullPath, p.snapshot)
}

// FromMode returns the strategies enabled by mode. An empty mode means both.
func FromMode(mode string, push, pull Strategy) ([]Strategy, error) {
	switch mode {
	case ModePush:
		return []Strategy{push}, nil
	case ModePull:
		return []Strategy{pull}, nil
	case ModeBoth, "":
		return []Strategy{push, pull}, nil
	default:
		return nil, fmt.Errorf("unknown delivery mode %q (want %s, %s or %s)", mode, ModePush, ModePull, ModeBoth)
	}
}

// Names lists the strategy names, for logging
func Names(strategies []Strategy) []string {
	names := make([]string, 0, len(strategies))
	for _, s := range strategies {
		names = append(names, s.Name())
	}
	return names
}
