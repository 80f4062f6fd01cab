package middleware

import (
	"sync"

	"github.com/devmarvs/bulwark/apperr"
)

var errUnauthorizedForTest = apperr.Unauthorized("unauthorized", nil)

type decisionLog struct {
	mu      sync.Mutex
	entries []string
}

func (d *decisionLog) RecordDecision(stage, outcome string) {
	d.mu.Lock()
	d.entries = append(d.entries, stage+":"+outcome)
	d.mu.Unlock()
}

func (d *decisionLog) has(entry string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range d.entries {
		if e == entry {
			return true
		}
	}
	return false
}
