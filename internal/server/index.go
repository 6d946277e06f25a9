package server

import (
	"sync"

	"github.com/dukerupert/kidsched/internal/config"
	"github.com/dukerupert/kidsched/internal/model"
)

// entityIndex maps host entity ids to the cards that read them, so host
// events can be fanned out without touching the database.
type entityIndex struct {
	mu       sync.RWMutex
	byEntity map[string][]int64
}

func newEntityIndex() *entityIndex {
	return &entityIndex{byEntity: make(map[string][]int64)}
}

func (ix *entityIndex) rebuild(defs []model.CardDefinition) {
	next := make(map[string][]int64)
	for _, d := range defs {
		next[d.Entity] = append(next[d.Entity], d.ID)
		if weekly := config.WeeklyEntityID(d.Entity); weekly != d.Entity {
			next[weekly] = append(next[weekly], d.ID)
		}
	}
	ix.mu.Lock()
	ix.byEntity = next
	ix.mu.Unlock()
}

func (ix *entityIndex) lookup(entityID string) []int64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return append([]int64(nil), ix.byEntity[entityID]...)
}
