package dummydb

import (
	"sync"

	"github.com/trezcool/duka/core/stats"
	"github.com/trezcool/duka/core/visitor"
)

type (
	DB struct {
		visitor *visitorTable
		stats   *statsTable
	}

	visitorTable struct {
		sync.RWMutex
		table map[string]*visitor.Visitor
	}

	statsTable struct {
		sync.RWMutex
		table []stats.Activity
	}
)

func Open() (*DB, error) {
	db := &DB{
		visitor: &visitorTable{table: make(map[string]*visitor.Visitor)},
		stats:   &statsTable{},
	}
	return db, nil
}
