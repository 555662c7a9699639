package board

import (
	"errors"
	"maps"

	"github.com/google/uuid"
)

var (
	// ErrTxOpen is returned by Begin while another transaction is open.
	ErrTxOpen = errors.New("transaction already open")
	// ErrTxDone is returned when committing or rolling back a finished transaction.
	ErrTxDone = errors.New("transaction already finished")
)

// Tx is a speculative change set on a board. Changes are applied directly;
// Rollback restores the board as it was when the transaction began.
type Tx struct {
	id    uuid.UUID
	board *Board
	done  bool

	items      map[ItemID]*Item
	netMembers map[int]map[ItemID]*Item
	index      []*layerIndex
}

// Begin opens a transaction. Only one transaction may be open at a time.
func (b *Board) Begin() (*Tx, error) {
	if b.tx != nil {
		return nil, ErrTxOpen
	}
	tx := &Tx{
		id:         uuid.New(),
		board:      b,
		items:      maps.Clone(b.items),
		netMembers: make(map[int]map[ItemID]*Item, len(b.netMembers)),
		index:      make([]*layerIndex, len(b.index)),
	}
	for n, m := range b.netMembers {
		tx.netMembers[n] = maps.Clone(m)
	}
	for i, idx := range b.index {
		tx.index[i] = idx.Copy()
	}
	b.tx = tx
	return tx, nil
}

// InTx reports whether a transaction is open.
func (b *Board) InTx() bool {
	return b.tx != nil
}

// ID identifies the transaction in logs.
func (tx *Tx) ID() uuid.UUID {
	return tx.id
}

// Commit keeps all changes made since Begin.
func (tx *Tx) Commit() error {
	if tx.done {
		return ErrTxDone
	}
	tx.done = true
	tx.board.tx = nil
	return nil
}

// Rollback discards all changes made since Begin. Consumers of
// ChangesSince must treat the whole board as changed afterwards.
func (tx *Tx) Rollback() error {
	if tx.done {
		return ErrTxDone
	}
	tx.done = true
	b := tx.board
	b.tx = nil
	b.items = tx.items
	b.netMembers = tx.netMembers
	b.index = tx.index
	b.gen++
	b.floor = b.gen
	b.changes = nil
	clear(b.netGraphs)
	return nil
}
