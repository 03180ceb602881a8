// Package storage persists rooms, message histories and the local identity
// replica in BadgerDB.
//
// Key layout:
//
//	room:{id}            room document
//	room_name:{name}     id, uniqueness index on the trimmed name
//	room_seq:{id}        last sequence number and timestamp of the history
//	msg:{id}:{seq%020d}  message, zero padding keeps lexicographic = append order
//	user:{id}            user identity
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/studyhall/server/internal/domain"
)

const maxConflictRetries = 3

// Open opens (or creates) the badger database. An in-memory database ignores path.
func Open(path string, inMemory bool) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	log.Info().Str("module", "storage").Str("path", path).Bool("in_memory", inMemory).Msg("badger opened")
	return db, nil
}

type Clock func() time.Time

func roomKey(id domain.RoomID) []byte { return []byte("room:" + string(id)) }
func roomNameKey(n domain.RoomName) []byte { return []byte("room_name:" + string(n)) }
func roomSeqKey(id domain.RoomID) []byte { return []byte("room_seq:" + string(id)) }
func msgPrefix(id domain.RoomID) []byte { return []byte("msg:" + string(id) + ":") }
func userKey(id domain.UserID) []byte { return []byte("user:" + string(id)) }
func msgKey(id domain.RoomID, seq uint64) []byte {
	return []byte(fmt.Sprintf("msg:%s:%020d", id, seq))
}

// seqRecord tracks the tail of a room history.
type seqRecord struct {
	Seq    uint64    `json:"seq"`
	LastAt time.Time `json:"last_at"`
}

// update runs fn in a read-write transaction, retrying optimistic conflicts.
func update(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		log.Debug().Str("module", "storage").Int("attempt", attempt+1).Msg("transaction conflict, retrying")
	}
	return err
}

// wrapErr keeps domain errors intact and tags everything else as a persistence failure.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrDuplicateName),
		errors.Is(err, domain.ErrRoomNotFound),
		errors.Is(err, domain.ErrIdentityUnresolved),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrPersistence, op, err)
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, b)
}

func readRoom(txn *badger.Txn, id domain.RoomID) (domain.Room, error) {
	var room domain.Room
	if err := getJSON(txn, roomKey(id), &room); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return domain.Room{}, domain.ErrRoomNotFound
		}
		return domain.Room{}, err
	}
	return room, nil
}

func readSeq(txn *badger.Txn, id domain.RoomID) (seqRecord, error) {
	var rec seqRecord
	err := getJSON(txn, roomSeqKey(id), &rec)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return seqRecord{}, nil
	}
	return rec, err
}
