package storage

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"
	"github.com/studyhall/server/internal/domain"
)

type MessageRepository struct {
	db  *badger.DB
	now Clock
}

func NewMessageRepository(db *badger.DB, now Clock) *MessageRepository {
	if now == nil {
		now = time.Now
	}
	return &MessageRepository{db: db, now: now}
}

// AppendMessage assigns the next sequence number and the server timestamp.
// The timestamp is clamped to the previous one so it never decreases within
// a room, even if the wall clock steps back.
func (m *MessageRepository) AppendMessage(ctx context.Context, id domain.RoomID, author domain.UserID, text string) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	var msg domain.Message
	err := update(m.db, func(txn *badger.Txn) error {
		if _, err := readRoom(txn, id); err != nil {
			return err
		}
		tail, err := readSeq(txn, id)
		if err != nil {
			return err
		}
		at := m.now().UTC()
		if at.Before(tail.LastAt) {
			at = tail.LastAt
		}
		tail.Seq++
		tail.LastAt = at
		msg = domain.Message{
			Seq:       tail.Seq,
			RoomID:    id,
			Author:    author,
			Text:      text,
			CreatedAt: at,
		}
		if err := setJSON(txn, msgKey(id, msg.Seq), msg); err != nil {
			return err
		}
		return setJSON(txn, roomSeqKey(id), tail)
	})
	if err != nil {
		return domain.Message{}, wrapErr("append message", err)
	}
	return msg, nil
}

// Messages scans the room history in key order. With limit > 0 it walks
// backwards from the tail and flips the result, so the newest limit
// messages come back oldest first.
func (m *MessageRepository) Messages(ctx context.Context, id domain.RoomID, limit int) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]domain.Message, 0)
	err := m.db.View(func(txn *badger.Txn) error {
		if _, err := readRoom(txn, id); err != nil {
			return err
		}
		prefix := msgPrefix(id)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = limit > 0
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := prefix
		if opts.Reverse {
			seek = append(append([]byte{}, prefix...), 0xFF)
		}
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(out) == limit {
				break
			}
			err := it.Item().Value(func(val []byte) error {
				var msg domain.Message
				if err := json.Unmarshal(val, &msg); err != nil {
					return err
				}
				out = append(out, msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr("read messages", err)
	}
	if limit > 0 {
		slices.Reverse(out)
	}
	return out, nil
}

func (m *MessageRepository) MessageCount(ctx context.Context, id domain.RoomID) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var tail seqRecord
	err := m.db.View(func(txn *badger.Txn) error {
		if _, err := readRoom(txn, id); err != nil {
			return err
		}
		var err error
		tail, err = readSeq(txn, id)
		return err
	})
	return tail.Seq, wrapErr("count messages", err)
}
