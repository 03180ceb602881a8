package storage

import (
	"context"
	"errors"
	"sort"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"
	"github.com/studyhall/server/internal/domain"
)

type RoomRepository struct {
	db *badger.DB
}

func NewRoomRepository(db *badger.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// CreateRoom writes the room document, its name index and an empty history
// tail in one transaction. A taken name fails with domain.ErrDuplicateName.
func (r *RoomRepository) CreateRoom(ctx context.Context, room domain.Room) (domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return domain.Room{}, err
	}
	err := update(r.db, func(txn *badger.Txn) error {
		_, err := txn.Get(roomNameKey(room.Name))
		switch {
		case err == nil:
			return domain.ErrDuplicateName
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		if err := setJSON(txn, roomKey(room.ID), room); err != nil {
			return err
		}
		if err := txn.Set(roomNameKey(room.Name), []byte(room.ID)); err != nil {
			return err
		}
		return setJSON(txn, roomSeqKey(room.ID), seqRecord{})
	})
	if err != nil {
		return domain.Room{}, wrapErr("create room", err)
	}
	return room, nil
}

func (r *RoomRepository) GetRoom(ctx context.Context, id domain.RoomID) (domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return domain.Room{}, err
	}
	var room domain.Room
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		room, err = readRoom(txn, id)
		return err
	})
	return room, wrapErr("get room", err)
}

// ListRooms returns every room, oldest first.
func (r *RoomRepository) ListRooms(ctx context.Context) ([]domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rooms := make([]domain.Room, 0)
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte("room:")
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var room domain.Room
				if err := json.Unmarshal(val, &room); err != nil {
					return err
				}
				rooms = append(rooms, room)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr("list rooms", err)
	}
	sort.SliceStable(rooms, func(i, j int) bool {
		if !rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
		}
		return rooms[i].Name < rooms[j].Name
	})
	return rooms, nil
}

// AddParticipant appends uid to the participant list once.
func (r *RoomRepository) AddParticipant(ctx context.Context, id domain.RoomID, uid domain.UserID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := update(r.db, func(txn *badger.Txn) error {
		room, err := readRoom(txn, id)
		if err != nil {
			return err
		}
		if room.HasParticipant(uid) {
			return nil
		}
		room.Participants = append(room.Participants, uid)
		return setJSON(txn, roomKey(id), room)
	})
	return wrapErr("add participant", err)
}
