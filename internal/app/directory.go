package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/studyhall/server/internal/core"
	"github.com/studyhall/server/internal/domain"
	"github.com/studyhall/server/internal/identity"
	"github.com/studyhall/server/internal/metrics"
)

type ListScope string

const (
	ScopeAll  ListScope = "all"
	ScopeMine ListScope = "mine"
)

// ParseScope maps the query value to a scope. Anything unknown lists everything.
func ParseScope(raw string) ListScope {
	if ListScope(raw) == ScopeMine {
		return ScopeMine
	}
	return ScopeAll
}

// Notifier pushes a server event to every connected session.
type Notifier interface {
	NotifyAll(frame core.Frame) int
}

type createRoomInput struct {
	Name    string        `validate:"required,max=64"`
	Creator domain.UserID `validate:"required,max=64"`
}

// Directory creates and lists rooms. It owns name uniqueness through the store.
type Directory struct {
	rooms       core.RoomStore
	messages    core.MessageStore
	identity    core.IdentityResolver
	channels    core.RoomManager
	notifier    Notifier
	validate    *validator.Validate
	placeholder string
	now         func() time.Time
}

func NewDirectory(
	rooms core.RoomStore,
	messages core.MessageStore,
	resolver core.IdentityResolver,
	channels core.RoomManager,
	notifier Notifier,
	placeholder string,
) *Directory {
	return &Directory{
		rooms:       rooms,
		messages:    messages,
		identity:    resolver,
		channels:    channels,
		notifier:    notifier,
		validate:    validator.New(),
		placeholder: placeholder,
		now:         time.Now,
	}
}

func (d *Directory) CreateRoom(ctx context.Context, rawName string, creator domain.UserID) (domain.Room, error) {
	name, err := domain.NormalizeRoomName(rawName)
	if err != nil {
		return domain.Room{}, err
	}
	if err := d.validate.Struct(createRoomInput{Name: string(name), Creator: creator}); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && verrs[0].Field() == "Creator" {
			return domain.Room{}, domain.ErrUserIDEmpty
		}
		return domain.Room{}, fmt.Errorf("%w: %v", domain.ErrInvalidRoomName, err)
	}

	room, err := d.rooms.CreateRoom(ctx, domain.Room{
		ID:           domain.RoomID(uuid.NewString()),
		Name:         name,
		CreatedBy:    creator,
		Participants: []domain.UserID{creator},
		CreatedAt:    d.now().UTC(),
	})
	if err != nil {
		return domain.Room{}, err
	}
	metrics.RoomsCreated.Inc()
	log.Info().Str("module", "app.directory").Str("room", string(room.ID)).Str("name", string(room.Name)).Msg("room created")

	d.announce(room)
	return room, nil
}

func (d *Directory) announce(room domain.Room) {
	if d.notifier == nil {
		return
	}
	frame, err := Encode(RoomCreatedEvent{Type: EventRoomCreated, Room: room})
	if err != nil {
		log.Warn().Err(err).Str("module", "app.directory").Msg("encode room_created failed")
		return
	}
	n := d.notifier.NotifyAll(frame)
	log.Debug().Str("module", "app.directory").Str("room", string(room.ID)).Int("sessions", n).Msg("room_created announced")
}

func (d *Directory) ListRooms(ctx context.Context, requester domain.UserID, scope ListScope) ([]domain.RoomSummary, error) {
	rooms, err := d.rooms.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	if scope == ScopeMine {
		rooms = lo.Filter(rooms, func(r domain.Room, _ int) bool {
			return r.HasParticipant(requester)
		})
	}

	names := make(map[domain.UserID]string)
	for _, uid := range lo.Uniq(lo.Map(rooms, func(r domain.Room, _ int) domain.UserID { return r.CreatedBy })) {
		names[uid] = identity.NameOrPlaceholder(ctx, d.identity, uid, d.placeholder)
	}

	out := make([]domain.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		count, err := d.messages.MessageCount(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		online := 0
		if ch, ok := d.channels.Get(r.ID); ok {
			online = ch.MemberCount()
		}
		out = append(out, domain.RoomSummary{
			ID:               r.ID,
			Name:             r.Name,
			CreatedBy:        r.CreatedBy,
			CreatorName:      names[r.CreatedBy],
			ParticipantCount: len(r.Participants),
			MessageCount:     count,
			Online:           online,
			CreatedAt:        r.CreatedAt,
		})
	}
	return out, nil
}

func (d *Directory) Get(ctx context.Context, id domain.RoomID) (domain.Room, error) {
	return d.rooms.GetRoom(ctx, id)
}

func (d *Directory) Exists(ctx context.Context, id domain.RoomID) (bool, error) {
	_, err := d.rooms.GetRoom(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrRoomNotFound):
		return false, nil
	default:
		return false, err
	}
}

// AddParticipant records that uid has joined the room at least once.
func (d *Directory) AddParticipant(ctx context.Context, id domain.RoomID, uid domain.UserID) error {
	return d.rooms.AddParticipant(ctx, id, uid)
}
