package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sameehj/officemcp/pkg/backend"
)

// ErrNotFound is wrapped by lookups that match no row.
var ErrNotFound = errors.New("record not found")

type Message struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	ChatID    string    `gorm:"index:idx_chat_sort,priority:1;not null" json:"chat_id"`
	SortID    int64     `gorm:"index:idx_chat_sort,priority:2;not null" json:"sort_id"`
	Role      string    `gorm:"not null" json:"role"`
	Content   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type User struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `json:"name"`
	RealName  string    `json:"real_name,omitempty"`
	Email     string    `json:"email,omitempty"`
	TimeZone  string    `json:"tz,omitempty"`
	IsBot     bool      `json:"is_bot"`
	Deleted   bool      `json:"deleted"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Channel struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Name        string    `json:"name"`
	IsPrivate   bool      `json:"is_private"`
	IsArchived  bool      `json:"is_archived"`
	Topic       string    `json:"topic,omitempty"`
	Purpose     string    `json:"purpose,omitempty"`
	MemberCount int       `json:"num_members"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type MuteStatus struct {
	ChatID    string    `gorm:"primaryKey" json:"chat_id"`
	Muted     bool      `json:"muted"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MuteResult is returned by ManageMute.
type MuteResult struct {
	ChatID  string `json:"chat_id"`
	Muted   bool   `json:"mute_status"`
	Message string `json:"message"`
	Action  string `json:"action"`
}

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&Message{}, &User{}, &Channel{}, &MuteStatus{}); err != nil {
		return fmt.Errorf("migrate storage: %w", err)
	}
	return nil
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// MessageBySortID returns the single message with the exact sort id.
func (s *Store) MessageBySortID(ctx context.Context, role, chatID string, sortID int64) (Message, error) {
	role, chatID = strings.TrimSpace(role), strings.TrimSpace(chatID)
	if chatID == "" {
		return Message{}, backend.Errorf(backend.ErrInvalid, "Chat ID cannot be empty")
	}
	if sortID < 0 {
		return Message{}, backend.Errorf(backend.ErrInvalid, "Sort ID must be a positive integer")
	}
	var msg Message
	err := s.db.WithContext(ctx).
		Where("chat_id = ? AND role = ? AND sort_id = ?", chatID, role, sortID).
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Message{}, notFound("No %s message with sort ID %d in chat %s", role, sortID, chatID)
	}
	if err != nil {
		return Message{}, fmt.Errorf("get message: %w", err)
	}
	return msg, nil
}

// MessagesInRange returns messages with start <= sort_id <= end, oldest first.
func (s *Store) MessagesInRange(ctx context.Context, chatID string, start, end int64) ([]Message, error) {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return nil, backend.Errorf(backend.ErrInvalid, "Chat ID cannot be empty")
	}
	if start < 0 || end < 0 {
		return nil, backend.Errorf(backend.ErrInvalid, "Sort IDs must be positive integers")
	}
	if start >= end {
		return nil, backend.Errorf(backend.ErrInvalid, "Start sort ID must be less than end sort ID")
	}
	msgs := []Message{}
	err := s.db.WithContext(ctx).
		Where("chat_id = ? AND sort_id BETWEEN ? AND ?", chatID, start, end).
		Order("sort_id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	return msgs, nil
}

// Users returns every user, or the one matching id.
func (s *Store) Users(ctx context.Context, id string) ([]User, error) {
	users := []User{}
	q := s.db.WithContext(ctx).Order("id")
	if id = strings.TrimSpace(id); id != "" {
		q = q.Where("id = ?", id)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	if id != "" && len(users) == 0 {
		return nil, notFound("User %s not found", id)
	}
	return users, nil
}

// Channels returns every channel, or the one matching id.
func (s *Store) Channels(ctx context.Context, id string) ([]Channel, error) {
	channels := []Channel{}
	q := s.db.WithContext(ctx).Order("id")
	if id = strings.TrimSpace(id); id != "" {
		q = q.Where("id = ?", id)
	}
	if err := q.Find(&channels).Error; err != nil {
		return nil, fmt.Errorf("get channels: %w", err)
	}
	if id != "" && len(channels) == 0 {
		return nil, notFound("Channel %s not found", id)
	}
	return channels, nil
}

// UpsertUsers inserts or refreshes users by id.
func (s *Store) UpsertUsers(ctx context.Context, users []User) (int, error) {
	if len(users) == 0 {
		return 0, nil
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(users, 200).Error
	if err != nil {
		return 0, fmt.Errorf("upsert users: %w", err)
	}
	return len(users), nil
}

// UpsertChannels inserts or refreshes channels by id.
func (s *Store) UpsertChannels(ctx context.Context, channels []Channel) (int, error) {
	if len(channels) == 0 {
		return 0, nil
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(channels, 200).Error
	if err != nil {
		return 0, fmt.Errorf("upsert channels: %w", err)
	}
	return len(channels), nil
}

// ManageMute reads the mute flag for chatID, or sets it when set is non-nil.
// Chats without a row are unmuted.
func (s *Store) ManageMute(ctx context.Context, chatID string, set *bool) (MuteResult, error) {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return MuteResult{}, backend.Errorf(backend.ErrInvalid, "Chat ID cannot be empty")
	}
	db := s.db.WithContext(ctx)

	if set != nil {
		row := MuteStatus{ChatID: chatID, Muted: *set}
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "chat_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"muted", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			return MuteResult{}, fmt.Errorf("set mute status: %w", err)
		}
		return MuteResult{
			ChatID:  chatID,
			Muted:   *set,
			Message: fmt.Sprintf("Mute status for %s set to %t", chatID, *set),
			Action:  "set",
		}, nil
	}

	var row MuteStatus
	err := db.Where("chat_id = ?", chatID).First(&row).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return MuteResult{}, fmt.Errorf("get mute status: %w", err)
	}
	return MuteResult{
		ChatID:  chatID,
		Muted:   row.Muted,
		Message: fmt.Sprintf("Mute status for %s is %t", chatID, row.Muted),
		Action:  "get",
	}, nil
}

// ParseMuteStatus accepts nil, a bool, or the strings "true"/"false" in any case.
func ParseMuteStatus(v any) (*bool, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return &x, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true":
			b := true
			return &b, nil
		case "false":
			b := false
			return &b, nil
		}
		return nil, backend.Errorf(backend.ErrInvalid, "Status string must be 'true' or 'false'")
	}
	return nil, backend.Errorf(backend.ErrInvalid, "Status must be boolean or string 'true'/'false'")
}

func notFound(format string, args ...any) error {
	return &backend.Error{Class: backend.ErrNotFound, Msg: fmt.Sprintf(format, args...), Err: ErrNotFound}
}
