package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	DefaultNotificationIcon     = "🔔"
	DefaultNotificationCategory = "system"

	questIcon     = "🎯"
	questCategory = "quest"
	// QuestFeedPrefix marks synthetic feed entries derived from quests.
	QuestFeedPrefix = "quest-"
)

// Notification is an admin-authored broadcast. Rows are immutable.
type Notification struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Icon      string    `json:"icon"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
	// Read is computed per viewer from user_notifications.
	Read bool `json:"read"`
}

// NotificationInput is the admin payload for publishing a notification.
type NotificationInput struct {
	Title    string `json:"title" validate:"required,max=200"`
	Message  string `json:"message" validate:"required,max=2000"`
	Icon     string `json:"icon" validate:"max=32"`
	Category string `json:"category" validate:"max=64"`
}

// Notification validates the input and applies the icon and category defaults.
func (in NotificationInput) Notification() (Notification, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Message = strings.TrimSpace(in.Message)
	in.Icon = strings.TrimSpace(in.Icon)
	in.Category = strings.TrimSpace(in.Category)
	if err := ValidateStruct(in); err != nil {
		return Notification{}, err
	}
	if in.Icon == "" {
		in.Icon = DefaultNotificationIcon
	}
	if in.Category == "" {
		in.Category = DefaultNotificationCategory
	}
	return Notification{Title: in.Title, Message: in.Message, Icon: in.Icon, Category: in.Category}, nil
}

// FeedItem is one entry of a viewer's notification feed.
type FeedItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Icon      string    `json:"icon"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
	Read      bool      `json:"read"`
}

// IsQuest reports whether the entry was synthesized from a quest.
func (f FeedItem) IsQuest() bool {
	return strings.HasPrefix(f.ID, QuestFeedPrefix)
}

// NotificationFeedItem maps a stored notification into the feed.
func NotificationFeedItem(n Notification) FeedItem {
	return FeedItem{
		ID:        fmt.Sprintf("%d", n.ID),
		Title:     n.Title,
		Message:   n.Message,
		Icon:      n.Icon,
		Category:  n.Category,
		CreatedAt: n.CreatedAt,
		Read:      n.Read,
	}
}

// QuestFeedItem synthesizes a reminder entry for a quest. Quest entries are
// never persisted and are always unread.
func QuestFeedItem(q Quest, now time.Time) FeedItem {
	msg := q.Description
	if msg == "" {
		msg = fmt.Sprintf("Earn %d points", q.RewardPoints)
	}
	return FeedItem{
		ID:        fmt.Sprintf("%s%d", QuestFeedPrefix, q.ID),
		Title:     q.Title,
		Message:   msg,
		Icon:      questIcon,
		Category:  questCategory,
		CreatedAt: now,
		Read:      false,
	}
}

// SortFeed orders entries newest first. The sort is stable so entries with
// equal timestamps keep their input order.
func SortFeed(items []FeedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}
