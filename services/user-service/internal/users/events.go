package users

import "github.com/avasilev/freelancedesk/libs/eventx"

const (
	TopicUsers    = "users"
	AggregateUser = "User"
)

func CreatedEvent(u User) (eventx.Envelope, error) {
	return eventx.New(TopicUsers, AggregateUser, u.ID, "users.created", 1, map[string]any{
		"displayName": u.DisplayName,
		"email":       u.Email,
	})
}

func UpdatedEvent(u User) (eventx.Envelope, error) {
	return eventx.New(TopicUsers, AggregateUser, u.ID, "users.updated", 1, map[string]any{
		"displayName": u.DisplayName,
		"email":       u.Email,
	})
}

func DeletedEvent(userID string) (eventx.Envelope, error) {
	return eventx.NewTombstone(TopicUsers, AggregateUser, userID, "users.deleted", 1)
}
