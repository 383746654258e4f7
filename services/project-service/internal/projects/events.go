package projects

import "github.com/avasilev/freelancedesk/libs/eventx"

// Topics: one per aggregate family. Membership events fan out on a compound
// key so they shard with their owning project.
const (
	TopicProjects = "projects"
	TopicMembers  = "members"

	AggregateProject = "Project"
	AggregateMember  = "ProjectMember"
)

func CreatedEvent(p Project) (eventx.Envelope, error) {
	return eventx.New(TopicProjects, AggregateProject, p.ID, "projects.created", 1, map[string]any{
		"title":   p.Title,
		"ownerId": p.OwnerID,
		"status":  p.Status,
	})
}

func UpdatedEvent(p Project) (eventx.Envelope, error) {
	return eventx.New(TopicProjects, AggregateProject, p.ID, "projects.updated", 1, map[string]any{
		"title":   p.Title,
		"ownerId": p.OwnerID,
		"status":  p.Status,
	})
}

func RemovedEvent(projectID string) (eventx.Envelope, error) {
	return eventx.NewTombstone(TopicProjects, AggregateProject, projectID, "projects.removed", 1)
}

func MemberAddedEvent(m Member) (eventx.Envelope, error) {
	env, err := eventx.New(TopicMembers, AggregateMember, m.ProjectID, "members.added", 1, map[string]any{
		"projectId": m.ProjectID,
		"userId":    m.UserID,
		"role":      m.Role,
	})
	if err != nil {
		return eventx.Envelope{}, err
	}
	env.Key = eventx.FanOutKey(m.ProjectID, "member", m.UserID)
	return env, nil
}

func MemberRemovedEvent(projectID, userID string) (eventx.Envelope, error) {
	env, err := eventx.New(TopicMembers, AggregateMember, projectID, "members.removed", 1, map[string]any{
		"projectId": projectID,
		"userId":    userID,
	})
	if err != nil {
		return eventx.Envelope{}, err
	}
	env.Key = eventx.FanOutKey(projectID, "member", userID)
	return env, nil
}
