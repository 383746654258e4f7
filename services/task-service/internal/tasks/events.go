package tasks

import "github.com/avasilev/freelancedesk/libs/eventx"

const (
	TopicTasks    = "tasks"
	AggregateTask = "Task"
)

func CreatedEvent(t Task) (eventx.Envelope, error) {
	return eventx.New(TopicTasks, AggregateTask, t.ID, "tasks.created", 1, map[string]any{
		"taskId":     t.ID,
		"projectId":  t.ProjectID,
		"title":      t.Title,
		"assigneeId": t.AssigneeID,
		"status":     t.Status,
	})
}

func CompletedEvent(t Task) (eventx.Envelope, error) {
	return eventx.New(TopicTasks, AggregateTask, t.ID, "tasks.completed", 1, map[string]any{
		"taskId":    t.ID,
		"projectId": t.ProjectID,
		"status":    t.Status,
	})
}

func RemovedEvent(taskID string) (eventx.Envelope, error) {
	return eventx.NewTombstone(TopicTasks, AggregateTask, taskID, "tasks.removed", 1)
}
