package domain

// TaskTemplate is a read-only blueprint for a task's stage list. Creating a
// task from a template copies the stages; later template edits never affect
// tasks already created from it.
type TaskTemplate struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Stages      []TemplateStage `json:"stages"`
}

// TemplateStage is one blueprint stage within a template.
type TemplateStage struct {
	ID             int64   `json:"id"`
	TemplateID     int64   `json:"template_id"`
	Name           string  `json:"name"`
	EstimatedHours float64 `json:"estimated_hours"`
	OrderNumber    int     `json:"order_number"`
}
