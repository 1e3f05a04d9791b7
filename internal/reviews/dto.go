package reviews

import "time"

// ItemResponse is the outward-facing representation of a review item.
type ItemResponse struct {
	ItemID           string     `json:"itemId"`
	Kind             string     `json:"kind"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Confidence       float64    `json:"confidence"`
	Status           string     `json:"status"`
	AssignedTo       string     `json:"assignedTo,omitempty"`
	DueDate          *time.Time `json:"dueDate,omitempty"`
	TouchTimeSeconds *int64     `json:"touchTimeSeconds,omitempty"`
	LoopCount        int        `json:"loopCount"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func toResponse(item Item) ItemResponse {
	return ItemResponse{
		ItemID:           item.ID,
		Kind:             string(item.Kind),
		Title:            item.Title,
		Description:      item.Description,
		Confidence:       item.Confidence,
		Status:           string(item.Status),
		AssignedTo:       item.AssignedTo,
		DueDate:          item.DueDate,
		TouchTimeSeconds: item.TouchTimeSeconds,
		LoopCount:        item.LoopCount,
		CreatedAt:        item.CreatedAt,
		UpdatedAt:        item.UpdatedAt,
	}
}
