package audit

import "time"

// TimelineFilters narrows the activity log. To is inclusive of the whole day.
type TimelineFilters struct {
	From     time.Time
	To       time.Time
	Actor    string
	Entity   string
	Action   string
	Page     int
	PageSize int
}

// TimelineRow is one recorded operator action.
type TimelineRow struct {
	At       time.Time      `json:"at"`
	ActorID  int64          `json:"actor_id"`
	Actor    string         `json:"actor"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entity_id"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// PagingInfo describes one page of the timeline.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result wraps a page of the timeline.
type Result struct {
	Rows   []TimelineRow `json:"rows"`
	Paging PagingInfo    `json:"paging"`
}

// csvRow is the flattened export shape.
type csvRow struct {
	At       string `csv:"at"`
	Actor    string `csv:"actor"`
	Action   string `csv:"action"`
	Entity   string `csv:"entity"`
	EntityID string `csv:"entity_id"`
}

func toCSVRows(rows []TimelineRow) []csvRow {
	out := make([]csvRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, csvRow{
			At:       r.At.Format(time.RFC3339),
			Actor:    r.Actor,
			Action:   r.Action,
			Entity:   r.Entity,
			EntityID: r.EntityID,
		})
	}
	return out
}
