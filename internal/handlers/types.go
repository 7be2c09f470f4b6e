package handlers

// PutEventsRequest is the request body for storing events.
type PutEventsRequest struct {
	Body struct {
		Events []string `doc:"Serialized events, stored in order" json:"events" maxItems:"1000" minItems:"1"`
	}
}

// PutEventsResponse reports how many events were stored.
type PutEventsResponse struct {
	Body struct {
		Accepted int `doc:"Number of events stored" example:"1" json:"accepted"`
	}
}

// ListEventsRequest selects how many stored events to show.
type ListEventsRequest struct {
	Limit int `default:"100" doc:"Maximum number of events to return" maximum:"1000" minimum:"1" query:"limit"`
}

// ListEventsResponse is a read-only view of the head of the queue.
type ListEventsResponse struct {
	Body struct {
		Events []string `doc:"Oldest stored events, oldest first" json:"events"`
		Total  int      `doc:"Number of stored events"            example:"42" json:"total"`
	}
}

// FlushResponse summarizes a manual delivery pass.
type FlushResponse struct {
	Body struct {
		Delivered int `doc:"Number of events delivered"  example:"250" json:"delivered"`
		Batches   int `doc:"Number of batches published" example:"3"   json:"batches"`
	}
}
