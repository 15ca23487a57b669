package admin

// UserEntry is one row of the user listing
type UserEntry struct {
	Login   string `json:"login"`
	IsAdmin bool   `json:"is_admin"`
}

// QueueEntry is one tracker queue
type QueueEntry struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// BatchResponse lists the issue keys created by a batch
type BatchResponse struct {
	Created []string `json:"created"`
}
