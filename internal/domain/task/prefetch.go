package task

const PrefetchTaskType = "PrefetchTask"

// PrefetchTask asks a worker to crawl the search pages of Query and store
// them in the cache and archive ahead of user requests.
type PrefetchTask struct {
	Query    string `json:"query"`
	MaxPages int    `json:"max_pages"`
}

func (t *PrefetchTask) TaskType() string {
	return PrefetchTaskType
}

func (t *PrefetchTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}
