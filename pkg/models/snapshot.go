package models

// QueueSnapshot is a point-in-time view of the pipeline, computed on demand
// and never cached.
type QueueSnapshot struct {
	Pending      int  `json:"pending"`
	Processing   int  `json:"processing"`
	Completed    int  `json:"completed"`
	Failed       int  `json:"failed"`
	Total        int  `json:"total"`
	WorkerActive bool `json:"worker_active"`
}
