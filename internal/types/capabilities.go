package types

// Capabilities records which optional backends were reachable at startup.
// It is built once and shared read-only by every component.
type Capabilities struct {
	QueueAvailable bool `json:"queue_available"`
	CacheAvailable bool `json:"cache_available"`
	StoreAvailable bool `json:"store_available"`
}
