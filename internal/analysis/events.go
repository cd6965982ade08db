package analysis

// EventType discriminates streaming run frames.
type EventType string

const (
	EventStart         EventType = "start"
	EventChunkStart    EventType = "chunk_start"
	EventProgress      EventType = "progress"
	EventResult        EventType = "result"
	EventChunkComplete EventType = "chunk_complete"
	EventComplete      EventType = "complete"
	EventError         EventType = "error"
)

// Event is one frame of a streaming run. Fields are populated per type:
// start carries the totals, chunk_start/chunk_complete the chunk counters,
// result the per-batch data, and the terminal complete frame the aggregate.
type Event struct {
	Type             EventType    `json:"type"`
	TotalChunks      int          `json:"total_chunks,omitempty"`
	TotalProducts    int          `json:"total_products,omitempty"`
	Chunk            int          `json:"chunk,omitempty"`
	ProductsInChunk  int          `json:"products_in_chunk,omitempty"`
	Message          string       `json:"message,omitempty"`
	ConversationID   string       `json:"conversation_id,omitempty"`
	Data             *ResultSet   `json:"data,omitempty"`
	ProductsAnalyzed int          `json:"products_analyzed,omitempty"`
	CheckedDate      string       `json:"checked_date,omitempty"`
	Results          []ResultItem `json:"results,omitempty"`
	TotalAnalyzed    int          `json:"total_analyzed,omitempty"`
}
