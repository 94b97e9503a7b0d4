package memory

// Collection names a memory collection.
type Collection string

// The collections every backend has.
const (
	Episodic    Collection = "episodic"
	Declarative Collection = "declarative"
	Procedural  Collection = "procedural"
)

type CollectionInfo struct {
	Name         string `json:"name"`
	VectorsCount int    `json:"vectors_count"`
}

type CollectionsList struct {
	Collections []CollectionInfo `json:"collections"`
}

// CollectionsWipe maps each wiped collection to whether it was cleared.
type CollectionsWipe struct {
	Deleted map[string]bool `json:"deleted"`
}

type ConversationItem struct {
	Who  string                 `json:"who"`
	Text string                 `json:"text"`
	When float64                `json:"when,omitempty"`
	Why  map[string]interface{} `json:"why,omitempty"`
}

type ConversationHistory struct {
	History []ConversationItem `json:"history"`
}

type ConversationHistoryWipe struct {
	Deleted bool `json:"deleted"`
}

// Point is the content and metadata of a memory point.
type Point struct {
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// PointOutput is a stored point.
type PointOutput struct {
	Point
	ID     string    `json:"id"`
	Vector []float64 `json:"vector,omitempty"`
}

type PointDelete struct {
	Deleted string `json:"deleted"`
}

type PointsDeleteByMetadata struct {
	Deleted bool `json:"deleted"`
}

// Record is a point as the vector store holds it.
type Record struct {
	ID      string                 `json:"id"`
	Payload map[string]interface{} `json:"payload"`
	Vector  []float64              `json:"vector,omitempty"`
}

// Points is one page of a collection. NextOffset is empty on the last page.
type Points struct {
	Points     []Record `json:"points"`
	NextOffset string   `json:"next_offset"`
}

// RecalledPoint is a point returned by a recall, with its similarity score.
type RecalledPoint struct {
	ID          string                 `json:"id"`
	PageContent string                 `json:"page_content"`
	Metadata    map[string]interface{} `json:"metadata"`
	Score       float64                `json:"score"`
	Vector      []float64              `json:"vector,omitempty"`
}

type RecallQuery struct {
	Text   string    `json:"text"`
	Vector []float64 `json:"vector"`
}

type RecallVectors struct {
	Embedder    string                     `json:"embedder"`
	Collections map[string][]RecalledPoint `json:"collections"`
}

type Recall struct {
	Query   RecallQuery   `json:"query"`
	Vectors RecallVectors `json:"vectors"`
}
