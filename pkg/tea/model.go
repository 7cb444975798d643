package tea

// Tea is a single entry of the collection. ID is assigned by storage on insert and never changes afterwards.
type Tea struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}
