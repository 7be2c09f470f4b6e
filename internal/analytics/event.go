package analytics

// Event is an opaque serialized analytics record. The queue never inspects it, and any byte
// sequence, valid UTF-8 or not, is stored and returned exactly.
type Event string

// Size returns the byte length of the event. Storage capacity is counted in these bytes.
func (e Event) Size() int64 {
	return int64(len(e))
}

// TotalSize returns the combined byte size of events.
func TotalSize(events []Event) int64 {
	var total int64

	for _, e := range events {
		total += e.Size()
	}

	return total
}
