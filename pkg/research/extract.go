package research

// Extract turns raw search hits into evidence records, one per hit and in the
// same order. It never fails; missing fields are treated as empty strings.
func Extract(hits []RawHit) []EvidenceRecord {
	records := make([]EvidenceRecord, 0, len(hits))
	for _, h := range hits {
		records = append(records, EvidenceRecord{
			Title:     h.Title,
			Snippet:   h.Snippet,
			SourceURL: h.Link,
			Text:      joinEvidence(h.Title, h.Snippet, h.Link),
		})
	}
	return records
}
