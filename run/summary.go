package run

import "fmt"

// Totals accumulates the run's net effect. Pairs and Tags may be negative
// when a run removed more than it added.
type Totals struct {
	Annotated int
	Total     int
	Pairs     int
	Tags      int
}

// Summary renders the human-readable run message. Four grammatical
// variants keep "Appended -3" out of user-facing output.
func (t Totals) Summary() string {
	switch {
	case t.Tags >= 0 && t.Pairs >= 0:
		return fmt.Sprintf("Annotated %d/%d images. Appended %d total Key-Value pairs and %d total Tags.",
			t.Annotated, t.Total, t.Pairs, t.Tags)
	case t.Tags >= 0 && t.Pairs < 0:
		return fmt.Sprintf("Annotated %d/%d images. Removed %d total Key-Value pairs and appended %d total Tags.",
			t.Annotated, t.Total, -t.Pairs, t.Tags)
	case t.Tags < 0 && t.Pairs >= 0:
		return fmt.Sprintf("Annotated %d/%d images. Appended %d total Key-Value pairs and removed %d total Tags.",
			t.Annotated, t.Total, t.Pairs, -t.Tags)
	default:
		return fmt.Sprintf("Annotated %d/%d images. Removed %d total Key-Value pairs and removed %d total Tags.",
			t.Annotated, t.Total, -t.Pairs, -t.Tags)
	}
}
