package processor

import (
	"time"

	"github.com/Ramsey-B/camellia/pkg/kafka"
)

// businessEvents lists the records a committed chunk created or changed. Merges that left the
// record as it was produce no event.
func businessEvents(decisions []decision, runID string) []kafka.BusinessEvent {
	now := time.Now().UTC()
	var events []kafka.BusinessEvent
	for i := range decisions {
		d := &decisions[i]
		event := kafka.BusinessEvent{
			BusinessID:   d.target.ID,
			ClusterID:    d.target.ClusterID,
			Source:       d.key.Source,
			SourceUID:    d.key.UID,
			QualityScore: d.target.QualityScore,
			RunID:        runID,
			Timestamp:    now,
		}

		switch d.action {
		case actionCreate:
			event.EventType = kafka.EventBusinessCreated
		case actionMerge:
			if !d.plan.Changed() {
				continue
			}
			event.EventType = kafka.EventBusinessMerged
			event.MatchReason = string(d.match.Reason)
			event.Confidence = string(d.match.Confidence)
			event.FieldsFilled = d.plan.Filled
		default:
			continue
		}
		events = append(events, event)
	}
	return events
}
