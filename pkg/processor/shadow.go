package processor

import "github.com/Ramsey-B/camellia/pkg/models"

// shadow holds what a live run would have committed so far, so that a dry run matches later
// chunks against the same records. It is folded in only after a chunk is decided; records of the
// chunk being decided stay invisible to each other as they do in a live run.
type shadow struct {
	records map[string]models.Business
	order   []string
}

func newShadow() *shadow {
	return &shadow{records: map[string]models.Business{}}
}

// commit applies a decided chunk the way writeChunk would persist it.
func (s *shadow) commit(decisions []decision) {
	for i := range decisions {
		d := &decisions[i]
		if d.action != actionCreate && d.action != actionMerge {
			continue
		}
		if _, ok := s.records[d.target.ID]; !ok {
			s.order = append(s.order, d.target.ID)
		}
		s.records[d.target.ID] = d.target
	}
}

func (s *shadow) get(id string) (models.Business, bool) {
	if s == nil {
		return models.Business{}, false
	}
	b, ok := s.records[id]
	return b, ok
}

// pool overlays the shadow on a stored candidate pool. Stored records take their shadow state,
// shadow records matching phone or city are added after the stored ones, and the result keeps
// the store's order: phone matches first, then city matches, cut at limit.
func (s *shadow) pool(stored []models.Business, phone, city string, limit int) []models.Business {
	if s == nil || len(s.records) == 0 {
		return stored
	}

	var byPhone, byCity []models.Business
	add := func(b models.Business) {
		if phone != "" && models.StringValue(b.PhoneNormalized) == phone {
			byPhone = append(byPhone, b)
		} else {
			byCity = append(byCity, b)
		}
	}

	seen := make(map[string]bool, len(stored))
	for _, b := range stored {
		if current, ok := s.records[b.ID]; ok {
			b = current
		}
		seen[b.ID] = true
		add(b)
	}
	for _, id := range s.order {
		if seen[id] {
			continue
		}
		b := s.records[id]
		if (phone != "" && models.StringValue(b.PhoneNormalized) == phone) || (city != "" && b.City == city) {
			add(b)
		}
	}

	pool := append(byPhone, byCity...)
	if limit > 0 && len(pool) > limit {
		pool = pool[:limit]
	}
	return pool
}
