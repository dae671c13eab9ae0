package processor

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sort"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/camellia/pkg/categories"
	"github.com/Ramsey-B/camellia/pkg/database"
	"github.com/Ramsey-B/camellia/pkg/kafka"
	"github.com/Ramsey-B/camellia/pkg/matching"
	"github.com/Ramsey-B/camellia/pkg/merging"
	"github.com/Ramsey-B/camellia/pkg/models"
	"github.com/Ramsey-B/camellia/pkg/normalizers"
	"github.com/Ramsey-B/camellia/pkg/sources"
)

func silentLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// memoryStore keeps records in insertion order, which stands in for created_at, id.
type memoryStore struct {
	records map[string]models.Business
	order   []string

	findErr   error
	createErr func(models.Business) error
	updateErr func(id string) error

	creates int
	updates int
}

func newMemoryStore(records ...models.Business) *memoryStore {
	s := &memoryStore{records: map[string]models.Business{}}
	for _, r := range records {
		s.put(r)
	}
	return s
}

func (s *memoryStore) put(b models.Business) {
	if _, ok := s.records[b.ID]; !ok {
		s.order = append(s.order, b.ID)
	}
	s.records[b.ID] = b
}

func (s *memoryStore) FindCandidates(_ context.Context, phone, city string, limit int) ([]models.Business, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	var byPhone, byCity []models.Business
	for _, id := range s.order {
		b := s.records[id]
		switch {
		case phone != "" && models.StringValue(b.PhoneNormalized) == phone:
			byPhone = append(byPhone, b)
		case city != "" && b.City == city:
			byCity = append(byCity, b)
		}
	}
	pool := append(byPhone, byCity...)
	if len(pool) > limit {
		pool = pool[:limit]
	}
	return pool, nil
}

func (s *memoryStore) Get(_ context.Context, id string) (*models.Business, error) {
	b, ok := s.records[id]
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "business '%s' not found", id)
	}
	return &b, nil
}

func (s *memoryStore) Create(_ context.Context, record models.Business) error {
	if s.createErr != nil {
		if err := s.createErr(record); err != nil {
			return err
		}
	}
	s.creates++
	s.put(record)
	return nil
}

func (s *memoryStore) Update(_ context.Context, id string, patch models.BusinessPatch) error {
	if s.updateErr != nil {
		if err := s.updateErr(id); err != nil {
			return err
		}
	}
	b, ok := s.records[id]
	if !ok {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "business '%s' not found", id)
	}
	s.updates++
	s.records[id] = patch.Apply(b)
	return nil
}

func (s *memoryStore) ListCities(context.Context) ([]string, error) {
	seen := map[string]bool{}
	var cities []string
	for _, b := range s.records {
		if !seen[b.City] {
			seen[b.City] = true
			cities = append(cities, b.City)
		}
	}
	sort.Strings(cities)
	return cities, nil
}

func (s *memoryStore) ListCanonicalByCity(_ context.Context, city string) ([]models.Business, error) {
	var out []models.Business
	for _, id := range s.order {
		b := s.records[id]
		if b.City == city && b.IsCanonical() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *memoryStore) bySource(key models.SourceKey) (models.Business, bool) {
	for _, id := range s.order {
		if s.records[id].SourceKeys.Contains(key) {
			return s.records[id], true
		}
	}
	return models.Business{}, false
}

// fakeTx counts what the chunk writer did with its transaction.
type fakeTx struct {
	database.Queryer
	open          bool
	savepoints    []string
	rolledBackTo  []string
	commits       int
	rollbacks     int
	commitErr     error
	rollbackToErr error
}

func (t *fakeTx) IsOpen() bool { return t.open }

func (t *fakeTx) Commit(context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.commits++
	t.open = false
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.rollbacks++
	t.open = false
	return nil
}

func (t *fakeTx) Savepoint(_ context.Context, name string) error {
	t.savepoints = append(t.savepoints, name)
	return nil
}

func (t *fakeTx) RollbackTo(_ context.Context, name string) error {
	if t.rollbackToErr != nil {
		return t.rollbackToErr
	}
	t.rolledBackTo = append(t.rolledBackTo, name)
	return nil
}

func (t *fakeTx) Release(context.Context, string) error { return nil }

type fakeBeginner struct {
	tx       *fakeTx
	beginErr error
	begun    int
}

func newFakeBeginner() *fakeBeginner {
	return &fakeBeginner{tx: &fakeTx{}}
}

func (b *fakeBeginner) GetTx(ctx context.Context, _ *sql.TxOptions) (context.Context, database.Tx, error) {
	if b.beginErr != nil {
		return ctx, nil, b.beginErr
	}
	b.begun++
	b.tx.open = true
	return ctx, b.tx, nil
}

type fakePublisher struct {
	events []kafka.BusinessEvent
	err    error
}

func (p *fakePublisher) PublishBusinessEvents(_ context.Context, events []kafka.BusinessEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, events...)
	return nil
}

// ackFailingFeed refuses every acknowledgement.
type ackFailingFeed struct {
	*sources.SliceFeed
}

func (f ackFailingFeed) Ack(context.Context, []sources.Outcome) error {
	return fmt.Errorf("staged listings unavailable")
}

type brokenFeed struct{}

func (brokenFeed) Next(context.Context, int) ([]sources.Item, error) {
	return nil, fmt.Errorf("connection reset")
}

func (brokenFeed) Ack(context.Context, []sources.Outcome) error { return nil }

func category(id, slug string, level models.CategoryLevel, parent string) models.Category {
	return models.Category{ID: id, Slug: slug, Level: level, ParentSlug: models.OptionalString(parent)}
}

func testResolver(t *testing.T) *categories.Resolver {
	t.Helper()
	taxonomy, err := categories.NewTaxonomy([]models.Category{
		category("c-rest", "restaurant", models.CategoryLevelPrimary, ""),
		category("c-bbq", "korean-bbq", models.CategoryLevelSub, "restaurant"),
		category("c-med", "medical", models.CategoryLevelPrimary, ""),
		category("c-dent", "dental", models.CategoryLevelSub, "medical"),
		category("c-other", "other", models.CategoryLevelPrimary, ""),
	}, "other")
	require.NoError(t, err)

	table := &categories.MappingTable{Mappings: []categories.Mapping{
		{Label: "식당", Primary: "restaurant", Priority: 5},
		{Label: "고기집", Primary: "restaurant", Sub: "korean-bbq", Priority: 20},
		{Label: "치과", Primary: "medical", Sub: "dental", Priority: 20},
	}}
	return categories.NewResolver(taxonomy, table, categories.Options{})
}

func newTestProcessor(t *testing.T, store Store, beginner TxBeginner, publisher Publisher) *Processor {
	t.Helper()
	var opts Options
	if publisher != nil {
		opts.Publisher = publisher
	}
	return NewProcessor(
		silentLogger(),
		store,
		beginner,
		testResolver(t),
		matching.NewEngine(matching.DefaultThresholds()),
		normalizers.DefaultSet(),
		opts,
	)
}

func existingBusiness(id, nameKo, phone string, keys ...models.SourceKey) models.Business {
	b := models.Business{
		ID:                id,
		ClusterID:         id,
		SourceKeys:        keys,
		NameKo:            nameKo,
		PhoneNormalized:   models.OptionalString(phone),
		City:              "LOS ANGELES",
		Region:            "CA",
		PrimaryCategoryID: "c-rest",
	}
	b.QualityScore = merging.QualityScore(b)
	return b
}

func listing(source, id string, mutate func(*sources.DirectoryListing)) *sources.DirectoryListing {
	d := &sources.DirectoryListing{
		Source:   source,
		ID:       id,
		City:     "Los Angeles",
		State:    "CA",
		Category: "식당",
	}
	if mutate != nil {
		mutate(d)
	}
	return d
}
