package processor

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/Ramsey-B/camellia/pkg/errors"
	"github.com/Ramsey-B/camellia/pkg/kafka"
	"github.com/Ramsey-B/camellia/pkg/models"
	"github.com/Ramsey-B/camellia/pkg/report"
	"github.com/Ramsey-B/camellia/pkg/sources"
)

var (
	koreaDailyKey = models.SourceKey{Source: "koreadaily", UID: "77"}
	duplicateKey  = models.SourceKey{Source: "radiokorea", UID: "1"}
	newKey        = models.SourceKey{Source: "radiokorea", UID: "2"}
)

// mixedFeed holds a duplicate of the stored record, a new business and a listing without a name.
func mixedFeed() *sources.SliceFeed {
	return sources.NewSliceFeed(
		listing("radiokorea", "1", func(d *sources.DirectoryListing) {
			d.NameKo = "서울식당"
			d.NameEn = "Seoul Restaurant"
			d.Phone = "(213) 555-1234"
			d.Address = "123 Main St"
			d.Zip = "90001"
		}),
		listing("radiokorea", "2", func(d *sources.DirectoryListing) {
			d.NameKo = "김밥나라"
			d.Phone = "(213) 555-9999"
			d.Category = "고기집"
		}),
		listing("radiokorea", "3", func(d *sources.DirectoryListing) {
			d.Phone = "(213) 555-0000"
		}),
	)
}

func storedRestaurant() models.Business {
	return existingBusiness("biz-1", "서울식당", "+12135551234", koreaDailyKey)
}

func TestProcessor_DryRunWritesNothing(t *testing.T) {
	store := newMemoryStore(storedRestaurant())
	beginner := newFakeBeginner()
	publisher := &fakePublisher{}
	feed := mixedFeed()

	stats, err := newTestProcessor(t, store, beginner, publisher).Run(context.Background(), feed, RunOptions{Command: "ingest", RunID: "run-1"})
	require.NoError(t, err)

	assert.Equal(t, report.ModeDryRun, stats.Mode)
	assert.Equal(t, report.StopDrained, stats.Stopped)
	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, 1, stats.Created)
	assert.Equal(t, 1, stats.Merged)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 0, stats.Errored)
	assert.Equal(t, 1, stats.Chunks)
	assert.Equal(t, 1, stats.SkipReasons[string(models.SkipMissingName)])
	assert.Equal(t, 1, stats.MatchReasons[string(models.ReasonPhone)])
	assert.Equal(t, 1, stats.MatchConfidence[string(models.ConfidenceHigh)])
	assert.Equal(t, 3, stats.Sources["radiokorea"])
	assert.ElementsMatch(t, []string{"name_en", "address", "postal_code"}, keys(stats.FieldsFilled))

	assert.Zero(t, beginner.begun)
	assert.Zero(t, store.creates)
	assert.Zero(t, store.updates)
	assert.Empty(t, feed.Acked)
	assert.Empty(t, publisher.events)
	assert.Equal(t, storedRestaurant(), store.records["biz-1"])
}

func TestProcessor_LiveRunPersistsAndAcks(t *testing.T) {
	store := newMemoryStore(storedRestaurant())
	beginner := newFakeBeginner()
	publisher := &fakePublisher{}
	feed := mixedFeed()

	stats, err := newTestProcessor(t, store, beginner, publisher).Run(context.Background(), feed, RunOptions{Command: "ingest", Live: true, RunID: "run-2"})
	require.NoError(t, err)

	assert.Equal(t, report.ModeLive, stats.Mode)
	assert.Equal(t, 1, stats.Created)
	assert.Equal(t, 1, stats.Merged)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, beginner.begun)
	assert.Equal(t, 1, beginner.tx.commits)
	assert.Len(t, beginner.tx.savepoints, 2)
	assert.Empty(t, beginner.tx.rolledBackTo)

	merged := store.records["biz-1"]
	assert.Equal(t, models.SourceKeys{koreaDailyKey, duplicateKey}, merged.SourceKeys)
	assert.NotNil(t, merged.NameEn)
	assert.NotNil(t, merged.AddressNormalized)
	assert.Equal(t, "90001", models.StringValue(merged.PostalCode))
	assert.Equal(t, 75, merged.QualityScore)

	created, ok := store.bySource(newKey)
	require.True(t, ok)
	assert.Equal(t, created.ID, created.ClusterID)
	assert.Equal(t, "c-rest", created.PrimaryCategoryID)
	assert.Equal(t, "c-bbq", models.StringValue(created.SubcategoryID))

	require.Len(t, feed.Acked, 3)
	assert.Equal(t, models.StagedPromoted, feed.Acked[0].Status)
	assert.Equal(t, "biz-1", feed.Acked[0].BusinessID)
	assert.Equal(t, "merged:phone_match", feed.Acked[0].Detail)
	assert.Equal(t, models.StagedPromoted, feed.Acked[1].Status)
	assert.Equal(t, created.ID, feed.Acked[1].BusinessID)
	assert.Equal(t, models.StagedSkipped, feed.Acked[2].Status)
	assert.Equal(t, string(models.SkipMissingName), feed.Acked[2].Detail)

	require.Len(t, publisher.events, 2)
	assert.Equal(t, kafka.EventBusinessMerged, publisher.events[0].EventType)
	assert.Equal(t, "biz-1", publisher.events[0].ClusterID)
	assert.Equal(t, "phone_match", publisher.events[0].MatchReason)
	assert.Equal(t, kafka.EventBusinessCreated, publisher.events[1].EventType)
	assert.Equal(t, "run-2", publisher.events[1].RunID)
}

func TestProcessor_MergesIntoSameRecordAccumulateWithinChunk(t *testing.T) {
	store := newMemoryStore(storedRestaurant())
	beginner := newFakeBeginner()
	feed := sources.NewSliceFeed(
		listing("radiokorea", "1", func(d *sources.DirectoryListing) {
			d.NameKo = "서울식당"
			d.Phone = "213-555-1234"
			d.Address = "123 Main St"
		}),
		listing("heykorean", "5", func(d *sources.DirectoryListing) {
			d.NameEn = "Seoul Restaurant"
			d.Phone = "213.555.1234"
			d.Address = "123 Main Street"
		}),
	)

	stats, err := newTestProcessor(t, store, beginner, nil).Run(context.Background(), feed, RunOptions{Command: "ingest", Live: true})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Merged)
	assert.Equal(t, 0, stats.Created)
	// the second listing sees the address the first one filled
	assert.Equal(t, 1, stats.FieldsFilled["address"])
	assert.Equal(t, 1, stats.FieldsFilled["name_en"])

	merged := store.records["biz-1"]
	assert.Len(t, merged.SourceKeys, 3)
	assert.NotNil(t, merged.NameEn)
}

func TestProcessor_SameChunkDuplicatesAreNotVisible(t *testing.T) {
	twins := func() *sources.SliceFeed {
		return sources.NewSliceFeed(
			listing("radiokorea", "10", func(d *sources.DirectoryListing) {
				d.NameKo = "한국마트"
				d.Phone = "(213) 555-4444"
			}),
			listing("koreadaily", "11", func(d *sources.DirectoryListing) {
				d.NameKo = "한국 마트"
				d.Phone = "213-555-4444"
			}),
		)
	}

	t.Run("one chunk", func(t *testing.T) {
		store := newMemoryStore()
		stats, err := newTestProcessor(t, store, newFakeBeginner(), nil).Run(context.Background(), twins(), RunOptions{Live: true, ChunkSize: 10})
		require.NoError(t, err)
		assert.Equal(t, 2, stats.Created)
		assert.Len(t, store.records, 2)
	})

	t.Run("separate chunks", func(t *testing.T) {
		store := newMemoryStore()
		stats, err := newTestProcessor(t, store, newFakeBeginner(), nil).Run(context.Background(), twins(), RunOptions{Live: true, ChunkSize: 1})
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Created)
		assert.Equal(t, 1, stats.Merged)
		assert.Equal(t, 2, stats.Chunks)
		assert.Len(t, store.records, 1)
	})
}

func TestProcessor_DryRunMatchesLiveAcrossChunks(t *testing.T) {
	feed := func() *sources.SliceFeed {
		return sources.NewSliceFeed(
			listing("radiokorea", "10", func(d *sources.DirectoryListing) {
				d.NameKo = "한국마트"
				d.Phone = "(213) 555-4444"
			}),
			listing("koreadaily", "11", func(d *sources.DirectoryListing) {
				d.NameKo = "한국 마트"
				d.Phone = "213-555-4444"
				d.Address = "500 Western Ave"
			}),
			listing("heykorean", "12", func(d *sources.DirectoryListing) {
				d.NameKo = "한국마트"
				d.Phone = "213.555.4444"
				d.Zip = "90020"
			}),
			listing("radiokorea", "13", func(d *sources.DirectoryListing) {
				d.NameKo = "김밥나라"
				d.Phone = "(213) 555-9999"
			}),
		)
	}

	for _, chunkSize := range []int{1, 2, 10} {
		t.Run(fmt.Sprintf("chunk size %d", chunkSize), func(t *testing.T) {
			live, err := newTestProcessor(t, newMemoryStore(storedRestaurant()), newFakeBeginner(), nil).
				Run(context.Background(), feed(), RunOptions{Live: true, ChunkSize: chunkSize})
			require.NoError(t, err)

			store := newMemoryStore(storedRestaurant())
			dry, err := newTestProcessor(t, store, newFakeBeginner(), nil).
				Run(context.Background(), feed(), RunOptions{ChunkSize: chunkSize})
			require.NoError(t, err)

			assert.Equal(t, live.Created, dry.Created)
			assert.Equal(t, live.Merged, dry.Merged)
			assert.Equal(t, live.MatchReasons, dry.MatchReasons)
			assert.Equal(t, live.FieldsFilled, dry.FieldsFilled)
			assert.Equal(t, live.Chunks, dry.Chunks)
			assert.Zero(t, store.creates)
			assert.Zero(t, store.updates)
		})
	}

	t.Run("chunk size 1 links every copy", func(t *testing.T) {
		dry, err := newTestProcessor(t, newMemoryStore(), newFakeBeginner(), nil).
			Run(context.Background(), feed(), RunOptions{ChunkSize: 1})
		require.NoError(t, err)
		assert.Equal(t, 2, dry.Created)
		assert.Equal(t, 2, dry.Merged)
		assert.Equal(t, 1, dry.FieldsFilled["address"])
		assert.Equal(t, 1, dry.FieldsFilled["postal_code"])
	})
}

func TestShadow_Pool(t *testing.T) {
	stored := existingBusiness("biz-1", "서울식당", "", koreaDailyKey)
	updated := stored
	updated.PhoneNormalized = models.OptionalString("+12135551234")

	sh := newShadow()
	assert.Equal(t, []models.Business{stored}, sh.pool([]models.Business{stored}, "+12135551234", "LOS ANGELES", 10))

	created := existingBusiness("new-1", "김밥나라", "+12135559999")
	elsewhere := existingBusiness("new-2", "다른집", "")
	elsewhere.City = "IRVINE"
	sh.commit([]decision{
		{action: actionMerge, target: updated},
		{action: actionCreate, target: created},
		{action: actionCreate, target: elsewhere},
		{action: actionSkip, target: existingBusiness("skipped", "x", "")},
	})

	pool := sh.pool([]models.Business{stored}, "+12135551234", "LOS ANGELES", 10)
	require.Len(t, pool, 2)
	assert.Equal(t, updated, pool[0], "merged state replaces the stored row and now matches by phone")
	assert.Equal(t, "new-1", pool[1].ID)

	assert.Len(t, sh.pool(nil, "+12135551234", "LOS ANGELES", 1), 1)
	_, ok := sh.get("skipped")
	assert.False(t, ok)
}

func TestProcessor_MergeTargetsClusterRoot(t *testing.T) {
	root := existingBusiness("biz-root", "서울식당", "", koreaDailyKey)
	child := existingBusiness("biz-child", "서울 식당", "+12135551234", models.SourceKey{Source: "heykorean", UID: "4"})
	child.ClusterID = "biz-root"

	store := newMemoryStore(root, child)
	feed := sources.NewSliceFeed(listing("radiokorea", "1", func(d *sources.DirectoryListing) {
		d.NameKo = "서울식당"
		d.Phone = "(213) 555-1234"
	}))

	stats, err := newTestProcessor(t, store, newFakeBeginner(), nil).Run(context.Background(), feed, RunOptions{Live: true})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Merged)
	require.Len(t, feed.Acked, 1)
	assert.Equal(t, "biz-root", feed.Acked[0].BusinessID)
	assert.True(t, store.records["biz-root"].SourceKeys.Contains(duplicateKey))
	assert.False(t, store.records["biz-child"].SourceKeys.Contains(duplicateKey))
	assert.Equal(t, "+12135551234", models.StringValue(store.records["biz-root"].PhoneNormalized))
}

func TestProcessor_CategoryResolution(t *testing.T) {
	store := newMemoryStore()
	feed := sources.NewSliceFeed(
		listing("radiokorea", "20", func(d *sources.DirectoryListing) {
			d.NameKo = "스마일치과"
			d.Phone = "(213) 555-2020"
			d.Category = "dental"
		}),
		listing("radiokorea", "21", func(d *sources.DirectoryListing) {
			d.NameKo = "이상한가게"
			d.Phone = "(213) 555-2121"
			d.Category = "완전히모르는카테고리xyz"
		}),
	)

	stats, err := newTestProcessor(t, store, newFakeBeginner(), nil).Run(context.Background(), feed, RunOptions{Live: true})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Created)

	dental, ok := store.bySource(models.SourceKey{Source: "radiokorea", UID: "20"})
	require.True(t, ok)
	// a bare subcategory slug is stored under its real parent
	assert.Equal(t, "c-med", dental.PrimaryCategoryID)
	assert.Equal(t, "c-dent", models.StringValue(dental.SubcategoryID))

	unknown, ok := store.bySource(models.SourceKey{Source: "radiokorea", UID: "21"})
	require.True(t, ok)
	assert.Equal(t, "c-other", unknown.PrimaryCategoryID)
	assert.Nil(t, unknown.SubcategoryID)

	assert.Equal(t, 1, stats.UnmappedCategories["완전히모르는카테고리xyz"])
	assert.Equal(t, 1, stats.CategoryMethods[string(models.ResolutionSlug)])
	assert.Equal(t, 1, stats.CategoryMethods[string(models.ResolutionFallback)])
}

func TestProcessor_WriteFailureRollsBackOneRecord(t *testing.T) {
	store := newMemoryStore(storedRestaurant())
	store.createErr = func(b models.Business) error {
		if b.SourceKeys.Contains(newKey) {
			return fmt.Errorf("duplicate key value violates unique constraint")
		}
		return nil
	}
	beginner := newFakeBeginner()
	feed := mixedFeed()

	stats, err := newTestProcessor(t, store, beginner, nil).Run(context.Background(), feed, RunOptions{Live: true})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Merged)
	assert.Equal(t, 0, stats.Created)
	assert.Equal(t, 1, stats.Errored)
	assert.Equal(t, 1, stats.ErrorStages[string(perrors.StageWrite)])
	assert.False(t, stats.Succeeded())

	assert.Equal(t, []string{"record_2"}, beginner.tx.rolledBackTo)
	assert.Equal(t, 1, beginner.tx.commits)

	require.Len(t, feed.Acked, 3)
	assert.Equal(t, models.StagedError, feed.Acked[1].Status)
	assert.Contains(t, feed.Acked[1].Detail, "radiokorea:2")
	assert.Len(t, store.records["biz-1"].SourceKeys, 2)
}

func TestProcessor_BrokenTransactionFailsChunk(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeBeginner)
		stage perrors.Stage
	}{
		{
			name:  "begin fails",
			setup: func(b *fakeBeginner) { b.beginErr = fmt.Errorf("too many connections") },
			stage: perrors.StageWrite,
		},
		{
			name:  "commit fails",
			setup: func(b *fakeBeginner) { b.tx.commitErr = fmt.Errorf("connection lost") },
			stage: perrors.StageWrite,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore(storedRestaurant())
			beginner := newFakeBeginner()
			tt.setup(beginner)
			publisher := &fakePublisher{}

			stats, err := newTestProcessor(t, store, beginner, publisher).Run(context.Background(), mixedFeed(), RunOptions{Live: true})
			require.NoError(t, err)

			assert.Equal(t, 0, stats.Created)
			assert.Equal(t, 0, stats.Merged)
			assert.Equal(t, 1, stats.Skipped)
			assert.Equal(t, 2, stats.Errored)
			assert.Equal(t, 2, stats.ErrorStages[string(tt.stage)])
			assert.Empty(t, publisher.events)
		})
	}
}

func TestProcessor_AckFailureRollsBackChunk(t *testing.T) {
	store := newMemoryStore(storedRestaurant())
	beginner := newFakeBeginner()
	feed := ackFailingFeed{mixedFeed()}

	stats, err := newTestProcessor(t, store, beginner, nil).Run(context.Background(), feed, RunOptions{Live: true})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.ErrorStages[string(perrors.StageAck)])
	assert.Equal(t, 1, beginner.tx.rollbacks)
	assert.Zero(t, beginner.tx.commits)
}

func TestProcessor_LookupFailureIsPerRecord(t *testing.T) {
	store := newMemoryStore()
	store.findErr = fmt.Errorf("statement timeout")

	stats, err := newTestProcessor(t, store, nil, nil).Run(context.Background(), mixedFeed(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, 2, stats.Errored)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 2, stats.ErrorStages[string(perrors.StageLookup)])
	assert.Equal(t, report.StopDrained, stats.Stopped)
}

func TestProcessor_DecodeErrorsAreCounted(t *testing.T) {
	dump := strings.Join([]string{
		`{"kind":"directory","source":"radiokorea","data":{"id":"9","name_ko":"서울식당","phone":"213-555-0000","city":"Los Angeles"}}`,
		`{"kind":"unknown","source":"radiokorea","data":{"id":"10"}}`,
		``,
		`not json`,
	}, "\n")

	stats, err := newTestProcessor(t, newMemoryStore(), nil, nil).Run(context.Background(), sources.NewFileFeed(strings.NewReader(dump)), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, 1, stats.Created)
	assert.Equal(t, 2, stats.Errored)
	assert.Equal(t, 2, stats.ErrorStages[string(perrors.StageDecode)])
}

func TestProcessor_StopsAtLimit(t *testing.T) {
	var records []sources.Record
	for i := 0; i < 5; i++ {
		i := i
		records = append(records, listing("heykorean", fmt.Sprint(i), func(d *sources.DirectoryListing) {
			d.NameEn = fmt.Sprintf("Shop %d", i)
			d.Phone = fmt.Sprintf("(213) 555-010%d", i)
		}))
	}

	stats, err := newTestProcessor(t, newMemoryStore(), nil, nil).Run(context.Background(), sources.NewSliceFeed(records...), RunOptions{Limit: 3, ChunkSize: 2})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, 2, stats.Chunks)
	assert.Equal(t, report.StopLimit, stats.Stopped)
}

func TestProcessor_StopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := newTestProcessor(t, newMemoryStore(), nil, nil).Run(ctx, mixedFeed(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, report.StopCancelled, stats.Stopped)
	assert.Zero(t, stats.Processed)
}

func TestProcessor_FatalConditions(t *testing.T) {
	t.Run("no resolver", func(t *testing.T) {
		p := NewProcessor(silentLogger(), newMemoryStore(), nil, nil, nil, nil, Options{})
		stats, err := p.Run(context.Background(), mixedFeed(), RunOptions{})
		require.Error(t, err)

		fatal, ok := perrors.AsFatal(err)
		require.True(t, ok)
		assert.Equal(t, perrors.FatalTaxonomy, fatal.Kind)
		assert.Equal(t, report.StopFatal, stats.Stopped)
		assert.NotEmpty(t, stats.Fatal)
	})

	t.Run("feed unreachable", func(t *testing.T) {
		stats, err := newTestProcessor(t, newMemoryStore(), nil, nil).Run(context.Background(), brokenFeed{}, RunOptions{})
		require.Error(t, err)
		assert.True(t, perrors.IsFatal(err))
		assert.Equal(t, report.StopFatal, stats.Stopped)
	})

	t.Run("live without transactions", func(t *testing.T) {
		_, err := newTestProcessor(t, newMemoryStore(), nil, nil).Run(context.Background(), mixedFeed(), RunOptions{Live: true})
		fatal, ok := perrors.AsFatal(err)
		require.True(t, ok)
		assert.Equal(t, perrors.FatalConfig, fatal.Kind)
	})
}

func keys(h report.Histogram) []string {
	var out []string
	for k := range h {
		out = append(out, k)
	}
	return out
}
