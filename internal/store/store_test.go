package store

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-tangra/go-tangra-hwdb/internal/inventory"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := New(context.Background(), DriverSQLite, path, log.NewStdLogger(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func submit(t *testing.T, s *Store, body *inventory.Payload, at time.Time) *inventory.PC {
	t.Helper()
	id := inventory.DeriveID(body.Serial)
	pc, err := s.Upsert(context.Background(), id, func(existing *inventory.PC) (*inventory.PC, inventory.CollectionOps) {
		return inventory.Reconcile(id, body, existing, at)
	})
	require.NoError(t, err)
	return pc
}

func ptr[T any](v T) *T { return &v }

func fullPayload(serial, host string) *inventory.Payload {
	return &inventory.Payload{
		Serial:     serial,
		Host:       ptr(host),
		CPU:        ptr("Ryzen 7 5800X"),
		Mainboard:  ptr("B550"),
		Resolution: ptr("1920x1080"),
		RAM: &inventory.RAMPayload{
			TotalSizeGB: ptr(int64(16)),
			Slots:       ptr("2/4"),
			Sticks: &[]inventory.StickPayload{
				{SizeGB: 8, Type: "DDR4", Model: "M1"},
				{SizeGB: 8, Type: "DDR4", Model: "M1"},
			},
		},
		GPUs:  &[]string{"RTX 3070"},
		Disks: &[]inventory.DiskPayload{{Size: "931.5G", Model: "WD Blue", Serial: "W1", Path: "/dev/sda"}},
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))

	v, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "x", log.NewStdLogger(io.Discard))
	assert.Error(t, err)
}

func TestUpsertCreatesAndReads(t *testing.T) {
	s := newTestStore(t)
	at := time.Date(2026, 5, 1, 10, 30, 0, 123456000, time.UTC)

	submit(t, s, fullPayload("X1", "A"), at)

	got, err := s.GetPC(context.Background(), inventory.DeriveID("X1"))
	require.NoError(t, err)
	assert.Equal(t, "X1", got.Serial)
	assert.Equal(t, "A", got.Host)
	assert.Equal(t, int64(16), got.RAMTotalGB)
	assert.Equal(t, "2/4", got.RAMSlots)
	assert.Equal(t, at, got.SubmittedAt)
	assert.Equal(t, []string{"RTX 3070"}, got.GPUs)
	assert.Len(t, got.RAMSticks, 2)
	assert.Equal(t, []inventory.Disk{{SizeGB: 931, Model: "WD Blue", Serial: "W1", Path: "/dev/sda"}}, got.Disks)
	assert.Empty(t, got.Tags)
}

func TestUpsertSerialOnlyKeepsEverything(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := inventory.DeriveID("X1")

	submit(t, s, fullPayload("X1", "A"), time.Now())
	before, err := s.GetPC(ctx, id)
	require.NoError(t, err)

	later := before.SubmittedAt.Add(time.Hour)
	submit(t, s, &inventory.Payload{Serial: "X1"}, later)

	after, err := s.GetPC(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, later, after.SubmittedAt)

	after.SubmittedAt = before.SubmittedAt
	assert.Equal(t, before, after)
}

func TestUpsertIdenticalPayloadIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	submit(t, s, fullPayload("X1", "A"), at)
	first, err := s.GetPC(ctx, inventory.DeriveID("X1"))
	require.NoError(t, err)

	submit(t, s, fullPayload("X1", "A"), at)
	second, err := s.GetPC(ctx, inventory.DeriveID("X1"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestUpsertCollectionReplace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := inventory.DeriveID("X1")

	submit(t, s, fullPayload("X1", "A"), time.Now())

	submit(t, s, &inventory.Payload{Serial: "X1", GPUs: &[]string{"RX 6600", "UHD 630"}}, time.Now())
	got, err := s.GetPC(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"RX 6600", "UHD 630"}, got.GPUs)
	assert.Len(t, got.Disks, 1, "omitted disks are untouched")

	submit(t, s, &inventory.Payload{Serial: "X1", Disks: &[]inventory.DiskPayload{}}, time.Now())
	got, err = s.GetPC(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, got.Disks)
	assert.Len(t, got.GPUs, 2)
	assert.Len(t, got.RAMSticks, 2)
}

func TestUpsertRAMWithoutSticksKeepsSticks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	submit(t, s, fullPayload("X1", "A"), time.Now())
	submit(t, s, &inventory.Payload{Serial: "X1", RAM: &inventory.RAMPayload{TotalSizeGB: ptr(int64(32))}}, time.Now())

	got, err := s.GetPC(ctx, inventory.DeriveID("X1"))
	require.NoError(t, err)
	assert.Equal(t, int64(32), got.RAMTotalGB)
	assert.Equal(t, "2/4", got.RAMSlots)
	assert.Len(t, got.RAMSticks, 2)
}

func TestUpsertFailureRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := inventory.DeriveID("X1")

	submit(t, s, fullPayload("X1", "A"), time.Now())

	cctx, cancel := context.WithCancel(ctx)
	_, err := s.Upsert(cctx, id, func(existing *inventory.PC) (*inventory.PC, inventory.CollectionOps) {
		pc := *existing
		pc.Host = "B"
		cancel()
		return &pc, inventory.CollectionOps{GPUs: &[]string{}}
	})
	require.Error(t, err)

	got, err := s.GetPC(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Host)
	assert.Equal(t, []string{"RTX 3070"}, got.GPUs)
}

func TestUpsertConcurrentSameID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := inventory.DeriveID("X1")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := &inventory.Payload{Serial: "X1"}
			if i%2 == 0 {
				body.GPUs = &[]string{"GPU"}
			} else {
				body.Notes = ptr("note")
			}
			_, err := s.Upsert(ctx, id, func(existing *inventory.PC) (*inventory.PC, inventory.CollectionOps) {
				return inventory.Reconcile(id, body, existing, time.Now())
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := s.GetPC(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "note", got.Notes)
	assert.Equal(t, []string{"GPU"}, got.GPUs)
}

func TestGetPCNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetPC(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateNotes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := inventory.DeriveID("X1")
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	submit(t, s, fullPayload("X1", "A"), at)
	require.NoError(t, s.UpdateNotes(ctx, id, "rack 3"))

	got, err := s.GetPC(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "rack 3", got.Notes)
	assert.Equal(t, at, got.SubmittedAt)

	assert.ErrorIs(t, s.UpdateNotes(ctx, "missing", "x"), ErrNotFound)
}

func TestDeletePCCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := inventory.DeriveID("X1")

	submit(t, s, fullPayload("X1", "A"), time.Now())
	tag, err := s.CreateTag(ctx, "Gaming", inventory.DefaultTagColor)
	require.NoError(t, err)
	require.NoError(t, s.AddTag(ctx, id, tag.ID))

	require.NoError(t, s.DeletePC(ctx, id))

	for _, table := range []string{"gpu", "ram_stick", "disk", "pc_tag"} {
		var n int
		require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM `+table+` WHERE pc_id = ?`, id).Scan(&n))
		assert.Zero(t, n, table)
	}

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []inventory.Tag{*tag}, tags)

	assert.ErrorIs(t, s.DeletePC(ctx, id), ErrNotFound)
}

func TestTagLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := inventory.DeriveID("X1")
	submit(t, s, fullPayload("X1", "A"), time.Now())

	office, err := s.CreateTag(ctx, "Office", "#40C057")
	require.NoError(t, err)
	gaming, err := s.CreateTag(ctx, "Gaming", inventory.DefaultTagColor)
	require.NoError(t, err)
	assert.NotEqual(t, office.ID, gaming.ID)

	_, err = s.CreateTag(ctx, "Gaming", "#000000")
	assert.ErrorIs(t, err, ErrConflict)

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "Gaming", tags[0].Name)

	require.NoError(t, s.AddTag(ctx, id, office.ID))
	require.NoError(t, s.AddTag(ctx, id, gaming.ID))
	assert.ErrorIs(t, s.AddTag(ctx, id, gaming.ID), ErrConflict)
	assert.ErrorIs(t, s.AddTag(ctx, "missing", gaming.ID), inventory.ErrPCNotFound)
	assert.ErrorIs(t, s.AddTag(ctx, id, 9999), inventory.ErrTagNotFound)

	pcTags, err := s.PCTags(ctx, id)
	require.NoError(t, err)
	require.Len(t, pcTags, 2)
	assert.Equal(t, "Gaming", pcTags[0].Name)
	assert.Equal(t, "Office", pcTags[1].Name)

	_, err = s.PCTags(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.RemoveTag(ctx, id, office.ID))
	assert.ErrorIs(t, s.RemoveTag(ctx, id, office.ID), inventory.ErrAssignmentNotFound)

	require.NoError(t, s.DeleteTag(ctx, gaming.ID))
	assert.ErrorIs(t, s.DeleteTag(ctx, gaming.ID), inventory.ErrTagNotFound)

	pcTags, err = s.PCTags(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, pcTags)
}

func TestListPCsSortAndFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	submit(t, s, fullPayload("S1", "charlie"), base)
	submit(t, s, fullPayload("S2", "alpha"), base.Add(time.Hour))
	submit(t, s, fullPayload("S3", "bravo"), base.Add(2*time.Hour))

	gaming, err := s.CreateTag(ctx, "Gaming", "#FA5252")
	require.NoError(t, err)
	office, err := s.CreateTag(ctx, "Office", "#40C057")
	require.NoError(t, err)
	require.NoError(t, s.AddTag(ctx, inventory.DeriveID("S1"), office.ID))
	require.NoError(t, s.AddTag(ctx, inventory.DeriveID("S1"), gaming.ID))
	require.NoError(t, s.AddTag(ctx, inventory.DeriveID("S3"), gaming.ID))

	hosts := func(list []inventory.Summary) []string {
		out := make([]string, 0, len(list))
		for _, p := range list {
			out = append(out, p.Host)
		}
		return out
	}

	list, err := s.ListPCs(ctx, inventory.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"bravo", "alpha", "charlie"}, hosts(list))

	list, err = s.ListPCs(ctx, inventory.ListFilter{SortBy: "host", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, hosts(list))

	list, err = s.ListPCs(ctx, inventory.ListFilter{SortBy: "bogus", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"charlie", "alpha", "bravo"}, hosts(list))

	list, err = s.ListPCs(ctx, inventory.ListFilter{Tag: "Gaming", SortBy: "host", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"bravo", "charlie"}, hosts(list))
	assert.Equal(t, []inventory.TagRef{{Name: "Gaming", Color: "#FA5252"}}, list[0].Tags)
	assert.Equal(t, []inventory.TagRef{
		{Name: "Gaming", Color: "#FA5252"},
		{Name: "Office", Color: "#40C057"},
	}, list[1].Tags)

	list, err = s.ListPCs(ctx, inventory.ListFilter{Tag: "Nobody"})
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestRebind(t *testing.T) {
	pg := &Store{driver: DriverPostgres}
	assert.Equal(t, "SELECT 1 FROM pc WHERE id = $1 AND host = $2", pg.rebind("SELECT 1 FROM pc WHERE id = ? AND host = ?"))

	lite := &Store{driver: DriverSQLite}
	assert.Equal(t, "WHERE id = ?", lite.rebind("WHERE id = ?"))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: tag.name (2067)")))
	assert.False(t, isUniqueViolation(errors.New("database is locked")))
}
