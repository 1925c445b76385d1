package sqlstore_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"apiary-voice/internal/domain"
	"apiary-voice/internal/infra/sqlstore"
)

func openTestStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := sqlstore.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "colmenas.db"), logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_QuestionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	questions := []domain.QuestionSpec{
		{ID: "camara", Text: "Tiene cámara", Kind: domain.KindChoice, Order: 1, Active: true, Required: true, Options: []string{"Si", "No"}},
		{ID: "marcos", Text: "Marcos", Kind: domain.KindNumber, Order: 2, Active: true, Min: 0, Max: 20, DependsOn: "camara", ShowWhen: []string{"Si"}},
		{ID: "vieja", Text: "Vieja", Kind: domain.KindText, Order: 2, Active: false},
		{ID: "notas", Text: "Notas", Kind: domain.KindText, Order: 2, Active: true},
	}
	if err := store.ReplaceAll(ctx, questions); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	active, err := store.LoadActive(ctx)
	if err != nil {
		t.Fatalf("LoadActive: %v", err)
	}
	if len(active) != 3 {
		t.Fatalf("active: got %d, want 3", len(active))
	}
	if active[0].ID != "camara" || active[1].ID != "marcos" || active[2].ID != "notas" {
		t.Errorf("order: got %s, %s, %s", active[0].ID, active[1].ID, active[2].ID)
	}
	if !active[0].Required || len(active[0].Options) != 2 || active[0].Options[1] != "No" {
		t.Errorf("camara: got %+v", active[0])
	}
	if active[1].DependsOn != "camara" || len(active[1].ShowWhen) != 1 || active[1].Max != 20 {
		t.Errorf("marcos: got %+v", active[1])
	}

	all, err := store.AllQuestions(ctx)
	if err != nil {
		t.Fatalf("AllQuestions: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("all: got %d, want 4", len(all))
	}

	n, err := store.SetActive(ctx, "vieja", true)
	if err != nil || n != 1 {
		t.Fatalf("SetActive: got %d, %v", n, err)
	}
	if n, _ := store.SetActive(ctx, "", false); n != 4 {
		t.Errorf("deactivate all: got %d, want 4", n)
	}
	if active, _ := store.LoadActive(ctx); len(active) != 0 {
		t.Errorf("after deactivate all: got %d active", len(active))
	}

	if err := store.ReplaceAll(ctx, questions[:1]); err != nil {
		t.Fatalf("second ReplaceAll: %v", err)
	}
	active, _ = store.LoadActive(ctx)
	if len(active) != 1 {
		t.Errorf("after replace: got %d, want 1", len(active))
	}
}

func TestStore_InsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	var answers domain.Answers
	answers.Set("peso", domain.NumberValue(45))
	answers.Set("estado", domain.ChoiceValue("Media"))
	record := domain.Record{
		RecordID:    "2d7c7a1e-0f7b-4c43-9c57-5d0d1c1f4b7a",
		ApiaryID:    1,
		ApiaryName:  "Norte",
		HiveNumber:  3,
		StartedAt:   time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		CompletedAt: time.Date(2024, 5, 1, 10, 4, 30, 0, time.UTC),
		Answers:     answers,
	}

	for i := 0; i < 2; i++ {
		if err := store.Insert(ctx, record); err != nil {
			t.Fatalf("Insert %d: %v", i+1, err)
		}
	}

	n, err := store.CountRecords(ctx)
	if err != nil {
		t.Fatalf("CountRecords: %v", err)
	}
	if n != 1 {
		t.Errorf("records: got %d, want 1", n)
	}

	got, err := store.Get(ctx, record.RecordID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.StartedAt.Equal(record.StartedAt) || !got.CompletedAt.Equal(record.CompletedAt) {
		t.Errorf("times: got %v / %v", got.StartedAt, got.CompletedAt)
	}
	if keys := got.Answers.Keys(); len(keys) != 2 || keys[0] != "peso" {
		t.Errorf("answers: got %v", keys)
	}
}

func TestStore_ListRecordsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"r-old", "r-new", "r-mid"} {
		var answers domain.Answers
		answers.Set("peso", domain.NumberValue(40+i))
		offset := map[string]time.Duration{"r-old": 0, "r-mid": time.Hour, "r-new": 2 * time.Hour}[id]
		record := domain.Record{
			RecordID:    id,
			ApiaryID:    1,
			HiveNumber:  i + 1,
			StartedAt:   base.Add(offset),
			CompletedAt: base.Add(offset + 5*time.Minute),
			Answers:     answers,
		}
		if err := store.Insert(ctx, record); err != nil {
			t.Fatalf("Insert %s: %v", id, err)
		}
	}

	all, err := store.ListRecords(ctx, 0)
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(all) != 3 || all[0].RecordID != "r-new" || all[1].RecordID != "r-mid" || all[2].RecordID != "r-old" {
		ids := make([]string, len(all))
		for i, r := range all {
			ids[i] = r.RecordID
		}
		t.Fatalf("order: got %v, want [r-new r-mid r-old]", ids)
	}
	if v, _ := all[0].Answers.Get("peso"); v != domain.NumberValue(41) {
		t.Errorf("answers of r-new: got %v", v)
	}

	limited, err := store.ListRecords(ctx, 1)
	if err != nil {
		t.Fatalf("ListRecords limit: %v", err)
	}
	if len(limited) != 1 || limited[0].RecordID != "r-new" {
		t.Errorf("limit 1: got %d records", len(limited))
	}
}

func TestStore_GetMissing(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, sqlstore.ErrNotFound) {
		t.Errorf("error: got %v, want ErrNotFound", err)
	}
}

func TestStore_SeedApiaries(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	created, err := store.SeedApiaries(ctx, sqlstore.DefaultApiaries, 3)
	if err != nil {
		t.Fatalf("SeedApiaries: %v", err)
	}
	if !created {
		t.Error("expected seed on empty store")
	}

	apiaries, err := store.ListApiaries(ctx)
	if err != nil {
		t.Fatalf("ListApiaries: %v", err)
	}
	if len(apiaries) != 3 || apiaries[0].Name != "Norte" || apiaries[2].Name != "Sur" || apiaries[0].Location == "" {
		t.Fatalf("apiaries: got %+v", apiaries)
	}

	hives, err := store.ListHives(ctx, apiaries[1].ID)
	if err != nil {
		t.Fatalf("ListHives: %v", err)
	}
	if len(hives) != 3 || hives[0].Number != 1 || hives[2].Number != 3 {
		t.Errorf("hives: got %+v", hives)
	}

	created, err = store.SeedApiaries(ctx, []domain.Apiary{{Name: "Otro"}}, 1)
	if err != nil {
		t.Fatalf("second SeedApiaries: %v", err)
	}
	if created {
		t.Error("seed must not run on a populated store")
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := sqlstore.Open(context.Background(), "postgres", "", logger); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestOpen_InvalidMySQLDSN(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := sqlstore.Open(context.Background(), "mysql", "not a dsn", logger); err == nil {
		t.Error("expected error for malformed mysql dsn")
	}
}
