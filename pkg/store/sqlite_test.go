package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/fhir"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "forms.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenCreatesSchema(t *testing.T) {
	s := openTestStore(t)

	rows, err := s.db.Query("SELECT name FROM sqlite_master WHERE type='table' ORDER BY name")
	if err != nil {
		t.Fatalf("query tables: %v", err)
	}
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan table name: %v", err)
		}
		found[name] = true
	}
	for _, table := range []string{"questionnaires", "responses"} {
		if !found[table] {
			t.Errorf("expected table %q not found", table)
		}
	}
}

func TestSaveAndResolveQuestionnaire(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	q := &fhir.Questionnaire{
		ResourceType: "Questionnaire",
		ID:           "intake",
		URL:          "https://example.org/Questionnaire/intake",
		Title:        "Intake",
		Item: []*fhir.QuestionnaireItem{
			{LinkID: "name", Type: fhir.ItemTypeString, Text: "Name"},
		},
	}
	if _, err := s.SaveQuestionnaire(ctx, q); err != nil {
		t.Fatalf("SaveQuestionnaire: %v", err)
	}

	for _, ref := range []string{"intake", "Questionnaire/intake", q.URL} {
		got, err := s.ResolveDefinition(ctx, ref)
		if err != nil {
			t.Fatalf("ResolveDefinition(%q): %v", ref, err)
		}
		if diff := cmp.Diff(q, got); diff != "" {
			t.Fatalf("ResolveDefinition(%q) mismatch (-want +got):\n%s", ref, diff)
		}
	}
}

func TestSaveQuestionnaireAssignsID(t *testing.T) {
	s := openTestStore(t)

	id, err := s.SaveQuestionnaire(context.Background(), &fhir.Questionnaire{ResourceType: "Questionnaire"})
	if err != nil {
		t.Fatalf("SaveQuestionnaire: %v", err)
	}
	if id == "" {
		t.Fatalf("expected generated id")
	}
}

func TestResolveDefinitionNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.ResolveDefinition(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestResolveResponseMissingMeansNone(t *testing.T) {
	s := openTestStore(t)

	qr, err := s.ResolveResponse(context.Background(), "missing")
	if err != nil {
		t.Fatalf("ResolveResponse: %v", err)
	}
	if qr != nil {
		t.Fatalf("expected nil response, got %+v", qr)
	}
}

func TestSaveResponseUpserts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	answer := "Ada"
	qr := &fhir.QuestionnaireResponse{
		ResourceType:  "QuestionnaireResponse",
		Questionnaire: "Questionnaire/intake",
		Status:        "in-progress",
		Item: []*fhir.QuestionnaireResponseItem{
			{ID: "id-1", LinkID: "name", Answer: []fhir.Answer{{ValueString: &answer}}},
		},
	}

	id, err := s.SaveResponse(ctx, qr)
	if err != nil {
		t.Fatalf("SaveResponse: %v", err)
	}

	qr.Status = "completed"
	if _, err := s.SaveResponse(ctx, qr); err != nil {
		t.Fatalf("SaveResponse update: %v", err)
	}

	got, err := s.ResolveResponse(ctx, "QuestionnaireResponse/"+id)
	if err != nil {
		t.Fatalf("ResolveResponse: %v", err)
	}
	if got.Status != "completed" {
		t.Fatalf("status = %q, want completed", got.Status)
	}
	if diff := cmp.Diff(qr, got); diff != "" {
		t.Fatalf("response mismatch (-want +got):\n%s", diff)
	}
}

func TestResponseSinkAutosaves(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sink := s.ResponseSink(ctx)
	qr := &fhir.QuestionnaireResponse{
		ResourceType:  "QuestionnaireResponse",
		ID:            "draft-1",
		Questionnaire: "Questionnaire/intake",
		Status:        "in-progress",
	}
	sink(qr)

	got, err := s.ResolveResponse(ctx, "draft-1")
	if err != nil {
		t.Fatalf("ResolveResponse: %v", err)
	}
	if got == nil || got.Questionnaire != "Questionnaire/intake" {
		t.Fatalf("autosaved response = %+v", got)
	}
}
