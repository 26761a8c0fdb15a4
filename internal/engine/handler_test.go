package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/factorhq/factor/internal/autopost"
	"github.com/factorhq/factor/internal/classification"
	"github.com/factorhq/factor/internal/workflow"
)

func setupPipelineMux(rt *Runtime, cfg autopost.Config) *http.ServeMux {
	mux := http.NewServeMux()
	group := NewHandler(rt, cfg).Routes()
	for _, route := range group.Routes {
		mux.HandleFunc(route.Method+" "+group.Prefix+route.Pattern, route.Handler)
	}
	return mux
}

func TestHandlerProcess(t *testing.T) {
	store := newMemStore(capturedInvoice())
	poster := &stubPoster{result: &autopost.PostResult{Success: true, BCDocumentID: "bc-guid-1"}}
	rt := newRuntime(store, poster, stubCRM{vendorBCID: "V00042"}, false)
	mux := setupPipelineMux(rt, autopost.Config{Enabled: true})

	req := httptest.NewRequest(http.MethodPost, "/pipeline/"+store.doc.ID.String()+"/process", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if store.doc.PostingStatus != workflow.PostingPosted {
		t.Errorf("posting status: got %s, want posted", store.doc.PostingStatus)
	}
}

func TestHandlerProcessBadID(t *testing.T) {
	rt := newRuntime(newMemStore(capturedInvoice()), &stubPoster{}, stubCRM{}, false)
	mux := setupPipelineMux(rt, autopost.Config{})

	req := httptest.NewRequest(http.MethodPost, "/pipeline/not-a-uuid/process", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rec.Code)
	}
}

func TestHandlerEligibility(t *testing.T) {
	doc := capturedInvoice()
	doc.DocType = classification.TypeAPInvoice
	doc.ClassificationConfidence = 0.95
	doc.VendorBCID = "V00042"
	store := newMemStore(doc)
	rt := newRuntime(store, &stubPoster{}, stubCRM{}, false)
	mux := setupPipelineMux(rt, autopost.Config{Enabled: true, Threshold: 0.90})

	req := httptest.NewRequest(http.MethodGet, "/pipeline/"+store.doc.ID.String()+"/eligibility", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}

	var decision autopost.Decision
	if err := json.NewDecoder(rec.Body).Decode(&decision); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !decision.Eligible {
		t.Errorf("decision: got %q, want eligible", decision.Reason)
	}
	if store.doc.WorkflowStatus != workflow.StatusCaptured {
		t.Error("eligibility check must not mutate the document")
	}
	if len(store.events) != 0 {
		t.Errorf("eligibility check appended %d events, want 0", len(store.events))
	}
}

func TestHandlerPostBlockedInPilot(t *testing.T) {
	store := newMemStore(capturedInvoice())
	inner := &stubPoster{result: &autopost.PostResult{Success: true}}
	guarded := autopost.NewGuardedPoster(inner, func() bool { return true })
	rt := newRuntime(store, guarded, stubCRM{}, true)
	mux := setupPipelineMux(rt, autopost.Config{Enabled: true})

	req := httptest.NewRequest(http.MethodPost, "/pipeline/"+store.doc.ID.String()+"/post", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want 409 while pilot mode blocks writes", rec.Code)
	}
	if inner.creates != 0 {
		t.Errorf("inner poster creates: got %d, want 0", inner.creates)
	}
	if store.doc.PostingStatus != workflow.PostingNone {
		t.Errorf("posting status: got %s, a blocked post must not touch the posting axis", store.doc.PostingStatus)
	}

	var blocked int
	for _, e := range store.events {
		if e.Outcome == workflow.OutcomeBlocked {
			blocked++
		}
	}
	if blocked != 1 {
		t.Errorf("blocked events: got %d, want the refusal on the audit trail", blocked)
	}
}

func TestHandlerPost(t *testing.T) {
	store := newMemStore(capturedInvoice())
	poster := &stubPoster{result: &autopost.PostResult{
		Success:          true,
		BCDocumentID:     "bc-guid-1",
		BCDocumentNumber: "PI-100042",
	}}
	rt := newRuntime(store, poster, stubCRM{}, false)
	mux := setupPipelineMux(rt, autopost.Config{Enabled: true})

	req := httptest.NewRequest(http.MethodPost, "/pipeline/"+store.doc.ID.String()+"/post", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var result autopost.Result
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !result.Success || result.BCDocumentNumber != "PI-100042" {
		t.Errorf("result: got %+v", result)
	}

	if store.doc.PostingStatus != workflow.PostingPosted {
		t.Errorf("posting status: got %s, want posted recorded on the document", store.doc.PostingStatus)
	}
	if store.doc.BCDocumentNumber == nil || *store.doc.BCDocumentNumber != "PI-100042" {
		t.Errorf("bc document number: got %v, want PI-100042 recorded", store.doc.BCDocumentNumber)
	}

	var successEvents int
	for _, e := range store.events {
		if e.Action == "create_purchase_invoice" && e.Outcome == workflow.OutcomeSuccess {
			successEvents++
		}
	}
	if successEvents != 1 {
		t.Errorf("success events: got %d, want the outcome on the audit trail", successEvents)
	}
}

func TestHandlerPostTwiceConflicts(t *testing.T) {
	store := newMemStore(capturedInvoice())
	poster := &stubPoster{result: &autopost.PostResult{Success: true, BCDocumentID: "bc-guid-1"}}
	rt := newRuntime(store, poster, stubCRM{}, false)
	mux := setupPipelineMux(rt, autopost.Config{Enabled: true})

	for i, want := range []int{http.StatusOK, http.StatusConflict} {
		req := httptest.NewRequest(http.MethodPost, "/pipeline/"+store.doc.ID.String()+"/post", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != want {
			t.Fatalf("post %d: got %d, want %d: %s", i+1, rec.Code, want, rec.Body.String())
		}
	}

	if poster.creates != 1 {
		t.Errorf("poster creates: got %d, a posted document must not post twice", poster.creates)
	}
}

func TestHandlerPostThenProcessNeverReposts(t *testing.T) {
	store := newMemStore(capturedInvoice())
	poster := &stubPoster{result: &autopost.PostResult{Success: true, BCDocumentID: "bc-guid-1"}}
	rt := newRuntime(store, poster, stubCRM{vendorBCID: "V00042"}, false)
	mux := setupPipelineMux(rt, autopost.Config{Enabled: true})

	req := httptest.NewRequest(http.MethodPost, "/pipeline/"+store.doc.ID.String()+"/post", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("direct post: got %d, want 200: %s", rec.Code, rec.Body.String())
	}

	doc, err := Process(context.Background(), rt, store.doc.ID)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}

	if poster.creates != 1 {
		t.Errorf("poster creates: got %d, the pipeline must not repeat a recorded post", poster.creates)
	}
	if doc.PostingStatus != workflow.PostingPosted {
		t.Errorf("posting status: got %s, want posted", doc.PostingStatus)
	}

	var alreadyPosted int
	for _, e := range store.events {
		if e.Outcome == workflow.OutcomeBlocked && e.Detail == autopost.ReasonAlreadyPosted {
			alreadyPosted++
		}
	}
	if alreadyPosted != 1 {
		t.Errorf("already-posted events: got %d, want the pipeline refusal recorded", alreadyPosted)
	}
}
