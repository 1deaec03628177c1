package portal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"extportal/internal/domain"
	"extportal/internal/domain/models"
	"extportal/internal/domain/services"
)

type docEnv struct {
	*testEnv
	docs       *Documents
	folderRepo *fakeFolderRepo
	blob       *fakeBlob
}

func newDocEnv(t *testing.T, tenants ...models.Tenant) *docEnv {
	t.Helper()
	env := newTestEnv(tenants...)
	folderRepo := newFakeFolderRepo()
	blob := newFakeBlob()
	docs := NewDocuments(DocumentDeps{
		Registry: env.registry,
		Metadata: env.docRepo,
		Folders:  folderRepo,
		Blobs:    blob,
		Logger:   testLogger(),
	})
	if err := env.registry.Load(context.Background(), adminIdent()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return &docEnv{testEnv: env, docs: docs, folderRepo: folderRepo, blob: blob}
}

func TestAddDocumentUploadsThenRegisters(t *testing.T) {
	env := newDocEnv(t, sampleTenant("t-1", "11111111000111", "Alpha", nil))
	payload := []byte("fake pdf bytes")

	doc, err := env.docs.Add(context.Background(), adminIdent(), "t-1", &services.DocumentUpload{
		FileName:    "contrato.pdf",
		Data:        payload,
		ContentType: "application/pdf",
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if doc.Type != "PDF" {
		t.Errorf("doc type = %q, want PDF", doc.Type)
	}
	if !strings.Contains(doc.Size, "B") {
		t.Errorf("doc size = %q, want a human-formatted size", doc.Size)
	}
	wantPath := fmt.Sprintf("tenants/t-1/%s/contrato.pdf", doc.ID)
	if doc.StoragePath != wantPath {
		t.Errorf("storage path = %q, want %q", doc.StoragePath, wantPath)
	}
	if !strings.HasSuffix(doc.FileURL, wantPath) {
		t.Errorf("file url = %q, want suffix %q", doc.FileURL, wantPath)
	}

	stored, err := env.blob.Download(context.Background(), doc.StoragePath)
	if err != nil || !bytes.Equal(stored, payload) {
		t.Errorf("blob content mismatch, err = %v", err)
	}

	tenant, _ := env.registry.Get("t-1")
	if len(tenant.Documents) != 1 || tenant.Documents[0].ID != doc.ID {
		t.Errorf("registry collection = %+v, want the new document", tenant.Documents)
	}
}

func TestAddDocumentFailedRegistrationCleansUpBlob(t *testing.T) {
	env := newDocEnv(t, sampleTenant("t-1", "11111111000111", "Alpha", nil))
	env.docRepo.failOn("insert", fmt.Errorf("write: %w", domain.ErrUnavailable))

	_, err := env.docs.Add(context.Background(), adminIdent(), "t-1", &services.DocumentUpload{
		FileName: "contrato.pdf",
		Data:     []byte("x"),
	})
	if err == nil {
		t.Fatal("Add() should fail when metadata registration fails")
	}

	if len(env.blob.objects) != 0 {
		t.Errorf("orphaned blob left behind: %v", env.blob.objects)
	}
	tenant, _ := env.registry.Get("t-1")
	if len(tenant.Documents) != 0 {
		t.Errorf("failed add mutated the registry collection")
	}
}

func TestAddDocumentValidatesTargetFolder(t *testing.T) {
	env := newDocEnv(t, sampleTenant("t-1", "11111111000111", "Alpha", nil))

	_, err := env.docs.Add(context.Background(), adminIdent(), "t-1", &services.DocumentUpload{
		FileName: "contrato.pdf",
		Data:     []byte("x"),
		FolderID: strPtr("missing-folder"),
	})
	if !errors.Is(err, domain.ErrValidation) {
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("Add() into a missing folder error = %v, want a validation error", err)
		}
	}
}

func TestRemoveDocumentReloadsFromRemote(t *testing.T) {
	env := newDocEnv(t, sampleTenant("t-1", "11111111000111", "Alpha", nil))
	doc, err := env.docs.Add(context.Background(), adminIdent(), "t-1", &services.DocumentUpload{
		FileName: "contrato.pdf",
		Data:     []byte("x"),
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	// A second document inserted behind the registry's back: the
	// post-delete reload must pick it up.
	env.docRepo.Insert(context.Background(), &models.Document{ID: "d-ext", TenantID: "t-1", Name: "externo.pdf"})

	if err := env.docs.Remove(context.Background(), adminIdent(), "t-1", doc.ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	tenant, _ := env.registry.Get("t-1")
	if len(tenant.Documents) != 1 || tenant.Documents[0].ID != "d-ext" {
		t.Errorf("collection after reload = %+v, want [d-ext]", tenant.Documents)
	}
	if len(env.blob.deletes) != 1 || env.blob.deletes[0] != doc.StoragePath {
		t.Errorf("blob deletes = %v, want [%s]", env.blob.deletes, doc.StoragePath)
	}
}

func TestRemoveDocumentDeletesUnmirroredPayload(t *testing.T) {
	env := newDocEnv(t, sampleTenant("t-1", "11111111000111", "Alpha", nil))

	// The document exists remotely and in the blob store but was never
	// mirrored into the registry's collection.
	path := "tenants/t-1/d-cold/nota.pdf"
	env.blob.Put(context.Background(), path, []byte("x"), "application/pdf")
	env.docRepo.Insert(context.Background(), &models.Document{
		ID: "d-cold", TenantID: "t-1", Name: "nota.pdf", StoragePath: path,
	})

	if err := env.docs.Remove(context.Background(), adminIdent(), "t-1", "d-cold"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	if len(env.blob.deletes) != 1 || env.blob.deletes[0] != path {
		t.Errorf("blob deletes = %v, want [%s]", env.blob.deletes, path)
	}
	if _, err := env.blob.Download(context.Background(), path); err == nil {
		t.Error("payload still present after removing an unmirrored document")
	}
}

func TestRemoveDocumentRemoteFailureLeavesMetadata(t *testing.T) {
	env := newDocEnv(t, sampleTenant("t-1", "11111111000111", "Alpha", nil))
	doc, err := env.docs.Add(context.Background(), adminIdent(), "t-1", &services.DocumentUpload{
		FileName: "contrato.pdf",
		Data:     []byte("x"),
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	env.docRepo.failOn("delete", fmt.Errorf("write: %w", domain.ErrUnavailable))

	if err := env.docs.Remove(context.Background(), adminIdent(), "t-1", doc.ID); err == nil {
		t.Fatal("Remove() should fail when the remote delete fails")
	}
	tenant, _ := env.registry.Get("t-1")
	if len(tenant.Documents) != 1 {
		t.Error("metadata removed locally although the remote delete failed")
	}
}

func TestMoveDocumentValidatesFolderOwnership(t *testing.T) {
	env := newDocEnv(t,
		sampleTenant("t-1", "11111111000111", "Alpha", nil),
		sampleTenant("t-2", "22222222000122", "Beta", nil),
	)
	doc, err := env.docs.Add(context.Background(), adminIdent(), "t-1", &services.DocumentUpload{
		FileName: "contrato.pdf",
		Data:     []byte("x"),
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	foreign := models.Folder{ID: "f-2", TenantID: "t-2", Name: "Beta Docs"}
	env.folderRepo.Insert(context.Background(), &foreign)
	own := models.Folder{ID: "f-1", TenantID: "t-1", Name: "Fiscal"}
	env.folderRepo.Insert(context.Background(), &own)

	if err := env.docs.Move(context.Background(), adminIdent(), "t-1", doc.ID, strPtr("f-2")); err == nil {
		t.Error("moved a document into another tenant's folder")
	}

	if err := env.docs.Move(context.Background(), adminIdent(), "t-1", doc.ID, strPtr("f-1")); err != nil {
		t.Fatalf("Move() into own folder error = %v", err)
	}
	moved, _ := env.registry.documentOf("t-1", doc.ID)
	if moved.FolderID == nil || *moved.FolderID != "f-1" {
		t.Errorf("document folder = %v, want f-1", moved.FolderID)
	}

	// Back to the root.
	if err := env.docs.Move(context.Background(), adminIdent(), "t-1", doc.ID, nil); err != nil {
		t.Fatalf("Move() to root error = %v", err)
	}
	moved, _ = env.registry.documentOf("t-1", doc.ID)
	if moved.FolderID != nil {
		t.Errorf("document folder = %v, want root", *moved.FolderID)
	}
}

func TestListScopesClientsToTheirTenant(t *testing.T) {
	env := newDocEnv(t,
		sampleTenant("t-1", "11111111000111", "Alpha", nil),
		sampleTenant("t-2", "22222222000122", "Beta", nil),
	)
	env.docRepo.Insert(context.Background(), &models.Document{ID: "d-1", TenantID: "t-1", Name: "a.pdf"})
	env.docRepo.Insert(context.Background(), &models.Document{ID: "d-2", TenantID: "t-2", Name: "b.pdf"})

	if _, err := env.docs.List(context.Background(), clientIdent("t-1"), "t-2"); err == nil {
		t.Error("client listed another tenant's documents")
	}

	docs, err := env.docs.List(context.Background(), clientIdent("t-1"), "t-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "d-1" {
		t.Errorf("List() = %+v, want only d-1", docs)
	}
}

func TestDownloadReturnsPayloadAndMetadata(t *testing.T) {
	env := newDocEnv(t, sampleTenant("t-1", "11111111000111", "Alpha", nil))
	payload := []byte("fake pdf bytes")
	doc, err := env.docs.Add(context.Background(), adminIdent(), "t-1", &services.DocumentUpload{
		FileName: "contrato.pdf",
		Data:     payload,
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	data, meta, err := env.docs.Download(context.Background(), clientIdent("t-1"), "t-1", doc.ID)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Error("downloaded payload mismatch")
	}
	if meta.ID != doc.ID {
		t.Errorf("downloaded metadata id = %q, want %q", meta.ID, doc.ID)
	}

	var notFound *domain.NotFoundError
	if _, _, err := env.docs.Download(context.Background(), clientIdent("t-1"), "t-1", "missing"); !errors.As(err, &notFound) {
		t.Errorf("Download(missing) error = %v, want NotFoundError", err)
	}
}

func TestDocumentTypeDerivation(t *testing.T) {
	tests := []struct {
		fileName string
		want     string
	}{
		{"contrato.pdf", "PDF"},
		{"planilha.XLSX", "XLSX"},
		{"arquivo", "FILE"},
		{"nota.fiscal.xml", "XML"},
	}
	for _, tt := range tests {
		if got := documentType(tt.fileName); got != tt.want {
			t.Errorf("documentType(%q) = %q, want %q", tt.fileName, got, tt.want)
		}
	}
}
