package fs

import (
	"careops/internal/infra/blob/core"
	"context"
	"io"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestPutGetHeadDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	info, err := store.Put(ctx, "documents/participant/p1/plan.pdf", strings.NewReader("contents"), core.PutOptions{
		ContentType: "application/pdf",
		Metadata:    map[string]string{"uploaded_by": "Dana"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len("contents")) || info.ETag == "" {
		t.Fatalf("unexpected info: %+v", info)
	}

	head, err := store.Head(ctx, "documents/participant/p1/plan.pdf")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.ContentType != "application/pdf" || head.Metadata["uploaded_by"] != "Dana" {
		t.Fatalf("metadata lost: %+v", head)
	}

	_, rc, err := store.Get(ctx, "documents/participant/p1/plan.pdf")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "contents" {
		t.Fatalf("unexpected body %q", body)
	}

	existed, err := store.Delete(ctx, "documents/participant/p1/plan.pdf")
	if err != nil || !existed {
		t.Fatalf("delete: existed=%v err=%v", existed, err)
	}
	existed, err = store.Delete(ctx, "documents/participant/p1/plan.pdf")
	if err != nil || existed {
		t.Fatalf("repeat delete: existed=%v err=%v", existed, err)
	}
}

func TestRejectsTraversalKeys(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	for _, key := range []string{"", "../escape", "/absolute", "a/../../b"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Fatalf("expected key %q to be rejected", key)
		}
	}
}

func TestListReturnsSortedKeysUnderPrefix(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	for _, key := range []string{"resources/house/h1/b.pdf", "resources/house/h1/a.pdf", "photos/participant/p1/c.png"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	infos, err := store.List(ctx, "resources/house/h1/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "resources/house/h1/a.pdf" {
		t.Fatalf("unexpected listing: %+v", infos)
	}
}

func TestPresignOnlySupportsGet(t *testing.T) {
	store := newTestStore(t)
	url, err := store.PresignURL(context.Background(), "k", core.PresignOptions{})
	if err != nil || url == "" {
		t.Fatalf("presign get: url=%q err=%v", url, err)
	}
	if _, err := store.PresignURL(context.Background(), "k", core.PresignOptions{Method: "PUT"}); err == nil {
		t.Fatalf("expected PUT presign to be unsupported")
	}
}
