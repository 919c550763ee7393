package seenlist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// newListServer wires a server whose single list is served from memory:
// loads return a copy of l, saves land in captured.
func newListServer(l *List, captured *savedList) *Server {
	return NewServer(&MockDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &MockRow{ScanFunc: listScanFunc(l)}
		},
		BeginTxFunc: func(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
			return newSaveTx(captured), nil
		},
	}, nil)
}

func newMissingListServer() *Server {
	return NewServer(&MockDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &MockRow{ScanFunc: func(dest ...any) error { return pgx.ErrNoRows }}
		},
	}, nil)
}

func newJSONRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	return httptest.NewRequest(method, target, &buf)
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func doRequest(t *testing.T, srv *Server, method, target, userID, userEmail string, body any) *httptest.ResponseRecorder {
	t.Helper()
	req := newJSONRequest(t, method, target, body)
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}
	if userEmail != "" {
		req.Header.Set("X-User-Email", userEmail)
	}
	return serve(srv, req)
}

func TestHandleCreateList(t *testing.T) {
	tests := []struct {
		name     string
		userID   string
		body     string
		wantCode int
	}{
		{"success", "owner-123", `{"name":"Weekend Queue"}`, http.StatusCreated},
		{"missing user context", "", `{"name":"Weekend Queue"}`, http.StatusUnauthorized},
		{"empty name", "owner-123", `{"name":"   "}`, http.StatusBadRequest},
		{"name too long", "owner-123", `{"name":"` + strings.Repeat("x", 201) + `"}`, http.StatusBadRequest},
		{"invalid body", "owner-123", `{broken`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(&MockDB{
				QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
					return &MockRow{ScanFunc: func(dest ...any) error {
						*dest[0].(*int64) = 1
						*dest[1].(*time.Time) = time.Now()
						*dest[2].(*time.Time) = time.Now()
						return nil
					}}
				},
			}, nil)

			req := httptest.NewRequest(http.MethodPost, "/lists", strings.NewReader(tt.body))
			if tt.userID != "" {
				req.Header.Set("X-User-Id", tt.userID)
			}
			w := httptest.NewRecorder()
			srv.Router().ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantCode != http.StatusCreated {
				return
			}

			var created List
			if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if created.ID == "" {
				t.Error("expected a generated list id")
			}
			if created.OwnerID != tt.userID {
				t.Errorf("ownerId = %q, want %q", created.OwnerID, tt.userID)
			}
			if !created.IsOwner {
				t.Error("expected isOwner true")
			}
			if len(created.Items) != 0 || len(created.Collaborators) != 0 {
				t.Error("expected empty items and collaborators")
			}
		})
	}
}

func TestHandleCreateList_TrimsName(t *testing.T) {
	srv := NewServer(&MockDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &MockRow{ScanFunc: func(dest ...any) error {
				*dest[0].(*int64) = 1
				*dest[1].(*time.Time) = time.Now()
				*dest[2].(*time.Time) = time.Now()
				return nil
			}}
		},
	}, nil)

	w := doRequest(t, srv, http.MethodPost, "/lists", "owner-123", "", map[string]string{"name": "  Horror Night  "})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
	var created List
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Name != "Horror Night" {
		t.Errorf("name = %q, want trimmed", created.Name)
	}
}

func TestHandleGetList(t *testing.T) {
	l := baseList()
	l.Collaborators = []Collaborator{
		{Email: "friend@example.com", Status: statusAccepted},
		{Email: "pending@example.com", Status: statusPending},
	}

	tests := []struct {
		name      string
		userID    string
		userEmail string
		wantCode  int
		wantOwner bool
	}{
		{"owner", "owner-123", "owner@example.com", http.StatusOK, true},
		{"accepted collaborator", "user-456", "friend@example.com", http.StatusOK, false},
		{"case-insensitive collaborator email", "user-456", "Friend@Example.COM", http.StatusOK, false},
		{"pending collaborator is rejected", "user-789", "pending@example.com", http.StatusForbidden, false},
		{"stranger", "user-999", "stranger@example.com", http.StatusForbidden, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newListServer(l, nil)
			w := doRequest(t, srv, http.MethodGet, "/lists/list-001", tt.userID, tt.userEmail, nil)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			var got List
			if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if got.IsOwner != tt.wantOwner {
				t.Errorf("isOwner = %v, want %v", got.IsOwner, tt.wantOwner)
			}
		})
	}
}

func TestHandleGetList_NotFound(t *testing.T) {
	srv := newMissingListServer()
	w := doRequest(t, srv, http.MethodGet, "/lists/nope", "owner-123", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestHandleGetList_MalformedID(t *testing.T) {
	srv := NewServer(&MockDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &MockRow{ScanFunc: func(dest ...any) error {
				return &pgconn.PgError{Code: "22P02", Message: "invalid input syntax for type uuid"}
			}}
		},
	}, nil)

	w := doRequest(t, srv, http.MethodGet, "/lists/not-a-uuid", "owner-123", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 (body %s)", w.Code, w.Body.String())
	}
}

func TestHandlePatchList(t *testing.T) {
	l := baseList()
	captured := &savedList{}
	srv := newListServer(l, captured)

	w := doRequest(t, srv, http.MethodPatch, "/lists/list-001", "owner-123", "", map[string]string{"name": "Renamed"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	var got List
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Name != "Renamed" {
		t.Errorf("name = %q, want Renamed", got.Name)
	}
	if !captured.saved {
		t.Error("expected the rename to be persisted")
	}
}

func TestHandlePatchList_NonOwner(t *testing.T) {
	l := baseList()
	l.Collaborators = []Collaborator{{Email: "friend@example.com", Status: statusAccepted}}
	srv := newListServer(l, nil)

	w := doRequest(t, srv, http.MethodPatch, "/lists/list-001", "user-456", "friend@example.com", map[string]string{"name": "Hijacked"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestHandleDeleteList(t *testing.T) {
	t.Run("owner deletes", func(t *testing.T) {
		l := baseList()
		deleted := false
		srv := NewServer(&MockDB{
			QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
				return &MockRow{ScanFunc: listScanFunc(l)}
			},
			ExecFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
				deleted = true
				if args[0] != "list-001" {
					t.Errorf("delete arg = %v, want list-001", args[0])
				}
				return pgconn.CommandTag{}, nil
			},
		}, nil)

		w := doRequest(t, srv, http.MethodDelete, "/lists/list-001", "owner-123", "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if !deleted {
			t.Error("expected DELETE to be issued")
		}
	})

	t.Run("non-owner is rejected", func(t *testing.T) {
		l := baseList()
		l.Collaborators = []Collaborator{{Email: "friend@example.com", Status: statusAccepted}}
		srv := newListServer(l, nil)

		w := doRequest(t, srv, http.MethodDelete, "/lists/list-001", "user-456", "friend@example.com", nil)
		if w.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", w.Code)
		}
	})

	t.Run("already gone reports success", func(t *testing.T) {
		srv := newMissingListServer()
		w := doRequest(t, srv, http.MethodDelete, "/lists/gone", "owner-123", "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		var resp map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp["success"] != true {
			t.Errorf("success = %v, want true", resp["success"])
		}
	})
}

func TestHandleListLists(t *testing.T) {
	owned := baseList()
	owned.CreatedAt = time.Now().Add(-2 * time.Hour)

	shared := baseList()
	shared.ID = "list-002"
	shared.OwnerID = "other-owner"
	shared.Name = "Shared Picks"
	shared.Collaborators = []Collaborator{{Email: "me@example.com", Status: statusAccepted}}
	shared.CreatedAt = time.Now().Add(-time.Hour)

	srv := NewServer(&MockDB{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			if bytes.Contains([]byte(sql), []byte("JOIN list_collaborators")) {
				return &MockRows{Data: [][]any{listRowData(shared)}, Idx: -1}, nil
			}
			return &MockRows{Data: [][]any{listRowData(owned)}, Idx: -1}, nil
		},
	}, nil)

	w := doRequest(t, srv, http.MethodGet, "/lists", "owner-123", "me@example.com", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}

	var lists []List
	if err := json.Unmarshal(w.Body.Bytes(), &lists); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(lists) != 2 {
		t.Fatalf("got %d lists, want 2", len(lists))
	}
	// Newest first across both sources.
	if lists[0].ID != "list-002" || lists[1].ID != "list-001" {
		t.Errorf("order = %s, %s; want list-002 first", lists[0].ID, lists[1].ID)
	}
	if lists[0].IsOwner || !lists[1].IsOwner {
		t.Errorf("isOwner flags wrong: %v, %v", lists[0].IsOwner, lists[1].IsOwner)
	}
}

func TestHandleListLists_QueryError(t *testing.T) {
	srv := NewServer(&MockDB{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			return nil, errors.New("connection refused")
		},
	}, nil)

	w := doRequest(t, srv, http.MethodGet, "/lists", "owner-123", "", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}
