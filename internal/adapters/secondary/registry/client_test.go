package registry

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/case-event-hub/internal/core/domain"
	apperrors "github.com/lorrc/case-event-hub/internal/core/errors"
)

const (
	caseID     = "3f1c2a9e-8d4b-4c55-9a7e-2b1f6c0d9e11"
	roleID     = "7a0b9c1d-2e3f-4a5b-8c6d-9e0f1a2b3c4d"
	documentID = "c0ffee00-1234-4abc-9def-0123456789ab"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(Config{BaseURL: srv.URL + "/", Token: "registry-token"}, logger), srv
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestClient_ReadRole(t *testing.T) {
	tests := []struct {
		name      string
		role      map[string]any
		wantUser  string
		wantGroup string
	}{
		{
			name: "employee",
			role: map[string]any{
				"betrokkeneType":          "medewerker",
				"omschrijvingGeneriek":    "behandelaar",
				"betrokkeneIdentificatie": map[string]any{"identificatie": "jdoe"},
			},
			wantUser: "jdoe",
		},
		{
			name: "organisational unit",
			role: map[string]any{
				"betrokkeneType":          "organisatorische_eenheid",
				"omschrijvingGeneriek":    "behandelaar",
				"betrokkeneIdentificatie": map[string]any{"identificatie": "team-a"},
			},
			wantGroup: "team-a",
		},
		{
			name: "person without identification",
			role: map[string]any{
				"betrokkeneType":       "natuurlijk_persoon",
				"omschrijvingGeneriek": "initiator",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var roleURL string
			client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "Bearer registry-token", r.Header.Get("Authorization"))
				body := map[string]any{"url": roleURL, "zaak": "http://" + r.Host + "/zaken/" + caseID}
				for k, v := range tt.role {
					body[k] = v
				}
				writeJSON(t, w, body)
			}))
			roleURL = srv.URL + "/rollen/" + roleID

			role, err := client.ReadRole(context.Background(), roleURL)

			require.NoError(t, err)
			assert.Equal(t, roleID, role.ID)
			assert.Equal(t, caseID, role.CaseID)
			assert.Equal(t, tt.wantUser, role.UserID)
			assert.Equal(t, tt.wantGroup, role.GroupID)
		})
	}
}

func TestClient_ReadRole_Errors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		client, srv := newTestClient(t, http.NotFoundHandler())

		_, err := client.ReadRole(context.Background(), srv.URL+"/rollen/"+roleID)

		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("server error", func(t *testing.T) {
		client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "registry down", http.StatusBadGateway)
		}))

		_, err := client.ReadRole(context.Background(), srv.URL+"/rollen/"+roleID)

		require.Error(t, err)
		assert.NotErrorIs(t, err, apperrors.ErrNotFound)
		assert.Contains(t, err.Error(), "502")
	})

	t.Run("invalid body", func(t *testing.T) {
		client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("{not json"))
		}))

		_, err := client.ReadRole(context.Background(), srv.URL+"/rollen/"+roleID)

		assert.ErrorContains(t, err, "decode response")
	})
}

func TestClient_ListHandlerRoles(t *testing.T) {
	caseURL := "https://zaken.example/zaken/api/v1/zaken/" + caseID

	var pageTwo string
	client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rollen", r.URL.Path)
		if r.URL.Query().Get("page") == "2" {
			writeJSON(t, w, map[string]any{
				"count": 2,
				"results": []map[string]any{{
					"betrokkeneType":          "organisatorische_eenheid",
					"omschrijvingGeneriek":    "behandelaar",
					"betrokkeneIdentificatie": map[string]any{"identificatie": "team-a"},
				}},
			})
			return
		}
		assert.Equal(t, caseURL, r.URL.Query().Get("zaak"))
		assert.Equal(t, domain.RoleGenericHandler, r.URL.Query().Get("omschrijvingGeneriek"))
		writeJSON(t, w, map[string]any{
			"count": 2,
			"next":  pageTwo,
			"results": []map[string]any{{
				"betrokkeneType":          "medewerker",
				"omschrijvingGeneriek":    "behandelaar",
				"betrokkeneIdentificatie": map[string]any{"identificatie": "jdoe"},
			}},
		})
	}))
	pageTwo = srv.URL + "/rollen?page=2"

	roles, err := client.ListHandlerRoles(context.Background(), caseURL)

	require.NoError(t, err)
	require.Len(t, roles, 2)
	assert.Equal(t, "jdoe", roles[0].UserID)
	assert.True(t, roles[0].IsHandler())
	assert.Equal(t, "team-a", roles[1].GroupID)
}

func TestClient_ReadCaseDocument(t *testing.T) {
	client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"url":              "http://" + r.Host + r.URL.Path,
			"zaak":             "http://" + r.Host + "/zaken/" + caseID,
			"informatieobject": "https://documenten.example/enkelvoudiginformatieobjecten/" + documentID,
		})
	}))

	link, err := client.ReadCaseDocument(context.Background(), srv.URL+"/zaakinformatieobjecten/abc")

	require.NoError(t, err)
	assert.Equal(t, "abc", link.ID)
	assert.Equal(t, caseID, link.CaseID)
	assert.Equal(t, documentID, link.DocumentID)
}
