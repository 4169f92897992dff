// internal/handlers/lobby_test.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajmeyer/groupfinder/internal/auth"
	"github.com/ajmeyer/groupfinder/internal/coordinator"
	"github.com/ajmeyer/groupfinder/internal/models"
)

// fakeLobbyStore is an in-memory LobbyCreator for handler tests.
type fakeLobbyStore struct {
	mu      sync.Mutex
	lobbies map[uuid.UUID]*models.Lobby
	failErr error
}

func newFakeLobbyStore() *fakeLobbyStore {
	return &fakeLobbyStore{lobbies: make(map[uuid.UUID]*models.Lobby)}
}

func (f *fakeLobbyStore) InsertLobby(_ context.Context, lobby *models.Lobby, _ []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	cp := *lobby
	f.lobbies[lobby.ID] = &cp
	return nil
}

func (f *fakeLobbyStore) GetLobbySnapshot(_ context.Context, lobbyID uuid.UUID) (*models.LobbySnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lobby, ok := f.lobbies[lobbyID]
	if !ok {
		return nil, models.ErrLobbyNotFound
	}
	host := models.UserSummary{ID: lobby.HostID, Username: "host"}
	return &models.LobbySnapshot{
		Lobby: *lobby,
		Host:  host,
		Participants: []models.ParticipantView{
			{User: host, Role: models.RoleHost},
		},
		Tags: []models.Tag{},
	}, nil
}

func (f *fakeLobbyStore) ListOpenLobbies(_ context.Context) ([]*models.LobbySnapshot, error) {
	f.mu.Lock()
	ids := make([]uuid.UUID, 0, len(f.lobbies))
	for id, lobby := range f.lobbies {
		if lobby.Status == models.StatusOpen {
			ids = append(ids, id)
		}
	}
	f.mu.Unlock()

	snaps := make([]*models.LobbySnapshot, 0, len(ids))
	for _, id := range ids {
		snap, err := f.GetLobbySnapshot(context.Background(), id)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

// authedRequest builds a request carrying a signed auth_token cookie.
func authedRequest(t *testing.T, method, target string, body []byte, userID uuid.UUID) *http.Request {
	t.Helper()
	token, err := auth.CreateJWT(userID.String())
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Cookie", fmt.Sprintf("auth_token=%s", token))
	return req
}

func TestCreateLobbyHandler(t *testing.T) {
	auth.Init()
	store := newFakeLobbyStore()
	handler := CreateLobbyHandler(store)
	hostID := uuid.New()

	body, _ := json.Marshal(map[string]any{
		"title":      "friday night raids",
		"gameId":     uuid.New(),
		"maxPlayers": 6,
	})
	w := httptest.NewRecorder()
	handler(w, authedRequest(t, http.MethodPost, "/lobby/create", body, hostID))

	require.Equal(t, http.StatusCreated, w.Code)
	var snap models.LobbySnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, "friday night raids", snap.Title)
	assert.Equal(t, hostID, snap.HostID)
	assert.Equal(t, 6, snap.MaxPlayers)
	assert.Equal(t, models.StatusOpen, snap.Status)
	require.Len(t, snap.Participants, 1)
	assert.Equal(t, models.RoleHost, snap.Participants[0].Role)
}

func TestCreateLobbyDefaultsMaxPlayers(t *testing.T) {
	auth.Init()
	store := newFakeLobbyStore()
	handler := CreateLobbyHandler(store)

	body, _ := json.Marshal(map[string]any{
		"title":  "pickup group",
		"gameId": uuid.New(),
	})
	w := httptest.NewRecorder()
	handler(w, authedRequest(t, http.MethodPost, "/lobby/create", body, uuid.New()))

	require.Equal(t, http.StatusCreated, w.Code)
	var snap models.LobbySnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, 5, snap.MaxPlayers)
}

func TestCreateLobbyValidation(t *testing.T) {
	auth.Init()
	handler := CreateLobbyHandler(newFakeLobbyStore())

	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing title", map[string]any{"gameId": uuid.New()}},
		{"missing gameId", map[string]any{"title": "no game"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, _ := json.Marshal(tc.body)
			w := httptest.NewRecorder()
			handler(w, authedRequest(t, http.MethodPost, "/lobby/create", body, uuid.New()))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestCreateLobbyRejectsMissingAuth(t *testing.T) {
	auth.Init()
	handler := CreateLobbyHandler(newFakeLobbyStore())

	body, _ := json.Marshal(map[string]any{"title": "x", "gameId": uuid.New()})
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodPost, "/lobby/create", bytes.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListLobbiesReturnsOpenOnly(t *testing.T) {
	auth.Init()
	store := newFakeLobbyStore()

	open := &models.Lobby{ID: uuid.New(), Title: "open", HostID: uuid.New(), MaxPlayers: 4, Status: models.StatusOpen}
	closed := &models.Lobby{ID: uuid.New(), Title: "closed", HostID: uuid.New(), MaxPlayers: 4, Status: models.StatusClosed}
	require.NoError(t, store.InsertLobby(context.Background(), open, nil))
	require.NoError(t, store.InsertLobby(context.Background(), closed, nil))

	w := httptest.NewRecorder()
	ListLobbiesHandler(store)(w, authedRequest(t, http.MethodGet, "/lobby/list", nil, uuid.New()))

	require.Equal(t, http.StatusOK, w.Code)
	var snaps []*models.LobbySnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snaps))
	require.Len(t, snaps, 1)
	assert.Equal(t, open.ID, snaps[0].ID)
}

// snapshotStore stubs the coordinator's store for the read-only endpoint;
// the mutation methods are never reached from GetLobbyHandler.
type snapshotStore struct {
	snaps map[uuid.UUID]*models.LobbySnapshot
}

func (s *snapshotStore) GetLobbySnapshot(_ context.Context, lobbyID uuid.UUID) (*models.LobbySnapshot, error) {
	snap, ok := s.snaps[lobbyID]
	if !ok {
		return nil, models.ErrLobbyNotFound
	}
	return snap, nil
}

func (s *snapshotStore) InsertParticipant(context.Context, uuid.UUID, uuid.UUID, models.ParticipantRole) error {
	return fmt.Errorf("not implemented")
}
func (s *snapshotStore) DeleteParticipant(context.Context, uuid.UUID, uuid.UUID) error {
	return fmt.Errorf("not implemented")
}
func (s *snapshotStore) SetReady(context.Context, uuid.UUID, uuid.UUID, bool) error {
	return fmt.Errorf("not implemented")
}
func (s *snapshotStore) SetStatus(context.Context, uuid.UUID, models.LobbyStatus) error {
	return fmt.Errorf("not implemented")
}
func (s *snapshotStore) SetCredentials(context.Context, uuid.UUID, string) error {
	return fmt.Errorf("not implemented")
}
func (s *snapshotStore) GetParticipantCount(context.Context, uuid.UUID) (int, error) {
	return 0, fmt.Errorf("not implemented")
}

func TestGetLobbyHandler(t *testing.T) {
	auth.Init()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	lobbyID := uuid.New()
	store := &snapshotStore{snaps: map[uuid.UUID]*models.LobbySnapshot{
		lobbyID: {
			Lobby:        models.Lobby{ID: lobbyID, Title: "the lobby", Status: models.StatusOpen},
			Participants: []models.ParticipantView{},
			Tags:         []models.Tag{},
		},
	}}
	coord := coordinator.New(store, coordinator.NewRegistry(), logger)
	handler := GetLobbyHandler(coord)

	w := httptest.NewRecorder()
	handler(w, authedRequest(t, http.MethodGet, "/lobby/get?id="+lobbyID.String(), nil, uuid.New()))
	require.Equal(t, http.StatusOK, w.Code)
	var snap models.LobbySnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, "the lobby", snap.Title)

	w = httptest.NewRecorder()
	handler(w, authedRequest(t, http.MethodGet, "/lobby/get?id="+uuid.NewString(), nil, uuid.New()))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	handler(w, authedRequest(t, http.MethodGet, "/lobby/get?id=not-a-uuid", nil, uuid.New()))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExtractCookieToken(t *testing.T) {
	assert.Equal(t, "abc", extractCookieToken("auth_token=abc", "auth_token"))
	assert.Equal(t, "abc", extractCookieToken("session=1; auth_token=abc; theme=dark", "auth_token"))
	assert.Equal(t, "", extractCookieToken("session=1", "auth_token"))
	assert.Equal(t, "", extractCookieToken("", "auth_token"))
}
