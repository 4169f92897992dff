// internal/handlers/lobby.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/ajmeyer/groupfinder/internal/coordinator"
	"github.com/ajmeyer/groupfinder/internal/models"
)

// LobbyCreator is the slice of the durable store the thin CRUD endpoints
// need. internal/database.Store satisfies it.
type LobbyCreator interface {
	InsertLobby(ctx context.Context, lobby *models.Lobby, tagIDs []uuid.UUID) error
	GetLobbySnapshot(ctx context.Context, lobbyID uuid.UUID) (*models.LobbySnapshot, error)
	ListOpenLobbies(ctx context.Context) ([]*models.LobbySnapshot, error)
}

type createLobbyRequest struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	GameID      uuid.UUID   `json:"gameId"`
	MaxPlayers  int         `json:"maxPlayers"`
	Credentials string      `json:"credentials"`
	Tags        []uuid.UUID `json:"tags"`
}

// CreateLobbyHandler creates a lobby row plus the host's participant row
// and returns the initial snapshot.
func CreateLobbyHandler(store LobbyCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hostID, err := authenticateRequest(r)
		if err != nil {
			http.Error(w, "invalid or missing auth_token", http.StatusUnauthorized)
			return
		}

		var req createLobbyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad lobby request payload", http.StatusBadRequest)
			return
		}
		if req.Title == "" {
			http.Error(w, "title is required", http.StatusBadRequest)
			return
		}
		if req.GameID == uuid.Nil {
			http.Error(w, "gameId is required", http.StatusBadRequest)
			return
		}
		if req.MaxPlayers <= 0 {
			req.MaxPlayers = 5
		}

		lobby := &models.Lobby{
			ID:          uuid.New(),
			Title:       req.Title,
			Description: req.Description,
			GameID:      req.GameID,
			HostID:      hostID,
			MaxPlayers:  req.MaxPlayers,
			Status:      models.StatusOpen,
			Credentials: req.Credentials,
		}
		if err := store.InsertLobby(r.Context(), lobby, req.Tags); err != nil {
			http.Error(w, "failed to create lobby", http.StatusInternalServerError)
			return
		}

		snap, err := store.GetLobbySnapshot(r.Context(), lobby.ID)
		if err != nil {
			http.Error(w, "failed to load created lobby", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(snap)
	}
}

// ListLobbiesHandler returns every OPEN lobby, newest first.
func ListLobbiesHandler(store LobbyCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := authenticateRequest(r); err != nil {
			http.Error(w, "invalid or missing auth_token", http.StatusUnauthorized)
			return
		}

		snaps, err := store.ListOpenLobbies(r.Context())
		if err != nil {
			http.Error(w, "failed to list lobbies", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(snaps)
	}
}

// GetLobbyHandler returns the current snapshot for one lobby; it is the
// read-only path clients use for an initial view and never touches the
// mutation queues.
func GetLobbyHandler(coord *coordinator.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := authenticateRequest(r); err != nil {
			http.Error(w, "invalid or missing auth_token", http.StatusUnauthorized)
			return
		}

		lobbyID, err := uuid.Parse(r.URL.Query().Get("id"))
		if err != nil {
			http.Error(w, "invalid lobby id", http.StatusBadRequest)
			return
		}

		snap, err := coord.Snapshot(r.Context(), lobbyID)
		if err != nil {
			if errors.Is(err, models.ErrLobbyNotFound) {
				http.Error(w, "lobby not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to load lobby", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(snap)
	}
}
