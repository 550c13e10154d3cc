package game

import (
	"log"
	"sort"
	"time"

	"github.com/luca-ts/impostor-backend/internal"
)

// =============================================================================
// LOBBY REGISTRY
// =============================================================================

// Registry is the process-wide mapping from lobby id to lobby state. It is
// only ever touched from the engine loop.
type Registry struct {
	lobbies map[string]*internal.Lobby
}

func NewRegistry() *Registry {
	return &Registry{lobbies: make(map[string]*internal.Lobby)}
}

// Create returns the existing lobby if present, otherwise makes a fresh one.
func (r *Registry) Create(id string, now time.Time) *internal.Lobby {
	if lobby, exists := r.lobbies[id]; exists {
		return lobby
	}
	lobby := internal.NewLobby(id, now)
	r.lobbies[id] = lobby
	log.Printf("[Registry.Create] Created lobby %s", id)
	return lobby
}

func (r *Registry) Get(id string) *internal.Lobby {
	return r.lobbies[id]
}

func (r *Registry) Has(id string) bool {
	_, ok := r.lobbies[id]
	return ok
}

func (r *Registry) Delete(id string) {
	delete(r.lobbies, id)
}

func (r *Registry) All() map[string]*internal.Lobby {
	return r.lobbies
}

// ListPublic returns joinable lobbies (phase lobby) for the directory,
// sorted oldest first so codes stay stable in lobby browsers.
func (r *Registry) ListPublic() []internal.LobbySummary {
	list := make([]internal.LobbySummary, 0)
	for _, lobby := range r.lobbies {
		if lobby.Phase != internal.PhaseLobby {
			continue
		}
		host := ""
		if owner := lobby.Owner(); owner != nil {
			host = owner.Name
		}
		list = append(list, internal.LobbySummary{
			Id:                  lobby.Id,
			Host:                host,
			PlayerCount:         len(lobby.Players),
			SpectatorCount:      len(lobby.Spectators),
			MaxPlayers:          internal.MaxPlayersPerLobby,
			Phase:               lobby.Phase,
			CreatedAt:           lobby.CreatedAt.UnixMilli(),
			ImpostorGuessOption: lobby.ImpostorGuessOption,
		})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt < list[j].CreatedAt })
	return list
}

// =============================================================================
// BACKGROUND SWEEP
// =============================================================================

// sweep runs on the engine loop every SweepInterval: it permanently evicts
// participants disconnected past EvictAfter, applies the mid-game grace
// checks, and garbage-collects empty lobbies.
func (e *Engine) sweep(now time.Time) {
	for _, lobby := range e.registry.All() {
		e.evictStale(lobby, now)

		if lobby.IsEmpty() {
			e.closeLobby(lobby, "")
			continue
		}
		if lobby.Phase.InGame() {
			e.checkGrace(lobby, now)
		}
	}
	e.publishDirectoryIfChanged()
}

// evictStale removes every participant disconnected for more than
// EvictAfter. Eviction is permanent: the seat, name, and role are gone.
func (e *Engine) evictStale(lobby *internal.Lobby, now time.Time) {
	var evicted []*internal.Participant
	for _, p := range append(append([]*internal.Participant{}, lobby.Players...), lobby.Spectators...) {
		if p.Status != internal.StatusDisconnectedPending {
			continue
		}
		if now.Sub(p.LastDisconnect) <= internal.EvictAfter {
			continue
		}
		evicted = append(evicted, p)
	}
	if len(evicted) == 0 {
		return
	}

	for _, p := range evicted {
		log.Printf("[Engine.evictStale] lobby=%s: evicting %s after %s offline", lobby.Id, p.Name, now.Sub(p.LastDisconnect).Truncate(time.Second))
		p.Status = internal.StatusEvicted
		e.removeFromLobby(lobby, p)
	}

	if lobby.IsEmpty() {
		return // closed by the sweep caller
	}
	e.broadcastLobbyUpdate(lobby)
	e.onRosterChanged(lobby, now)
}

// removeFromLobby drops a participant from the roster and reassigns
// ownership if the owner's seat was the one removed.
func (e *Engine) removeFromLobby(lobby *internal.Lobby, p *internal.Participant) {
	if p.IsSpectator {
		lobby.RemoveSpectator(p.Id)
	} else {
		lobby.RemovePlayer(p.Id)
	}
	delete(lobby.RestartReady, p.Id)

	if lobby.OwnerId == p.Id {
		e.reassignOwner(lobby)
	}
}

// reassignOwner hands the lobby to the first connected remaining player,
// falling back to the first seat when nobody is connected right now.
func (e *Engine) reassignOwner(lobby *internal.Lobby) {
	lobby.OwnerId = ""
	for _, p := range lobby.Players {
		if p.Connected() {
			lobby.OwnerId = p.Id
			break
		}
	}
	if lobby.OwnerId == "" && len(lobby.Players) > 0 {
		lobby.OwnerId = lobby.Players[0].Id
	}
	if lobby.OwnerId != "" {
		log.Printf("[Engine.reassignOwner] lobby=%s: owner is now %s", lobby.Id, lobby.OwnerId)
	}
}

// closeLobby tears a lobby down the instant it has no participants left, or
// with a message when closed on the participants still attached.
func (e *Engine) closeLobby(lobby *internal.Lobby, message string) {
	e.cancelTurnTimer(lobby)
	e.cancelGuessTimer(lobby)

	if message != "" {
		e.broadcastLobby(lobby, internal.EventLobbyClosed, internal.LobbyClosedData{Message: message})
	}
	e.registry.Delete(lobby.Id)
	log.Printf("[Engine.closeLobby] Deleted lobby %s", lobby.Id)
}
