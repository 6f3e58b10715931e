// Package statusapi exposes read-only HTTP and WebSocket introspection
// of a node's catalog. It never touches the encode/decode hot path; it
// exists purely as an operational window for whoever embeds the codec.
package statusapi

import (
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/dhtproto/wirecodec/catalog"
)

// WSUpgrader upgrades a status-stream request to a websocket
// connection. It allows all origins, matching a read-only diagnostic
// endpoint with no cross-origin risk.
var WSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Instance is the statusapi server: a thin layer over a catalog.Memory
// that a node keeps for its own introspection. Persistent catalog.Pogreb
// backends are not introspectable this way since they do not track
// live membership events; point Catalog at the in-memory view a node
// keeps alongside its persistent one if both are in use.
type Instance struct {
	Catalog *catalog.Memory
	Router  *mux.Router
}

// New builds an Instance and registers its routes on a fresh router.
func New(cat *catalog.Memory) *Instance {
	api := &Instance{Catalog: cat, Router: mux.NewRouter()}

	api.Router.HandleFunc("/status", api.status).Methods("GET")
	api.Router.HandleFunc("/status/peers", api.peers).Methods("GET")
	api.Router.HandleFunc("/status/stream", api.stream).Methods("GET")

	return api
}

type statusResponse struct {
	CatalogSize  int `json:"catalogSize"`
	EntriesFull  int `json:"entriesFull"`
	EntriesShort int `json:"entriesShort"`
}

func (api *Instance) status(w http.ResponseWriter, r *http.Request) {
	entriesFull, entriesShort := api.Catalog.Counts()
	encodeJSON(w, statusResponse{
		CatalogSize:  api.Catalog.Len(),
		EntriesFull:  entriesFull,
		EntriesShort: entriesShort,
	})
}

type peerEntry struct {
	PeerId string `json:"peerId"`
	IP     string `json:"ip"`
	Port   uint16 `json:"port"`
}

func (api *Instance) peers(w http.ResponseWriter, r *http.Request) {
	snapshot := api.Catalog.Snapshot()
	out := make([]peerEntry, 0, len(snapshot))
	for _, entry := range snapshot {
		out = append(out, peerEntry{
			PeerId: hex.EncodeToString(entry.Address.Id[:]),
			IP:     entry.Address.IP.String(),
			Port:   entry.Address.Port,
		})
	}
	encodeJSON(w, out)
}

type streamEvent struct {
	Added  bool   `json:"added"`
	PeerId string `json:"peerId"`
}

// stream upgrades to a websocket and pushes a streamEvent for each
// catalog change its subscription receives, until a write to the
// connection fails. The request context is not watched, and events
// dropped by catalog.Memory for a full subscriber buffer are not sent.
func (api *Instance) stream(w http.ResponseWriter, r *http.Request) {
	conn, err := WSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events, cancel := api.Catalog.Subscribe()
	defer cancel()

	for ev := range events {
		payload := streamEvent{Added: ev.Added, PeerId: hex.EncodeToString(ev.Id[:])}
		if err := conn.WriteJSON(payload); err != nil {
			return
		}
	}
}

func encodeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}
