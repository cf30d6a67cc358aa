package server

import (
	"net/http"

	"github.com/2beens/gymlog/internal/gymlog/syncer"
	"github.com/2beens/gymlog/internal/gymlog/tracker"
	"github.com/2beens/gymlog/internal/remote"
	"github.com/2beens/gymlog/internal/storage"
	"github.com/2beens/gymlog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type SyncStatusResponse struct {
	syncer.State
	Accounts storage.Credentials `json:"accounts"`
}

type SyncResponse struct {
	Results []syncer.Result `json:"results"`
	State   syncer.State    `json:"state"`
}

type BackgroundResponse struct {
	Scheduled int `json:"scheduled"`
}

type ConnectResponse struct {
	Load  syncer.LoadResult `json:"load"`
	State syncer.State      `json:"state"`
}

type SyncHandler struct {
	tracker *tracker.Tracker
}

func NewSyncHandler(tracker *tracker.Tracker) *SyncHandler {
	return &SyncHandler{tracker: tracker}
}

func (h *SyncHandler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/sync/status", h.HandleStatus).Methods("GET", "OPTIONS").Name("sync-status")
	r.HandleFunc("/sync", h.HandleSync).Methods("POST", "OPTIONS").Name("sync")
	r.HandleFunc("/sync/background", h.HandleBackground).Methods("POST", "OPTIONS").Name("sync-background")
	r.HandleFunc("/sync/load", h.HandleLoad).Methods("POST", "OPTIONS").Name("sync-load")
	r.HandleFunc("/sync/account", h.HandleConnectRecords).Methods("PUT", "OPTIONS").Name("connect-records")
	r.HandleFunc("/sync/account", h.HandleDisconnectRecords).Methods("DELETE", "OPTIONS").Name("disconnect-records")
	r.HandleFunc("/sync/phases-account", h.HandleConnectPhases).Methods("PUT", "OPTIONS").Name("connect-phases")
	r.HandleFunc("/sync/phases-account", h.HandleDisconnectPhases).Methods("DELETE", "OPTIONS").Name("disconnect-phases")
}

func (h *SyncHandler) status() SyncStatusResponse {
	return SyncStatusResponse{
		State:    h.tracker.SyncState(),
		Accounts: h.tracker.Accounts(),
	}
}

func (h *SyncHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	pkg.WriteJSONOK(w, h.status())
}

// HandleSync pushes both resources and reports each outcome. Failures are part of the
// payload, not of the status code: the data is safe locally either way.
func (h *SyncHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	results := h.tracker.Sync(r.Context())
	for _, res := range results {
		if res.Err != nil {
			log.Errorf("sync %s: %s: %s", res.Resource, res.Failure, res.Err)
		}
	}
	pkg.WriteJSONOK(w, SyncResponse{Results: results, State: h.tracker.SyncState()})
}

func (h *SyncHandler) HandleBackground(w http.ResponseWriter, r *http.Request) {
	pkg.WriteJSON(w, http.StatusAccepted, BackgroundResponse{Scheduled: h.tracker.Background()})
}

func (h *SyncHandler) HandleLoad(w http.ResponseWriter, r *http.Request) {
	res := h.tracker.Load(r.Context())
	pkg.WriteJSONOK(w, ConnectResponse{Load: res, State: h.tracker.SyncState()})
}

func (h *SyncHandler) connect(w http.ResponseWriter, r *http.Request, connect func(remote.Account) (syncer.LoadResult, error)) {
	var account remote.Account
	if err := decodeBody(r, &account); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := connect(account)
	if err != nil {
		writeError(w, r, err)
		return
	}
	pkg.WriteJSONOK(w, ConnectResponse{Load: res, State: h.tracker.SyncState()})
}

func (h *SyncHandler) HandleConnectRecords(w http.ResponseWriter, r *http.Request) {
	h.connect(w, r, func(account remote.Account) (syncer.LoadResult, error) {
		return h.tracker.ConnectRecords(r.Context(), account)
	})
}

func (h *SyncHandler) HandleConnectPhases(w http.ResponseWriter, r *http.Request) {
	h.connect(w, r, func(account remote.Account) (syncer.LoadResult, error) {
		return h.tracker.ConnectPhases(r.Context(), account)
	})
}

func (h *SyncHandler) HandleDisconnectRecords(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.DisconnectRecords(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	pkg.WriteJSONOK(w, h.status())
}

func (h *SyncHandler) HandleDisconnectPhases(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.DisconnectPhases(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	pkg.WriteJSONOK(w, h.status())
}
