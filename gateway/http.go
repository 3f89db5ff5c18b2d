package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prismassets/core/export"
	"github.com/prismassets/core/internal/errkind"
	"github.com/prismassets/core/log"
	"github.com/prismassets/core/scan"
)

// Server binds a Session's command surface to a loopback HTTP+SSE listener
// (spec §6 [EXPANSION]): POST /cmd/<name> for synchronous commands, GET
// /events for the multiplexed SSE event stream, /metrics for Prometheus.
type Server struct {
	session *Session
	orch    *scan.Orchestrator
	export  ExportHandle
	router  *mux.Router
}

// NewServer wires every command in spec.md §6's table to a /cmd/<name>
// route and builds the /events and /metrics endpoints.
func NewServer(session *Session, orch *scan.Orchestrator, exportHandle ExportHandle) *Server {
	s := &Server{session: session, orch: orch, export: exportHandle, router: mux.NewRouter()}
	s.routes()
	return s
}

// ListenAndServe refuses to bind anything but loopback addresses, matching
// the gateway's scope as a local IPC bridge, not a network service (spec
// §1 [EXPANSION]).
func (s *Server) ListenAndServe(addr string) error {
	host, _, err := splitLoopbackHost(addr)
	if err != nil {
		return err
	}
	if !isLoopbackHost(host) {
		return fmt.Errorf("%w: refusing to bind non-loopback address %q", errkind.ErrConfig, addr)
	}
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) routes() {
	s.router.HandleFunc("/cmd/detect_prism_roots", s.handleDetectPrismRoots).Methods("POST")
	s.router.HandleFunc("/cmd/list_instances", s.handleListInstances).Methods("POST")
	s.router.HandleFunc("/cmd/start_scan", s.handleStartScan).Methods("POST")
	s.router.HandleFunc("/cmd/cancel_scan", s.handleCancelScan).Methods("POST")
	s.router.HandleFunc("/cmd/get_scan_status", s.handleGetScanStatus).Methods("POST")
	s.router.HandleFunc("/cmd/list_tree_children", s.handleListTreeChildren).Methods("POST")
	s.router.HandleFunc("/cmd/search_assets", s.handleSearchAssets).Methods("POST")
	s.router.HandleFunc("/cmd/get_asset_record", s.handleGetAssetRecord).Methods("POST")
	s.router.HandleFunc("/cmd/get_asset_preview", s.handleGetAssetPreview).Methods("POST")
	s.router.HandleFunc("/cmd/reconcile_asset_ids", s.handleReconcileAssetIDs).Methods("POST")
	s.router.HandleFunc("/cmd/save_assets", s.handleSaveAssets).Methods("POST")
	s.router.HandleFunc("/cmd/copy_assets_to_clipboard", s.handleCopyAssetsToClipboard).Methods("POST")
	s.router.HandleFunc("/cmd/cancel_export", s.handleCancelExport).Methods("POST")

	s.router.HandleFunc("/events", s.handleEvents).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("gateway: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errIs(err, errkind.ErrConfig), errIs(err, errkind.ErrState):
		status = http.StatusBadRequest
	case errIs(err, errkind.ErrPreviewTooLarge):
		status = http.StatusRequestEntityTooLarge
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) handleDetectPrismRoots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.DetectPrismRoots())
}

func (s *Server) handleListInstances(w http.ResponseWriter, r *http.Request) {
	var req struct{ PrismRoot string }
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errkind.ErrConfig, err))
		return
	}
	out, err := s.session.ListInstances(req.PrismRoot)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	var req StartScanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errkind.ErrConfig, err))
		return
	}
	resp, err := s.session.StartScan(r.Context(), s.orch, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancelScan(w http.ResponseWriter, r *http.Request) {
	var req struct{ ScanID string }
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errkind.ErrConfig, err))
		return
	}
	if err := s.session.CancelScan(req.ScanID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{})
}

func (s *Server) handleGetScanStatus(w http.ResponseWriter, r *http.Request) {
	var req struct{ ScanID string }
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errkind.ErrConfig, err))
		return
	}
	status, err := s.session.GetScanStatus(req.ScanID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleListTreeChildren(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScanID string
		NodeID string
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errkind.ErrConfig, err))
		return
	}
	children, err := s.session.ListTreeChildren(req.ScanID, req.NodeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, children)
}

func (s *Server) handleSearchAssets(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScanID string
		SearchAssetsRequest
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errkind.ErrConfig, err))
		return
	}
	resp, err := s.session.SearchAssets(req.ScanID, req.SearchAssetsRequest)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetAssetRecord(w http.ResponseWriter, r *http.Request) {
	var req struct{ ScanID, AssetID string }
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errkind.ErrConfig, err))
		return
	}
	rec, err := s.session.GetAssetRecord(req.ScanID, req.AssetID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleGetAssetPreview(w http.ResponseWriter, r *http.Request) {
	var req struct{ ScanID, AssetID string }
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errkind.ErrConfig, err))
		return
	}
	preview, err := s.session.GetAssetPreview(r.Context(), req.ScanID, req.AssetID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (s *Server) handleReconcileAssetIDs(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScanID     string
		AssetIDs   []string
		OldRecords map[string]indexRecordView
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errkind.ErrConfig, err))
		return
	}
	result, err := s.session.ReconcileAssetIDs(req.ScanID, req.AssetIDs, req.OldRecords)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSaveAssets(w http.ResponseWriter, r *http.Request) {
	var req SaveAssetsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errkind.ErrConfig, err))
		return
	}
	if req.AudioFormat == "" {
		req.AudioFormat = export.AudioFormatOriginal
	}
	resp, err := s.session.SaveAssets(r.Context(), s.export, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCopyAssetsToClipboard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScanID      string
		AssetIDs    []string
		AudioFormat export.AudioFormat
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errkind.ErrConfig, err))
		return
	}
	if req.AudioFormat == "" {
		req.AudioFormat = export.AudioFormatOriginal
	}
	resp, err := s.session.CopyAssetsToClipboard(r.Context(), s.export, req.ScanID, req.AssetIDs, req.AudioFormat)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancelExport(w http.ResponseWriter, r *http.Request) {
	var req struct{ OperationID string }
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errkind.ErrConfig, err))
		return
	}
	if err := s.session.CancelExport(req.OperationID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{})
}

// handleEvents streams scan.* and export.* frames as Server-Sent Events,
// each tagged with its channel name (spec §6 [EXPANSION]).
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.session.ScanEvents():
			if !ok {
				return
			}
			writeSSEFrame(w, ev.Channel, ev.Payload)
			flusher.Flush()
		case ev, ok := <-s.session.ExportEvents():
			if !ok {
				return
			}
			writeSSEFrame(w, ev.Channel, ev.Payload)
			flusher.Flush()
		}
	}
}

func writeSSEFrame(w http.ResponseWriter, event string, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("gateway: marshal SSE payload for %s: %v", event, err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b)
}
