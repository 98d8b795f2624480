package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/kestrelhq/kestrel-sync/internal/gateway"
	"github.com/kestrelhq/kestrel-sync/internal/model"
)

// dataFilterFromQuery builds a backend data filter from request query
// parameters. Timestamps are RFC 3339.
func dataFilterFromQuery(r *http.Request) (gateway.DataFilter, error) {
	q := r.URL.Query()
	filter := gateway.DataFilter{
		DeviceID: q.Get("device_id"),
		SensorID: q.Get("sensor_id"),
		Kind:     model.SensorKind(q.Get("kind")),
	}

	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return gateway.DataFilter{}, err
		}
		filter.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return gateway.DataFilter{}, err
		}
		filter.To = t
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return gateway.DataFilter{}, err
		}
		filter.Limit = n
	}

	return filter, nil
}

// handleSensorData proxies a historical reading query to the backend.
// Time-series data is never cached locally; the panel charts read it on demand.
func (s *Server) handleSensorData(w http.ResponseWriter, r *http.Request) {
	if s.gw == nil {
		writeInternalError(w, "backend gateway not available")
		return
	}

	filter, err := dataFilterFromQuery(r)
	if err != nil {
		writeBadRequest(w, "invalid data filter: "+err.Error())
		return
	}

	points, err := s.gw.SensorData(r.Context(), filter)
	if err != nil {
		writeUpstreamError(w, "failed to fetch sensor data")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": points})
}

// handleLatestSensorData proxies a latest-readings query to the backend.
func (s *Server) handleLatestSensorData(w http.ResponseWriter, r *http.Request) {
	if s.gw == nil {
		writeInternalError(w, "backend gateway not available")
		return
	}

	filter, err := dataFilterFromQuery(r)
	if err != nil {
		writeBadRequest(w, "invalid data filter: "+err.Error())
		return
	}

	points, err := s.gw.LatestSensorData(r.Context(), filter)
	if err != nil {
		writeUpstreamError(w, "failed to fetch latest sensor data")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": points})
}

// handleSensorStatistics proxies a statistics query to the backend.
func (s *Server) handleSensorStatistics(w http.ResponseWriter, r *http.Request) {
	if s.gw == nil {
		writeInternalError(w, "backend gateway not available")
		return
	}

	filter, err := dataFilterFromQuery(r)
	if err != nil {
		writeBadRequest(w, "invalid data filter: "+err.Error())
		return
	}

	stats, err := s.gw.SensorStatistics(r.Context(), filter)
	if err != nil {
		writeUpstreamError(w, "failed to fetch sensor statistics")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"statistics": stats})
}

// handleSensorTrends proxies a trend query to the backend.
func (s *Server) handleSensorTrends(w http.ResponseWriter, r *http.Request) {
	if s.gw == nil {
		writeInternalError(w, "backend gateway not available")
		return
	}

	filter, err := dataFilterFromQuery(r)
	if err != nil {
		writeBadRequest(w, "invalid data filter: "+err.Error())
		return
	}

	trends, err := s.gw.SensorTrends(r.Context(), filter)
	if err != nil {
		writeUpstreamError(w, "failed to fetch sensor trends")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"trends": trends})
}
