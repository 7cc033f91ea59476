package handler

import (
	"fmt"
	"net/http"

	"topolab/internal/codec"
	"topolab/internal/topology"
)

// Import replaces the topology with a document in the format named by the path
func (h *TopologyHandler) Import(w http.ResponseWriter, r *http.Request) {
	format := r.PathValue("format")
	c, ok := h.importers[format]
	if !ok {
		var err error
		if c, err = codec.Lookup(format); err != nil {
			h.writeError(w, "Unsupported format", err.Error(), http.StatusBadRequest)
			return
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	result, err := c.Parse(r.Body)
	if err != nil {
		h.writeError(w, "Failed to parse document", err.Error(), http.StatusBadRequest)
		return
	}

	loaded, err := h.session.LoadDocument(r.Context(), result.Document)
	if err != nil {
		h.fail(w, "Failed to import document", err)
		return
	}

	report := topology.LoadReport{Skipped: result.Skipped}
	report.Merge(loaded.Skipped)
	if !report.Clean() {
		h.logger.Info("Imported document with skipped records", "format", c.Format(), "skipped", len(report.Skipped))
	}
	h.writeJSON(w, report, http.StatusOK)
}

// Export writes the current topology in the format named by the path
func (h *TopologyHandler) Export(w http.ResponseWriter, r *http.Request) {
	c, err := codec.Lookup(r.PathValue("format"))
	if err != nil {
		h.writeError(w, "Unsupported format", err.Error(), http.StatusBadRequest)
		return
	}

	doc, err := h.session.Document(r.Context())
	if err != nil {
		h.fail(w, "Failed to export document", err)
		return
	}

	contentType, ext := "application/x-yaml", "yaml"
	if c.Format() == "json" {
		contentType, ext = "application/json", "json"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=topology.%s", ext))

	if err := c.Export(doc, w); err != nil {
		h.logger.Error("Failed to export document", "format", c.Format(), "error", err)
		// Can't write error response as we already set headers
		return
	}
}
