package server

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const maxStatementSize = 20 << 20 // 20MB upload cap

// handleStatementImport handles POST /api/statements/import. Accepts a
// multipart upload with a statement PDF under the "statement" field,
// extracts recurring charges and merges them into the caller's tracked
// subscriptions.
func (s *Server) handleStatementImport(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	uc, ok := requireUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxStatementSize)
	if err := r.ParseMultipartForm(maxStatementSize); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid multipart upload: "+err.Error())
		return
	}

	file, header, err := r.FormFile("statement")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "statement file is required")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		WriteError(w, http.StatusBadRequest, "statement must be a PDF")
		return
	}

	// The PDF reader needs a seekable file on disk.
	tmp, err := os.CreateTemp("", "statement-*.pdf")
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create temp file")
		WriteError(w, http.StatusInternalServerError, "import failed")
		return
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		s.logger.Error().Err(err).Msg("Failed to buffer statement upload")
		WriteError(w, http.StatusInternalServerError, "import failed")
		return
	}
	tmp.Close()

	subs, err := s.app.StatementImporter.Import(r.Context(), uc.UserID, tmpPath)
	if err != nil {
		s.logger.Error().Err(err).Str("user", uc.UserID).Msg("Statement import failed")
		WriteError(w, http.StatusUnprocessableEntity, "could not read statement")
		return
	}

	WriteData(w, http.StatusOK, map[string]interface{}{
		"subscriptions": subs,
		"count":         len(subs),
	})
}
