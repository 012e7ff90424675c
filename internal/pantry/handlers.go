package pantry

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/zombor/pantry-tracker/internal/recipes"
	"github.com/zombor/pantry-tracker/internal/scanning"
)

// maxUploadSize bounds multipart uploads; high-resolution phone photos run
// tens of megabytes.
const maxUploadSize = int64(50 << 20)

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

// pipelineErrorStatus maps the pipeline error taxonomy onto HTTP status
// codes. A rejected credential stays a 500: it is a server-side
// configuration failure, not something the client can fix by retrying.
func pipelineErrorStatus(err error) int {
	switch {
	case errors.Is(err, scanning.ErrServiceUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// readUpload pulls the "file" part out of a multipart form and resolves its
// content type, falling back to the filename extension.
func readUpload(w http.ResponseWriter, r *http.Request) (filename string, data []byte, contentType string, ok bool) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		msg := "Error parsing form"
		if err.Error() == "http: request body too large" {
			msg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		writeJSONError(w, http.StatusBadRequest, msg)
		return "", nil, "", false
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		writeJSONError(w, http.StatusBadRequest, "No file was selected. Please choose a file to upload.")
		return "", nil, "", false
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		writeJSONError(w, http.StatusBadRequest, "File is too large. Maximum size is 50MB. Please compress or resize your image.")
		return "", nil, "", false
	}

	data, err = io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeJSONError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
		return "", nil, "", false
	}

	contentType = strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if contentType == "" {
		switch strings.ToLower(filepath.Ext(header.Filename)) {
		case ".jpg", ".jpeg":
			contentType = "image/jpeg"
		case ".png":
			contentType = "image/png"
		case ".pdf":
			contentType = "application/pdf"
		case ".heic":
			contentType = "image/heic"
		case ".heif":
			contentType = "image/heif"
		default:
			contentType = "application/octet-stream"
		}
	}

	return header.Filename, data, contentType, true
}

// handleUploadReceipt runs the scan-and-reconcile pipeline on an uploaded
// receipt image and returns the outcome for review.
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	filename, data, contentType, ok := readUpload(w, r)
	if !ok {
		return
	}

	outcome, err := s.service.ProcessReceipt(r.Context(), filename, data, contentType)
	if err != nil {
		slog.Error("Error processing receipt", "filename", filename, "error", err)
		writeJSONError(w, pipelineErrorStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, outcome)
}

// handleListReceipts returns the scan history.
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.service.ListReceipts()
	if err != nil {
		slog.Error("Error listing receipts", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, receipts)
}

func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.service.GetReceipt(r.PathValue("id"))
	if err != nil {
		corsError(w, "Receipt not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleGetReceiptFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetReceiptFile(r.PathValue("id"))
	if err != nil {
		corsError(w, "File not found", http.StatusNotFound)
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteReceipt(r.PathValue("id")); err != nil {
		corsError(w, "Error deleting receipt", http.StatusInternalServerError)
		return
	}

	setCORSHeaders(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleConfirmItems takes the reviewer-approved item set and materializes
// it into the inventory. Blank-named items are dropped server-side as well;
// the review surface is not trusted to have done it.
func (s *Server) handleConfirmItems(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []LineItem `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	records, err := s.service.ConfirmItems(ConfirmItems(req.Items))
	if err != nil {
		slog.Error("Error confirming items", "error", err)
		writeJSONError(w, pipelineErrorStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, records)
}

func (s *Server) handleListInventory(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListInventory()
	if err != nil {
		slog.Error("Error listing inventory", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleDeleteInventoryItem(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteInventoryItem(r.PathValue("id")); err != nil {
		corsError(w, "Error deleting inventory item", http.StatusInternalServerError)
		return
	}

	setCORSHeaders(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleAttachNutrition scans an uploaded nutrition label and writes the
// facts onto the inventory record.
func (s *Server) handleAttachNutrition(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	filename, data, contentType, ok := readUpload(w, r)
	if !ok {
		return
	}

	item, err := s.service.AttachNutrition(r.Context(), id, data, contentType)
	if err != nil {
		slog.Error("Error attaching nutrition", "item_id", id, "filename", filename, "error", err)
		writeJSONError(w, pipelineErrorStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// handleVoiceCommand turns a transcript into inventory records.
func (s *Server) handleVoiceCommand(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Transcript string `json:"transcript"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Transcript) == "" {
		corsError(w, "Transcript required", http.StatusBadRequest)
		return
	}

	records, err := s.service.AddSpokenItems(r.Context(), req.Transcript)
	if err != nil {
		slog.Error("Error processing voice command", "error", err)
		writeJSONError(w, pipelineErrorStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, records)
}

// handleGenerateRecipe builds a recipe from named ingredients, or from the
// whole inventory when none are given.
func (s *Server) handleGenerateRecipe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ingredients []string            `json:"ingredients"`
		Mode        recipes.Mode        `json:"mode"`
		Appliances  []string            `json:"appliances"`
		Preferences recipes.Preferences `json:"preferences"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Mode == "" {
		req.Mode = recipes.ModeBestFit
	}

	if len(req.Ingredients) == 0 {
		items, err := s.service.ListInventory()
		if err != nil {
			slog.Error("Error listing inventory for recipe", "error", err)
			corsError(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		for _, item := range items {
			req.Ingredients = append(req.Ingredients, item.ItemName)
		}
	}

	recipe, err := s.recipeGen.Generate(r.Context(), req.Ingredients, req.Mode, req.Appliances, req.Preferences)
	if err != nil {
		slog.Error("Error generating recipe", "error", err)
		writeJSONError(w, pipelineErrorStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, recipe)
}

func (s *Server) handleAddShoppingItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string  `json:"name"`
		Quantity float64 `json:"quantity"`
		Unit     string  `json:"unit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	item, err := s.service.AddShoppingItem(req.Name, req.Quantity, req.Unit)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleListShoppingItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListShoppingItems()
	if err != nil {
		slog.Error("Error listing shopping items", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleToggleShoppingItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.service.ToggleShoppingItem(r.PathValue("id"))
	if err != nil {
		corsError(w, "Shopping item not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleRemoveShoppingItem(w http.ResponseWriter, r *http.Request) {
	if err := s.service.RemoveShoppingItem(r.PathValue("id")); err != nil {
		corsError(w, "Error deleting shopping item", http.StatusInternalServerError)
		return
	}

	setCORSHeaders(w)
	w.WriteHeader(http.StatusNoContent)
}
