package api

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API routes with the given router
func (h *Handler) RegisterRoutes(router *mux.Router) {
	// Documents
	router.HandleFunc("/documents", h.HandleList).Methods("GET")
	router.HandleFunc("/documents/{key}", h.HandleInsert).Methods("PUT")
	router.HandleFunc("/documents/{key}", h.HandleGet).Methods("GET")
	router.HandleFunc("/documents/{key}", h.HandleDelete).Methods("DELETE")

	// Queries
	router.HandleFunc("/query", h.HandleQuery).Methods("GET")
	router.HandleFunc("/range", h.HandleRange).Methods("GET")
	router.HandleFunc("/search", h.HandleSearch).Methods("GET")
	router.HandleFunc("/aggregate", h.HandleAggregate).Methods("GET")

	// Bulk operations
	router.HandleFunc("/batch", h.HandleBatch).Methods("POST")
	router.HandleFunc("/import", h.HandleImport).Methods("POST")
	router.HandleFunc("/export", h.HandleExport).Methods("POST")
	router.HandleFunc("/export", h.HandleExportStream).Methods("GET")
	router.HandleFunc("/backup", h.HandleBackup).Methods("POST")
	router.HandleFunc("/restore", h.HandleRestore).Methods("POST")

	// Databases and operations
	router.HandleFunc("/databases", h.HandleListDatabases).Methods("GET")
	router.HandleFunc("/databases", h.HandleCreateDatabase).Methods("POST")
	router.HandleFunc("/databases/{name}/use", h.HandleUseDatabase).Methods("POST")
	router.HandleFunc("/operations/{id}", h.HandleOperation).Methods("GET")

	router.HandleFunc("/health", h.HandleHealth).Methods("GET")
	router.HandleFunc("/metrics", h.HandleMetrics).Methods("GET")
}
