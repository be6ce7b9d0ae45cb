package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/egannguyen/microshop/internal/entity"
	"github.com/egannguyen/microshop/internal/service"
)

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	var (
		products []entity.Product
		err      error
	)
	switch q := r.URL.Query(); {
	case q.Get("category") != "":
		products, err = h.productSvc.ListByCategory(r.Context(), q.Get("category"))
	case q.Get("q") != "":
		products, err = h.productSvc.Search(r.Context(), q.Get("q"))
	default:
		products, err = h.productSvc.ListProducts(r.Context())
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "products": products})
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req service.NewProduct
	if !decodeJSON(w, r, &req) {
		return
	}
	product, err := h.productSvc.CreateProduct(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{"success": true, "message": "Product created successfully", "product": product})
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.productSvc.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "product": product})
}

func (h *Handler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req entity.ProductUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	product, err := h.productSvc.UpdateProduct(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Product updated successfully", "product": product})
}

func (h *Handler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.productSvc.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Product deleted successfully"})
}
